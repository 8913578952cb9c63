package models

import (
	"time"

	"gorm.io/gorm"
)

// CallLog is an append-only audit row written when a video token is issued.
// EndedAt and DurationSeconds are filled in when the participant ends the call.
type CallLog struct {
	gorm.Model
	RoomName            string     `gorm:"column:room_name;size:255;not null;index" json:"room_name"`
	ParticipantIdentity string     `gorm:"column:participant_identity;size:255;not null" json:"participant_identity"`
	ParticipantName     string     `gorm:"column:participant_name;size:255" json:"participant_name"`
	UserID              uint       `gorm:"column:user_id;not null;index" json:"user_id"`
	StartedAt           time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt             *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	DurationSeconds     *int       `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
}

func (CallLog) TableName() string {
	return "call_logs"
}
