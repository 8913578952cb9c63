package models

import (
	"time"

	"gorm.io/gorm"
)

// AvailabilitySlot is a discrete bookable time range owned by one expert.
// IsBooked flips false->true exactly once when a booking consumes the slot
// and is never reset; slots are deleted only while unbooked.
type AvailabilitySlot struct {
	gorm.Model
	ExpertID  uint      `gorm:"column:expert_id;not null;index" json:"expert_id"`
	StartTime time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime   time.Time `gorm:"column:end_time;not null" json:"end_time"`
	IsBooked  bool      `gorm:"column:is_booked;not null;default:false" json:"is_booked"`

	Expert    *ExpertProfile `gorm:"foreignKey:ExpertID" json:"-"`
}

func (AvailabilitySlot) TableName() string {
	return "availability_slots"
}
