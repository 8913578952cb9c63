package models

import (
	"time"

	"gorm.io/gorm"
)

// Appointment statuses. pending -> approved|declined; approved -> completed|cancelled.
// declined, completed and cancelled are terminal.
const (
	AppointmentPending   = "pending"
	AppointmentApproved  = "approved"
	AppointmentDeclined  = "declined"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

type Appointment struct {
	gorm.Model
	UserID             uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	ExpertID           uint      `gorm:"column:expert_id;not null;index" json:"expert_id"`
	AvailabilitySlotID uint      `gorm:"column:availability_slot_id;not null" json:"availability_slot_id"`
	Title              string    `gorm:"column:title;size:255;not null" json:"title"`
	Description        string    `gorm:"column:description;type:text" json:"description,omitempty"`
	Status             string    `gorm:"column:status;size:50;not null;default:'pending'" json:"status"`
	ScheduledAt        time.Time `gorm:"column:scheduled_at;not null" json:"scheduled_at"`
	DurationMinutes    int       `gorm:"column:duration_minutes;not null;default:60" json:"duration_minutes"`
	MeetingURL         string    `gorm:"column:meeting_url;size:255" json:"meeting_url,omitempty"`
	MeetingRoomName    string    `gorm:"column:meeting_room_name;size:255" json:"meeting_room_name,omitempty"`

	User             *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Expert           *ExpertProfile    `gorm:"foreignKey:ExpertID" json:"expert,omitempty"`
	AvailabilitySlot *AvailabilitySlot `gorm:"foreignKey:AvailabilitySlotID" json:"availability_slot,omitempty"`
}
