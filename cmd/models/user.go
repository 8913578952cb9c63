package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)


type User struct {
    gorm.Model
    FullName       string    `gorm:"column:full_name;size:255;not null" json:"full_name"`
    Email          string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
    PasswordHash   string    `gorm:"column:password_hash;size:255;not null" json:"-"`
    Role           string    `gorm:"column:role;size:50;not null" json:"role"`
    AvatarURL      string    `gorm:"column:avatar_url;size:255" json:"avatar_url,omitempty"`
    Refresh        string    `gorm:"column:refresh_token;size:255" json:"-"`
    RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

    Expert         *ExpertProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;nullable" json:"expert,omitempty"`
}

// Role is assigned at signup and never changes afterwards.
const (
    RoleCustomer = "customer"
    RoleExpert   = "expert"
)


type ExpertProfile struct {
    gorm.Model
    UserID           uint           `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
    Title            string         `gorm:"column:title;size:255" json:"title"`
    Description      string         `gorm:"column:description;type:text" json:"description"`
    ExpertiseTags    pq.StringArray `gorm:"column:expertise_tags;type:text[]" json:"expertise_tags,omitempty"`
    HourlyRate       float64        `gorm:"column:hourly_rate;default:0" json:"hourly_rate"`
    SubscriptionTier string         `gorm:"column:subscription_tier;size:50;default:'free'" json:"subscription_tier"`
    IsAvailable      bool           `gorm:"column:is_available;default:true" json:"is_available"`

    AverageRating    float64        `gorm:"column:average_rating;default:0" json:"average_rating"`
    TotalReviews     int            `gorm:"column:total_reviews;default:0" json:"total_reviews"`

    User             *User          `gorm:"foreignKey:UserID" json:"-"`
}

func (ExpertProfile) TableName() string {
    return "expert_profiles"
}
