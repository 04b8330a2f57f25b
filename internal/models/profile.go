package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultPageSize = 25

type UserProfile struct {
	BaseModel
	UserID   uuid.UUID  `json:"userID" gorm:"type:uuid;uniqueIndex;not null"`
	Bio      string     `json:"bio" gorm:"type:varchar(2000);not null;default:''"`
	Birthday *time.Time `json:"birthday,omitempty" gorm:"type:date"`
	Website  *string    `json:"website,omitempty" gorm:"type:text"`
	DarkMode bool       `json:"darkMode" gorm:"not null;default:false"`
	PageSize int        `json:"pageSize" gorm:"not null;default:25"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p UserProfile) OwnerID() uuid.UUID {
	return p.UserID
}
