package model

import (
	"time"
)

// swagger:model User
type User struct {
	ID            string    `gorm:"primaryKey;size:64" json:"user_id"`
	Interests     string    `gorm:"type:text;not null" json:"interests"`
	LearningStyle string    `gorm:"size:64;not null" json:"learning_style"`
	RegisteredAt  time.Time `json:"registered_date"`
	Timestamps
}

func (User) TableName() string {
	return "users"
}
