package models

import "time"

type UserSettings struct {
	ID        uint                   `json:"id" gorm:"primaryKey"`
	UserID    uint                   `json:"user_id" gorm:"uniqueIndex"`
	Settings  map[string]interface{} `json:"settings" gorm:"serializer:json"`
	UpdatedAt time.Time              `json:"updated_at"`
}
