package models

import "time"

// Reaction (emoji, user_id, message_id) 组合唯一，保证重复添加幂等
type Reaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID string    `json:"message_id" gorm:"size:36;uniqueIndex:idx_reactions_unique"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_reactions_unique"`
	Emoji     string    `json:"emoji" gorm:"size:32;uniqueIndex:idx_reactions_unique"`
	CreatedAt time.Time `json:"created_at"`
}
