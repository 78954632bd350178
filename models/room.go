package models

import "time"

type Room struct {
	ID        uint       `json:"-" gorm:"primaryKey"`
	RoomID    string     `json:"room_id" gorm:"uniqueIndex"`
	Name      string     `json:"name"`
	Type      string     `json:"type"` // chat, world, video
	IsPrivate bool       `json:"is_private"`
	ExpiresAt *time.Time `json:"expires_at" gorm:"index"` // 过期后由清理任务删除
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
