package models

import "time"

// AvatarData 精灵图配置（sprite sheet 引用等）
type AvatarData map[string]interface{}

// Character 每个用户 1-5 号角色槽位
type Character struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	UserID     uint       `json:"user_id" gorm:"uniqueIndex:idx_user_slot"`
	Slot       int        `json:"slot" gorm:"uniqueIndex:idx_user_slot"`
	Name       string     `json:"name"`
	AvatarData AvatarData `json:"avatar_data" gorm:"serializer:json"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ActiveCharacter 用户当前启用的角色
type ActiveCharacter struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex"`
	CharacterID uint      `json:"character_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}
