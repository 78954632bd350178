package models

import "time"

// MessageContent 半结构化消息内容，允许 mentions/attachments 等扩展字段
type MessageContent map[string]interface{}

func (c MessageContent) Text() string {
	if c == nil {
		return ""
	}
	if s, ok := c["text"].(string); ok {
		return s
	}
	return ""
}

type Message struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	RoomID    string         `json:"room_id" gorm:"index"`
	UserID    *uint          `json:"user_id"` // 未知用户时为 NULL，作者名保存在 content 里
	Content   MessageContent `json:"content" gorm:"serializer:json"`
	Type      string         `json:"type"` // text, system
	IsEdited  bool           `json:"is_edited"`
	EditedAt  *time.Time     `json:"edited_at"`
	IsDeleted bool           `json:"is_deleted"`
	ExpiresAt time.Time      `json:"expires_at" gorm:"index"`
	CreatedAt time.Time      `json:"created_at"`

	Reactions   []Reaction   `json:"reactions,omitempty" gorm:"foreignKey:MessageID"`
	Attachments []Attachment `json:"attachments,omitempty" gorm:"foreignKey:MessageID"`
}

type Attachment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	MessageID string    `json:"message_id" gorm:"index;size:36"`
	FileName  string    `json:"file_name"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
