package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/c42705/stargety-oasis-sub008/config"
	"github.com/c42705/stargety-oasis-sub008/models"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageDeleted  = errors.New("message deleted")
)

// 软删除后的占位文本，原始内容不可再通过 API 取回
const tombstoneText = "[Message deleted]"

type ChatService struct {
	db           *gorm.DB
	ttl          time.Duration
	historyLimit int
	searchLimit  int
}

func NewChatService(db *gorm.DB, cfg *config.ChatConfig) *ChatService {
	return &ChatService{
		db:           db,
		ttl:          time.Duration(cfg.RoomTTLHours) * time.Hour,
		historyLimit: cfg.HistoryLimit,
		searchLimit:  cfg.SearchLimit,
	}
}

// EnsureRoom 房间不存在则创建；聊天房间带过期时间，其他类型不过期
func (s *ChatService) EnsureRoom(roomID, roomType string) (*models.Room, error) {
	var room models.Room
	err := s.db.Where("room_id = ?", roomID).First(&room).Error
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	room = models.Room{
		RoomID: roomID,
		Name:   roomID,
		Type:   roomType,
	}
	if roomType == "chat" {
		expires := time.Now().Add(s.ttl)
		room.ExpiresAt = &expires
	}
	if err := s.db.Create(&room).Error; err != nil {
		// 并发下另一个加入可能刚创建了同名房间
		var existing models.Room
		if lookupErr := s.db.Where("room_id = ?", roomID).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	return &room, nil
}

func (s *ChatService) GetRoom(roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.db.Where("room_id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// RoomsByType 按类型列出房间，给快照接口用
func (s *ChatService) RoomsByType(roomType string) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.Where("type = ?", roomType).Order("created_at DESC").Find(&rooms).Error
	return rooms, err
}

// ResolveUserID 校验作者 ID，查不到用户记录时归为 NULL
func (s *ChatService) ResolveUserID(userID *uint) *uint {
	if userID == nil || *userID == 0 {
		return nil
	}
	var count int64
	if err := s.db.Model(&models.User{}).Where("id = ?", *userID).Count(&count).Error; err != nil {
		log.Printf("Failed to resolve user %d: %v", *userID, err)
		return nil
	}
	if count == 0 {
		return nil
	}
	return userID
}

// SaveMessage 持久化消息，作者名内嵌在 content 里兜底
func (s *ChatService) SaveMessage(roomID, text, authorName string, userID *uint, attachments []models.Attachment) (*models.Message, error) {
	if _, err := s.GetRoom(roomID); err != nil {
		return nil, err
	}

	message := models.Message{
		ID:     uuid.New().String(),
		RoomID: roomID,
		UserID: s.ResolveUserID(userID),
		Content: models.MessageContent{
			"text":       text,
			"authorName": authorName,
		},
		Type:        "text",
		ExpiresAt:   time.Now().Add(s.ttl),
		CreatedAt:   time.Now(),
		Attachments: attachments,
	}
	if err := s.db.Create(&message).Error; err != nil {
		log.Printf("Failed to save message in room %s: %v", roomID, err)
		return nil, err
	}
	return &message, nil
}

// RecentMessages 最近 N 条历史消息，按时间升序返回
func (s *ChatService) RecentMessages(roomID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.db.
		Preload("Reactions").
		Preload("Attachments").
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(s.historyLimit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// 倒序取出后翻转成时间升序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *ChatService) GetMessage(messageID string) (*models.Message, error) {
	var message models.Message
	if err := s.db.Where("id = ?", messageID).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// EditMessage 重写 content 里的 text 字段并打上编辑标记。
// 已删除的消息是墓碑，不允许再编辑出活内容。
func (s *ChatService) EditMessage(messageID, newText string) (*models.Message, error) {
	var message models.Message
	if err := s.db.Where("id = ?", messageID).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if message.IsDeleted {
		return nil, ErrMessageDeleted
	}

	now := time.Now()
	if message.Content == nil {
		message.Content = models.MessageContent{}
	}
	message.Content["text"] = newText
	message.IsEdited = true
	message.EditedAt = &now

	if err := s.db.Save(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// DeleteMessage 软删除：内容替换为墓碑，行和 ID 保留
func (s *ChatService) DeleteMessage(messageID string) (*models.Message, error) {
	var message models.Message
	if err := s.db.Where("id = ?", messageID).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	message.Content = models.MessageContent{
		"text":      tombstoneText,
		"isDeleted": true,
	}
	message.IsDeleted = true

	if err := s.db.Save(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// AddReaction 幂等创建，返回是否真的新建
func (s *ChatService) AddReaction(messageID string, userID uint, emoji string) (*models.Reaction, bool, error) {
	var message models.Message
	if err := s.db.Where("id = ?", messageID).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrMessageNotFound
		}
		return nil, false, err
	}

	var existing models.Reaction
	err := s.db.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	reaction := models.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	}
	if err := s.db.Create(&reaction).Error; err != nil {
		return nil, false, err
	}
	return &reaction, true, nil
}

// RemoveReaction 幂等删除，返回是否真的删除了
func (s *ChatService) RemoveReaction(messageID string, userID uint, emoji string) (bool, error) {
	result := s.db.Where("message_id = ? AND user_id = ? AND emoji = ?", messageID, userID, emoji).
		Delete(&models.Reaction{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type SearchFilters struct {
	UserID *uint
	From   *time.Time
	To     *time.Time
}

// SearchMessages 大小写敏感的子串匹配，可选作者和时间范围过滤。
// SQL 先按房间/作者/时间收窄，文本匹配在内存里做，避免依赖数据库排序规则。
func (s *ChatService) SearchMessages(roomID, query string, filters SearchFilters) ([]models.Message, error) {
	if _, err := s.GetRoom(roomID); err != nil {
		return nil, err
	}

	q := s.db.Where("room_id = ? AND is_deleted = ?", roomID, false)
	if filters.UserID != nil {
		q = q.Where("user_id = ?", *filters.UserID)
	}
	if filters.From != nil {
		q = q.Where("created_at >= ?", *filters.From)
	}
	if filters.To != nil {
		q = q.Where("created_at <= ?", *filters.To)
	}

	var candidates []models.Message
	if err := q.Order("created_at DESC").Limit(s.searchLimit * 10).Find(&candidates).Error; err != nil {
		return nil, err
	}

	matches := make([]models.Message, 0)
	for _, m := range candidates {
		if strings.Contains(m.Content.Text(), query) {
			matches = append(matches, m)
			if len(matches) >= s.searchLimit {
				break
			}
		}
	}
	return matches, nil
}

// CleanupExpiredContent 删除过期消息，然后删除已过期且已无消息的房间。
// 连续执行是幂等的：第二次不会再删任何行。
func (s *ChatService) CleanupExpiredContent() (int64, error) {
	now := time.Now()
	var deleted int64

	var expiredIDs []string
	if err := s.db.Model(&models.Message{}).
		Where("expires_at < ?", now).
		Pluck("id", &expiredIDs).Error; err != nil {
		return 0, err
	}

	if len(expiredIDs) > 0 {
		if err := s.db.Where("message_id IN ?", expiredIDs).Delete(&models.Reaction{}).Error; err != nil {
			return deleted, err
		}
		if err := s.db.Where("message_id IN ?", expiredIDs).Delete(&models.Attachment{}).Error; err != nil {
			return deleted, err
		}
		result := s.db.Where("id IN ?", expiredIDs).Delete(&models.Message{})
		if result.Error != nil {
			return deleted, result.Error
		}
		deleted += result.RowsAffected
	}

	// 过期且已经没有消息的房间
	result := s.db.Where(
		"expires_at IS NOT NULL AND expires_at < ? AND room_id NOT IN (?)",
		now,
		s.db.Model(&models.Message{}).Select("room_id"),
	).Delete(&models.Room{})
	if result.Error != nil {
		return deleted, result.Error
	}
	deleted += result.RowsAffected

	return deleted, nil
}
