package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/c42705/stargety-oasis-sub008/models"
)

type WorldService struct {
	db *gorm.DB
}

func NewWorldService(db *gorm.DB) *WorldService {
	return &WorldService{db: db}
}

// SavePosition 按 (player, room) 覆盖写入会话级位置
func (s *WorldService) SavePosition(playerID, roomID string, x, y float64) error {
	var pos models.PlayerPosition
	err := s.db.Where("player_id = ? AND room_id = ?", playerID, roomID).First(&pos).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	pos.PlayerID = playerID
	pos.RoomID = roomID
	pos.X = x
	pos.Y = y
	pos.UpdatedAt = time.Now()
	return s.db.Save(&pos).Error
}

func (s *WorldService) DeletePosition(playerID, roomID string) error {
	return s.db.Where("player_id = ? AND room_id = ?", playerID, roomID).
		Delete(&models.PlayerPosition{}).Error
}

// PruneStalePositions 回收断线残留的位置记录
func (s *WorldService) PruneStalePositions(maxAge time.Duration) (int64, error) {
	result := s.db.Where("updated_at < ?", time.Now().Add(-maxAge)).
		Delete(&models.PlayerPosition{})
	return result.RowsAffected, result.Error
}
