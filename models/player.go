package models

import "time"

// PlayerPosition 会话级位置快照，断线时删除，遗留记录由清理任务回收
type PlayerPosition struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PlayerID  string    `json:"player_id" gorm:"uniqueIndex:idx_player_room"`
	RoomID    string    `json:"room_id" gorm:"uniqueIndex:idx_player_room;index"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	UpdatedAt time.Time `json:"updated_at"`
}
