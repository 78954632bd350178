package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c42705/stargety-oasis-sub008/models"
)

func TestSavePositionUpsert(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorldService(db)

	require.NoError(t, svc.SavePosition("p1", "office", 100, 200))
	require.NoError(t, svc.SavePosition("p1", "office", 150, 250))

	var positions []models.PlayerPosition
	require.NoError(t, db.Find(&positions).Error)
	require.Len(t, positions, 1)
	assert.Equal(t, 150.0, positions[0].X)
	assert.Equal(t, 250.0, positions[0].Y)

	// 同一玩家在另一房间是另一条记录
	require.NoError(t, svc.SavePosition("p1", "lounge", 10, 10))
	require.NoError(t, db.Find(&positions).Error)
	assert.Len(t, positions, 2)
}

func TestDeletePosition(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorldService(db)

	require.NoError(t, svc.SavePosition("p1", "office", 100, 200))
	require.NoError(t, svc.DeletePosition("p1", "office"))

	var count int64
	require.NoError(t, db.Model(&models.PlayerPosition{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// 重复删除无副作用
	require.NoError(t, svc.DeletePosition("p1", "office"))
}

func TestPruneStalePositions(t *testing.T) {
	db := setupTestDB(t)
	svc := NewWorldService(db)

	stale := models.PlayerPosition{
		PlayerID:  "ghost",
		RoomID:    "office",
		X:         1,
		Y:         1,
		UpdatedAt: time.Now().Add(-48 * time.Hour),
	}
	require.NoError(t, db.Create(&stale).Error)
	require.NoError(t, svc.SavePosition("p1", "office", 100, 200))

	pruned, err := svc.PruneStalePositions(24 * time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	var remaining []models.PlayerPosition
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "p1", remaining[0].PlayerID)
}
