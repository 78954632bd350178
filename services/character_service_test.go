package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c42705/stargety-oasis-sub008/models"
)

func TestSaveCharacterSlots(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCharacterService(db)

	_, err := svc.SaveCharacter(1, 0, "bad", nil)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = svc.SaveCharacter(1, 6, "bad", nil)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	first, err := svc.SaveCharacter(1, 2, "Scout", models.AvatarData{"sprite": "scout.png"})
	require.NoError(t, err)

	// 同一槽位覆盖而不是新建
	second, err := svc.SaveCharacter(1, 2, "Knight", models.AvatarData{"sprite": "knight.png"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	characters, err := svc.GetCharacters(1)
	require.NoError(t, err)
	require.Len(t, characters, 1)
	assert.Equal(t, "Knight", characters[0].Name)
}

func TestDeleteCharacterEmptySlot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCharacterService(db)

	// 空槽位删除不报错
	deleted, err := svc.DeleteCharacter(1, 3)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = svc.SaveCharacter(1, 3, "Scout", nil)
	require.NoError(t, err)

	deleted, err = svc.DeleteCharacter(1, 3)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestActiveAvatar(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCharacterService(db)

	_, ok := svc.ActiveAvatar(1)
	assert.False(t, ok)

	character, err := svc.SaveCharacter(1, 1, "Scout", models.AvatarData{"sprite": "scout.png"})
	require.NoError(t, err)

	// 启用别人的角色被拒绝
	err = svc.SetActiveCharacter(2, character.ID)
	assert.ErrorIs(t, err, ErrCharacterNotFound)

	require.NoError(t, svc.SetActiveCharacter(1, character.ID))

	avatar, ok := svc.ActiveAvatar(1)
	require.True(t, ok)
	assert.Equal(t, "scout.png", avatar["sprite"])
}
