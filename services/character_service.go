package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/c42705/stargety-oasis-sub008/models"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrInvalidSlot       = errors.New("character slot must be between 1 and 5")
)

type CharacterService struct {
	db *gorm.DB
}

func NewCharacterService(db *gorm.DB) *CharacterService {
	return &CharacterService{db: db}
}

// SaveCharacter 写入指定槽位，已占用则覆盖
func (s *CharacterService) SaveCharacter(userID uint, slot int, name string, avatar models.AvatarData) (*models.Character, error) {
	if slot < 1 || slot > 5 {
		return nil, ErrInvalidSlot
	}

	var character models.Character
	err := s.db.Where("user_id = ? AND slot = ?", userID, slot).First(&character).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	character.UserID = userID
	character.Slot = slot
	character.Name = name
	character.AvatarData = avatar

	if err := s.db.Save(&character).Error; err != nil {
		return nil, err
	}
	return &character, nil
}

func (s *CharacterService) GetCharacters(userID uint) ([]models.Character, error) {
	var characters []models.Character
	err := s.db.Where("user_id = ?", userID).Order("slot ASC").Find(&characters).Error
	return characters, err
}

// DeleteCharacter 清空槽位；槽位本来就空视为成功，不报错
func (s *CharacterService) DeleteCharacter(userID uint, slot int) (bool, error) {
	if slot < 1 || slot > 5 {
		return false, ErrInvalidSlot
	}
	result := s.db.Where("user_id = ? AND slot = ?", userID, slot).Delete(&models.Character{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetActiveCharacter 启用某个角色，角色必须属于该用户
func (s *CharacterService) SetActiveCharacter(userID, characterID uint) error {
	var character models.Character
	err := s.db.Where("id = ? AND user_id = ?", characterID, userID).First(&character).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCharacterNotFound
		}
		return err
	}

	var active models.ActiveCharacter
	err = s.db.Where("user_id = ?", userID).First(&active).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	active.UserID = userID
	active.CharacterID = characterID
	active.UpdatedAt = time.Now()
	return s.db.Save(&active).Error
}

// ActiveAvatar 世界加入时的头像兜底查询：取当前启用角色的精灵图配置
func (s *CharacterService) ActiveAvatar(userID uint) (models.AvatarData, bool) {
	var active models.ActiveCharacter
	if err := s.db.Where("user_id = ?", userID).First(&active).Error; err != nil {
		return nil, false
	}
	var character models.Character
	if err := s.db.First(&character, active.CharacterID).Error; err != nil {
		return nil, false
	}
	if character.AvatarData == nil {
		return nil, false
	}
	return character.AvatarData, true
}
