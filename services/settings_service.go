package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/c42705/stargety-oasis-sub008/models"
)

type SettingsService struct {
	db *gorm.DB
}

func NewSettingsService(db *gorm.DB) *SettingsService {
	return &SettingsService{db: db}
}

func (s *SettingsService) GetSettings(userID uint) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.db.Where("user_id = ?", userID).First(&settings).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.UserSettings{UserID: userID, Settings: map[string]interface{}{}}, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (s *SettingsService) SaveSettings(userID uint, values map[string]interface{}) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.db.Where("user_id = ?", userID).First(&settings).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	settings.UserID = userID
	settings.Settings = values
	settings.UpdatedAt = time.Now()
	if err := s.db.Save(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}
