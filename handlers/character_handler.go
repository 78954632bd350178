package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/c42705/stargety-oasis-sub008/models"
	"github.com/c42705/stargety-oasis-sub008/services"
)

// CharacterHandler 角色槽位和用户设置的 REST 接口
type CharacterHandler struct {
	characters *services.CharacterService
	settings   *services.SettingsService
}

func NewCharacterHandler(characters *services.CharacterService, settings *services.SettingsService) *CharacterHandler {
	return &CharacterHandler{characters: characters, settings: settings}
}

func (h *CharacterHandler) ListCharacters(c echo.Context) error {
	user := c.Get("user").(*models.User)
	characters, err := h.characters.GetCharacters(user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch characters"})
	}
	return c.JSON(http.StatusOK, characters)
}

func (h *CharacterHandler) SaveCharacter(c echo.Context) error {
	user := c.Get("user").(*models.User)
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid slot"})
	}

	var req struct {
		Name       string            `json:"name"`
		AvatarData models.AvatarData `json:"avatar_data"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	character, err := h.characters.SaveCharacter(user.ID, slot, req.Name, req.AvatarData)
	if err != nil {
		if err == services.ErrInvalidSlot {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save character"})
	}
	return c.JSON(http.StatusOK, character)
}

// DeleteCharacter 清空槽位；槽位本来就空也返回 200
func (h *CharacterHandler) DeleteCharacter(c echo.Context) error {
	user := c.Get("user").(*models.User)
	slot, err := strconv.Atoi(c.Param("slot"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid slot"})
	}

	deleted, err := h.characters.DeleteCharacter(user.ID, slot)
	if err != nil {
		if err == services.ErrInvalidSlot {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete character"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *CharacterHandler) ActivateCharacter(c echo.Context) error {
	user := c.Get("user").(*models.User)
	var req struct {
		CharacterID uint `json:"character_id"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	if err := h.characters.SetActiveCharacter(user.ID, req.CharacterID); err != nil {
		if err == services.ErrCharacterNotFound {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to activate character"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "character activated"})
}

func (h *CharacterHandler) GetSettings(c echo.Context) error {
	user := c.Get("user").(*models.User)
	settings, err := h.settings.GetSettings(user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to fetch settings"})
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *CharacterHandler) SaveSettings(c echo.Context) error {
	user := c.Get("user").(*models.User)
	var req map[string]interface{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	settings, err := h.settings.SaveSettings(user.ID, req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
	}
	return c.JSON(http.StatusOK, settings)
}
