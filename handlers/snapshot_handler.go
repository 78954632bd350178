package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/c42705/stargety-oasis-sub008/services"
)

// SnapshotHandler 只读 HTTP 快照，和实时通道分开
type SnapshotHandler struct {
	chat      *services.ChatService
	chatCtrl  *ChatController
	worldCtrl *WorldController
	callCtrl  *CallController
}

func NewSnapshotHandler(chat *services.ChatService, chatCtrl *ChatController,
	worldCtrl *WorldController, callCtrl *CallController) *SnapshotHandler {
	return &SnapshotHandler{
		chat:      chat,
		chatCtrl:  chatCtrl,
		worldCtrl: worldCtrl,
		callCtrl:  callCtrl,
	}
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func (h *SnapshotHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "oasis-server",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *SnapshotHandler) GetChatRoom(c echo.Context) error {
	roomID := c.Param("roomId")
	room, err := h.chat.GetRoom(roomID)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			return notFound(c, "room not found")
		}
		return internalError(c, "failed to fetch room")
	}
	return ok(c, map[string]interface{}{
		"room":         room,
		"participants": h.chatCtrl.usernames(roomID),
	})
}

func (h *SnapshotHandler) GetChatRoomMessages(c echo.Context) error {
	roomID := c.Param("roomId")
	if _, err := h.chat.GetRoom(roomID); err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			return notFound(c, "room not found")
		}
		return internalError(c, "failed to fetch room")
	}
	messages, err := h.chat.RecentMessages(roomID)
	if err != nil {
		return internalError(c, "failed to fetch messages")
	}
	payload := make([]ChatMessagePayload, 0, len(messages))
	for i := range messages {
		payload = append(payload, chatMessagePayload(&messages[i]))
	}
	return ok(c, payload)
}

func (h *SnapshotHandler) GetWorldRoom(c echo.Context) error {
	roomID := c.Param("roomId")
	players := h.worldCtrl.PlayersIn(roomID)
	if len(players) == 0 {
		if _, err := h.chat.GetRoom(roomID); err != nil {
			return notFound(c, "room not found")
		}
	}
	return ok(c, WorldStatePayload{Players: players, RoomID: roomID})
}

func (h *SnapshotHandler) GetVideoRooms(c echo.Context) error {
	rooms, err := h.chat.RoomsByType("video")
	if err != nil {
		return internalError(c, "failed to fetch video rooms")
	}
	return ok(c, rooms)
}

func (h *SnapshotHandler) GetVideoRoom(c echo.Context) error {
	roomID := c.Param("roomId")
	room, err := h.chat.GetRoom(roomID)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			return notFound(c, "room not found")
		}
		return internalError(c, "failed to fetch room")
	}
	return ok(c, map[string]interface{}{
		"room":         room,
		"participants": h.callCtrl.ParticipantsOf(roomID),
	})
}

func (h *SnapshotHandler) GetCalls(c echo.Context) error {
	return ok(c, h.callCtrl.ActiveCalls())
}

func (h *SnapshotHandler) GetCall(c echo.Context) error {
	callID := c.Param("callId")
	session, found := h.callCtrl.GetActiveCall(callID)
	if !found {
		return notFound(c, "call not found")
	}
	return ok(c, map[string]interface{}{
		"call":         session,
		"participants": h.callCtrl.ParticipantsOf(callID),
	})
}
