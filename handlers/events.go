package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/c42705/stargety-oasis-sub008/models"
)

// 入站事件
const (
	EventJoinRoom       = "join-room"
	EventSendMessage    = "send-message"
	EventTyping         = "typing"
	EventEditMessage    = "edit-message"
	EventDeleteMessage  = "delete-message"
	EventAddReaction    = "add-reaction"
	EventRemoveReaction = "remove-reaction"
	EventSearchMessages = "search-messages"

	EventPlayerJoinedWorld = "player-joined-world"
	EventPlayerMoved       = "player-moved"

	EventCallStarted = "ringcentral-call-started"
	EventCallJoined  = "ringcentral-participant-joined"
	EventCallLeft    = "ringcentral-participant-left"
	EventCallEnded   = "ringcentral-call-ended"
)

// 出站事件
const (
	EventRoomJoined      = "room-joined"
	EventChatMessage     = "chat-message"
	EventUsersList       = "users-list"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventWorldState      = "world-state"
	EventPlayerJoined    = "player-joined"
	EventPlayerLeft      = "player-left"
	EventMessageEdited   = "message:edited"
	EventMessageDeleted  = "message:deleted"
	EventReactionAdded   = "reaction:added"
	EventReactionRemoved = "reaction:removed"
	EventSearchResults   = "search-results"
	EventError           = "error"
)

// Envelope 一条 WebSocket 帧，事件名 + JSON 负载
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent 组装出站帧，负载序列化失败只记日志（调用方传的都是本地结构）
func NewEvent(eventType string, payload interface{}) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal %s payload: %v", eventType, err)
		data = []byte("null")
	}
	return Envelope{Type: eventType, Payload: data}
}

var errInvalidPayload = errors.New("invalid payload")

// decodePayload 入站负载在边界处解码校验，不合法的不会进入业务逻辑
func decodePayload(raw json.RawMessage, out interface{}) error {
	if len(raw) == 0 {
		return errInvalidPayload
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errInvalidPayload
	}
	return nil
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	User   string `json:"user"`
}

func (p JoinRoomPayload) Valid() bool { return p.RoomID != "" }

type AttachmentPayload struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

type SendMessagePayload struct {
	RoomID      string              `json:"roomId"`
	Message     string              `json:"message"`
	User        string              `json:"user"`
	UserID      *uint               `json:"userId,omitempty"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

func (p SendMessagePayload) Valid() bool { return p.RoomID != "" && p.Message != "" }

type TypingPayload struct {
	RoomID   string `json:"roomId"`
	User     string `json:"user"`
	IsTyping bool   `json:"isTyping"`
}

func (p TypingPayload) Valid() bool { return p.RoomID != "" }

type EditMessagePayload struct {
	MessageID string `json:"messageId"`
	Message   string `json:"message"`
}

func (p EditMessagePayload) Valid() bool { return p.MessageID != "" && p.Message != "" }

type DeleteMessagePayload struct {
	MessageID string `json:"messageId"`
}

func (p DeleteMessagePayload) Valid() bool { return p.MessageID != "" }

type ReactionPayload struct {
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
	UserID    uint   `json:"userId"`
}

func (p ReactionPayload) Valid() bool { return p.MessageID != "" && p.Emoji != "" && p.UserID != 0 }

type SearchMessagesPayload struct {
	RoomID string     `json:"roomId"`
	Query  string     `json:"query"`
	UserID *uint      `json:"userId,omitempty"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
}

func (p SearchMessagesPayload) Valid() bool { return p.RoomID != "" && p.Query != "" }

type PlayerJoinPayload struct {
	PlayerID   string            `json:"playerId"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	RoomID     string            `json:"roomId"`
	Name       string            `json:"name,omitempty"`
	AvatarData models.AvatarData `json:"avatarData,omitempty"`
}

func (p PlayerJoinPayload) Valid() bool { return p.PlayerID != "" && p.RoomID != "" }

type PlayerMovePayload struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	RoomID   string  `json:"roomId"`
}

func (p PlayerMovePayload) Valid() bool { return p.PlayerID != "" && p.RoomID != "" }

type CallStartedPayload struct {
	CallID string `json:"callId"`
	HostID string `json:"hostId"`
	Topic  string `json:"topic,omitempty"`
}

func (p CallStartedPayload) Valid() bool { return p.CallID != "" && p.HostID != "" }

type CallParticipantPayload struct {
	CallID          string `json:"callId"`
	ParticipantID   string `json:"participantId"`
	ParticipantName string `json:"participantName,omitempty"`
}

func (p CallParticipantPayload) Valid() bool { return p.CallID != "" && p.ParticipantID != "" }

type CallEndedPayload struct {
	CallID string `json:"callId"`
}

func (p CallEndedPayload) Valid() bool { return p.CallID != "" }

// ChatMessagePayload 广播给房间的完整消息
type ChatMessagePayload struct {
	ID          string              `json:"id"`
	Message     string              `json:"message"`
	User        string              `json:"user"`
	UserID      *uint               `json:"userId"`
	Timestamp   time.Time           `json:"timestamp"`
	Type        string              `json:"type"`
	RoomID      string              `json:"roomId"`
	IsEdited    bool                `json:"isEdited,omitempty"`
	IsDeleted   bool                `json:"isDeleted,omitempty"`
	Attachments []AttachmentPayload `json:"attachments,omitempty"`
}

func chatMessagePayload(m *models.Message) ChatMessagePayload {
	author, _ := m.Content["authorName"].(string)
	attachments := make([]AttachmentPayload, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, AttachmentPayload{
			FileName: a.FileName,
			URL:      a.URL,
			MimeType: a.MimeType,
			Size:     a.Size,
		})
	}
	return ChatMessagePayload{
		ID:          m.ID,
		Message:     m.Content.Text(),
		User:        author,
		UserID:      m.UserID,
		Timestamp:   m.CreatedAt,
		Type:        m.Type,
		RoomID:      m.RoomID,
		IsEdited:    m.IsEdited,
		IsDeleted:   m.IsDeleted,
		Attachments: attachments,
	}
}

type RoomJoinedPayload struct {
	RoomID         string               `json:"roomId"`
	Participants   []string             `json:"participants"`
	MessageHistory []ChatMessagePayload `json:"messageHistory"`
}

type PlayerStatePayload struct {
	PlayerID   string            `json:"playerId"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Name       string            `json:"name,omitempty"`
	AvatarData models.AvatarData `json:"avatarData,omitempty"`
	RoomID     string            `json:"roomId"`
}

type WorldStatePayload struct {
	Players []PlayerStatePayload `json:"players"`
	RoomID  string               `json:"roomId"`
}
