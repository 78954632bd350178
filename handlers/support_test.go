package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/c42705/stargety-oasis-sub008/config"
	"github.com/c42705/stargety-oasis-sub008/models"
	"github.com/c42705/stargety-oasis-sub008/services"
)

type testEnv struct {
	hub   *Hub
	chat  *ChatController
	world *WorldController
	calls *CallController
	db    *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrateAll(db))

	chatCfg := &config.ChatConfig{RoomTTLHours: 8, HistoryLimit: 50, SearchLimit: 50}
	worldCfg := config.WorldConfig{Width: 800, Height: 600, Padding: 16}

	chatSvc := services.NewChatService(db, chatCfg)
	hub := NewHub()
	return &testEnv{
		hub:   hub,
		chat:  NewChatController(hub, chatSvc, nil, nil, nil, chatCfg),
		world: NewWorldController(hub, chatSvc, services.NewCharacterService(db), services.NewWorldService(db), worldCfg),
		calls: NewCallController(hub, chatSvc, nil),
		db:    db,
	}
}

// connect 挂一个不带真实 socket 的客户端，事件落在 Send 队列里由测试读取
func (e *testEnv) connect(username string, userID uint) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		Username: username,
		Send:     make(chan Envelope, 256),
		ctx:      ctx,
		cancel:   cancel,
	}
	e.hub.AddClient(client)
	return client
}

func drain(client *Client) []Envelope {
	var out []Envelope
	for {
		select {
		case env := <-client.Send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func eventTypes(events []Envelope) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func findEvent(t *testing.T, events []Envelope, eventType string) Envelope {
	t.Helper()
	for _, e := range events {
		if e.Type == eventType {
			return e
		}
	}
	t.Fatalf("no %s event in %v", eventType, eventTypes(events))
	return Envelope{}
}

func hasEvent(events []Envelope, eventType string) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func decodeInto(t *testing.T, env Envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Payload, out))
}
