package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"

	oasisredis "github.com/c42705/stargety-oasis-sub008/redis"
)

// RoomEvent 房间事件流里的一条记录
type RoomEvent struct {
	Event     string                 `json:"event"`  // chat-message, call-ended ...
	Domain    string                 `json:"domain"` // chat, world, video
	RoomID    string                 `json:"room_id"`
	Actor     string                 `json:"actor"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewRoomEvent(event, domain, roomID, actor string, payload map[string]interface{}) RoomEvent {
	return RoomEvent{
		Event:     event,
		Domain:    domain,
		RoomID:    roomID,
		Actor:     actor,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// RoomEventHandler 消费房间事件并把活跃度统计写进 Redis
type RoomEventHandler struct {
	redis *oasisredis.RedisClient
}

func NewRoomEventHandler(redisClient *oasisredis.RedisClient) *RoomEventHandler {
	return &RoomEventHandler{redis: redisClient}
}

func (h *RoomEventHandler) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event RoomEvent

	if err := json.Unmarshal(message.Value, &event); err != nil {
		log.Printf("Failed to unmarshal room event: %v", err)
		return err
	}

	if h.redis == nil {
		return nil
	}
	if err := h.redis.TouchRoomActivity(ctx, event.Domain, event.RoomID, event.Event); err != nil {
		log.Printf("Failed to record activity for room %s: %v", event.RoomID, err)
		return err
	}
	return nil
}
