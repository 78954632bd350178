package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/c42705/stargety-oasis-sub008/config"
	"github.com/c42705/stargety-oasis-sub008/kafka"
	"github.com/c42705/stargety-oasis-sub008/limiter"
	"github.com/c42705/stargety-oasis-sub008/models"
	oasisredis "github.com/c42705/stargety-oasis-sub008/redis"
	"github.com/c42705/stargety-oasis-sub008/services"
)

// ChatController 聊天域：加入/离开、消息、输入提示、编辑/删除、表情回应、搜索。
// Redis / Kafka / 限流器都可为 nil，降级为纯内存路径。
type ChatController struct {
	hub      *Hub
	service  *services.ChatService
	redis    *oasisredis.RedisClient
	producer *kafka.Producer
	limiter  *limiter.Manager
	rate     int
	window   time.Duration
}

func NewChatController(hub *Hub, service *services.ChatService, redisClient *oasisredis.RedisClient,
	producer *kafka.Producer, rateLimiter *limiter.Manager, cfg *config.ChatConfig) *ChatController {
	return &ChatController{
		hub:      hub,
		service:  service,
		redis:    redisClient,
		producer: producer,
		limiter:  rateLimiter,
		rate:     cfg.MessageRate,
		window:   time.Duration(cfg.RateWindowSecs) * time.Second,
	}
}

// HandleJoinRoom 房间不存在则建（带8小时过期），回给加入者历史和成员列表，
// 其余成员收到刷新后的 users-list 和 user-joined 通知。重复加入不报错。
func (c *ChatController) HandleJoinRoom(client *Client, p JoinRoomPayload) {
	username := p.User
	if username == "" {
		username = client.Username
	}

	if _, err := c.service.EnsureRoom(p.RoomID, "chat"); err != nil {
		log.Printf("Failed to ensure room %s: %v", p.RoomID, err)
		c.hub.SendError(client.ID, "failed to join room")
		return
	}

	c.hub.Chat.Bind(client.ID, username)
	c.hub.Chat.Join(p.RoomID, client.ID, ChatParticipant{Username: username, UserID: client.UserID})

	if c.redis != nil {
		err := c.redis.AddOnlineUser(context.Background(), "chat", p.RoomID,
			oasisredis.OnlineUser{UserID: client.UserID, Username: username})
		if err != nil {
			log.Printf("Failed to add online user to Redis: %v", err)
		}
	}

	history, err := c.service.RecentMessages(p.RoomID)
	if err != nil {
		log.Printf("Failed to load history for room %s: %v", p.RoomID, err)
		history = nil
	}
	messageHistory := make([]ChatMessagePayload, 0, len(history))
	for i := range history {
		messageHistory = append(messageHistory, chatMessagePayload(&history[i]))
	}

	users := c.usernames(p.RoomID)

	c.hub.SendTo(client.ID, NewEvent(EventRoomJoined, RoomJoinedPayload{
		RoomID:         p.RoomID,
		Participants:   users,
		MessageHistory: messageHistory,
	}))

	others := c.hub.Chat.ConnIDs(p.RoomID)
	c.hub.SendToConns(others, NewEvent(EventUsersList, users), client.ID)
	c.hub.SendToConns(others, NewEvent(EventUserJoined, username), client.ID)
}

// HandleSendMessage 房间必须已存在；持久化后向全房间广播（含发送者回显）。
// 持久化失败时发送者收到 error 事件，消息即告丢失，没有重试队列。
func (c *ChatController) HandleSendMessage(client *Client, p SendMessagePayload) {
	username := p.User
	if username == "" {
		username = client.Username
	}

	if !c.allowSend(client) {
		c.hub.SendError(client.ID, "rate limit exceeded")
		return
	}

	attachments := make([]models.Attachment, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		attachments = append(attachments, models.Attachment{
			FileName: a.FileName,
			URL:      a.URL,
			MimeType: a.MimeType,
			Size:     a.Size,
		})
	}

	message, err := c.service.SaveMessage(p.RoomID, p.Message, username, p.UserID, attachments)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			c.hub.SendError(client.ID, "room not found")
		} else {
			c.hub.SendError(client.ID, "failed to send message")
		}
		return
	}

	event := NewEvent(EventChatMessage, chatMessagePayload(message))
	c.hub.SendToConns(c.hub.Chat.ConnIDs(p.RoomID), event, "")

	c.publish(kafka.NewRoomEvent(EventChatMessage, "chat", p.RoomID, username, map[string]interface{}{
		"messageId": message.ID,
	}))
}

// HandleTyping 不持久化，原样转发给房间里其他人
func (c *ChatController) HandleTyping(client *Client, p TypingPayload) {
	c.hub.SendToConns(c.hub.Chat.ConnIDs(p.RoomID), NewEvent(EventTyping, p), client.ID)
}

func (c *ChatController) HandleEditMessage(client *Client, p EditMessagePayload) {
	message, err := c.service.EditMessage(p.MessageID, p.Message)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMessageNotFound):
			c.hub.SendError(client.ID, "message not found")
		case errors.Is(err, services.ErrMessageDeleted):
			c.hub.SendError(client.ID, "message deleted")
		default:
			c.hub.SendError(client.ID, "failed to edit message")
		}
		return
	}

	// 编辑事件的广播范围是消息所属房间
	c.hub.SendToConns(c.hub.Chat.ConnIDs(message.RoomID),
		NewEvent(EventMessageEdited, chatMessagePayload(message)), "")
}

func (c *ChatController) HandleDeleteMessage(client *Client, p DeleteMessagePayload) {
	message, err := c.service.DeleteMessage(p.MessageID)
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			c.hub.SendError(client.ID, "message not found")
		} else {
			c.hub.SendError(client.ID, "failed to delete message")
		}
		return
	}

	c.hub.SendToConns(c.hub.Chat.ConnIDs(message.RoomID),
		NewEvent(EventMessageDeleted, chatMessagePayload(message)), "")
}

func (c *ChatController) HandleAddReaction(client *Client, p ReactionPayload) {
	reaction, created, err := c.service.AddReaction(p.MessageID, p.UserID, p.Emoji)
	if err != nil {
		if errors.Is(err, services.ErrMessageNotFound) {
			c.hub.SendError(client.ID, "message not found")
		} else {
			c.hub.SendError(client.ID, "failed to add reaction")
		}
		return
	}
	// 重复添加视为成功，但不再广播
	if !created {
		return
	}

	message, err := c.service.GetMessage(p.MessageID)
	if err != nil {
		return
	}
	c.hub.SendToConns(c.hub.Chat.ConnIDs(message.RoomID), NewEvent(EventReactionAdded, map[string]interface{}{
		"messageId": reaction.MessageID,
		"emoji":     reaction.Emoji,
		"userId":    reaction.UserID,
		"roomId":    message.RoomID,
	}), "")
}

func (c *ChatController) HandleRemoveReaction(client *Client, p ReactionPayload) {
	removed, err := c.service.RemoveReaction(p.MessageID, p.UserID, p.Emoji)
	if err != nil {
		c.hub.SendError(client.ID, "failed to remove reaction")
		return
	}
	if !removed {
		return
	}

	message, err := c.service.GetMessage(p.MessageID)
	if err != nil {
		return
	}
	c.hub.SendToConns(c.hub.Chat.ConnIDs(message.RoomID), NewEvent(EventReactionRemoved, map[string]interface{}{
		"messageId": p.MessageID,
		"emoji":     p.Emoji,
		"userId":    p.UserID,
		"roomId":    message.RoomID,
	}), "")
}

// HandleSearchMessages 结果只回给发起搜索的连接
func (c *ChatController) HandleSearchMessages(client *Client, p SearchMessagesPayload) {
	messages, err := c.service.SearchMessages(p.RoomID, p.Query, services.SearchFilters{
		UserID: p.UserID,
		From:   p.From,
		To:     p.To,
	})
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			c.hub.SendError(client.ID, "room not found")
		} else {
			c.hub.SendError(client.ID, "search failed")
		}
		return
	}

	results := make([]ChatMessagePayload, 0, len(messages))
	for i := range messages {
		results = append(results, chatMessagePayload(&messages[i]))
	}
	c.hub.SendTo(client.ID, NewEvent(EventSearchResults, map[string]interface{}{
		"roomId":  p.RoomID,
		"query":   p.Query,
		"results": results,
	}))
}

// HandleDisconnect 把用户移出其加入的每个房间，并向受影响房间
// 广播 user-left 和刷新后的 users-list
func (c *ChatController) HandleDisconnect(client *Client) {
	username, bound := c.hub.Chat.IdentityOf(client.ID)
	affected := c.hub.Chat.Remove(client.ID)
	if !bound {
		return
	}

	for _, roomID := range affected {
		if c.redis != nil {
			if err := c.redis.RemoveOnlineUser(context.Background(), "chat", roomID, username); err != nil {
				log.Printf("Failed to remove online user from Redis: %v", err)
			}
		}
		conns := c.hub.Chat.ConnIDs(roomID)
		c.hub.SendToConns(conns, NewEvent(EventUserLeft, username), "")
		c.hub.SendToConns(conns, NewEvent(EventUsersList, c.usernames(roomID)), "")
	}
}

// usernames 房间成员名单，按名字去重排序
func (c *ChatController) usernames(roomID string) []string {
	participants := c.hub.Chat.Participants(roomID)
	seen := make(map[string]bool, len(participants))
	users := make([]string, 0, len(participants))
	for _, p := range participants {
		if seen[p.Username] {
			continue
		}
		seen[p.Username] = true
		users = append(users, p.Username)
	}
	sort.Strings(users)
	return users
}

// allowSend 消息洪峰限流，按账号而不是负载里自报的名字计数，
// Redis 不可用时放行
func (c *ChatController) allowSend(client *Client) bool {
	if c.limiter == nil || c.rate <= 0 {
		return true
	}
	key := fmt.Sprintf("chat:rate:%d", client.UserID)
	allowed, err := c.limiter.Allow(context.Background(), key, c.rate, c.window)
	if err != nil {
		log.Printf("Rate limiter unavailable: %v", err)
		return true
	}
	return allowed
}

func (c *ChatController) publish(event kafka.RoomEvent) {
	if c.producer == nil {
		return
	}
	if err := c.producer.PublishEvent(event); err != nil {
		log.Printf("Failed to publish %s event: %v", event.Event, err)
	}
}
