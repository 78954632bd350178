package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/c42705/stargety-oasis-sub008/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client 一条 WebSocket 连接，聊天/世界/通话事件共用
type Client struct {
	ID       string             // 连接唯一标识（UUID）
	UserID   uint               // 用户数据库ID
	Username string             // 账号用户名
	Conn     *websocket.Conn    // WebSocket连接
	Send     chan Envelope      // 发送队列（缓冲256条）
	ctx      context.Context    // 上下文管理
	cancel   context.CancelFunc // 取消函数
	once     sync.Once
}

// Close 幂等关闭：停写协程并断开底层连接
func (c *Client) Close() {
	c.once.Do(func() {
		c.cancel()
		if c.Conn != nil {
			c.Conn.Close()
		}
	})
}

// WSHandler 升级连接并把事件分发到三个域控制器
type WSHandler struct {
	hub   *Hub
	chat  *ChatController
	world *WorldController
	calls *CallController
}

func NewWSHandler(hub *Hub, chat *ChatController, world *WorldController, calls *CallController) *WSHandler {
	return &WSHandler{
		hub:   hub,
		chat:  chat,
		world: world,
		calls: calls,
	}
}

func (h *WSHandler) HandleWebSocket(c echo.Context) error {
	user := c.Get("user").(*models.User)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:       uuid.New().String(),
		UserID:   user.ID,
		Username: user.Username,
		Conn:     ws,
		Send:     make(chan Envelope, 256),
		ctx:      ctx,
		cancel:   cancel,
	}

	h.hub.AddClient(client)

	// 启动写入goroutine
	go h.writePump(client)

	// 当前goroutine处理读取
	h.readPump(client)

	return nil
}

// 读取客户端消息
func (h *WSHandler) readPump(client *Client) {
	defer func() {
		client.Close()
		h.hub.RemoveClient(client.ID)

		// 断线时逐域回退 join 的副作用，每个域恰好一次
		h.chat.HandleDisconnect(client)
		h.world.HandleDisconnect(client)
		h.calls.HandleDisconnect(client)
	}()

	client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		var env Envelope
		err := client.Conn.ReadJSON(&env)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		h.dispatch(client, env)
	}
}

// 向客户端写入消息
func (h *WSHandler) writePump(client *Client) {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		client.Close()
	}()

	for {
		select {
		case <-client.ctx.Done():
			return

		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Conn.WriteJSON(event); err != nil {
				log.Printf("WriteJSON error: %v", err)
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch 事件分发；负载在这里完成解码和校验
func (h *WSHandler) dispatch(client *Client, env Envelope) {
	switch env.Type {
	case EventJoinRoom:
		var p JoinRoomPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleJoinRoom(client, p)

	case EventSendMessage:
		var p SendMessagePayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleSendMessage(client, p)

	case EventTyping:
		var p TypingPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleTyping(client, p)

	case EventEditMessage:
		var p EditMessagePayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleEditMessage(client, p)

	case EventDeleteMessage:
		var p DeleteMessagePayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleDeleteMessage(client, p)

	case EventAddReaction:
		var p ReactionPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleAddReaction(client, p)

	case EventRemoveReaction:
		var p ReactionPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleRemoveReaction(client, p)

	case EventSearchMessages:
		var p SearchMessagesPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.chat.HandleSearchMessages(client, p)

	case EventPlayerJoinedWorld:
		var p PlayerJoinPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.world.HandlePlayerJoined(client, p)

	case EventPlayerMoved:
		var p PlayerMovePayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.world.HandlePlayerMoved(client, p)

	case EventCallStarted:
		var p CallStartedPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.calls.HandleCallStarted(client, p)

	case EventCallJoined:
		var p CallParticipantPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.calls.HandleParticipantJoined(client, p)

	case EventCallLeft:
		var p CallParticipantPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.calls.HandleParticipantLeft(client, p)

	case EventCallEnded:
		var p CallEndedPayload
		if decodePayload(env.Payload, &p) != nil || !p.Valid() {
			h.hub.SendError(client.ID, "invalid payload")
			return
		}
		h.calls.HandleCallEnded(client, p)

	default:
		h.hub.SendError(client.ID, "unknown event type")
	}
}
