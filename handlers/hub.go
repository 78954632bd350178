package handlers

import (
	"log"
	"sync"

	"github.com/c42705/stargety-oasis-sub008/models"
	"github.com/c42705/stargety-oasis-sub008/registry"
)

// ChatParticipant 聊天域成员数据
type ChatParticipant struct {
	Username string
	UserID   uint
}

// PlayerState 世界域成员数据（位置 + 头像）
type PlayerState struct {
	PlayerID string
	Name     string
	X        float64
	Y        float64
	Avatar   models.AvatarData
}

// CallParticipant 通话域成员数据
type CallParticipant struct {
	ID   string
	Name string
}

// Hub 持有所有连接和三个域的登记表，启动时构造一次，
// 由各控制器共享引用，不使用包级全局状态。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	Chat  *registry.Registry[ChatParticipant]
	World *registry.Registry[PlayerState]
	Calls *registry.Registry[CallParticipant]
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		Chat:    registry.New[ChatParticipant](),
		World:   registry.New[PlayerState](),
		Calls:   registry.New[CallParticipant](),
	}
}

func (h *Hub) AddClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
}

func (h *Hub) RemoveClient(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

func (h *Hub) Client(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	return client, ok
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendTo 投递给单个连接，发送队列满则踢掉该客户端
func (h *Hub) SendTo(connID string, event Envelope) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.deliver(client, event)
}

// SendToConns 投递给一组连接（由各域登记表给出受众）
func (h *Hub) SendToConns(connIDs []string, event Envelope, except string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(connIDs))
	for _, connID := range connIDs {
		if connID == except {
			continue
		}
		if client, ok := h.clients[connID]; ok {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, event)
	}
}

// Broadcast 投递给全部连接，except 为空则不排除
func (h *Hub) Broadcast(event Envelope, except string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		if client.ID == except {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, event)
	}
}

func (h *Hub) deliver(client *Client, event Envelope) {
	select {
	case client.Send <- event:
	default:
		// 队列满说明客户端已经跟不上，直接断开
		log.Printf("Client %s send buffer full, disconnecting", client.ID)
		client.Close()
	}
}

// SendError 只发给出错请求的连接
func (h *Hub) SendError(connID, message string) {
	h.SendTo(connID, NewEvent(EventError, ErrorPayload{Message: message}))
}
