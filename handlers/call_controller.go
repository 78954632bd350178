package handlers

import (
	"log"
	"sync"
	"time"

	"github.com/c42705/stargety-oasis-sub008/kafka"
	"github.com/c42705/stargety-oasis-sub008/services"
)

const (
	callStatusActive = "active"
	callStatusEnded  = "ended"
)

// CallSession 一通进行中的通话
type CallSession struct {
	CallID    string    `json:"callId"`
	HostID    string    `json:"hostId"`
	Topic     string    `json:"topic,omitempty"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}

// CallController 通话域：独立于聊天和世界状态的临时通话会话跟踪
type CallController struct {
	hub      *Hub
	rooms    *services.ChatService
	producer *kafka.Producer

	mu    sync.RWMutex
	calls map[string]*CallSession
}

func NewCallController(hub *Hub, rooms *services.ChatService, producer *kafka.Producer) *CallController {
	return &CallController{
		hub:      hub,
		rooms:    rooms,
		producer: producer,
		calls:    make(map[string]*CallSession),
	}
}

// HandleCallStarted 主持人是唯一初始成员；开始事件广播给主持人以外的所有连接
func (c *CallController) HandleCallStarted(client *Client, p CallStartedPayload) {
	c.mu.Lock()
	if _, exists := c.calls[p.CallID]; exists {
		c.mu.Unlock()
		c.hub.SendError(client.ID, "call already exists")
		return
	}
	session := &CallSession{
		CallID:    p.CallID,
		HostID:    p.HostID,
		Topic:     p.Topic,
		Status:    callStatusActive,
		StartedAt: time.Now(),
	}
	c.calls[p.CallID] = session
	c.mu.Unlock()

	if _, err := c.rooms.EnsureRoom(p.CallID, "video"); err != nil {
		log.Printf("Failed to ensure video room %s: %v", p.CallID, err)
	}

	c.hub.Calls.Bind(client.ID, p.HostID)
	c.hub.Calls.Join(p.CallID, client.ID, CallParticipant{ID: p.HostID})

	c.hub.Broadcast(NewEvent(EventCallStarted, map[string]interface{}{
		"callId":    session.CallID,
		"hostId":    session.HostID,
		"topic":     session.Topic,
		"startedAt": session.StartedAt,
	}), client.ID)
}

// HandleParticipantJoined 未知 callId 拒绝；同一 participantId 重复加入是无操作
func (c *CallController) HandleParticipantJoined(client *Client, p CallParticipantPayload) {
	c.mu.RLock()
	_, exists := c.calls[p.CallID]
	c.mu.RUnlock()
	if !exists {
		c.hub.SendError(client.ID, "call not found")
		return
	}

	for _, member := range c.hub.Calls.Participants(p.CallID) {
		if member.ID == p.ParticipantID {
			return
		}
	}

	c.hub.Calls.Bind(client.ID, p.ParticipantID)
	c.hub.Calls.Join(p.CallID, client.ID, CallParticipant{ID: p.ParticipantID, Name: p.ParticipantName})

	c.hub.SendToConns(c.hub.Calls.ConnIDs(p.CallID), NewEvent(EventCallJoined, map[string]interface{}{
		"callId":          p.CallID,
		"participantId":   p.ParticipantID,
		"participantName": p.ParticipantName,
	}), "")
}

// HandleParticipantLeft 移除成员，人数归零时拆掉整个会话
func (c *CallController) HandleParticipantLeft(client *Client, p CallParticipantPayload) {
	c.mu.RLock()
	_, exists := c.calls[p.CallID]
	c.mu.RUnlock()
	if !exists {
		c.hub.SendError(client.ID, "call not found")
		return
	}

	c.removeParticipant(p.CallID, p.ParticipantID)
}

// HandleCallEnded 显式结束：对所有在场成员拆会话
func (c *CallController) HandleCallEnded(client *Client, p CallEndedPayload) {
	c.mu.RLock()
	_, exists := c.calls[p.CallID]
	c.mu.RUnlock()
	if !exists {
		c.hub.SendError(client.ID, "call not found")
		return
	}
	c.teardown(p.CallID)
}

// HandleDisconnect 反查该连接绑定的成员，为其所在的每通通话合成一次离开
func (c *CallController) HandleDisconnect(client *Client) {
	participantID, bound := c.hub.Calls.IdentityOf(client.ID)
	if !bound {
		return
	}
	for _, callID := range c.hub.Calls.RoomsOf(client.ID) {
		c.removeParticipant(callID, participantID)
	}
	// 身份绑定随连接一起注销，不留残余
	c.hub.Calls.Remove(client.ID)
}

func (c *CallController) removeParticipant(callID, participantID string) {
	// 同一成员可能有多条连接登记，全部清掉；
	// 连接不在任何通话里之后连身份绑定一起注销
	for _, connID := range c.hub.Calls.ConnIDs(callID) {
		if member, ok := c.hub.Calls.Get(callID, connID); ok && member.ID == participantID {
			c.hub.Calls.Leave(callID, connID)
			if len(c.hub.Calls.RoomsOf(connID)) == 0 {
				c.hub.Calls.Remove(connID)
			}
		}
	}

	if c.hub.Calls.ParticipantCount(callID) == 0 {
		c.teardown(callID)
		return
	}

	c.hub.SendToConns(c.hub.Calls.ConnIDs(callID), NewEvent(EventCallLeft, map[string]interface{}{
		"callId":        callID,
		"participantId": participantID,
	}), "")
}

// teardown 状态翻成 ended，带时长广播结束事件，清空登记并踢出所有连接
func (c *CallController) teardown(callID string) {
	c.mu.Lock()
	session, ok := c.calls[callID]
	if !ok {
		c.mu.Unlock()
		return
	}
	session.Status = callStatusEnded
	delete(c.calls, callID)
	c.mu.Unlock()

	duration := time.Since(session.StartedAt)
	if duration < 0 {
		duration = 0
	}

	for _, connID := range c.hub.Calls.ConnIDs(callID) {
		c.hub.Calls.Leave(callID, connID)
		if len(c.hub.Calls.RoomsOf(connID)) == 0 {
			c.hub.Calls.Remove(connID)
		}
	}

	c.hub.Broadcast(NewEvent(EventCallEnded, map[string]interface{}{
		"callId":     callID,
		"hostId":     session.HostID,
		"durationMs": duration.Milliseconds(),
	}), "")

	if c.producer != nil {
		event := kafka.NewRoomEvent(EventCallEnded, "video", callID, session.HostID, map[string]interface{}{
			"durationMs": duration.Milliseconds(),
		})
		if err := c.producer.PublishEvent(event); err != nil {
			log.Printf("Failed to publish call-ended event: %v", err)
		}
	}
}

// GetActiveCall 通话快照，结束后返回 false
func (c *CallController) GetActiveCall(callID string) (*CallSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.calls[callID]
	if !ok {
		return nil, false
	}
	copied := *session
	return &copied, true
}

// ActiveCalls 全部进行中通话的快照
func (c *CallController) ActiveCalls() []CallSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]CallSession, 0, len(c.calls))
	for _, session := range c.calls {
		out = append(out, *session)
	}
	return out
}

// ParticipantsOf 通话成员快照
func (c *CallController) ParticipantsOf(callID string) []CallParticipant {
	return c.hub.Calls.Participants(callID)
}
