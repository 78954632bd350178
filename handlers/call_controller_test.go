package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallStarted(t *testing.T) {
	env := newTestEnv(t)
	host := env.connect("alice", 1)
	other := env.connect("bob", 2)

	env.calls.HandleCallStarted(host, CallStartedPayload{CallID: "call-1", HostID: "alice", Topic: "standup"})

	// 开始事件广播给主持人以外的所有连接
	assert.Empty(t, drain(host))
	var started struct {
		CallID string `json:"callId"`
		HostID string `json:"hostId"`
		Topic  string `json:"topic"`
	}
	decodeInto(t, findEvent(t, drain(other), EventCallStarted), &started)
	assert.Equal(t, "call-1", started.CallID)
	assert.Equal(t, "alice", started.HostID)
	assert.Equal(t, "standup", started.Topic)

	session, found := env.calls.GetActiveCall("call-1")
	require.True(t, found)
	assert.Equal(t, "active", session.Status)

	room, err := env.calls.rooms.GetRoom("call-1")
	require.NoError(t, err)
	assert.Equal(t, "video", room.Type)
}

func TestDuplicateCallStart(t *testing.T) {
	env := newTestEnv(t)
	host := env.connect("alice", 1)
	rival := env.connect("bob", 2)

	env.calls.HandleCallStarted(host, CallStartedPayload{CallID: "call-1", HostID: "alice"})
	drain(rival)

	env.calls.HandleCallStarted(rival, CallStartedPayload{CallID: "call-1", HostID: "bob"})

	var errPayload ErrorPayload
	decodeInto(t, findEvent(t, drain(rival), EventError), &errPayload)
	assert.Equal(t, "call already exists", errPayload.Message)

	session, _ := env.calls.GetActiveCall("call-1")
	assert.Equal(t, "alice", session.HostID)
}

func TestParticipantJoinUnknownCall(t *testing.T) {
	env := newTestEnv(t)
	bob := env.connect("bob", 2)

	env.calls.HandleParticipantJoined(bob, CallParticipantPayload{CallID: "ghost", ParticipantID: "bob"})

	var errPayload ErrorPayload
	decodeInto(t, findEvent(t, drain(bob), EventError), &errPayload)
	assert.Equal(t, "call not found", errPayload.Message)
}

func TestParticipantJoinIdempotent(t *testing.T) {
	env := newTestEnv(t)
	host := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.calls.HandleCallStarted(host, CallStartedPayload{CallID: "call-1", HostID: "alice"})
	drain(bob)

	env.calls.HandleParticipantJoined(bob, CallParticipantPayload{CallID: "call-1", ParticipantID: "bob", ParticipantName: "Bob"})
	assert.True(t, hasEvent(drain(host), EventCallJoined))
	drain(bob)

	// 重复加入是无操作，不广播也不报错
	env.calls.HandleParticipantJoined(bob, CallParticipantPayload{CallID: "call-1", ParticipantID: "bob"})
	assert.Empty(t, drain(host))
	assert.Empty(t, drain(bob))
	assert.Len(t, env.calls.ParticipantsOf("call-1"), 2)
}

func TestLastParticipantLeavingEndsCall(t *testing.T) {
	env := newTestEnv(t)
	host := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.calls.HandleCallStarted(host, CallStartedPayload{CallID: "call-1", HostID: "alice"})
	env.calls.HandleParticipantJoined(bob, CallParticipantPayload{CallID: "call-1", ParticipantID: "bob"})
	drain(host)
	drain(bob)

	env.calls.HandleParticipantLeft(bob, CallParticipantPayload{CallID: "call-1", ParticipantID: "bob"})

	var left struct {
		ParticipantID string `json:"participantId"`
	}
	decodeInto(t, findEvent(t, drain(host), EventCallLeft), &left)
	assert.Equal(t, "bob", left.ParticipantID)
	_, found := env.calls.GetActiveCall("call-1")
	assert.True(t, found)

	// 离开通话后身份绑定一并注销
	_, bound := env.hub.Calls.IdentityOf(bob.ID)
	assert.False(t, bound)

	// 最后一人离开拆掉整通会话
	env.calls.HandleParticipantLeft(host, CallParticipantPayload{CallID: "call-1", ParticipantID: "alice"})

	var ended struct {
		CallID     string `json:"callId"`
		DurationMs int64  `json:"durationMs"`
	}
	decodeInto(t, findEvent(t, drain(bob), EventCallEnded), &ended)
	assert.Equal(t, "call-1", ended.CallID)
	assert.GreaterOrEqual(t, ended.DurationMs, int64(0))

	_, found = env.calls.GetActiveCall("call-1")
	assert.False(t, found)
	assert.Empty(t, env.calls.ParticipantsOf("call-1"))
	_, bound = env.hub.Calls.IdentityOf(host.ID)
	assert.False(t, bound)
}

func TestExplicitCallEnd(t *testing.T) {
	env := newTestEnv(t)
	host := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.calls.HandleCallStarted(host, CallStartedPayload{CallID: "call-1", HostID: "alice"})
	env.calls.HandleParticipantJoined(bob, CallParticipantPayload{CallID: "call-1", ParticipantID: "bob"})
	drain(host)
	drain(bob)

	env.calls.HandleCallEnded(host, CallEndedPayload{CallID: "call-1"})

	assert.True(t, hasEvent(drain(host), EventCallEnded))
	assert.True(t, hasEvent(drain(bob), EventCallEnded))
	_, found := env.calls.GetActiveCall("call-1")
	assert.False(t, found)
	assert.Empty(t, env.calls.ActiveCalls())

	// 结束后再操作报 call not found
	env.calls.HandleCallEnded(host, CallEndedPayload{CallID: "call-1"})
	var errPayload ErrorPayload
	decodeInto(t, findEvent(t, drain(host), EventError), &errPayload)
	assert.Equal(t, "call not found", errPayload.Message)
}

func TestCallDisconnectSynthesizesLeave(t *testing.T) {
	env := newTestEnv(t)
	host := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.calls.HandleCallStarted(host, CallStartedPayload{CallID: "call-1", HostID: "alice"})
	env.calls.HandleParticipantJoined(bob, CallParticipantPayload{CallID: "call-1", ParticipantID: "bob"})
	drain(host)
	drain(bob)

	env.hub.RemoveClient(bob.ID)
	env.calls.HandleDisconnect(bob)

	var left struct {
		ParticipantID string `json:"participantId"`
	}
	decodeInto(t, findEvent(t, drain(host), EventCallLeft), &left)
	assert.Equal(t, "bob", left.ParticipantID)

	// 断开后绑定不残留，重复断开是无操作
	_, bound := env.hub.Calls.IdentityOf(bob.ID)
	assert.False(t, bound)
	env.calls.HandleDisconnect(bob)
	assert.Empty(t, drain(host))

	// 主持人也断开，通话随之结束
	env.hub.RemoveClient(host.ID)
	env.calls.HandleDisconnect(host)
	_, found := env.calls.GetActiveCall("call-1")
	assert.False(t, found)
	_, bound = env.hub.Calls.IdentityOf(host.ID)
	assert.False(t, bound)
}
