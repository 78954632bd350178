package handlers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c42705/stargety-oasis-sub008/models"
	"github.com/c42705/stargety-oasis-sub008/services"
)

func TestPlayerJoinClampsPosition(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)

	env.world.HandlePlayerJoined(alice, PlayerJoinPayload{
		PlayerID: "p1", RoomID: "office", X: -50, Y: 2000,
	})

	var state WorldStatePayload
	decodeInto(t, findEvent(t, drain(alice), EventWorldState), &state)
	assert.Empty(t, state.Players)
	assert.Equal(t, "office", state.RoomID)

	players := env.world.PlayersIn("office")
	require.Len(t, players, 1)
	assert.Equal(t, 16.0, players[0].X)
	assert.Equal(t, 584.0, players[0].Y)

	// 世界房间不设过期
	room, err := env.world.rooms.GetRoom("office")
	require.NoError(t, err)
	assert.Equal(t, "world", room.Type)
	assert.Nil(t, room.ExpiresAt)
}

func TestPlayerJoinNotifiesOthers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.world.HandlePlayerJoined(alice, PlayerJoinPayload{PlayerID: "p1", RoomID: "office", X: 100, Y: 100})
	drain(alice)

	env.world.HandlePlayerJoined(bob, PlayerJoinPayload{PlayerID: "p2", RoomID: "office", X: 200, Y: 200})

	var joined PlayerStatePayload
	decodeInto(t, findEvent(t, drain(alice), EventPlayerJoined), &joined)
	assert.Equal(t, "p2", joined.PlayerID)
	assert.Equal(t, 200.0, joined.X)

	// 加入者拿到的快照不含自己
	var state WorldStatePayload
	decodeInto(t, findEvent(t, drain(bob), EventWorldState), &state)
	require.Len(t, state.Players, 1)
	assert.Equal(t, "p1", state.Players[0].PlayerID)
}

func TestPlayerJoinAvatarFallback(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)

	characters := services.NewCharacterService(env.db)
	character, err := characters.SaveCharacter(1, 1, "Scout", models.AvatarData{"sprite": "scout.png"})
	require.NoError(t, err)
	require.NoError(t, characters.SetActiveCharacter(1, character.ID))

	env.world.HandlePlayerJoined(alice, PlayerJoinPayload{PlayerID: "p1", RoomID: "office", X: 100, Y: 100})

	players := env.world.PlayersIn("office")
	require.Len(t, players, 1)
	assert.Equal(t, "scout.png", players[0].AvatarData["sprite"])
	assert.Equal(t, "alice", players[0].Name)
}

func TestPlayerMove(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.world.HandlePlayerJoined(alice, PlayerJoinPayload{PlayerID: "p1", RoomID: "office", X: 100, Y: 100})
	env.world.HandlePlayerJoined(bob, PlayerJoinPayload{PlayerID: "p2", RoomID: "office", X: 200, Y: 200})
	drain(alice)
	drain(bob)

	env.world.HandlePlayerMoved(alice, PlayerMovePayload{PlayerID: "p1", RoomID: "office", X: 2000, Y: -10})

	// 移动者不回显，其他人收到收敛后的坐标
	assert.Empty(t, drain(alice))
	var moved PlayerMovePayload
	decodeInto(t, findEvent(t, drain(bob), EventPlayerMoved), &moved)
	assert.Equal(t, "p1", moved.PlayerID)
	assert.Equal(t, 784.0, moved.X)
	assert.Equal(t, 16.0, moved.Y)

	players := env.world.PlayersIn("office")
	for _, p := range players {
		if p.PlayerID == "p1" {
			assert.Equal(t, 784.0, p.X)
			assert.Equal(t, 16.0, p.Y)
		}
	}
}

func TestPlayerMoveWithoutJoin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)

	env.world.HandlePlayerMoved(alice, PlayerMovePayload{PlayerID: "p1", RoomID: "office", X: 10, Y: 10})

	var errPayload ErrorPayload
	decodeInto(t, findEvent(t, drain(alice), EventError), &errPayload)
	assert.Equal(t, "player not in room", errPayload.Message)
}

func TestPlayerMoveWrongPlayerID(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)
	env.world.HandlePlayerJoined(alice, PlayerJoinPayload{PlayerID: "p1", RoomID: "office", X: 100, Y: 100})
	drain(alice)

	env.world.HandlePlayerMoved(alice, PlayerMovePayload{PlayerID: "p2", RoomID: "office", X: 10, Y: 10})

	var errPayload ErrorPayload
	decodeInto(t, findEvent(t, drain(alice), EventError), &errPayload)
	assert.Equal(t, "player not in room", errPayload.Message)
}

func TestConcurrentMoveAndSnapshot(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.world.HandlePlayerJoined(alice, PlayerJoinPayload{PlayerID: "p1", RoomID: "office", X: 100, Y: 100})
	env.world.HandlePlayerJoined(bob, PlayerJoinPayload{PlayerID: "p2", RoomID: "office", X: 200, Y: 200})
	drain(alice)
	drain(bob)

	// 移动和快照并发执行，登记表之外不共享可变状态
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			env.world.HandlePlayerMoved(alice, PlayerMovePayload{
				PlayerID: "p1", RoomID: "office", X: float64(i), Y: float64(i),
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			for _, p := range env.world.PlayersIn("office") {
				_ = p.X + p.Y
			}
		}
	}()
	wg.Wait()

	state, ok := env.hub.World.Get("office", alice.ID)
	require.True(t, ok)
	assert.Equal(t, 99.0, state.X)
	assert.Equal(t, 99.0, state.Y)
}

func TestWorldDisconnect(t *testing.T) {
	env := newTestEnv(t)
	alice := env.connect("alice", 1)
	bob := env.connect("bob", 2)

	env.world.HandlePlayerJoined(alice, PlayerJoinPayload{PlayerID: "p1", RoomID: "office", X: 100, Y: 100})
	env.world.HandlePlayerJoined(bob, PlayerJoinPayload{PlayerID: "p2", RoomID: "office", X: 200, Y: 200})
	drain(alice)
	drain(bob)

	env.hub.RemoveClient(alice.ID)
	env.world.HandleDisconnect(alice)

	var left struct {
		PlayerID string `json:"playerId"`
		RoomID   string `json:"roomId"`
	}
	decodeInto(t, findEvent(t, drain(bob), EventPlayerLeft), &left)
	assert.Equal(t, "p1", left.PlayerID)
	assert.Equal(t, "office", left.RoomID)

	players := env.world.PlayersIn("office")
	require.Len(t, players, 1)
	assert.Equal(t, "p2", players[0].PlayerID)

	var positions []models.PlayerPosition
	require.NoError(t, env.db.Find(&positions).Error)
	require.Len(t, positions, 1)
	assert.Equal(t, "p2", positions[0].PlayerID)
}
