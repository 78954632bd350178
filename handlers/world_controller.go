package handlers

import (
	"log"

	"github.com/c42705/stargety-oasis-sub008/config"
	"github.com/c42705/stargety-oasis-sub008/services"
)

// WorldController 世界域：房间内 2D 位置跟踪和移动转发
type WorldController struct {
	hub        *Hub
	rooms      *services.ChatService
	characters *services.CharacterService
	world      *services.WorldService
	cfg        config.WorldConfig
}

func NewWorldController(hub *Hub, rooms *services.ChatService, characters *services.CharacterService,
	world *services.WorldService, cfg config.WorldConfig) *WorldController {
	return &WorldController{
		hub:        hub,
		rooms:      rooms,
		characters: characters,
		world:      world,
		cfg:        cfg,
	}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clampX / clampY 世界边界就是全部"物理"：坐标收敛到 [padding, 尺寸-padding]
func (c *WorldController) clampX(x float64) float64 {
	return clamp(x, c.cfg.Padding, c.cfg.Width-c.cfg.Padding)
}

func (c *WorldController) clampY(y float64) float64 {
	return clamp(y, c.cfg.Padding, c.cfg.Height-c.cfg.Padding)
}

// HandlePlayerJoined 头像取值顺序：客户端带的 > 数据库启用角色 > 缺省占位。
// 其他人收到 player-joined，加入者收到除自己外的完整 world-state。
func (c *WorldController) HandlePlayerJoined(client *Client, p PlayerJoinPayload) {
	if _, err := c.rooms.EnsureRoom(p.RoomID, "world"); err != nil {
		log.Printf("Failed to ensure world room %s: %v", p.RoomID, err)
	}

	avatar := p.AvatarData
	if avatar == nil {
		if active, ok := c.characters.ActiveAvatar(client.UserID); ok {
			avatar = active
		}
	}

	name := p.Name
	if name == "" {
		name = client.Username
	}

	state := PlayerState{
		PlayerID: p.PlayerID,
		Name:     name,
		X:        c.clampX(p.X),
		Y:        c.clampY(p.Y),
		Avatar:   avatar,
	}

	c.hub.World.Bind(client.ID, p.PlayerID)
	c.hub.World.Join(p.RoomID, client.ID, state)

	if err := c.world.SavePosition(p.PlayerID, p.RoomID, state.X, state.Y); err != nil {
		log.Printf("Failed to save position for %s: %v", p.PlayerID, err)
	}

	conns := c.hub.World.ConnIDs(p.RoomID)
	c.hub.SendToConns(conns, NewEvent(EventPlayerJoined, PlayerStatePayload{
		PlayerID:   state.PlayerID,
		X:          state.X,
		Y:          state.Y,
		Name:       state.Name,
		AvatarData: state.Avatar,
		RoomID:     p.RoomID,
	}), client.ID)

	// 回给加入者的快照不含它自己
	others := make([]PlayerStatePayload, 0)
	for _, connID := range conns {
		if connID == client.ID {
			continue
		}
		if other, ok := c.hub.World.Get(p.RoomID, connID); ok {
			others = append(others, PlayerStatePayload{
				PlayerID:   other.PlayerID,
				X:          other.X,
				Y:          other.Y,
				Name:       other.Name,
				AvatarData: other.Avatar,
				RoomID:     p.RoomID,
			})
		}
	}
	c.hub.SendTo(client.ID, NewEvent(EventWorldState, WorldStatePayload{
		Players: others,
		RoomID:  p.RoomID,
	}))
}

// HandlePlayerMoved 玩家必须已在该房间登记，否则拒绝。
// 边界内的任何坐标都接受，不校验速度和距离。
func (c *WorldController) HandlePlayerMoved(client *Client, p PlayerMovePayload) {
	state, ok := c.hub.World.Get(p.RoomID, client.ID)
	if !ok || state.PlayerID != p.PlayerID {
		c.hub.SendError(client.ID, "player not in room")
		return
	}

	// Get 返回的是副本，改完写回登记表，其他协程读到的始终是完整快照
	state.X = c.clampX(p.X)
	state.Y = c.clampY(p.Y)
	c.hub.World.Update(p.RoomID, client.ID, state)

	if err := c.world.SavePosition(p.PlayerID, p.RoomID, state.X, state.Y); err != nil {
		log.Printf("Failed to save position for %s: %v", p.PlayerID, err)
	}

	c.hub.SendToConns(c.hub.World.ConnIDs(p.RoomID), NewEvent(EventPlayerMoved, PlayerMovePayload{
		PlayerID: p.PlayerID,
		X:        state.X,
		Y:        state.Y,
		RoomID:   p.RoomID,
	}), client.ID)
}

// HandleDisconnect 反查 playerID，清掉登记和位置记录，通知房间其他人
func (c *WorldController) HandleDisconnect(client *Client) {
	playerID, bound := c.hub.World.IdentityOf(client.ID)
	affected := c.hub.World.Remove(client.ID)
	if !bound {
		return
	}

	for _, roomID := range affected {
		if err := c.world.DeletePosition(playerID, roomID); err != nil {
			log.Printf("Failed to delete position for %s: %v", playerID, err)
		}
		c.hub.SendToConns(c.hub.World.ConnIDs(roomID), NewEvent(EventPlayerLeft, map[string]interface{}{
			"playerId": playerID,
			"roomId":   roomID,
		}), "")
	}
}

// PlayersIn 房间当前玩家快照，给 HTTP 快照接口用
func (c *WorldController) PlayersIn(roomID string) []PlayerStatePayload {
	players := c.hub.World.Participants(roomID)
	out := make([]PlayerStatePayload, 0, len(players))
	for _, p := range players {
		out = append(out, PlayerStatePayload{
			PlayerID:   p.PlayerID,
			X:          p.X,
			Y:          p.Y,
			Name:       p.Name,
			AvatarData: p.Avatar,
			RoomID:     roomID,
		})
	}
	return out
}
