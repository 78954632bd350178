package registry

import "sync"

// Registry 聊天/世界/通话三个域共用的房间成员登记表。
// rooms 记录房间内每个连接的成员数据，identity 记录连接到逻辑身份
// （用户名 / playerID / participantID）的绑定，断线时靠它反查。
type Registry[P any] struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]P
	identity map[string]string
}

func New[P any]() *Registry[P] {
	return &Registry[P]{
		rooms:    make(map[string]map[string]P),
		identity: make(map[string]string),
	}
}

// Join 将连接登记进房间，重复登记覆盖旧数据
func (r *Registry[P]) Join(roomID, connID string, p P) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]P)
	}
	r.rooms[roomID][connID] = p
}

// Leave 将连接移出单个房间，返回是否确实在房间内
func (r *Registry[P]) Leave(roomID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
	return true
}

// Remove 注销连接在所有房间的登记和身份绑定，返回受影响的房间。
// Join 的每个副作用在这里恰好回退一次。
func (r *Registry[P]) Remove(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var affected []string
	for roomID, members := range r.rooms {
		if _, ok := members[connID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(r.rooms, roomID)
			}
			affected = append(affected, roomID)
		}
	}
	delete(r.identity, connID)
	return affected
}

func (r *Registry[P]) Get(roomID, connID string) (P, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var zero P
	members, ok := r.rooms[roomID]
	if !ok {
		return zero, false
	}
	p, ok := members[connID]
	if !ok {
		return zero, false
	}
	return p, true
}

// Update 原地更新成员数据，成员不在房间时返回 false
func (r *Registry[P]) Update(roomID, connID string, p P) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := members[connID]; !ok {
		return false
	}
	members[connID] = p
	return true
}

// Participants 房间成员快照，就是该房间广播的权威受众
func (r *Registry[P]) Participants(roomID string) []P {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	out := make([]P, 0, len(members))
	for _, p := range members {
		out = append(out, p)
	}
	return out
}

func (r *Registry[P]) ParticipantCount(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// ConnIDs 房间内全部连接 ID
func (r *Registry[P]) ConnIDs(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out
}

// Bind 绑定连接的逻辑身份，一个连接在每个域至多一个身份
func (r *Registry[P]) Bind(connID, identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identity[connID] = identity
}

func (r *Registry[P]) IdentityOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.identity[connID]
	return id, ok
}

func (r *Registry[P]) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms))
	for roomID := range r.rooms {
		out = append(out, roomID)
	}
	return out
}

// RoomsOf 连接当前所在的房间
func (r *Registry[P]) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for roomID, members := range r.rooms {
		if _, ok := members[connID]; ok {
			out = append(out, roomID)
		}
	}
	return out
}
