package preview

import (
	"sync"

	"quizblitz/internal/realtime"
)

const outboxSize = 16

// Member is one websocket connection in the relay. Messages for it are
// queued in Outbox and written by the connection's writer goroutine.
type Member struct {
	ID     string
	Outbox chan realtime.Message
}

func NewMember(id string) *Member {
	return &Member{ID: id, Outbox: make(chan realtime.Message, outboxSize)}
}

// Hub groups members into per-game rooms and relays messages between them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Member]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Member]struct{})}
}

func (h *Hub) Join(gameID string, m *Member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[*Member]struct{})
		h.rooms[gameID] = room
	}
	room[m] = struct{}{}
}

func (h *Hub) Leave(gameID string, m *Member) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(gameID, m)
}

// LeaveAll removes m from every room, returning the ids of the rooms it was in.
func (h *Hub) LeaveAll(m *Member) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var left []string
	for gameID, room := range h.rooms {
		if _, ok := room[m]; ok {
			h.leaveLocked(gameID, m)
			left = append(left, gameID)
		}
	}
	return left
}

func (h *Hub) leaveLocked(gameID string, m *Member) {
	room, ok := h.rooms[gameID]
	if !ok {
		return
	}
	delete(room, m)
	if len(room) == 0 {
		delete(h.rooms, gameID)
	}
}

// Broadcast queues msg for every member of the room except the sender.
func (h *Hub) Broadcast(gameID string, msg realtime.Message, except *Member) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for m := range h.rooms[gameID] {
		if m != except {
			deliver(m.Outbox, msg)
		}
	}
}

// Size reports how many members are in the room.
func (h *Hub) Size(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}

// deliver never blocks: a full outbox loses its oldest message.
func deliver(ch chan realtime.Message, msg realtime.Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
