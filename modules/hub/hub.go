package hub

import (
	"sync"
)

// Hub holds every piece of connection-scoped state: the session
// registry, room membership, active typing indicators and the per-room
// message pipeline locks. All maps are guarded by a single mutex;
// pipeline locks are handed out so persist-and-broadcast sequences can
// serialize per room without holding the registry lock.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	rooms    map[uint]map[string]struct{}
	typing   map[string]map[uint]struct{}

	lockMu    sync.Mutex
	roomLocks map[uint]*sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		sessions:  make(map[string]*Session),
		rooms:     make(map[uint]map[string]struct{}),
		typing:    make(map[string]map[uint]struct{}),
		roomLocks: make(map[uint]*sync.Mutex),
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions[s.ID] = s
}

// unregister removes the session and every trace of it: room
// memberships, typing entries and the registry slot itself.
func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, s.ID)
	delete(h.typing, s.ID)
	for roomID, members := range h.rooms {
		delete(members, s.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) joinRoom(sessionID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomID] = members
	}
	members[sessionID] = struct{}{}
}

func (h *Hub) markTyping(sessionID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms, ok := h.typing[sessionID]
	if !ok {
		rooms = make(map[uint]struct{})
		h.typing[sessionID] = rooms
	}
	rooms[roomID] = struct{}{}
}

func (h *Hub) clearTyping(sessionID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rooms, ok := h.typing[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.typing, sessionID)
		}
	}
}

func (h *Hub) isTyping(sessionID string, roomID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.typing[sessionID][roomID]
	return ok
}

// roomLock returns the pipeline lock for a room, creating it on first
// use. Locks are never removed; a room that saw traffic keeps its slot.
func (h *Hub) roomLock(roomID uint) *sync.Mutex {
	h.lockMu.Lock()
	defer h.lockMu.Unlock()
	l, ok := h.roomLocks[roomID]
	if !ok {
		l = &sync.Mutex{}
		h.roomLocks[roomID] = l
	}
	return l
}

// broadcastRoom queues a frame to every member of a room. A non-empty
// exceptID skips that session. Dropped frames are counted so callers
// can log slow consumers.
func (h *Hub) broadcastRoom(roomID uint, frame []byte, exceptID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for id := range h.rooms[roomID] {
		if id == exceptID {
			continue
		}
		if s, ok := h.sessions[id]; ok {
			if !s.queue(frame) {
				dropped++
			}
		}
	}
	return dropped
}

// broadcastAll queues a frame to every connected session.
func (h *Hub) broadcastAll(frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for _, s := range h.sessions {
		if !s.queue(frame) {
			dropped++
		}
	}
	return dropped
}

// CloseAll closes every registered session. Used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()
	for _, s := range sessions {
		s.close()
	}
}

func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
