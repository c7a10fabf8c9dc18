package gateway

import "sync"

// Registry tracks which connections are live, who owns them and which
// delivery scopes they receive. It is the only mutable state the gateway
// owns; every operation is a fast in-memory map access, never I/O.
//
// A connection's room set is a cache of durable membership rows: entries
// are only added after the membership gate has allowed the join.
type Registry interface {
	// Register binds a connection to its authenticated user. The binding
	// is immutable for the connection's lifetime.
	Register(c *Client, userID string)
	// UserID reports the owner of a registered connection.
	UserID(c *Client) (string, bool)
	// Remove drops the connection and all of its scope subscriptions,
	// returning the owner it was bound to.
	Remove(c *Client) (string, bool)

	JoinRoom(c *Client, roomID string)
	LeaveRoom(c *Client, roomID string)
	Rooms(c *Client) []string

	Subscribe(c *Client, scope string)
	Unsubscribe(c *Client, scope string)
	ScopeClients(scope string) []*Client
	AllClients() []*Client

	// UserConnections counts live connections for a user; presence is
	// derived from this count, never stored.
	UserConnections(userID string) int
}

func userScope(userID string) string { return "user:" + userID }
func roomScope(roomID string) string { return "room:" + roomID }

type session struct {
	userID string
	rooms  map[string]struct{}
	scopes map[string]struct{}
}

type memoryRegistry struct {
	mu       sync.RWMutex
	sessions map[*Client]*session
	scopes   map[string]map[*Client]struct{}
}

func NewRegistry() Registry {
	return &memoryRegistry{
		sessions: make(map[*Client]*session),
		scopes:   make(map[string]map[*Client]struct{}),
	}
}

func (r *memoryRegistry) Register(c *Client, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[c]; exists {
		return
	}
	r.sessions[c] = &session{
		userID: userID,
		rooms:  make(map[string]struct{}),
		scopes: make(map[string]struct{}),
	}
}

func (r *memoryRegistry) UserID(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[c]
	if !ok {
		return "", false
	}
	return s.userID, true
}

func (r *memoryRegistry) Remove(c *Client) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return "", false
	}
	for scope := range s.scopes {
		r.dropFromScope(c, scope)
	}
	delete(r.sessions, c)
	return s.userID, true
}

func (r *memoryRegistry) JoinRoom(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return
	}
	s.rooms[roomID] = struct{}{}
	r.addToScope(c, s, roomScope(roomID))
}

func (r *memoryRegistry) LeaveRoom(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return
	}
	delete(s.rooms, roomID)
	delete(s.scopes, roomScope(roomID))
	r.dropFromScope(c, roomScope(roomID))
}

func (r *memoryRegistry) Rooms(c *Client) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[c]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(s.rooms))
	for roomID := range s.rooms {
		rooms = append(rooms, roomID)
	}
	return rooms
}

func (r *memoryRegistry) Subscribe(c *Client, scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return
	}
	r.addToScope(c, s, scope)
}

func (r *memoryRegistry) Unsubscribe(c *Client, scope string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[c]
	if !ok {
		return
	}
	delete(s.scopes, scope)
	r.dropFromScope(c, scope)
}

func (r *memoryRegistry) ScopeClients(scope string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.scopes[scope]
	clients := make([]*Client, 0, len(members))
	for c := range members {
		clients = append(clients, c)
	}
	return clients
}

func (r *memoryRegistry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.sessions))
	for c := range r.sessions {
		clients = append(clients, c)
	}
	return clients
}

func (r *memoryRegistry) UserConnections(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, s := range r.sessions {
		if s.userID == userID {
			count++
		}
	}
	return count
}

// callers must hold r.mu
func (r *memoryRegistry) addToScope(c *Client, s *session, scope string) {
	s.scopes[scope] = struct{}{}
	members, ok := r.scopes[scope]
	if !ok {
		members = make(map[*Client]struct{})
		r.scopes[scope] = members
	}
	members[c] = struct{}{}
}

func (r *memoryRegistry) dropFromScope(c *Client, scope string) {
	if members, ok := r.scopes[scope]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(r.scopes, scope)
		}
	}
}
