package gateway

import (
	"encoding/json"
	"time"

	"clinic-chat/pkg/logger"
)

// Router addresses outgoing events to one of four scopes: a single
// connection, one user's connections, a room, or everyone. It stamps
// every payload with a server-side ISO-8601 timestamp; callers never
// supply their own.
type Router struct {
	registry Registry
}

func NewRouter(registry Registry) *Router {
	return &Router{registry: registry}
}

func (r *Router) ToConn(c *Client, event string, data interface{}) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("Error encoding %s event: %v", event, err)
		return
	}
	r.deliver(c, frame)
}

func (r *Router) ToUser(userID, event string, data interface{}) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("Error encoding %s event: %v", event, err)
		return
	}
	for _, c := range r.registry.ScopeClients(userScope(userID)) {
		r.deliver(c, frame)
	}
}

// ToRoom fans out to every connection joined to the room. A non-nil
// exclude skips the originator so it does not receive an echo.
func (r *Router) ToRoom(roomID, event string, data interface{}, exclude *Client) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("Error encoding %s event: %v", event, err)
		return
	}
	for _, c := range r.registry.ScopeClients(roomScope(roomID)) {
		if c == exclude {
			continue
		}
		r.deliver(c, frame)
	}
}

// Broadcast reaches every connected client; used only for presence.
func (r *Router) Broadcast(event string, data interface{}) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logger.Error("Error encoding %s event: %v", event, err)
		return
	}
	for _, c := range r.registry.AllClients() {
		r.deliver(c, frame)
	}
}

// deliver is best effort per connection: a client that stopped draining
// its buffer is closed, never allowed to stall the fan-out. The registry
// entry stays until the read pump's disconnect path reaps it; until then
// further fan-outs to this client fail quietly in enqueue. Removing it
// here instead would swallow the user's offline transition.
func (r *Router) deliver(c *Client, frame []byte) {
	if !c.enqueue(frame) {
		logger.Warn("Dropping slow client %s", c.id)
		c.Close()
	}
}

func encodeEvent(event string, data interface{}) ([]byte, error) {
	payload := map[string]interface{}{}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
	}
	payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	return json.Marshal(struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}{Event: event, Data: payload})
}
