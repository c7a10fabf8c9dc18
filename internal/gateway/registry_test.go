package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	c := NewClient(nil)

	_, ok := reg.UserID(c)
	assert.False(t, ok)

	reg.Register(c, "user-1")

	userID, ok := reg.UserID(c)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)

	// The binding is immutable; a second register must not rebind.
	reg.Register(c, "user-2")
	userID, _ = reg.UserID(c)
	assert.Equal(t, "user-1", userID)
}

func TestRegistryRemoveClearsScopes(t *testing.T) {
	reg := NewRegistry()
	c := NewClient(nil)
	reg.Register(c, "user-1")
	reg.Subscribe(c, userScope("user-1"))
	reg.JoinRoom(c, "room-1")

	userID, ok := reg.Remove(c)
	require.True(t, ok)
	assert.Equal(t, "user-1", userID)

	assert.Empty(t, reg.ScopeClients(userScope("user-1")))
	assert.Empty(t, reg.ScopeClients(roomScope("room-1")))

	_, ok = reg.Remove(c)
	assert.False(t, ok)
}

func TestRegistryJoinLeaveRoom(t *testing.T) {
	reg := NewRegistry()
	c := NewClient(nil)
	reg.Register(c, "user-1")

	reg.JoinRoom(c, "room-1")
	reg.JoinRoom(c, "room-2")
	assert.ElementsMatch(t, []string{"room-1", "room-2"}, reg.Rooms(c))
	assert.Len(t, reg.ScopeClients(roomScope("room-1")), 1)

	reg.LeaveRoom(c, "room-1")
	assert.ElementsMatch(t, []string{"room-2"}, reg.Rooms(c))
	assert.Empty(t, reg.ScopeClients(roomScope("room-1")))

	// Leaving a room never joined is a no-op.
	reg.LeaveRoom(c, "room-9")
	assert.ElementsMatch(t, []string{"room-2"}, reg.Rooms(c))
}

func TestRegistryIgnoresUnregisteredClients(t *testing.T) {
	reg := NewRegistry()
	c := NewClient(nil)

	reg.JoinRoom(c, "room-1")
	reg.Subscribe(c, "scope")

	assert.Empty(t, reg.Rooms(c))
	assert.Empty(t, reg.ScopeClients(roomScope("room-1")))
	assert.Empty(t, reg.ScopeClients("scope"))
}

func TestRegistryUserConnections(t *testing.T) {
	reg := NewRegistry()
	c1, c2, c3 := NewClient(nil), NewClient(nil), NewClient(nil)

	reg.Register(c1, "user-1")
	reg.Register(c2, "user-1")
	reg.Register(c3, "user-2")

	assert.Equal(t, 2, reg.UserConnections("user-1"))
	assert.Equal(t, 1, reg.UserConnections("user-2"))
	assert.Equal(t, 0, reg.UserConnections("user-3"))

	reg.Remove(c1)
	assert.Equal(t, 1, reg.UserConnections("user-1"))
	reg.Remove(c2)
	assert.Equal(t, 0, reg.UserConnections("user-1"))

	assert.Len(t, reg.AllClients(), 1)
}
