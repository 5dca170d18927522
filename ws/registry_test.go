package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Transitions(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Register("u1", "c1"), "первое соединение")
	assert.False(t, r.Register("u1", "c2"))
	assert.True(t, r.IsOnline("u1"))
	assert.ElementsMatch(t, []string{"c1", "c2"}, r.ConnectionsOf("u1"))
	assert.Equal(t, 2, r.Count())

	assert.False(t, r.Unregister("u1", "c1"))
	assert.True(t, r.IsOnline("u1"))
	assert.True(t, r.Unregister("u1", "c2"), "последнее соединение")
	assert.False(t, r.IsOnline("u1"))
	assert.Empty(t, r.OnlineUsers())

	// неизвестное соединение - не переход
	assert.False(t, r.Unregister("u1", "c2"))
	assert.False(t, r.Unregister("ghost", "c9"))
}

func TestRegistry_ConnectionsOfIsACopy(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1")

	conns := r.ConnectionsOf("u1")
	conns[0] = "tampered"

	assert.Equal(t, []string{"c1"}, r.ConnectionsOf("u1"))
	assert.Empty(t, r.ConnectionsOf("nobody"))
}
