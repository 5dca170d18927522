package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReactionMap_Toggle(t *testing.T) {
	m := ReactionMap{}

	assert.True(t, m.Toggle("👍", "u1"))
	assert.True(t, m.Toggle("👍", "u2"))
	assert.ElementsMatch(t, []string{"u1", "u2"}, m["👍"])

	assert.False(t, m.Toggle("👍", "u1"))
	assert.Equal(t, []string{"u2"}, m["👍"])

	// последний пользователь снимает реакцию - ключ исчезает
	assert.False(t, m.Toggle("👍", "u2"))
	_, ok := m["👍"]
	assert.False(t, ok)
	assert.Empty(t, m)
}

func TestReactionMap_CloneIsDeep(t *testing.T) {
	m := ReactionMap{"🔥": {"u1"}}
	c := m.Clone()
	c.Toggle("🔥", "u2")

	assert.Equal(t, []string{"u1"}, m["🔥"])
	assert.True(t, c.Has("🔥", "u2"))
	assert.False(t, m.Has("🔥", "u2"))
}

func TestMessage_ReactionMapNeverNil(t *testing.T) {
	var msg Message
	assert.NotNil(t, msg.ReactionMap())
	assert.False(t, msg.IsReadBy("u1"))
}
