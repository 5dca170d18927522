package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_ClearViewingOnlyMatching(t *testing.T) {
	tr := NewTracker()
	tr.SetViewing("u1", "c1", "chat-a")

	// вкладка открыла другой чат, поздний stop_view_chat старого игнорируется
	tr.SetViewing("u1", "c1", "chat-b")
	assert.False(t, tr.ClearViewing("u1", "chat-a"))
	assert.Equal(t, "chat-b", tr.ViewingOf("u1"))

	assert.True(t, tr.ClearViewing("u1", "chat-b"))
	assert.Empty(t, tr.ViewingOf("u1"))
	assert.False(t, tr.ClearViewing("nobody", "chat-b"))
}

func TestTracker_FocusLifecycle(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.IsFocused("u1"), "неизвестный пользователь не в фокусе")

	tr.ResetOnConnect("u1")
	assert.True(t, tr.IsFocused("u1"))

	tr.SetFocus("u1", false)
	tr.SetViewing("u1", "c1", "chat-a")
	assert.False(t, tr.IsFocused("u1"))

	tr.ResetOnConnect("u1")
	assert.True(t, tr.IsFocused("u1"))
	assert.Equal(t, "chat-a", tr.ViewingOf("u1"), "новое соединение не сбрасывает просмотр")

	tr.Forget("u1")
	assert.Empty(t, tr.ViewingOf("u1"))
	assert.False(t, tr.IsFocused("u1"))
}

func TestTracker_ReleaseConnOnlyOwner(t *testing.T) {
	tr := NewTracker()
	tr.SetViewing("u1", "tab-1", "chat-a")

	assert.False(t, tr.ReleaseConn("u1", "tab-2"), "чужая вкладка просмотр не сбрасывает")
	assert.Equal(t, "chat-a", tr.ViewingOf("u1"))

	assert.True(t, tr.ReleaseConn("u1", "tab-1"))
	assert.Empty(t, tr.ViewingOf("u1"))
	assert.False(t, tr.ReleaseConn("u1", "tab-1"))
	assert.False(t, tr.ReleaseConn("nobody", "tab-1"))
}
