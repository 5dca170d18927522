package chat

import (
	"context"
	"testing"

	"mchat_backend/internal/models/chat"
	"mchat_backend/internal/repositories"
	repoChat "mchat_backend/internal/repositories/chat"
	"mchat_backend/pkg/apperrors"
	"mchat_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadService_JoinAndMarkRead(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	reads := NewReadService(f.messages, f.states, repositories.NewUserRepository(), f.emitter)
	alice := helpers.CreateUser(t, f.db, "alice")
	bob := helpers.CreateUser(t, f.db, "bob")
	chatID := helpers.PrivateChat(t, alice, bob)

	m1, err := f.send(t, alice, chatID, "one")
	require.NoError(t, err)
	m2, err := f.send(t, alice, chatID, "two")
	require.NoError(t, err)

	state, err := f.states.FindState(f.db, bob.ID, chatID)
	require.NoError(t, err)
	require.Equal(t, 2, state.UnreadCount)
	f.emitter.reset()

	id, err := reads.JoinRoom(ctx, f.db, bob.ID, chatID)
	require.NoError(t, err)
	assert.Equal(t, chatID, id.String())
	state, err = f.states.FindState(f.db, bob.ID, chatID)
	require.NoError(t, err)
	assert.Zero(t, state.UnreadCount)

	cleared := f.emitter.byEvent(EventUnreadCountCleared)
	require.Len(t, cleared, 1)
	assert.Equal(t, []string{bob.ID}, cleared[0].Target.Users)

	f.emitter.reset()
	marked, err := reads.MarkRead(ctx, f.db, bob.ID, chatID)
	require.NoError(t, err)
	assert.Equal(t, []string{m1.ID, m2.ID}, marked)

	read := f.emitter.byEvent(EventMessagesRead)
	require.Len(t, read, 1)
	payload := read[0].Data.(MessagesReadPayload)
	assert.Equal(t, bob.ID, payload.ReaderID)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, read[0].Target.Users, "автор видит квитанции")

	// повторная отметка: квитанций нет, сброс счетчика все равно приходит
	f.emitter.reset()
	marked, err = reads.MarkRead(ctx, f.db, bob.ID, chatID)
	require.NoError(t, err)
	assert.Empty(t, marked)
	assert.Empty(t, f.emitter.byEvent(EventMessagesRead))
	assert.Len(t, f.emitter.byEvent(EventUnreadCountCleared), 1)
}

func TestReadService_AccessAndGlobal(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	reads := NewReadService(f.messages, f.states, repositories.NewUserRepository(), f.emitter)
	alice := helpers.CreateUser(t, f.db, "alice")
	bob := helpers.CreateUser(t, f.db, "bob")
	carol := helpers.CreateUser(t, f.db, "carol")

	_, err := reads.JoinRoom(ctx, f.db, carol.ID, helpers.PrivateChat(t, alice, bob))
	assert.ErrorIs(t, err, apperrors.ErrChatAccessDenied)

	id, err := reads.JoinRoom(ctx, f.db, carol.ID, chat.GlobalChatID)
	require.NoError(t, err)
	assert.False(t, id.IsPrivate())
	assert.Empty(t, f.emitter.events)

	marked, err := reads.MarkRead(ctx, f.db, carol.ID, chat.GlobalChatID)
	require.NoError(t, err)
	assert.Nil(t, marked)
	assert.Len(t, f.emitter.byEvent(EventUnreadCountCleared), 1)
}

func TestReadService_Typing(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	reads := NewReadService(f.messages, f.states, repositories.NewUserRepository(), f.emitter)
	alice := helpers.CreateUser(t, f.db, "alice")
	bob := helpers.CreateUser(t, f.db, "bob")
	shy := helpers.CreateUser(t, f.db, "shy", helpers.WithPrivacy(true, false))
	chatID := helpers.PrivateChat(t, alice, bob)

	require.NoError(t, reads.Typing(ctx, f.db, alice.ID, chatID, true))
	require.NoError(t, reads.Typing(ctx, f.db, alice.ID, chatID, false))

	typing := f.emitter.byEvent(EventUserIsTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, alice.ID, typing[0].Target.ExceptUser)
	assert.Equal(t, "alice", typing[0].Data.(TypingPayload).Name)
	assert.Len(t, f.emitter.byEvent(EventUserStoppedTyping), 1)

	f.emitter.reset()
	require.NoError(t, reads.Typing(ctx, f.db, shy.ID, chat.GlobalChatID, true))
	assert.Empty(t, f.emitter.events, "show_typing=false глушит ретрансляцию")
}

func TestReactionService_ToggleTwice(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	reactions := NewReactionService(f.messages, f.emitter)
	alice := helpers.CreateUser(t, f.db, "alice")
	bob := helpers.CreateUser(t, f.db, "bob")
	carol := helpers.CreateUser(t, f.db, "carol")
	chatID := helpers.PrivateChat(t, alice, bob)

	msg, err := f.send(t, alice, chatID, "nice")
	require.NoError(t, err)
	f.emitter.reset()

	m, err := reactions.ToggleReaction(ctx, f.db, bob.ID, msg.ID, "❤️")
	require.NoError(t, err)
	assert.Equal(t, chat.ReactionMap{"❤️": {bob.ID}}, m)

	m, err = reactions.ToggleReaction(ctx, f.db, bob.ID, msg.ID, "❤️")
	require.NoError(t, err)
	assert.Empty(t, m)

	events := f.emitter.byEvent(EventMessageReactionUpdated)
	require.Len(t, events, 2)
	assert.Equal(t, []string{chatID}, events[1].Target.Rooms)
	assert.Empty(t, events[1].Data.(ReactionsPayload).Reactions, "рассылается полная карта")

	_, err = reactions.ToggleReaction(ctx, f.db, carol.ID, msg.ID, "❤️")
	assert.ErrorIs(t, err, apperrors.ErrChatAccessDenied)

	_, err = reactions.ToggleReaction(ctx, f.db, bob.ID, msg.ID, "")
	assert.Error(t, err)
}

func TestChatStateService_Mute(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	states := NewChatStateService(repoChat.NewChatStateRepository(), f.emitter)
	alice := helpers.CreateUser(t, f.db, "alice")
	bob := helpers.CreateUser(t, f.db, "bob")
	chatID := helpers.PrivateChat(t, alice, bob)

	state, err := states.ToggleMute(ctx, f.db, bob.ID, chatID)
	require.NoError(t, err)
	assert.True(t, state.Muted)

	state, err = states.ToggleMute(ctx, f.db, bob.ID, chatID)
	require.NoError(t, err)
	assert.False(t, state.Muted)

	updates := f.emitter.byEvent(EventChatStateUpdated)
	require.Len(t, updates, 2)
	assert.Equal(t, []string{bob.ID}, updates[0].Target.Users)

	list, err := states.ListStates(ctx, f.db, bob.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPresenceService_Transitions(t *testing.T) {
	f := newMessageFixture(t)
	ctx := context.Background()
	users := repositories.NewUserRepository()
	presence := NewPresenceService(users, f.messages, f.emitter)
	alice := helpers.CreateUser(t, f.db, "alice")
	bob := helpers.CreateUser(t, f.db, "bob")
	hidden := helpers.CreateUser(t, f.db, "hidden", helpers.WithPrivacy(false, true))

	_, err := f.send(t, alice, helpers.PrivateChat(t, alice, bob), "hi")
	require.NoError(t, err)
	f.emitter.reset()

	require.NoError(t, presence.MarkOnline(ctx, f.db, alice.ID))
	stored, err := users.FindByID(f.db, alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOnline())

	online := f.emitter.byEvent(EventUserOnline)
	require.Len(t, online, 1)
	assert.Equal(t, []string{chat.GlobalChatID}, online[0].Target.Rooms)
	assert.Equal(t, []string{bob.ID}, online[0].Target.Users)
	assert.Equal(t, alice.ID, online[0].Target.ExceptUser)

	require.NoError(t, presence.MarkOffline(ctx, f.db, alice.ID))
	offline := f.emitter.byEvent(EventUserOffline)
	require.Len(t, offline, 1)
	lastSeen, ok := offline[0].Data.(PresencePayload).LastSeen.(string)
	require.True(t, ok)
	assert.NotEqual(t, "recent", lastSeen)

	require.NoError(t, presence.MarkOnline(ctx, f.db, hidden.ID))
	require.NoError(t, presence.MarkOffline(ctx, f.db, hidden.ID))
	offline = f.emitter.byEvent(EventUserOffline)
	require.Len(t, offline, 2)
	assert.Equal(t, "recent", offline[1].Data.(PresencePayload).LastSeen)
}
