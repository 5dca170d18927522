package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	chatsvc "mchat_backend/internal/services/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type presenceCall struct {
	UserID string
	Online bool
}

type fakePresenceService struct {
	mu    sync.Mutex
	calls []presenceCall
}

func (f *fakePresenceService) MarkOnline(ctx context.Context, db *gorm.DB, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, presenceCall{UserID: userID, Online: true})
	return nil
}

func (f *fakePresenceService) MarkOffline(ctx context.Context, db *gorm.DB, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, presenceCall{UserID: userID, Online: false})
	return nil
}

func (f *fakePresenceService) Contacts(db *gorm.DB, userID string) ([]string, error) {
	return nil, nil
}

func newTestManager() (*Manager, *fakePresenceService) {
	m := NewManager(nil, Options{SendBuffer: 8})
	presence := &fakePresenceService{}
	m.Bind(Services{Presence: presence})
	return m, presence
}

func fakeClient(m *Manager, connID, userID string) *Client {
	return &Client{
		ID:      connID,
		UserID:  userID,
		Send:    make(chan []byte, m.opts.SendBuffer),
		Ctx:     context.Background(),
		manager: m,
		rooms:   make(map[string]struct{}),
	}
}

func drain(c *Client) []OutgoingWSMessage {
	var out []OutgoingWSMessage
	for {
		select {
		case frame, ok := <-c.Send:
			if !ok {
				return out
			}
			var msg OutgoingWSMessage
			if err := json.Unmarshal(frame, &msg); err == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func TestManager_OnlineTransitionsOnlyOnFirstAndLast(t *testing.T) {
	m, presence := newTestManager()
	tab1 := fakeClient(m, "c1", alice)
	tab2 := fakeClient(m, "c2", alice)

	m.Connect(tab1)
	m.Connect(tab2)
	assert.True(t, m.IsOnline(alice))
	assert.Equal(t, 2, m.ConnectionCount())

	m.Disconnect(tab1)
	assert.True(t, m.IsOnline(alice))
	m.Disconnect(tab2)
	assert.False(t, m.IsOnline(alice))

	// повторный Disconnect того же соединения - no-op
	m.Disconnect(tab2)

	assert.Equal(t, []presenceCall{
		{UserID: alice, Online: true},
		{UserID: alice, Online: false},
	}, presence.calls)
}

func TestManager_EmitDeliversOncePerConnection(t *testing.T) {
	m, _ := newTestManager()
	chatID := alice + ":" + bob
	aliceTab := fakeClient(m, "a1", alice)
	bobTab1 := fakeClient(m, "b1", bob)
	bobTab2 := fakeClient(m, "b2", bob)
	carolTab := fakeClient(m, "c1", carol)
	for _, c := range []*Client{aliceTab, bobTab1, bobTab2, carolTab} {
		m.Connect(c)
	}
	m.JoinRoom(bobTab1, chatID)
	m.JoinRoom(aliceTab, chatID)

	// bobTab1 и в комнате, и в личном канале Боба
	m.Emit(chatsvc.Target{Rooms: []string{chatID}, Users: []string{alice, bob}}, chatsvc.EventNewMessage, map[string]string{"text": "hi"})

	assert.Len(t, drain(aliceTab), 1)
	assert.Len(t, drain(bobTab1), 1)
	assert.Len(t, drain(bobTab2), 1)
	assert.Empty(t, drain(carolTab))
}

func TestManager_EmitExceptUser(t *testing.T) {
	m, _ := newTestManager()
	aliceTab := fakeClient(m, "a1", alice)
	bobTab := fakeClient(m, "b1", bob)
	m.Connect(aliceTab)
	m.Connect(bobTab)
	m.JoinRoom(aliceTab, "global")
	m.JoinRoom(bobTab, "global")

	m.Emit(chatsvc.Target{Rooms: []string{"global"}, ExceptUser: alice}, chatsvc.EventUserIsTyping, nil)

	assert.Empty(t, drain(aliceTab))
	got := drain(bobTab)
	require.Len(t, got, 1)
	assert.Equal(t, chatsvc.EventUserIsTyping, got[0].Event)
}

func TestManager_DisconnectLeavesRoomsAndEndsCall(t *testing.T) {
	m, _ := newTestManager()
	aliceTab := fakeClient(m, "a1", alice)
	bobTab := fakeClient(m, "b1", bob)
	m.Connect(aliceTab)
	m.Connect(bobTab)
	m.JoinRoom(aliceTab, "global")

	require.NoError(t, m.Calls().Start(alice, "Alice", aliceTab.ID, CallStartRequest{TargetUserID: bob, CallType: "audio", Offer: offer()}))
	drain(bobTab)

	m.Disconnect(aliceTab)
	got := drain(bobTab)
	require.Len(t, got, 1)
	assert.Equal(t, EventCallEnd, got[0].Event)

	_, inCall := m.Calls().PartnerOf(bob)
	assert.False(t, inCall)

	// отключенное соединение больше не получает событий комнаты
	m.Emit(chatsvc.Target{Rooms: []string{"global"}}, chatsvc.EventNewMessage, nil)
	_, open := <-aliceTab.Send
	assert.False(t, open, "канал закрыт при отключении")
}

func TestManager_IsActivelyReading(t *testing.T) {
	m, _ := newTestManager()
	chatID := alice + ":" + bob
	assert.False(t, m.IsActivelyReading(alice, chatID), "офлайн")

	m.Connect(fakeClient(m, "a1", alice))
	m.Presence().SetViewing(alice, "a1", chatID)
	assert.True(t, m.IsActivelyReading(alice, chatID))
	assert.False(t, m.IsActivelyReading(alice, "global"))

	m.Presence().SetFocus(alice, false)
	assert.False(t, m.IsActivelyReading(alice, chatID))
}

func TestManager_ReconcileOffline(t *testing.T) {
	m, presence := newTestManager()
	m.Connect(fakeClient(m, "a1", alice))

	assert.False(t, m.ReconcileOffline(context.Background(), alice), "живое соединение не трогаем")
	assert.True(t, m.ReconcileOffline(context.Background(), bob))

	last := presence.calls[len(presence.calls)-1]
	assert.Equal(t, presenceCall{UserID: bob, Online: false}, last)
}

func TestManager_ClosedViewingTabStopsActiveReading(t *testing.T) {
	m, _ := newTestManager()
	chatID := alice + ":" + bob

	tab1 := fakeClient(m, "a1", alice)
	tab2 := fakeClient(m, "a2", alice)
	m.Connect(tab1)
	m.Connect(tab2)

	m.Presence().SetViewing(alice, tab1.ID, chatID)
	require.True(t, m.IsActivelyReading(alice, chatID))

	// закрылась вкладка, где открыт чат; вторая вкладка чат не показывает
	m.Disconnect(tab1)
	assert.True(t, m.IsOnline(alice))
	assert.False(t, m.IsActivelyReading(alice, chatID))
}

func TestManager_ClosingOtherTabKeepsViewing(t *testing.T) {
	m, _ := newTestManager()
	chatID := alice + ":" + bob

	tab1 := fakeClient(m, "a1", alice)
	tab2 := fakeClient(m, "a2", alice)
	m.Connect(tab1)
	m.Connect(tab2)
	m.Presence().SetViewing(alice, tab1.ID, chatID)

	m.Disconnect(tab2)
	assert.True(t, m.IsActivelyReading(alice, chatID))
}

func TestManager_ConcurrentReconnectKeepsTransitionOrder(t *testing.T) {
	for round := 0; round < 50; round++ {
		m, presence := newTestManager()
		old := fakeClient(m, "old", alice)
		m.Connect(old)

		fresh := fakeClient(m, "fresh", alice)
		var wg sync.WaitGroup
		start := make(chan struct{})
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			m.Disconnect(old)
		}()
		go func() {
			defer wg.Done()
			<-start
			m.Connect(fresh)
		}()
		close(start)
		wg.Wait()

		require.True(t, m.IsOnline(alice))
		assert.Equal(t, []string{"fresh"}, m.Registry().ConnectionsOf(alice))

		// переходы чередуются: онлайн, затем (если успел) офлайн и снова онлайн
		presence.mu.Lock()
		calls := append([]presenceCall(nil), presence.calls...)
		presence.mu.Unlock()
		require.NotEmpty(t, calls)
		for i, call := range calls {
			assert.Equal(t, i%2 == 0, call.Online, "round %d: переход %d", round, i)
		}
		assert.True(t, calls[len(calls)-1].Online, "round %d: итоговое состояние - онлайн", round)
	}
}

func TestManager_WaitDisconnectedWaitsForOffline(t *testing.T) {
	m, presence := newTestManager()
	a := fakeClient(m, "a1", "alice")
	b := fakeClient(m, "b1", "bob")
	m.Connect(a)
	m.Connect(b)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	err := m.WaitDisconnected(ctx)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded, "живые соединения держат ожидание")

	go func() {
		m.Disconnect(a)
		m.Disconnect(b)
	}()

	ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.WaitDisconnected(ctx))

	presence.mu.Lock()
	defer presence.mu.Unlock()
	assert.ElementsMatch(t, []presenceCall{
		{UserID: "alice", Online: true},
		{UserID: "bob", Online: true},
		{UserID: "alice", Online: false},
		{UserID: "bob", Online: false},
	}, presence.calls, "к возврату офлайн уже записан")
}

func TestManager_WaitDisconnectedIgnoresRepeatedDisconnect(t *testing.T) {
	m, _ := newTestManager()
	a := fakeClient(m, "a1", "alice")
	m.Connect(a)
	m.Disconnect(a)
	m.Disconnect(a)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.WaitDisconnected(ctx))
	assert.Zero(t, m.ConnectionCount())
}
