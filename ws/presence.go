package ws

import "sync"

type presenceState struct {
	viewing     string
	viewingConn string // соединение, приславшее view_chat
	focused     bool
}

// Tracker - какой чат пользователь смотрит и в фокусе ли окно.
// Только память процесса, после рестарта пусто.
type Tracker struct {
	mu    sync.RWMutex
	users map[string]*presenceState
}

func NewTracker() *Tracker {
	return &Tracker{users: make(map[string]*presenceState)}
}

func (t *Tracker) state(userID string) *presenceState {
	s, ok := t.users[userID]
	if !ok {
		s = &presenceState{focused: true}
		t.users[userID] = s
	}
	return s
}

// ResetOnConnect - новое соединение считается окном в фокусе
func (t *Tracker) ResetOnConnect(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(userID).focused = true
}

// SetViewing запоминает и чат, и соединение: просмотр живет не дольше вкладки
func (t *Tracker) SetViewing(userID, connID, chatID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.state(userID)
	s.viewing = chatID
	s.viewingConn = connID
}

// ClearViewing сбрасывает просмотр, только если смотрят именно chatID.
// Запоздавший stop_view_chat старой вкладки не затирает новый view_chat.
func (t *Tracker) ClearViewing(userID, chatID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.users[userID]
	if !ok || s.viewing != chatID {
		return false
	}
	s.viewing = ""
	s.viewingConn = ""
	return true
}

// ReleaseConn сбрасывает просмотр, если его выставило закрывшееся соединение
func (t *Tracker) ReleaseConn(userID, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.users[userID]
	if !ok || s.viewing == "" || s.viewingConn != connID {
		return false
	}
	s.viewing = ""
	s.viewingConn = ""
	return true
}

func (t *Tracker) SetFocus(userID string, focused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state(userID).focused = focused
}

// Forget - последнее соединение закрыто
func (t *Tracker) Forget(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.users, userID)
}

func (t *Tracker) ViewingOf(userID string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.users[userID]; ok {
		return s.viewing
	}
	return ""
}

func (t *Tracker) IsFocused(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if s, ok := t.users[userID]; ok {
		return s.focused
	}
	return false
}
