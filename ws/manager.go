package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/metrics"
	chatsvc "mchat_backend/internal/services/chat"
	"mchat_backend/internal/utils"
	"mchat_backend/internal/validator"

	"gorm.io/gorm"
)

// Options - параметры живых соединений
type Options struct {
	SendBuffer      int
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
	AllowedOrigins  []string
}

// Services - сервисы, которым ws отдает интенты
type Services struct {
	Messages  chatsvc.MessageService
	Reactions chatsvc.ReactionService
	Reads     chatsvc.ReadService
	States    chatsvc.ChatStateService
	Presence  chatsvc.PresenceService
}

// Manager владеет всем эфемерным состоянием: соединения, комнаты,
// присутствие, звонки. Наружу карты не отдаются.
type Manager struct {
	db       *gorm.DB
	opts     Options
	svc      Services
	validate *validator.Validator

	registry  *Registry
	presence  *Tracker
	calls     *CallRelay
	userLocks *utils.KeyedMutex

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	// соединения, чей Disconnect (вместе с MarkOffline) еще не завершен
	pending atomic.Int64
}

func NewManager(db *gorm.DB, opts Options) *Manager {
	m := &Manager{
		db:        db,
		opts:      opts,
		validate:  validator.New(),
		registry:  NewRegistry(),
		presence:  NewTracker(),
		userLocks: utils.NewKeyedMutex(),
		clients:   make(map[string]*Client),
		rooms:     make(map[string]map[string]*Client),
	}
	m.calls = NewCallRelay(m.registry, m)
	return m
}

// Bind подключает сервисы. Сервисы сами рассылают через Manager, поэтому
// собираются после него.
func (m *Manager) Bind(svc Services) {
	m.svc = svc
}

func (m *Manager) Registry() *Registry { return m.registry }
func (m *Manager) Presence() *Tracker  { return m.presence }
func (m *Manager) Calls() *CallRelay   { return m.calls }

// =======================
// Подключение / отключение
// =======================

// Connect регистрирует соединение. Переход в онлайн и предыдущий переход
// в офлайн одного пользователя выполняются строго по очереди.
func (m *Manager) Connect(c *Client) {
	unlock := m.userLocks.Lock(c.UserID)
	defer unlock()

	m.mu.Lock()
	m.clients[c.ID] = c
	m.mu.Unlock()
	m.pending.Add(1)
	metrics.WSConnections.Inc()

	first := m.registry.Register(c.UserID, c.ID)
	m.presence.ResetOnConnect(c.UserID)
	logger.WSLog("connect", c.UserID, c.ID, nil)

	if !first {
		return
	}
	metrics.OnlineUsers.Inc()
	if err := m.svc.Presence.MarkOnline(c.Ctx, m.db, c.UserID); err != nil {
		logger.WSLog("mark_online", c.UserID, c.ID, err)
	}
}

// Disconnect - единая точка разрыва: комнаты, звонок, переход в офлайн
func (m *Manager) Disconnect(c *Client) {
	unlock := m.userLocks.Lock(c.UserID)
	defer unlock()

	m.mu.Lock()
	if _, ok := m.clients[c.ID]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, c.ID)
	defer m.pending.Add(-1)
	for room := range c.rooms {
		members := m.rooms[room]
		delete(members, c.ID)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	close(c.Send)
	m.mu.Unlock()
	metrics.WSConnections.Dec()

	last := m.registry.Unregister(c.UserID, c.ID)
	m.presence.ReleaseConn(c.UserID, c.ID)
	m.calls.Disconnect(c.UserID, c.ID, last)
	logger.WSLog("disconnect", c.UserID, c.ID, nil)

	if !last {
		return
	}
	metrics.OnlineUsers.Dec()
	m.presence.Forget(c.UserID)
	if err := m.svc.Presence.MarkOffline(c.Ctx, m.db, c.UserID); err != nil {
		logger.WSLog("mark_offline", c.UserID, c.ID, err)
	}
}

// CloseAll закрывает все соединения; read pump'ы сами пройдут Disconnect
func (m *Manager) CloseAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.clients {
		c.kick()
	}
}

// Shutdown закрывает соединения и ждет, пока каждое пройдет Disconnect
func (m *Manager) Shutdown(ctx context.Context) error {
	m.CloseAll()
	return m.WaitDisconnected(ctx)
}

// WaitDisconnected возвращается, когда все Disconnect завершены
// (включая запись офлайна), или с ошибкой контекста.
func (m *Manager) WaitDisconnected(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for m.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// =======================
// Комнаты и доставка
// =======================

func (m *Manager) JoinRoom(c *Client, chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[c.ID]; !ok {
		return
	}
	members, ok := m.rooms[chatID]
	if !ok {
		members = make(map[string]*Client)
		m.rooms[chatID] = members
	}
	members[c.ID] = c
	c.rooms[chatID] = struct{}{}
}

// Emit рассылает событие комнатам и личным каналам. Каждое соединение
// получает событие не больше одного раза; медленный клиент отключается.
func (m *Manager) Emit(target chatsvc.Target, event string, data any) {
	frame, err := json.Marshal(OutgoingWSMessage{Event: event, Data: data})
	if err != nil {
		logger.Error("Failed to encode event", "event", event, "error", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	delivered := make(map[string]struct{})
	deliver := func(c *Client) {
		if c == nil || c.UserID == target.ExceptUser {
			return
		}
		if _, dup := delivered[c.ID]; dup {
			return
		}
		delivered[c.ID] = struct{}{}
		c.enqueue(frame)
	}

	for _, room := range target.Rooms {
		for _, c := range m.rooms[room] {
			deliver(c)
		}
	}
	for _, userID := range target.Users {
		for _, connID := range m.registry.ConnectionsOf(userID) {
			deliver(m.clients[connID])
		}
	}
}

// sendTo - событие одному соединению (ответы на интенты)
func (m *Manager) sendTo(c *Client, event string, data any) {
	frame, err := json.Marshal(OutgoingWSMessage{Event: event, Data: data})
	if err != nil {
		logger.Error("Failed to encode event", "event", event, "error", err)
		return
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.clients[c.ID]; ok {
		c.enqueue(frame)
	}
}

// IsActivelyReading: онлайн, смотрит именно этот чат и окно в фокусе
func (m *Manager) IsActivelyReading(userID, chatID string) bool {
	return m.registry.IsOnline(userID) &&
		m.presence.ViewingOf(userID) == chatID &&
		m.presence.IsFocused(userID)
}

// IsOnline - есть ли у пользователя живые соединения
func (m *Manager) IsOnline(userID string) bool {
	return m.registry.IsOnline(userID)
}

func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// ReconcileOffline переводит в офлайн пользователя, который числится онлайн
// в хранилище, но не имеет живых соединений. Под тем же замком, что и
// Connect/Disconnect, поэтому не пересекается с реальным переходом.
func (m *Manager) ReconcileOffline(ctx context.Context, userID string) bool {
	unlock := m.userLocks.Lock(userID)
	defer unlock()

	if m.registry.IsOnline(userID) {
		return false
	}
	if err := m.svc.Presence.MarkOffline(ctx, m.db, userID); err != nil {
		logger.WSLog("reconcile_offline", userID, "", err)
	}
	return true
}
