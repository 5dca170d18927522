package ws

import "sync"

// Registry - живые соединения пользователей (несколько вкладок/устройств).
// Наблюдаемы только переходы 0 -> 1 и 1 -> 0.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]struct{})}
}

// Register добавляет соединение. true - это первое соединение пользователя.
func (r *Registry) Register(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1
}

// Unregister удаляет соединение. true - ушло последнее соединение пользователя.
func (r *Registry) Unregister(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) > 0 {
		return false
	}
	delete(r.conns, userID)
	return true
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionsOf возвращает копию набора соединений
func (r *Registry) ConnectionsOf(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// Count - число пользователей онлайн
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
