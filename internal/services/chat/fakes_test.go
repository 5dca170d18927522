package chat

import (
	"context"
	"sync"

	"mchat_backend/internal/models"
	"mchat_backend/internal/models/chat"

	"gorm.io/gorm"
)

type emitted struct {
	Target Target
	Event  string
	Data   any
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []emitted
}

func (f *fakeEmitter) Emit(target Target, event string, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, emitted{Target: target, Event: event, Data: data})
}

func (f *fakeEmitter) byEvent(event string) []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitted
	for _, e := range f.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeEmitter) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// fakePresence: userID -> chatID, который пользователь активно читает
type fakePresence struct {
	reading map[string]string
}

func (f *fakePresence) IsActivelyReading(userID, chatID string) bool {
	return f.reading[userID] == chatID
}

type fakeLimiter struct {
	allow bool
	err   error
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return f.allow, f.err
}

type pushCall struct {
	Endpoint string
	Payload  []byte
}

type fakePush struct {
	mu    sync.Mutex
	calls []pushCall
	// endpoint -> ошибка доставки
	fail map[string]error
}

func (f *fakePush) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{Endpoint: sub.Endpoint, Payload: payload})
	if err, ok := f.fail[sub.Endpoint]; ok {
		return err
	}
	return nil
}

type botCall struct {
	ChatID  int64
	Text    string
	OpenURL string
}

type fakeBot struct {
	mu    sync.Mutex
	calls []botCall
}

func (f *fakeBot) SendText(ctx context.Context, chatID int64, text, openURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, botCall{ChatID: chatID, Text: text, OpenURL: openURL})
	return nil
}

type notifyCall struct {
	MessageID   string
	RecipientID string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (f *fakeNotifier) Notify(ctx context.Context, db *gorm.DB, message *chat.Message, sender *models.User, recipientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifyCall{MessageID: message.ID, RecipientID: recipientID})
}
