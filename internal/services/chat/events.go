package chat

import (
	"mchat_backend/internal/models"
	"mchat_backend/internal/models/chat"
)

// =======================
// Серверные события
// =======================
const (
	EventNewMessage             = "new_message"
	EventNewChatCreated         = "new_chat_created"
	EventMessageEdited          = "message_edited"
	EventMessageDeleted         = "message_deleted"
	EventMessagesBulkDeleted    = "messages_bulk_deleted"
	EventMessageReactionUpdated = "message_reaction_updated"
	EventMessagesRead           = "messages_read"
	EventUnreadCountCleared     = "unread_count_cleared"
	EventUserOnline             = "user_online"
	EventUserOffline            = "user_offline"
	EventUserIsTyping           = "user_is_typing"
	EventUserStoppedTyping      = "user_stopped_typing"
	EventChatStateUpdated       = "chat_state_updated"
)

// Target - адресаты события: подписчики комнат и личные каналы пользователей.
// Соединение, попавшее сразу в несколько адресатов, получает событие один раз.
type Target struct {
	Rooms      []string
	Users      []string
	ExceptUser string
}

// Emitter - живая доставка событий. Не блокируется на медленных клиентах.
type Emitter interface {
	Emit(target Target, event string, data any)
}

// PresenceReader - эфемерное присутствие для решений о доставке
type PresenceReader interface {
	IsActivelyReading(userID, chatID string) bool
}

// chatTarget - комната чата плюс личные каналы участников
func chatTarget(id chat.ChatID) Target {
	t := Target{Rooms: []string{id.String()}}
	if id.IsPrivate() {
		t.Users = []string{id.UserA, id.UserB}
	}
	return t
}

// =======================
// Payload'ы
// =======================

type MessagePayload struct {
	Message  *chat.Message `json:"message"`
	ClientID string        `json:"client_id,omitempty"`
}

type NewChatPayload struct {
	ChatID   string                   `json:"chat_id"`
	Partner  models.ProfileProjection `json:"partner"`
	Message  *chat.Message            `json:"message"`
	ClientID string                   `json:"client_id,omitempty"`
}

type MessageDeletedPayload struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Hard      bool   `json:"hard"`
}

type BulkDeletedPayload struct {
	ChatID     string   `json:"chat_id"`
	MessageIDs []string `json:"message_ids"`
	Hard       bool     `json:"hard"`
}

type ReactionsPayload struct {
	ChatID    string           `json:"chat_id"`
	MessageID string           `json:"message_id"`
	Reactions chat.ReactionMap `json:"reactions"`
}

type MessagesReadPayload struct {
	ChatID     string   `json:"chat_id"`
	ReaderID   string   `json:"reader_id"`
	MessageIDs []string `json:"message_ids"`
}

type ChatPayload struct {
	ChatID string `json:"chat_id"`
}

type TypingPayload struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

type PresencePayload struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name"`
	ProfileColor string `json:"profile_color"`
	MessageColor string `json:"message_color"`
	LastSeen     any    `json:"last_seen,omitempty"`
}
