package apperrors

import (
	"net/http"
	"time"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для ошибок домена чата.

Таксономия:
  - отказ по политике (mute, ban, rate limit) - отдаем клиенту с причиной;
  - not found / forbidden - отдельные коды, чтобы UI реагировал точечно;
  - сбой хранилища - операция провалена, без ретраев;
  - best-effort сбои доставки наружу не выходят (только логи).
*/

// =========================================================================
// Отказ по политике
// =========================================================================

// RestrictionDetails - причина и срок ограничения
type RestrictionDetails struct {
	Reason string     `json:"reason"`
	Until  *time.Time `json:"until,omitempty"`
}

// ErrSenderMuted - отправитель в муте
func ErrSenderMuted(reason string, until *time.Time) *AppError {
	return New(CodeUserMuted, "chat", "You are muted", http.StatusForbidden).
		WithDetails(RestrictionDetails{Reason: reason, Until: until})
}

// ErrSenderBanned - отправитель забанен
func ErrSenderBanned(reason string, until *time.Time) *AppError {
	return New(CodeUserBanned, "chat", "You are banned", http.StatusForbidden).
		WithDetails(RestrictionDetails{Reason: reason, Until: until})
}

var ErrRateLimited = New(CodeRateLimited, "chat", "Too many messages, slow down", http.StatusTooManyRequests)

// =========================================================================
// Не найдено / запрещено
// =========================================================================

var (
	ErrMessageNotFound  = New(CodeMessageNotFound, "chat", "Message not found", http.StatusNotFound)
	ErrNotMessageOwner  = New(CodeNotMessageOwner, "chat", "You can only change your own messages", http.StatusForbidden)
	ErrChatAccessDenied = New(CodeChatAccessDenied, "chat", "Access to chat denied", http.StatusForbidden)
	ErrInvalidChatID    = New(CodeInvalidChatID, "chat", "Invalid chat id", http.StatusBadRequest)
	ErrInvalidMessage   = New(CodeInvalidMessage, "chat", "Message must have content or media", http.StatusBadRequest)
	ErrUserNotFound     = New(CodeNotFound, "user", "User not found", http.StatusNotFound)
)

// =========================================================================
// Звонки
// =========================================================================

var (
	ErrCallBusy      = New(CodeCallBusy, "call", "User is already in a call", http.StatusConflict)
	ErrCallOffline   = New(CodeCallOffline, "call", "User is offline", http.StatusConflict)
	ErrNoActiveCall  = New(CodeNoActiveCall, "call", "No active call with this user", http.StatusConflict)
	ErrInvalidSignal = New(CodeInvalidSignal, "call", "Invalid signaling payload", http.StatusBadRequest)
)

// =========================================================================
// Сбой хранилища
// =========================================================================

// StoreFailure - запись в БД не удалась, операция считается проваленной
func StoreFailure(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "store", "Failed to persist changes", http.StatusInternalServerError)
}
