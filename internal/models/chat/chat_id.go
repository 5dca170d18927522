package chat

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	// GlobalChatID - зарезервированный id общей комнаты
	GlobalChatID = "global"
	// Separator - разделитель двух user id в id личного чата
	Separator = ":"
)

var ErrInvalidChatID = errors.New("invalid chat id")

type Kind int

const (
	KindGlobal Kind = iota
	KindPrivate
)

// ChatID - разобранный id чата: либо общая комната, либо пара участников.
// UserA < UserB всегда, поэтому String() каноничен.
type ChatID struct {
	Kind  Kind
	UserA string
	UserB string
}

// Global возвращает id общей комнаты
func Global() ChatID {
	return ChatID{Kind: KindGlobal}
}

// ParseChatID разбирает id, пришедший от клиента. Порядок половин
// нормализуется, обе половины обязаны быть валидными и разными UUID.
func ParseChatID(raw string) (ChatID, error) {
	if raw == GlobalChatID {
		return Global(), nil
	}
	if strings.Count(raw, Separator) != 1 {
		return ChatID{}, ErrInvalidChatID
	}
	a, b, _ := strings.Cut(raw, Separator)
	return NewPrivateChatID(a, b)
}

// NewPrivateChatID собирает id личного чата двух пользователей
func NewPrivateChatID(userA, userB string) (ChatID, error) {
	if !isUserID(userA) || !isUserID(userB) || userA == userB {
		return ChatID{}, ErrInvalidChatID
	}
	if userB < userA {
		userA, userB = userB, userA
	}
	return ChatID{Kind: KindPrivate, UserA: userA, UserB: userB}, nil
}

// isUserID принимает только каноническую запись UUID (нижний регистр, с дефисами).
// Иначе один и тот же диалог получил бы несколько ключей.
func isUserID(s string) bool {
	u, err := uuid.Parse(s)
	return err == nil && u.String() == s
}

func (c ChatID) String() string {
	if c.Kind == KindGlobal {
		return GlobalChatID
	}
	return c.UserA + Separator + c.UserB
}

func (c ChatID) IsPrivate() bool {
	return c.Kind == KindPrivate
}

// Has - участвует ли пользователь в чате. В общей комнате участвуют все.
func (c ChatID) Has(userID string) bool {
	if c.Kind == KindGlobal {
		return true
	}
	return userID == c.UserA || userID == c.UserB
}

// PartnerOf возвращает собеседника userID в личном чате
func (c ChatID) PartnerOf(userID string) (string, bool) {
	if c.Kind != KindPrivate {
		return "", false
	}
	switch userID {
	case c.UserA:
		return c.UserB, true
	case c.UserB:
		return c.UserA, true
	}
	return "", false
}

// ContactPatterns - LIKE-шаблоны всех личных чатов пользователя
func ContactPatterns(userID string) (prefix, suffix string) {
	return userID + Separator + "%", "%" + Separator + userID
}
