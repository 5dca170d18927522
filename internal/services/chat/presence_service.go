package chat

import (
	"context"
	"time"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/models"
	"mchat_backend/internal/models/chat"
	"mchat_backend/internal/repositories"
	repoChat "mchat_backend/internal/repositories/chat"

	"gorm.io/gorm"
)

// PresenceService - долговременная часть присутствия: last_seen и рассылка
// user_online/user_offline контактам и в общую комнату.
// Порядок переходов одного пользователя обеспечивает вызывающий (ws.Manager).
type PresenceService interface {
	MarkOnline(ctx context.Context, db *gorm.DB, userID string) error
	MarkOffline(ctx context.Context, db *gorm.DB, userID string) error
	Contacts(db *gorm.DB, userID string) ([]string, error)
}

type presenceService struct {
	users    repositories.UserRepository
	messages repoChat.MessageRepository
	emitter  Emitter
	now      func() time.Time
}

func NewPresenceService(users repositories.UserRepository, messages repoChat.MessageRepository, emitter Emitter) PresenceService {
	return &presenceService{users: users, messages: messages, emitter: emitter, now: time.Now}
}

func (s *presenceService) MarkOnline(ctx context.Context, db *gorm.DB, userID string) error {
	var storeErr error
	if err := s.users.SetOnline(db, userID); err != nil {
		logger.CtxError(ctx, "Failed to mark user online", "error", err)
		storeErr = handleChatError(err)
	}

	user, err := s.users.FindByID(db, userID)
	if err != nil {
		logger.CtxWarn(ctx, "Presence broadcast skipped: user not loaded", "error", err)
		return storeErr
	}

	s.broadcast(ctx, db, userID, EventUserOnline, PresencePayload{
		UserID:       user.ID,
		Name:         user.Name,
		ProfileColor: user.ProfileColor,
		MessageColor: user.MessageColor,
	})
	return storeErr
}

func (s *presenceService) MarkOffline(ctx context.Context, db *gorm.DB, userID string) error {
	var storeErr error
	user, err := s.users.SetOffline(db, userID, s.now())
	if err != nil {
		logger.CtxError(ctx, "Failed to mark user offline", "error", err)
		storeErr = handleChatError(err)
		if user, err = s.users.FindByID(db, userID); err != nil {
			user = &models.User{}
			user.ID = userID
		}
	}

	payload := PresencePayload{
		UserID:       user.ID,
		Name:         user.Name,
		ProfileColor: user.ProfileColor,
		MessageColor: user.MessageColor,
		LastSeen:     user.VisibleLastSeen(),
	}
	if payload.LastSeen == nil {
		payload.LastSeen = models.LastSeenRecent
	}
	s.broadcast(ctx, db, userID, EventUserOffline, payload)
	return storeErr
}

func (s *presenceService) Contacts(db *gorm.DB, userID string) ([]string, error) {
	return s.messages.FindContactIDs(db, userID)
}

// broadcast: сбой загрузки контактов не мешает разослать в общую комнату
func (s *presenceService) broadcast(ctx context.Context, db *gorm.DB, userID, event string, payload PresencePayload) {
	contacts, err := s.Contacts(db, userID)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to load contacts for presence", "error", err)
	}
	s.emitter.Emit(Target{
		Rooms:      []string{chat.GlobalChatID},
		Users:      contacts,
		ExceptUser: userID,
	}, event, payload)
}
