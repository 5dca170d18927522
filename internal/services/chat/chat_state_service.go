package chat

import (
	"context"

	"mchat_backend/internal/models/chat"
	repoChat "mchat_backend/internal/repositories/chat"

	"gorm.io/gorm"
)

type ChatStateService interface {
	SetMuted(ctx context.Context, db *gorm.DB, userID, chatID string, muted bool) (*chat.ChatState, error)
	ToggleMute(ctx context.Context, db *gorm.DB, userID, chatID string) (*chat.ChatState, error)
	ListStates(ctx context.Context, db *gorm.DB, userID string) ([]chat.ChatState, error)
}

type chatStateService struct {
	states  repoChat.ChatStateRepository
	emitter Emitter
}

func NewChatStateService(states repoChat.ChatStateRepository, emitter Emitter) ChatStateService {
	return &chatStateService{states: states, emitter: emitter}
}

func (s *chatStateService) SetMuted(ctx context.Context, db *gorm.DB, userID, chatID string, muted bool) (*chat.ChatState, error) {
	id, err := parseChatID(chatID, userID)
	if err != nil {
		return nil, err
	}
	state, err := s.states.SetMuted(db, userID, id.String(), muted)
	if err != nil {
		return nil, handleChatError(err)
	}
	// все вкладки пользователя видят новое состояние
	s.emitter.Emit(Target{Users: []string{userID}}, EventChatStateUpdated, state)
	return state, nil
}

func (s *chatStateService) ToggleMute(ctx context.Context, db *gorm.DB, userID, chatID string) (*chat.ChatState, error) {
	id, err := parseChatID(chatID, userID)
	if err != nil {
		return nil, err
	}
	state, err := s.states.ToggleMuted(db, userID, id.String())
	if err != nil {
		return nil, handleChatError(err)
	}
	s.emitter.Emit(Target{Users: []string{userID}}, EventChatStateUpdated, state)
	return state, nil
}

func (s *chatStateService) ListStates(ctx context.Context, db *gorm.DB, userID string) ([]chat.ChatState, error) {
	states, err := s.states.FindStatesByUser(db, userID)
	if err != nil {
		return nil, handleChatError(err)
	}
	return states, nil
}
