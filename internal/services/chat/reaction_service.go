package chat

import (
	"context"
	"unicode/utf8"

	"mchat_backend/internal/models/chat"
	repoChat "mchat_backend/internal/repositories/chat"
	"mchat_backend/pkg/apperrors"

	"gorm.io/gorm"
)

type ReactionService interface {
	// ToggleReaction ставит/снимает реакцию и рассылает всю карту реакций в комнату
	ToggleReaction(ctx context.Context, db *gorm.DB, userID, messageID, emoji string) (chat.ReactionMap, error)
}

type reactionService struct {
	messages repoChat.MessageRepository
	emitter  Emitter
}

func NewReactionService(messages repoChat.MessageRepository, emitter Emitter) ReactionService {
	return &reactionService{messages: messages, emitter: emitter}
}

func (s *reactionService) ToggleReaction(ctx context.Context, db *gorm.DB, userID, messageID, emoji string) (chat.ReactionMap, error) {
	if emoji == "" || utf8.RuneCountInString(emoji) > 16 {
		return nil, apperrors.NewBadRequestError("Invalid emoji")
	}

	current, err := s.messages.FindMessageByID(db, messageID)
	if err != nil {
		return nil, handleChatError(err)
	}
	id, err := parseChatID(current.ChatID, userID)
	if err != nil {
		return nil, err
	}

	message, err := s.messages.ToggleReaction(db, messageID, userID, emoji)
	if err != nil {
		return nil, handleChatError(err)
	}

	reactions := message.ReactionMap()
	// полное состояние, а не дифф: клиентам не важен порядок доставки
	s.emitter.Emit(Target{Rooms: []string{id.String()}}, EventMessageReactionUpdated, ReactionsPayload{
		ChatID:    id.String(),
		MessageID: message.ID,
		Reactions: reactions,
	})
	return reactions, nil
}
