package chat

import (
	"context"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/models/chat"
	"mchat_backend/internal/repositories"
	repoChat "mchat_backend/internal/repositories/chat"

	"gorm.io/gorm"
)

// ReadService - вход в комнату, прочтение и индикатор набора
type ReadService interface {
	JoinRoom(ctx context.Context, db *gorm.DB, userID, chatID string) (chat.ChatID, error)
	MarkRead(ctx context.Context, db *gorm.DB, userID, chatID string) ([]string, error)
	Typing(ctx context.Context, db *gorm.DB, userID, chatID string, typing bool) error
}

type readService struct {
	messages repoChat.MessageRepository
	states   repoChat.ChatStateRepository
	users    repositories.UserRepository
	emitter  Emitter
}

func NewReadService(
	messages repoChat.MessageRepository,
	states repoChat.ChatStateRepository,
	users repositories.UserRepository,
	emitter Emitter,
) ReadService {
	return &readService{messages: messages, states: states, users: users, emitter: emitter}
}

// JoinRoom проверяет доступ и обнуляет непрочитанные.
// Подписку соединения на комнату делает вызывающий (ws).
func (s *readService) JoinRoom(ctx context.Context, db *gorm.DB, userID, chatID string) (chat.ChatID, error) {
	id, err := parseChatID(chatID, userID)
	if err != nil {
		return chat.ChatID{}, err
	}
	if !id.IsPrivate() {
		return id, nil
	}

	if err := s.states.ResetUnread(db, userID, id.String()); err != nil {
		return chat.ChatID{}, handleChatError(err)
	}
	s.emitter.Emit(Target{Users: []string{userID}}, EventUnreadCountCleared, ChatPayload{ChatID: id.String()})
	return id, nil
}

// MarkRead: счетчик в 0 и userID в read_by всех чужих сообщений, одной транзакцией
func (s *readService) MarkRead(ctx context.Context, db *gorm.DB, userID, chatID string) ([]string, error) {
	id, err := parseChatID(chatID, userID)
	if err != nil {
		return nil, err
	}
	if !id.IsPrivate() {
		// в общей комнате нет ни счетчика, ни квитанций
		s.emitter.Emit(Target{Users: []string{userID}}, EventUnreadCountCleared, ChatPayload{ChatID: id.String()})
		return nil, nil
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, handleChatError(tx.Error)
	}
	defer tx.Rollback()

	if err := s.states.ResetUnread(tx, userID, id.String()); err != nil {
		return nil, handleChatError(err)
	}
	marked, err := s.messages.MarkChatRead(tx, id.String(), userID)
	if err != nil {
		return nil, handleChatError(err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, handleChatError(err)
	}

	if len(marked) > 0 {
		s.emitter.Emit(chatTarget(id), EventMessagesRead, MessagesReadPayload{
			ChatID:     id.String(),
			ReaderID:   userID,
			MessageIDs: marked,
		})
	}
	s.emitter.Emit(Target{Users: []string{userID}}, EventUnreadCountCleared, ChatPayload{ChatID: id.String()})

	logger.CtxDebug(ctx, "Chat marked as read", "chat_id", id.String(), "messages", len(marked))
	return marked, nil
}

// Typing ретранслирует набор текста в комнату. show_typing=false глушит полностью.
func (s *readService) Typing(ctx context.Context, db *gorm.DB, userID, chatID string, typing bool) error {
	id, err := parseChatID(chatID, userID)
	if err != nil {
		return err
	}
	user, err := s.users.FindByID(db, userID)
	if err != nil {
		return handleChatError(err)
	}
	if !user.ShowTyping {
		return nil
	}

	event := EventUserIsTyping
	if !typing {
		event = EventUserStoppedTyping
	}
	target := chatTarget(id)
	target.ExceptUser = userID
	s.emitter.Emit(target, event, TypingPayload{ChatID: id.String(), UserID: userID, Name: user.Name})
	return nil
}
