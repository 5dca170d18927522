package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/metrics"
	"mchat_backend/internal/models"
	"mchat_backend/internal/models/chat"
	"mchat_backend/internal/ratelimit"
	"mchat_backend/internal/repositories"
	repoChat "mchat_backend/internal/repositories/chat"
	"mchat_backend/internal/utils"
	"mchat_backend/pkg/apperrors"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// MessageService - диспетчер сообщений: проверка, запись, рассылка.
// Все методы принимают 'db *gorm.DB', как остальные сервисы.
type MessageService interface {
	SendMessage(ctx context.Context, db *gorm.DB, input SendMessageInput) (*chat.Message, error)
	EditMessage(ctx context.Context, db *gorm.DB, userID, messageID, content string) (*chat.Message, error)
	DeleteMessage(ctx context.Context, db *gorm.DB, actorID string, role models.UserRole, messageID string) error
	BulkDeleteMessages(ctx context.Context, db *gorm.DB, actorID string, role models.UserRole, chatID string, messageIDs []string) ([]string, error)
	GetHistory(ctx context.Context, db *gorm.DB, userID string, role models.UserRole, chatID, beforeID string, limit int) ([]chat.Message, error)

	// Wait дожидается фоновых уведомлений (остановка сервера, тесты)
	Wait()
}

// ForwardedFrom - метаданные пересылки
type ForwardedFrom struct {
	MessageID  string `json:"message_id" validate:"required,max=26"`
	SenderName string `json:"sender_name" validate:"max=100"`
}

type SendMessageInput struct {
	SenderID      string           `json:"-"`
	ChatID        string           `json:"chat_id" validate:"required,max=80"`
	Content       *string          `json:"content" validate:"omitempty,max=4000"`
	Type          chat.MessageType `json:"type" validate:"omitempty,message-type"`
	MediaURL      *string          `json:"media_url" validate:"omitempty,max=1024"`
	MimeType      *string          `json:"mime_type" validate:"omitempty,max=100"`
	ClientID      string           `json:"client_id" validate:"omitempty,max=64"`
	ForwardedFrom *ForwardedFrom   `json:"forwarded_from" validate:"omitempty"`
}

// Notifier - маршрутизатор внешних уведомлений
type Notifier interface {
	Notify(ctx context.Context, db *gorm.DB, message *chat.Message, sender *models.User, recipientID string)
}

type messageService struct {
	messages repoChat.MessageRepository
	states   repoChat.ChatStateRepository
	users    repositories.UserRepository
	limiter  ratelimit.Limiter
	notifier Notifier
	emitter  Emitter

	chatLocks *utils.KeyedMutex
	wg        sync.WaitGroup
	now       func() time.Time
}

func NewMessageService(
	messages repoChat.MessageRepository,
	states repoChat.ChatStateRepository,
	users repositories.UserRepository,
	limiter ratelimit.Limiter,
	notifier Notifier,
	emitter Emitter,
) MessageService {
	return &messageService{
		messages:  messages,
		states:    states,
		users:     users,
		limiter:   limiter,
		notifier:  notifier,
		emitter:   emitter,
		chatLocks: utils.NewKeyedMutex(),
		now:       time.Now,
	}
}

// =======================
// Отправка
// =======================

func (s *messageService) SendMessage(ctx context.Context, db *gorm.DB, input SendMessageInput) (*chat.Message, error) {
	id, err := parseChatID(input.ChatID, input.SenderID)
	if err != nil {
		return nil, err
	}
	msgType, err := normalizeInput(&input)
	if err != nil {
		return nil, err
	}

	sender, err := s.users.FindByID(db, input.SenderID)
	if err != nil {
		return nil, handleChatError(err)
	}
	if err := s.checkSender(ctx, sender); err != nil {
		return nil, err
	}

	var partner *models.User
	if id.IsPrivate() {
		partnerID, _ := id.PartnerOf(sender.ID)
		partner, err = s.users.FindByID(db, partnerID)
		if errors.Is(err, repositories.ErrUserNotFound) {
			// мусорный или устаревший chat id: молча отбрасываем
			logger.CtxWarn(ctx, "Message dropped: partner does not exist", "chat_id", id.String())
			return nil, nil
		}
		if err != nil {
			return nil, handleChatError(err)
		}
	}

	message := &chat.Message{
		ID:       ulid.Make().String(),
		ChatID:   id.String(),
		SenderID: sender.ID,
		Content:  input.Content,
		Type:     msgType,
		MediaURL: input.MediaURL,
		MimeType: input.MimeType,
	}
	if input.ForwardedFrom != nil {
		message.ForwardedFromID = &input.ForwardedFrom.MessageID
		message.ForwardedFromName = &input.ForwardedFrom.SenderName
	}

	// запись и рассылка одного чата идут строго по очереди
	unlock := s.chatLocks.Lock(id.String())
	isNewChat, err := s.persist(db, id, message)
	if err != nil {
		unlock()
		logger.CtxError(ctx, "Failed to persist message", "chat_id", id.String(), "error", err)
		return nil, handleChatError(err)
	}
	s.fanOut(id, message, sender, partner, isNewChat, input.ClientID)
	unlock()

	if id.IsPrivate() {
		metrics.MessagesSent.WithLabelValues("private").Inc()
		s.notifyAsync(ctx, db, message, sender, partner.ID)
	} else {
		metrics.MessagesSent.WithLabelValues("global").Inc()
	}
	return message, nil
}

// normalizeInput проверяет, что есть текст или медиа, и определяет тип
func normalizeInput(input *SendMessageInput) (chat.MessageType, error) {
	if input.Content != nil {
		trimmed := strings.TrimSpace(*input.Content)
		if trimmed == "" {
			input.Content = nil
		} else {
			input.Content = &trimmed
		}
	}
	hasMedia := input.MediaURL != nil && *input.MediaURL != ""
	if input.Content == nil && !hasMedia {
		return "", apperrors.ErrInvalidMessage
	}

	msgType := input.Type
	if msgType == "" {
		msgType = chat.MessageTypeText
		if hasMedia {
			msgType = chat.MessageTypeFile
		}
	}
	if !msgType.IsValid() || (msgType != chat.MessageTypeText && !hasMedia) {
		return "", apperrors.ErrInvalidMessage
	}
	return msgType, nil
}

// checkSender - бан, мут аккаунта и лимит частоты
func (s *messageService) checkSender(ctx context.Context, sender *models.User) error {
	now := s.now()
	if sender.BannedAt(now) {
		return apperrors.ErrSenderBanned(deref(sender.BanReason), sender.BanExpiresAt)
	}
	if sender.MutedAt(now) {
		return apperrors.ErrSenderMuted(deref(sender.MuteReason), sender.MuteExpiresAt)
	}

	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, sender.ID)
	if err != nil {
		logger.CtxWarn(ctx, "Rate limiter unavailable, send allowed", "error", err)
		return nil
	}
	if !allowed {
		return apperrors.ErrRateLimited
	}
	return nil
}

// persist - подсчет, вставка и +1 непрочитанных одной транзакцией
func (s *messageService) persist(db *gorm.DB, id chat.ChatID, message *chat.Message) (bool, error) {
	tx := db.Begin()
	if tx.Error != nil {
		return false, tx.Error
	}
	defer tx.Rollback()

	isNewChat := false
	if id.IsPrivate() {
		count, err := s.messages.CountMessagesInChat(tx, id.String())
		if err != nil {
			return false, err
		}
		isNewChat = count == 0
	}

	message.CreatedAt = s.now()
	if err := s.messages.CreateMessage(tx, message); err != nil {
		return false, err
	}

	if id.IsPrivate() {
		partnerID, _ := id.PartnerOf(message.SenderID)
		if err := s.states.IncrementUnread(tx, partnerID, id.String()); err != nil {
			return false, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return false, err
	}
	return isNewChat, nil
}

func (s *messageService) fanOut(id chat.ChatID, message *chat.Message, sender, partner *models.User, isNewChat bool, clientID string) {
	if isNewChat {
		// каждый участник получает профиль второго
		s.emitter.Emit(Target{Users: []string{sender.ID}}, EventNewChatCreated, NewChatPayload{
			ChatID:   id.String(),
			Partner:  partner.Projection(),
			Message:  message,
			ClientID: clientID,
		})
		s.emitter.Emit(Target{Users: []string{partner.ID}}, EventNewChatCreated, NewChatPayload{
			ChatID:  id.String(),
			Partner: sender.Projection(),
			Message: message,
		})
		return
	}

	target := chatTarget(id)
	if !id.IsPrivate() {
		target.Users = []string{sender.ID}
	}
	s.emitter.Emit(target, EventNewMessage, MessagePayload{Message: message, ClientID: clientID})
}

func (s *messageService) notifyAsync(ctx context.Context, db *gorm.DB, message *chat.Message, sender *models.User, recipientID string) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notifier.Notify(ctx, db, message, sender, recipientID)
	}()
}

func (s *messageService) Wait() {
	s.wg.Wait()
}

// =======================
// Редактирование и удаление
// =======================

func (s *messageService) EditMessage(ctx context.Context, db *gorm.DB, userID, messageID, content string) (*chat.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrInvalidMessage
	}

	message, err := s.messages.UpdateContent(db, messageID, userID, content)
	if err != nil {
		return nil, handleChatError(err)
	}

	if id, err := chat.ParseChatID(message.ChatID); err == nil {
		s.emitter.Emit(chatTarget(id), EventMessageEdited, MessagePayload{Message: message})
	}
	return message, nil
}

// DeleteMessage: автор удаляет мягко, модератор и админ - физически
func (s *messageService) DeleteMessage(ctx context.Context, db *gorm.DB, actorID string, role models.UserRole, messageID string) error {
	var (
		message *chat.Message
		err     error
	)
	hard := role.IsModeratorOrHigher()
	if hard {
		message, err = s.messages.HardDeleteMessage(db, messageID)
	} else {
		message, err = s.messages.SoftDeleteMessage(db, messageID, actorID)
	}
	if err != nil {
		return handleChatError(err)
	}

	logger.CtxInfo(ctx, "Message deleted", "message_id", messageID, "hard", hard)

	if id, err := chat.ParseChatID(message.ChatID); err == nil {
		s.emitter.Emit(chatTarget(id), EventMessageDeleted, MessageDeletedPayload{
			ChatID:    message.ChatID,
			MessageID: message.ID,
			Hard:      hard,
		})
	}
	return nil
}

func (s *messageService) BulkDeleteMessages(ctx context.Context, db *gorm.DB, actorID string, role models.UserRole, chatID string, messageIDs []string) ([]string, error) {
	hard := role.IsModeratorOrHigher()
	id, err := s.resolveChat(chatID, actorID, hard)
	if err != nil {
		return nil, err
	}

	ownerID := actorID
	if hard {
		ownerID = ""
	}
	deleted, err := s.messages.BulkDeleteMessages(db, id.String(), messageIDs, ownerID, hard)
	if err != nil {
		logger.CtxError(ctx, "Bulk delete failed", "chat_id", id.String(), "error", err)
		return nil, handleChatError(err)
	}
	if len(deleted) == 0 {
		return deleted, nil
	}

	s.emitter.Emit(chatTarget(id), EventMessagesBulkDeleted, BulkDeletedPayload{
		ChatID:     id.String(),
		MessageIDs: deleted,
		Hard:       hard,
	})
	return deleted, nil
}

// =======================
// История
// =======================

func (s *messageService) GetHistory(ctx context.Context, db *gorm.DB, userID string, role models.UserRole, chatID, beforeID string, limit int) ([]chat.Message, error) {
	id, err := s.resolveChat(chatID, userID, role.IsModeratorOrHigher())
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.FindMessagesByChat(db, id.String(), beforeID, limit)
	if err != nil {
		return nil, handleChatError(err)
	}
	return messages, nil
}

// resolveChat: модератору доступен любой чат, остальным - только свои
func (s *messageService) resolveChat(raw, userID string, anyChat bool) (chat.ChatID, error) {
	if anyChat {
		id, err := chat.ParseChatID(raw)
		if err != nil {
			return chat.ChatID{}, apperrors.ErrInvalidChatID
		}
		return id, nil
	}
	return parseChatID(raw, userID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
