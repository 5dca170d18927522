package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/metrics"
	"mchat_backend/internal/models"
	"mchat_backend/internal/models/chat"
	"mchat_backend/internal/repositories"
	repoChat "mchat_backend/internal/repositories/chat"
	"mchat_backend/internal/services/push"

	"gorm.io/gorm"
)

// PushSender - доставка Web Push. push.ErrSubscriptionGone - подписки больше нет.
type PushSender interface {
	Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error
}

// BotSender - релей во внешний мессенджер
type BotSender interface {
	SendText(ctx context.Context, chatID int64, text, openURL string) error
}

type PushPayload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	URL       string `json:"url,omitempty"`
}

// NotificationService - маршрутизатор внешних уведомлений.
// Ошибки только логируются: отправитель о них не узнает.
type NotificationService struct {
	states   repoChat.ChatStateRepository
	users    repositories.UserRepository
	subs     repositories.PushSubscriptionRepository
	presence PresenceReader
	push     PushSender
	bot      BotSender

	appURL        string
	defaultLocale string
}

func NewNotificationService(
	states repoChat.ChatStateRepository,
	users repositories.UserRepository,
	subs repositories.PushSubscriptionRepository,
	presence PresenceReader,
	pushSender PushSender,
	bot BotSender,
	appURL, defaultLocale string,
) *NotificationService {
	return &NotificationService{
		states:        states,
		users:         users,
		subs:          subs,
		presence:      presence,
		push:          pushSender,
		bot:           bot,
		appURL:        strings.TrimRight(appURL, "/"),
		defaultLocale: defaultLocale,
	}
}

// ShouldNotify: не в муте И не (онлайн, смотрит этот чат, окно в фокусе)
func (s *NotificationService) ShouldNotify(db *gorm.DB, recipientID, chatID string) (bool, error) {
	state, err := s.states.FindState(db, recipientID, chatID)
	if err != nil {
		return false, err
	}
	if state.Muted {
		return false, nil
	}
	return !s.presence.IsActivelyReading(recipientID, chatID), nil
}

func (s *NotificationService) Notify(ctx context.Context, db *gorm.DB, message *chat.Message, sender *models.User, recipientID string) {
	ctx = logger.WithUserID(ctx, recipientID)

	notify, err := s.ShouldNotify(db, recipientID, message.ChatID)
	if err != nil {
		logger.CtxWarn(ctx, "Notification skipped: chat state unavailable", "error", err)
		return
	}
	if !notify {
		metrics.Notifications.WithLabelValues("all", "suppressed").Inc()
		return
	}

	recipient, err := s.users.FindByID(db, recipientID)
	if err != nil {
		logger.CtxWarn(ctx, "Notification skipped: recipient not loaded", "error", err)
		return
	}
	locale := recipient.Locale
	if locale == "" {
		locale = s.defaultLocale
	}

	s.sendPush(ctx, db, recipient, sender, message, locale)
	s.sendBot(ctx, recipient, sender, message, locale)
}

func (s *NotificationService) chatURL(chatID string) string {
	if s.appURL == "" {
		return ""
	}
	return s.appURL + "/chat/" + chatID
}

// sendPush рассылает по всем подпискам; 404/410 удаляет только эту подписку
func (s *NotificationService) sendPush(ctx context.Context, db *gorm.DB, recipient, sender *models.User, message *chat.Message, locale string) {
	if s.push == nil {
		return
	}
	subs, err := s.subs.FindByUser(db, recipient.ID)
	if err != nil {
		logger.CtxWarn(ctx, "Failed to load push subscriptions", "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(PushPayload{
		Title:     sender.Name,
		Body:      Summarize(locale, message),
		ChatID:    message.ChatID,
		MessageID: message.ID,
		URL:       s.chatURL(message.ChatID),
	})
	if err != nil {
		logger.CtxWarn(ctx, "Failed to encode push payload", "error", err)
		return
	}

	for i := range subs {
		sub := &subs[i]
		err := s.push.Send(ctx, sub, payload)
		switch {
		case err == nil:
			metrics.Notifications.WithLabelValues("push", "sent").Inc()
		case errors.Is(err, push.ErrSubscriptionGone):
			metrics.Notifications.WithLabelValues("push", "gone").Inc()
			if err := s.subs.DeleteByID(db, sub.ID); err != nil {
				logger.CtxWarn(ctx, "Failed to delete stale push subscription", "subscription_id", sub.ID, "error", err)
			} else {
				logger.CtxInfo(ctx, "Stale push subscription removed", "subscription_id", sub.ID)
			}
		default:
			metrics.Notifications.WithLabelValues("push", "failed").Inc()
			logger.CtxWarn(ctx, "Push delivery failed", "subscription_id", sub.ID, "error", err)
		}
	}
}

func (s *NotificationService) sendBot(ctx context.Context, recipient, sender *models.User, message *chat.Message, locale string) {
	if s.bot == nil || recipient.TelegramChatID == nil {
		return
	}
	text := BotText(locale, sender.Name, message)
	if err := s.bot.SendText(ctx, *recipient.TelegramChatID, text, s.chatURL(message.ChatID)); err != nil {
		metrics.Notifications.WithLabelValues("bot", "failed").Inc()
		logger.CtxWarn(ctx, "Bot relay failed", "error", err)
		return
	}
	metrics.Notifications.WithLabelValues("bot", "sent").Inc()
}
