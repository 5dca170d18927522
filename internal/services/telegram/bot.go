package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot - релей уведомлений в Telegram
type Bot struct {
	api         *tgbotapi.BotAPI
	buttonLabel string
}

// NewBot подключается к Bot API (делает getMe)
func NewBot(token string) (*Bot, error) {
	return NewBotWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewBotWithEndpoint - то же с другим адресом API (тесты, прокси)
func NewBotWithEndpoint(token, endpoint string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api, buttonLabel: "Открыть чат"}, nil
}

// SendText отправляет текст; openURL добавляет кнопку-ссылку на чат
func (b *Bot) SendText(ctx context.Context, chatID int64, text, openURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if openURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(b.buttonLabel, openURL),
			),
		)
	}

	_, err := b.api.Send(msg)
	return err
}
