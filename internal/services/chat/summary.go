package chat

import (
	"fmt"
	"unicode/utf8"

	"mchat_backend/internal/models/chat"
)

const summaryMaxRunes = 200

var mediaPlaceholders = map[string]map[chat.MessageType]string{
	"ru": {
		chat.MessageTypeImage:       "📷 Фото",
		chat.MessageTypeAudio:       "🎤 Голосовое сообщение",
		chat.MessageTypeVideo:       "🎬 Видео",
		chat.MessageTypeFile:        "📎 Файл",
		chat.MessageTypeVideoCircle: "⏺ Видеосообщение",
	},
	"en": {
		chat.MessageTypeImage:       "📷 Photo",
		chat.MessageTypeAudio:       "🎤 Voice message",
		chat.MessageTypeVideo:       "🎬 Video",
		chat.MessageTypeFile:        "📎 File",
		chat.MessageTypeVideoCircle: "⏺ Video message",
	},
}

var botTemplates = map[string]string{
	"ru": "💬 Новое сообщение от %s:\n%s",
	"en": "💬 New message from %s:\n%s",
}

// Summarize - текст сообщения или заглушка медиа на языке получателя
func Summarize(locale string, message *chat.Message) string {
	placeholders, ok := mediaPlaceholders[locale]
	if !ok {
		placeholders = mediaPlaceholders["ru"]
	}

	if message.Type != chat.MessageTypeText || message.Content == nil {
		if text, ok := placeholders[message.Type]; ok {
			return text
		}
		return placeholders[chat.MessageTypeFile]
	}
	return truncate(*message.Content, summaryMaxRunes)
}

// BotText - текст для бот-релея
func BotText(locale, senderName string, message *chat.Message) string {
	tmpl, ok := botTemplates[locale]
	if !ok {
		tmpl = botTemplates["ru"]
	}
	return fmt.Sprintf(tmpl, senderName, Summarize(locale, message))
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
