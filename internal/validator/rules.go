package validator

import (
	"log"

	"mchat_backend/internal/models/chat"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует кастомные правила валидации
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// без правил приложение запускать нельзя
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'chat-id': "global" или два user id через разделитель
	mustRegister("chat-id", validateChatID)

	// 'message-type': text, image, audio, video, file, video_circle
	mustRegister("message-type", validateMessageType)
}

func validateChatID(fl validator.FieldLevel) bool {
	_, err := chat.ParseChatID(fl.Field().String())
	return err == nil
}

func validateMessageType(fl validator.FieldLevel) bool {
	return chat.MessageType(fl.Field().String()).IsValid()
}
