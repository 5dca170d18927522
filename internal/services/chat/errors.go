package chat

import (
	"errors"

	"mchat_backend/internal/models/chat"
	"mchat_backend/internal/repositories"
	repoChat "mchat_backend/internal/repositories/chat"
	"mchat_backend/pkg/apperrors"
)

// handleChatError переводит ошибки репозиториев в AppError
func handleChatError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, repoChat.ErrMessageNotFound):
		return apperrors.ErrMessageNotFound
	case errors.Is(err, repoChat.ErrNotMessageOwner):
		return apperrors.ErrNotMessageOwner
	case errors.Is(err, repositories.ErrUserNotFound):
		return apperrors.ErrUserNotFound
	case errors.Is(err, chat.ErrInvalidChatID):
		return apperrors.ErrInvalidChatID
	}
	return apperrors.StoreFailure(err)
}

// parseChatID разбирает id и проверяет, что пользователь участник чата
func parseChatID(raw, userID string) (chat.ChatID, error) {
	id, err := chat.ParseChatID(raw)
	if err != nil {
		return chat.ChatID{}, apperrors.ErrInvalidChatID
	}
	if !id.Has(userID) {
		return chat.ChatID{}, apperrors.ErrChatAccessDenied
	}
	return id, nil
}
