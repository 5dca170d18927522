package chat

import (
	"errors"
	"time"

	"mchat_backend/internal/metrics"
	"mchat_backend/internal/models/chat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatStateRepository - мут и счетчик непрочитанных на пару (user, chat).
// Все записи - идемпотентный upsert по (user_id, chat_id).
type ChatStateRepository interface {
	FindState(db *gorm.DB, userID, chatID string) (*chat.ChatState, error)
	FindStatesByUser(db *gorm.DB, userID string) ([]chat.ChatState, error)
	IncrementUnread(db *gorm.DB, userID, chatID string) error
	ResetUnread(db *gorm.DB, userID, chatID string) error
	SetMuted(db *gorm.DB, userID, chatID string, muted bool) (*chat.ChatState, error)
	// ToggleMuted переключает mute одной атомарной записью
	ToggleMuted(db *gorm.DB, userID, chatID string) (*chat.ChatState, error)
}

type ChatStateRepositoryImpl struct{}

func NewChatStateRepository() ChatStateRepository {
	return &ChatStateRepositoryImpl{}
}

var stateConflict = []clause.Column{{Name: "user_id"}, {Name: "chat_id"}}

// FindState возвращает состояние; если строки нет - нулевое состояние, не ошибку
func (r *ChatStateRepositoryImpl) FindState(db *gorm.DB, userID, chatID string) (*chat.ChatState, error) {
	var state chat.ChatState
	err := db.Where("user_id = ? AND chat_id = ?", userID, chatID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &chat.ChatState{UserID: userID, ChatID: chatID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *ChatStateRepositoryImpl) FindStatesByUser(db *gorm.DB, userID string) ([]chat.ChatState, error) {
	var states []chat.ChatState
	err := db.Where("user_id = ?", userID).Order("updated_at DESC").Find(&states).Error
	return states, err
}

func (r *ChatStateRepositoryImpl) IncrementUnread(db *gorm.DB, userID, chatID string) error {
	defer metrics.ObserveStore("increment_unread", time.Now())
	now := time.Now()
	return db.Clauses(clause.OnConflict{
		Columns: stateConflict,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"unread_count": gorm.Expr("chat_states.unread_count + 1"),
			"updated_at":   now,
		}),
	}).Create(&chat.ChatState{UserID: userID, ChatID: chatID, UnreadCount: 1, UpdatedAt: now}).Error
}

func (r *ChatStateRepositoryImpl) ResetUnread(db *gorm.DB, userID, chatID string) error {
	defer metrics.ObserveStore("reset_unread", time.Now())
	now := time.Now()
	return db.Clauses(clause.OnConflict{
		Columns: stateConflict,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"unread_count": 0,
			"updated_at":   now,
		}),
	}).Create(&chat.ChatState{UserID: userID, ChatID: chatID, UpdatedAt: now}).Error
}

func (r *ChatStateRepositoryImpl) SetMuted(db *gorm.DB, userID, chatID string, muted bool) (*chat.ChatState, error) {
	now := time.Now()
	err := db.Clauses(clause.OnConflict{
		Columns: stateConflict,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"muted":      muted,
			"updated_at": now,
		}),
	}).Create(&chat.ChatState{UserID: userID, ChatID: chatID, Muted: muted, UpdatedAt: now}).Error
	if err != nil {
		return nil, err
	}
	return r.FindState(db, userID, chatID)
}

// ToggleMuted: нет строки - создается замьюченной, есть - muted = NOT muted.
// Чтение в той же транзакции видит именно это переключение.
func (r *ChatStateRepositoryImpl) ToggleMuted(db *gorm.DB, userID, chatID string) (*chat.ChatState, error) {
	var state *chat.ChatState
	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		err := tx.Clauses(clause.OnConflict{
			Columns: stateConflict,
			DoUpdates: clause.Assignments(map[string]interface{}{
				"muted":      gorm.Expr("NOT chat_states.muted"),
				"updated_at": now,
			}),
		}).Create(&chat.ChatState{UserID: userID, ChatID: chatID, Muted: true, UpdatedAt: now}).Error
		if err != nil {
			return err
		}
		state, err = r.FindState(tx, userID, chatID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}
