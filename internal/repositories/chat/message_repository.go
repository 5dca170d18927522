package chat

import (
	"errors"
	"time"

	"mchat_backend/internal/metrics"
	"mchat_backend/internal/models/chat"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotMessageOwner = errors.New("message belongs to another user")
)

// MessageRepository - долговременное хранилище сообщений.
// Все методы принимают db: пул или транзакцию вызывающего.
type MessageRepository interface {
	CreateMessage(db *gorm.DB, message *chat.Message) error
	FindMessageByID(db *gorm.DB, id string) (*chat.Message, error)
	FindMessagesByChat(db *gorm.DB, chatID, beforeID string, limit int) ([]chat.Message, error)
	CountMessagesInChat(db *gorm.DB, chatID string) (int64, error)

	UpdateContent(db *gorm.DB, id, editorID, content string) (*chat.Message, error)
	SoftDeleteMessage(db *gorm.DB, id, actorID string) (*chat.Message, error)
	HardDeleteMessage(db *gorm.DB, id string) (*chat.Message, error)
	BulkDeleteMessages(db *gorm.DB, chatID string, ids []string, ownerID string, hard bool) ([]string, error)

	ToggleReaction(db *gorm.DB, id, userID, emoji string) (*chat.Message, error)
	AppendReader(db *gorm.DB, id, userID string) (bool, error)
	MarkChatRead(db *gorm.DB, chatID, readerID string) ([]string, error)

	FindContactIDs(db *gorm.DB, userID string) ([]string, error)
}

type MessageRepositoryImpl struct{}

func NewMessageRepository() MessageRepository {
	return &MessageRepositoryImpl{}
}

func (r *MessageRepositoryImpl) CreateMessage(db *gorm.DB, message *chat.Message) error {
	defer metrics.ObserveStore("create_message", time.Now())
	if message.Reactions.Data() == nil {
		message.Reactions = datatypes.NewJSONType(chat.ReactionMap{})
	}
	if message.ReadBy == nil {
		message.ReadBy = datatypes.NewJSONSlice([]string{})
	}
	return db.Create(message).Error
}

func (r *MessageRepositoryImpl) FindMessageByID(db *gorm.DB, id string) (*chat.Message, error) {
	var message chat.Message
	if err := db.First(&message, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// FindMessagesByChat - страница истории до beforeID в хронологическом порядке
func (r *MessageRepositoryImpl) FindMessagesByChat(db *gorm.DB, chatID, beforeID string, limit int) ([]chat.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := db.Where("chat_id = ?", chatID)
	if beforeID != "" {
		query = query.Where("id < ?", beforeID)
	}

	var messages []chat.Message
	if err := query.Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepositoryImpl) CountMessagesInChat(db *gorm.DB, chatID string) (int64, error) {
	var count int64
	err := db.Model(&chat.Message{}).Where("chat_id = ?", chatID).Count(&count).Error
	return count, err
}

// lockMessage читает сообщение под блокировкой строки (в SQLite блокировка игнорируется драйвером)
func lockMessage(tx *gorm.DB, id string) (*chat.Message, error) {
	var message chat.Message
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&message, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// UpdateContent редактирует текст. Только автор, удаленные не редактируются.
func (r *MessageRepositoryImpl) UpdateContent(db *gorm.DB, id, editorID, content string) (*chat.Message, error) {
	defer metrics.ObserveStore("update_content", time.Now())
	var updated *chat.Message
	err := db.Transaction(func(tx *gorm.DB) error {
		message, err := lockMessage(tx, id)
		if err != nil {
			return err
		}
		if message.Deleted {
			return ErrMessageNotFound
		}
		if message.SenderID != editorID {
			return ErrNotMessageOwner
		}

		if err := tx.Model(message).Updates(map[string]interface{}{
			"content": content,
			"edited":  true,
		}).Error; err != nil {
			return err
		}
		message.Content = &content
		message.Edited = true
		updated = message
		return nil
	})
	return updated, err
}

// SoftDeleteMessage - удаление автором: строка остается, контент вычищается
func (r *MessageRepositoryImpl) SoftDeleteMessage(db *gorm.DB, id, actorID string) (*chat.Message, error) {
	defer metrics.ObserveStore("soft_delete", time.Now())
	var deleted *chat.Message
	err := db.Transaction(func(tx *gorm.DB) error {
		message, err := lockMessage(tx, id)
		if err != nil {
			return err
		}
		if message.SenderID != actorID {
			return ErrNotMessageOwner
		}
		if !message.Deleted {
			if err := tx.Model(message).Updates(softDeleteColumns()).Error; err != nil {
				return err
			}
			clearMessage(message)
		}
		deleted = message
		return nil
	})
	return deleted, err
}

// HardDeleteMessage физически удаляет строку (модерация)
func (r *MessageRepositoryImpl) HardDeleteMessage(db *gorm.DB, id string) (*chat.Message, error) {
	defer metrics.ObserveStore("hard_delete", time.Now())
	var deleted *chat.Message
	err := db.Transaction(func(tx *gorm.DB) error {
		message, err := lockMessage(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&chat.Message{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = message
		return nil
	})
	return deleted, err
}

// BulkDeleteMessages удаляет выбранные сообщения чата одной транзакцией.
// ownerID != "" ограничивает удаление сообщениями этого автора.
// Возвращает id реально удаленных сообщений.
func (r *MessageRepositoryImpl) BulkDeleteMessages(db *gorm.DB, chatID string, ids []string, ownerID string, hard bool) ([]string, error) {
	defer metrics.ObserveStore("bulk_delete", time.Now())
	if len(ids) == 0 {
		return nil, nil
	}

	var affected []string
	err := db.Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&chat.Message{}).Where("chat_id = ? AND id IN ?", chatID, ids)
		if ownerID != "" {
			query = query.Where("sender_id = ?", ownerID)
		}
		if !hard {
			query = query.Where("deleted = ?", false)
		}
		if err := query.Order("id").Pluck("id", &affected).Error; err != nil {
			return err
		}
		if len(affected) == 0 {
			return nil
		}

		if hard {
			return tx.Where("id IN ?", affected).Delete(&chat.Message{}).Error
		}
		return tx.Model(&chat.Message{}).Where("id IN ?", affected).Updates(softDeleteColumns()).Error
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

func softDeleteColumns() map[string]interface{} {
	return map[string]interface{}{
		"deleted":   true,
		"content":   nil,
		"media_url": nil,
		"mime_type": nil,
	}
}

func clearMessage(message *chat.Message) {
	message.Deleted = true
	message.Content = nil
	message.MediaURL = nil
	message.MimeType = nil
}

// ToggleReaction - атомарный read-modify-write карты реакций.
// Строка блокируется на время транзакции, параллельные реакции не теряются.
func (r *MessageRepositoryImpl) ToggleReaction(db *gorm.DB, id, userID, emoji string) (*chat.Message, error) {
	defer metrics.ObserveStore("toggle_reaction", time.Now())
	var updated *chat.Message
	err := db.Transaction(func(tx *gorm.DB) error {
		message, err := lockMessage(tx, id)
		if err != nil {
			return err
		}
		if message.Deleted {
			return ErrMessageNotFound
		}

		reactions := message.ReactionMap()
		reactions.Toggle(emoji, userID)
		message.Reactions = datatypes.NewJSONType(reactions)

		if err := tx.Model(message).Update("reactions", message.Reactions).Error; err != nil {
			return err
		}
		updated = message
		return nil
	})
	return updated, err
}

// AppendReader добавляет userID в read_by. Повтор и отсутствие строки - не ошибка.
func (r *MessageRepositoryImpl) AppendReader(db *gorm.DB, id, userID string) (bool, error) {
	appended := false
	err := db.Transaction(func(tx *gorm.DB) error {
		message, err := lockMessage(tx, id)
		if errors.Is(err, ErrMessageNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if message.IsReadBy(userID) {
			return nil
		}
		readers := append(message.ReadBy, userID)
		if err := tx.Model(message).Update("read_by", readers).Error; err != nil {
			return err
		}
		appended = true
		return nil
	})
	return appended, err
}

// MarkChatRead отмечает прочитанными все чужие сообщения чата.
// Возвращает id сообщений, которые стали прочитанными сейчас.
func (r *MessageRepositoryImpl) MarkChatRead(db *gorm.DB, chatID, readerID string) ([]string, error) {
	defer metrics.ObserveStore("mark_chat_read", time.Now())
	var marked []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var messages []chat.Message
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("chat_id = ? AND sender_id <> ? AND deleted = ?", chatID, readerID, false).
			Order("id").
			Find(&messages).Error
		if err != nil {
			return err
		}

		for i := range messages {
			message := &messages[i]
			if message.IsReadBy(readerID) {
				continue
			}
			readers := append(message.ReadBy, readerID)
			if err := tx.Model(message).Update("read_by", readers).Error; err != nil {
				return err
			}
			marked = append(marked, message.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return marked, nil
}

// FindContactIDs - собеседники пользователя по всем личным чатам,
// где есть сообщения или состояние чата
func (r *MessageRepositoryImpl) FindContactIDs(db *gorm.DB, userID string) ([]string, error) {
	prefix, suffix := chat.ContactPatterns(userID)

	var fromMessages, fromStates []string
	err := db.Model(&chat.Message{}).
		Distinct().
		Where("chat_id LIKE ? OR chat_id LIKE ?", prefix, suffix).
		Pluck("chat_id", &fromMessages).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&chat.ChatState{}).
		Distinct().
		Where("user_id = ? AND (chat_id LIKE ? OR chat_id LIKE ?)", userID, prefix, suffix).
		Pluck("chat_id", &fromStates).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var contacts []string
	for _, raw := range append(fromMessages, fromStates...) {
		id, err := chat.ParseChatID(raw)
		if err != nil {
			continue
		}
		partner, ok := id.PartnerOf(userID)
		if !ok {
			continue
		}
		if _, dup := seen[partner]; dup {
			continue
		}
		seen[partner] = struct{}{}
		contacts = append(contacts, partner)
	}
	return contacts, nil
}
