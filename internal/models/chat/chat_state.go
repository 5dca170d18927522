package chat

import "time"

// ChatState - состояние чата для конкретного пользователя (мут, непрочитанные).
// Создается лениво через upsert.
type ChatState struct {
	UserID      string    `gorm:"type:uuid;primaryKey" json:"user_id"`
	ChatID      string    `gorm:"type:varchar(80);primaryKey" json:"chat_id"`
	Muted       bool      `gorm:"not null" json:"muted"`
	UnreadCount int       `gorm:"not null" json:"unread_count"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (ChatState) TableName() string {
	return "chat_states"
}
