package chat

import (
	"time"

	"gorm.io/datatypes"
)

type MessageType string

const (
	MessageTypeText        MessageType = "text"
	MessageTypeImage       MessageType = "image"
	MessageTypeAudio       MessageType = "audio"
	MessageTypeVideo       MessageType = "video"
	MessageTypeFile        MessageType = "file"
	MessageTypeVideoCircle MessageType = "video_circle"
)

func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeVideo, MessageTypeFile, MessageTypeVideoCircle:
		return true
	}
	return false
}

// Message - сообщение. ID - ULID, поэтому сортировка по ID совпадает с порядком вставки.
type Message struct {
	ID       string      `gorm:"primaryKey;type:varchar(26)" json:"id"`
	ChatID   string      `gorm:"type:varchar(80);not null;index:idx_messages_chat_id" json:"chat_id"`
	SenderID string      `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content  *string     `gorm:"type:text" json:"content"`
	Type     MessageType `gorm:"type:varchar(20);not null" json:"type"`
	MediaURL *string     `json:"media_url,omitempty"`
	MimeType *string     `json:"mime_type,omitempty"`
	Edited   bool        `gorm:"not null" json:"edited"`
	Deleted  bool        `gorm:"not null" json:"deleted"`

	Reactions datatypes.JSONType[ReactionMap] `json:"reactions"`
	ReadBy    datatypes.JSONSlice[string]     `json:"read_by"`

	ForwardedFromID   *string `json:"forwarded_from_id,omitempty"`
	ForwardedFromName *string `json:"forwarded_from_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// ReactionMap возвращает копию карты реакций (никогда не nil)
func (m *Message) ReactionMap() ReactionMap {
	data := m.Reactions.Data()
	if data == nil {
		return ReactionMap{}
	}
	return data.Clone()
}

// IsReadBy - есть ли userID в read_by
func (m *Message) IsReadBy(userID string) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
