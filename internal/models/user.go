package models

import "time"

// LastSeenRecent - значение last_seen для тех, кто скрыл точное время
const LastSeenRecent = "recent"

type User struct {
	BaseModel
	Name         string   `gorm:"not null" json:"name"`
	Role         UserRole `gorm:"type:varchar(20);not null" json:"role"`
	AvatarURL    *string  `json:"avatar_url,omitempty"`
	ProfileColor string   `gorm:"type:varchar(16)" json:"profile_color"`
	MessageColor string   `gorm:"type:varchar(16)" json:"message_color"`
	Locale       string   `gorm:"type:varchar(8)" json:"locale"`

	// Бан и мут аккаунта
	IsBanned      bool       `gorm:"not null" json:"is_banned"`
	BanReason     *string    `json:"ban_reason,omitempty"`
	BanExpiresAt  *time.Time `json:"ban_expires_at,omitempty"`
	MuteReason    *string    `json:"mute_reason,omitempty"`
	MuteExpiresAt *time.Time `json:"mute_expires_at,omitempty"`

	// Приватность. Без default-тегов: gorm не пишет false при default:true
	ShowPhone       bool `gorm:"not null" json:"show_phone"`
	ShowTelegram    bool `gorm:"not null" json:"show_telegram"`
	ShowDOB         bool `gorm:"column:show_dob;not null" json:"show_dob"`
	ShowDescription bool `gorm:"not null" json:"show_description"`
	ShowLastSeen    bool `gorm:"not null" json:"show_last_seen"`
	ShowTyping      bool `gorm:"not null" json:"show_typing"`

	// NULL - пользователь онлайн
	LastSeen *time.Time `gorm:"index" json:"last_seen"`

	// Привязанный Telegram для бот-уведомлений
	TelegramChatID *int64 `json:"-"`
}

// NewUser возвращает пользователя с настройками приватности по умолчанию
func NewUser(name string, role UserRole) *User {
	now := time.Now()
	return &User{
		Name:            name,
		Role:            role,
		ShowPhone:       true,
		ShowTelegram:    true,
		ShowDOB:         true,
		ShowDescription: true,
		ShowLastSeen:    true,
		ShowTyping:      true,
		LastSeen:        &now,
	}
}

// MutedAt сообщает, действует ли мут аккаунта в момент now
func (u *User) MutedAt(now time.Time) bool {
	return u.MuteExpiresAt != nil && u.MuteExpiresAt.After(now)
}

// BannedAt сообщает, действует ли бан в момент now. Бан без срока - бессрочный.
func (u *User) BannedAt(now time.Time) bool {
	if !u.IsBanned {
		return false
	}
	return u.BanExpiresAt == nil || u.BanExpiresAt.After(now)
}

func (u *User) IsOnline() bool {
	return u.LastSeen == nil
}

// VisibleLastSeen - last_seen с учетом настройки приватности
func (u *User) VisibleLastSeen() any {
	if u.LastSeen == nil {
		return nil
	}
	if !u.ShowLastSeen {
		return LastSeenRecent
	}
	return u.LastSeen.UTC().Format(time.RFC3339)
}

// ProfileProjection - то, что видит собеседник (new_chat_created, user_online)
type ProfileProjection struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AvatarURL    *string `json:"avatar_url,omitempty"`
	ProfileColor string  `json:"profile_color"`
	MessageColor string  `json:"message_color"`
	Online       bool    `json:"online"`
	LastSeen     any     `json:"last_seen,omitempty"`
}

func (u *User) Projection() ProfileProjection {
	return ProfileProjection{
		ID:           u.ID,
		Name:         u.Name,
		AvatarURL:    u.AvatarURL,
		ProfileColor: u.ProfileColor,
		MessageColor: u.MessageColor,
		Online:       u.IsOnline(),
		LastSeen:     u.VisibleLastSeen(),
	}
}
