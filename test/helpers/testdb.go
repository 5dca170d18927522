package helpers

import (
	"fmt"
	"testing"
	"time"

	"mchat_backend/internal/auth"
	"mchat_backend/internal/models"
	"mchat_backend/internal/models/chat"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestJWTSecret - секрет для токенов в тестах
const TestJWTSecret = "test-secret-for-mchat"

// NewTestDB создает отдельную in-memory базу SQLite на тест и мигрирует схему
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Не удалось открыть тестовую БД")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// одно соединение: in-memory база живет, пока оно открыто
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.PushSubscription{},
		&chat.Message{},
		&chat.ChatState{},
	)
	require.NoError(t, err, "AutoMigrate для тестовой БД")

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// UserOption - модификатор тестового пользователя
type UserOption func(u *models.User)

func WithRole(role models.UserRole) UserOption {
	return func(u *models.User) { u.Role = role }
}

func WithMute(until time.Time, reason string) UserOption {
	return func(u *models.User) {
		u.MuteExpiresAt = &until
		u.MuteReason = &reason
	}
}

func WithBan(reason string) UserOption {
	return func(u *models.User) {
		u.IsBanned = true
		u.BanReason = &reason
	}
}

func WithTelegram(chatID int64) UserOption {
	return func(u *models.User) { u.TelegramChatID = &chatID }
}

func WithLocale(locale string) UserOption {
	return func(u *models.User) { u.Locale = locale }
}

func WithPrivacy(showLastSeen, showTyping bool) UserOption {
	return func(u *models.User) {
		u.ShowLastSeen = showLastSeen
		u.ShowTyping = showTyping
	}
}

// CreateUser создает пользователя (по умолчанию офлайн, роль user)
func CreateUser(t *testing.T, db *gorm.DB, name string, opts ...UserOption) *models.User {
	t.Helper()

	user := models.NewUser(name, models.UserRoleUser)
	for _, opt := range opts {
		opt(user)
	}
	require.NoError(t, db.Create(user).Error, "Создание тестового пользователя %s", name)
	return user
}

// TokenFor выпускает access token для пользователя
func TokenFor(t *testing.T, user *models.User) string {
	t.Helper()

	token, err := auth.GenerateToken(user.ID, string(user.Role), TestJWTSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// PrivateChat - канонический id личного чата двух пользователей
func PrivateChat(t *testing.T, a, b *models.User) string {
	t.Helper()

	id, err := chat.NewPrivateChatID(a.ID, b.ID)
	require.NoError(t, err)
	return id.String()
}
