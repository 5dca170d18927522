package repositories

import (
	"errors"
	"time"

	"mchat_backend/internal/models"

	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByIDs(db *gorm.DB, ids []string) ([]models.User, error)

	// Presence
	SetOnline(db *gorm.DB, userID string) error
	SetOffline(db *gorm.DB, userID string, at time.Time) (*models.User, error)
	FindOnlineUserIDs(db *gorm.DB) ([]string, error)
	ResetOnlineUsers(db *gorm.DB, at time.Time) (int64, error)
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	return db.Create(user).Error
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByIDs(db *gorm.DB, ids []string) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	err := db.Where("id IN ?", ids).Find(&users).Error
	return users, err
}

// SetOnline сбрасывает last_seen в NULL (NULL - единственный признак онлайна)
func (r *UserRepositoryImpl) SetOnline(db *gorm.DB, userID string) error {
	return db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen", nil).Error
}

// SetOffline проставляет last_seen и возвращает актуального пользователя
func (r *UserRepositoryImpl) SetOffline(db *gorm.DB, userID string, at time.Time) (*models.User, error) {
	result := db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen", at)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}
	return r.FindByID(db, userID)
}

// FindOnlineUserIDs - все, у кого last_seen IS NULL
func (r *UserRepositoryImpl) FindOnlineUserIDs(db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.Model(&models.User{}).
		Where("last_seen IS NULL").
		Pluck("id", &ids).Error
	return ids, err
}

// ResetOnlineUsers помечает всех "онлайн" как офлайн. Вызывается на старте:
// после падения процесса живых соединений нет.
func (r *UserRepositoryImpl) ResetOnlineUsers(db *gorm.DB, at time.Time) (int64, error) {
	result := db.Model(&models.User{}).
		Where("last_seen IS NULL").
		Update("last_seen", at)
	return result.RowsAffected, result.Error
}
