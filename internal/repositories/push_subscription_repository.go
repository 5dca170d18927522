package repositories

import (
	"mchat_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PushSubscriptionRepository interface {
	Save(db *gorm.DB, sub *models.PushSubscription) error
	FindByUser(db *gorm.DB, userID string) ([]models.PushSubscription, error)
	DeleteByID(db *gorm.DB, id string) error
	DeleteByEndpoint(db *gorm.DB, userID, endpoint string) (int64, error)
}

type PushSubscriptionRepositoryImpl struct{}

func NewPushSubscriptionRepository() PushSubscriptionRepository {
	return &PushSubscriptionRepositoryImpl{}
}

// Save создает подписку; повторная подписка того же endpoint обновляет ключи и владельца
func (r *PushSubscriptionRepositoryImpl) Save(db *gorm.DB, sub *models.PushSubscription) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "user_agent", "updated_at"}),
	}).Create(sub).Error
}

func (r *PushSubscriptionRepositoryImpl) FindByUser(db *gorm.DB, userID string) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	err := db.Where("user_id = ?", userID).Order("created_at").Find(&subs).Error
	return subs, err
}

// DeleteByID удаляет ровно одну подписку. 0 строк - не ошибка.
func (r *PushSubscriptionRepositoryImpl) DeleteByID(db *gorm.DB, id string) error {
	return db.Where("id = ?", id).Delete(&models.PushSubscription{}).Error
}

func (r *PushSubscriptionRepositoryImpl) DeleteByEndpoint(db *gorm.DB, userID, endpoint string) (int64, error) {
	result := db.Where("user_id = ? AND endpoint = ?", userID, endpoint).Delete(&models.PushSubscription{})
	return result.RowsAffected, result.Error
}
