package services

import (
	"context"
	"strings"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/models"
	"mchat_backend/internal/repositories"
	"mchat_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// SubscribeRequest - формат PushSubscription.toJSON() из браузера
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url,max=2048"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys" validate:"required"`
}

type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

type PushSubscriptionService interface {
	Subscribe(ctx context.Context, db *gorm.DB, userID, userAgent string, req *SubscribeRequest) (*models.PushSubscription, error)
	Unsubscribe(ctx context.Context, db *gorm.DB, userID string, req *UnsubscribeRequest) error
	PublicKey() string
}

type pushSubscriptionService struct {
	subs      repositories.PushSubscriptionRepository
	publicKey string
}

func NewPushSubscriptionService(subs repositories.PushSubscriptionRepository, vapidPublicKey string) PushSubscriptionService {
	return &pushSubscriptionService{subs: subs, publicKey: vapidPublicKey}
}

func (s *pushSubscriptionService) Subscribe(ctx context.Context, db *gorm.DB, userID, userAgent string, req *SubscribeRequest) (*models.PushSubscription, error) {
	if !strings.HasPrefix(req.Endpoint, "https://") {
		return nil, apperrors.NewBadRequestError("Push endpoint must be https")
	}

	sub := &models.PushSubscription{
		UserID:    userID,
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		UserAgent: userAgent,
	}
	if err := s.subs.Save(db, sub); err != nil {
		return nil, apperrors.StoreFailure(err)
	}

	logger.CtxInfo(ctx, "Push subscription saved", "subscription_id", sub.ID)
	return sub, nil
}

func (s *pushSubscriptionService) Unsubscribe(ctx context.Context, db *gorm.DB, userID string, req *UnsubscribeRequest) error {
	removed, err := s.subs.DeleteByEndpoint(db, userID, req.Endpoint)
	if err != nil {
		return apperrors.StoreFailure(err)
	}
	logger.CtxInfo(ctx, "Push subscription removed", "removed", removed)
	return nil
}

func (s *pushSubscriptionService) PublicKey() string {
	return s.publicKey
}
