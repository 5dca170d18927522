package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mchat_backend/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone - push-сервис ответил 404/410, подписку надо удалить
var ErrSubscriptionGone = errors.New("push subscription gone")

// Sender отправляет Web Push с VAPID-подписью
type Sender struct {
	publicKey  string
	privateKey string
	subscriber string
	ttl        int
	client     webpush.HTTPClient
}

func NewSender(publicKey, privateKey, subscriber string, ttl int) *Sender {
	return &Sender{
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttl:        ttl,
		client:     http.DefaultClient,
	}
}

// Configured - заданы ли VAPID-ключи
func (s *Sender) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

func (s *Sender) Send(ctx context.Context, sub *models.PushSubscription, payload []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Auth,
			P256dh: sub.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		TTL:             s.ttl,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service responded with status %d", resp.StatusCode)
	}
	return nil
}
