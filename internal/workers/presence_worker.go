package workers

import (
	"context"
	"time"

	"mchat_backend/internal/logger"
	"mchat_backend/internal/repositories"

	"gorm.io/gorm"
)

// OfflineReconciler - живой слой, который умеет перевести пользователя в офлайн
type OfflineReconciler interface {
	ReconcileOffline(ctx context.Context, userID string) bool
}

// PresenceWorker сверяет last_seen IS NULL в базе с реестром соединений.
// Процесс мог упасть между регистрацией соединения и записью в базу.
type PresenceWorker struct {
	db         *gorm.DB
	users      repositories.UserRepository
	reconciler OfflineReconciler
	interval   time.Duration
}

func NewPresenceWorker(db *gorm.DB, users repositories.UserRepository, reconciler OfflineReconciler, interval time.Duration) *PresenceWorker {
	return &PresenceWorker{db: db, users: users, reconciler: reconciler, interval: interval}
}

// Start запускает фоновую сверку
func (w *PresenceWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		logger.WorkerLog("presence", "disabled", nil)
		return
	}
	go w.loop(ctx)
}

func (w *PresenceWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.WorkerLog("presence", "stopped", nil)
			return
		case <-ticker.C:
			if _, err := w.Reconcile(ctx); err != nil {
				logger.WorkerLog("presence", "reconcile", err)
			}
		}
	}
}

// Reconcile - один проход; возвращает число переведенных в офлайн
func (w *PresenceWorker) Reconcile(ctx context.Context) (int, error) {
	ids, err := w.users.FindOnlineUserIDs(w.db.WithContext(ctx))
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, id := range ids {
		if w.reconciler.ReconcileOffline(ctx, id) {
			fixed++
		}
	}
	if fixed > 0 {
		logger.Info("Stale online users reconciled", "count", fixed)
	}
	return fixed, nil
}
