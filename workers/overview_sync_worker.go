// workers/overview_sync_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"duel-arena-service/models"
	"duel-arena-service/services"

	"gorm.io/gorm"
)

// OverviewSyncWorker periodically re-hydrates the local duel snapshot from
// the remote duel service for every user who still has unresolved duels.
// There is no server-push channel; polling keeps the persisted pending set
// honest between client visits so the expiry sweep works off fresh data.
type OverviewSyncWorker struct {
	DB      *gorm.DB
	Remote  services.RemoteDuelService
	Invites *services.InviteRegistry
}

func NewOverviewSyncWorker(db *gorm.DB, remote services.RemoteDuelService, invites *services.InviteRegistry) *OverviewSyncWorker {
	return &OverviewSyncWorker{DB: db, Remote: remote, Invites: invites}
}

// PollOverviews runs until the context is cancelled.
func (w *OverviewSyncWorker) PollOverviews(ctx context.Context, pollInterval time.Duration) {
	log.Println("Starting duel overview polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Duel overview polling stopped.")
			return
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

func (w *OverviewSyncWorker) syncOnce(ctx context.Context) {
	// Only users with something unresolved are worth a remote round-trip.
	var userIDs []string
	if err := w.DB.Model(&models.PendingDuel{}).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		log.Printf("❌ Error listing users with pending duels: %v", err)
		return
	}
	if len(userIDs) == 0 {
		return
	}

	synced := 0
	for _, userID := range userIDs {
		var stats models.DuelStats
		if err := w.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil {
			// No identity snapshot yet; the next overview call will create one.
			continue
		}
		identity := services.Identity{UserID: userID, UserName: stats.UserName, Avatar: stats.Avatar}

		ov, err := w.Remote.Overview(ctx, identity)
		if err != nil {
			log.Printf("❌ Error polling overview for user %s: %v", userID, err)
			continue
		}
		if err := services.ApplyOverview(w.DB, w.Invites, identity, ov); err != nil {
			log.Printf("❌ Error applying overview for user %s: %v", userID, err)
			continue
		}
		synced++
	}
	if synced > 0 {
		log.Printf("📥 Re-hydrated duel overview for %d user(s).", synced)
	}
}
