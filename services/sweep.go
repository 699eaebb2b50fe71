// services/sweep.go
package services

import (
	"fmt"
	"log"
	"time"

	"duel-arena-service/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SweepInterval is how often pending duels are checked for expiry.
const SweepInterval = 60 * time.Second

// SweepService converts timed-out pending duels into recorded losses and
// hosts the daily quota reset.
type SweepService struct {
	DB       *gorm.DB
	Sessions *SessionManager
	Store    *GormSessionStore
	Quota    *QuotaGate
	Now      func() time.Time
}

func NewSweepService(db *gorm.DB, sessions *SessionManager, store *GormSessionStore, quota *QuotaGate) *SweepService {
	return &SweepService{DB: db, Sessions: sessions, Store: store, Quota: quota, Now: time.Now}
}

// Start schedules the expiry sweep and the daily quota reset.
func (s *SweepService) Start() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(SweepInterval),
		gocron.NewTask(func() {
			if err := s.SweepExpired(); err != nil {
				log.Printf("[Sweep] Failed: %v", err)
			}
		}),
	)

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 0, 0))),
		gocron.NewTask(func() {
			if err := s.Quota.ResetAll(models.ResourceDuels); err != nil {
				log.Printf("[Sweep] Daily quota reset failed: %v", err)
			} else {
				log.Println("✅ Daily duel quota reset")
			}
		}),
	)
}

// SweepExpired records a timeout loss for every pending duel past its
// deadline. The duel of any currently open session is skipped: an open
// session is actively progressing and finalizes through the normal
// round-completion path.
func (s *SweepService) SweepExpired() error {
	now := s.Now().UTC()
	active := s.Sessions.ActiveDuelIDs()

	var expired []models.PendingDuel
	if err := s.DB.Where("deadline <= ?", now).Find(&expired).Error; err != nil {
		return err
	}

	perUser := make(map[string]int)
	for _, p := range expired {
		if active[p.DuelID] {
			continue
		}

		err := s.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Unscoped().
				Where("user_id = ? AND duel_id = ?", p.UserID, p.DuelID).
				Delete(&models.PendingDuel{}).Error; err != nil {
				return err
			}

			stats, err := ensureStats(tx, p.UserID)
			if err != nil {
				return err
			}
			if err := tx.Model(stats).UpdateColumn("losses", gorm.Expr("losses + 1")).Error; err != nil {
				return err
			}

			if err := tx.Create(&models.DuelHistoryEntry{
				ID:           uuid.NewString(),
				UserID:       p.UserID,
				DuelID:       p.DuelID,
				OpponentName: p.OpponentName,
				Outcome:      models.OutcomeLoss,
				Reason:       models.ReasonTimeout,
				StartedAt:    p.StartedAt,
				Deadline:     p.Deadline,
				ResolvedAt:   now,
			}).Error; err != nil {
				return err
			}
			return trimHistory(tx, p.UserID)
		})
		if err != nil {
			log.Printf("[Sweep] Failed to expire duel %s for user %s: %v", p.DuelID, p.UserID, err)
			continue
		}
		perUser[p.UserID]++
		log.Printf("⏰ Expired duel %s for user %s (vs %s)", p.DuelID, p.UserID, p.OpponentName)
	}

	// One aggregated notification per user.
	for userID, count := range perUser {
		if err := s.Store.Notify(userID, "duels_expired", expiryMessage(count)); err != nil {
			log.Printf("[Sweep] Failed to notify user %s: %v", userID, err)
		}
	}
	return nil
}

func expiryMessage(count int) string {
	if count == 1 {
		return "A duel expired and was recorded as a loss."
	}
	return fmt.Sprintf("%d duels expired and were recorded as losses.", count)
}
