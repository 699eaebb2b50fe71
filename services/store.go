// services/store.go
package services

import (
	"log"
	"time"

	"duel-arena-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStore is the persistence boundary the session controller and the
// expiry sweep write through.
type SessionStore interface {
	UpsertPending(pending models.PendingDuel) error
	RemovePending(userID, duelID string) error
	AppendHistory(entry models.DuelHistoryEntry) error
	RecordOutcome(userID, outcome string) error
	CreditWallet(userID string, coins, score int) error
	Notify(userID, kind, message string) error
	RewardConfig() models.RewardConfig
}

// GormSessionStore is the production SessionStore on top of Postgres.
type GormSessionStore struct {
	DB *gorm.DB
}

func NewGormSessionStore(db *gorm.DB) *GormSessionStore {
	return &GormSessionStore{DB: db}
}

func (s *GormSessionStore) UpsertPending(pending models.PendingDuel) error {
	if pending.ID == "" {
		pending.ID = uuid.NewString()
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "duel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"opponent_name",
			"opponent_avatar",
			"started_at",
			"deadline",
			"updated_at",
		}),
	}).Create(&pending).Error
}

func (s *GormSessionStore) RemovePending(userID, duelID string) error {
	return s.DB.Unscoped().
		Where("user_id = ? AND duel_id = ?", userID, duelID).
		Delete(&models.PendingDuel{}).Error
}

// AppendHistory inserts the entry and trims the user's history back down to
// the newest MaxHistoryEntries.
func (s *GormSessionStore) AppendHistory(entry models.DuelHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.ResolvedAt.IsZero() {
		entry.ResolvedAt = time.Now().UTC()
	}
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return trimHistory(tx, entry.UserID)
	})
}

func trimHistory(tx *gorm.DB, userID string) error {
	var overflow []models.DuelHistoryEntry
	if err := tx.Where("user_id = ?", userID).
		Order("resolved_at DESC").
		Offset(models.MaxHistoryEntries).
		Find(&overflow).Error; err != nil {
		return err
	}
	for _, e := range overflow {
		if err := tx.Unscoped().Delete(&e).Error; err != nil {
			return err
		}
	}
	return nil
}

// RecordOutcome bumps the matching aggregate counter.
func (s *GormSessionStore) RecordOutcome(userID, outcome string) error {
	column := ""
	switch outcome {
	case models.OutcomeWin:
		column = "wins"
	case models.OutcomeLoss:
		column = "losses"
	case models.OutcomeDraw:
		column = "draws"
	default:
		log.Printf("⚠️ [STATS] Ignoring unknown outcome %q for user %s", outcome, userID)
		return nil
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		stats, err := ensureStats(tx, userID)
		if err != nil {
			return err
		}
		return tx.Model(stats).UpdateColumn(column, gorm.Expr(column+" + 1")).Error
	})
}

func ensureStats(tx *gorm.DB, userID string) (*models.DuelStats, error) {
	var stats models.DuelStats
	err := tx.Where("user_id = ?", userID).First(&stats).Error
	if err == gorm.ErrRecordNotFound {
		stats = models.DuelStats{ID: uuid.NewString(), UserID: userID}
		if err := tx.Create(&stats).Error; err != nil {
			return nil, err
		}
		return &stats, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *GormSessionStore) CreditWallet(userID string, coins, score int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var wallet models.PlayerWallet
		err := tx.Where("user_id = ?", userID).First(&wallet).Error
		if err == gorm.ErrRecordNotFound {
			wallet = models.PlayerWallet{ID: uuid.NewString(), UserID: userID}
			if err := tx.Create(&wallet).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return tx.Model(&wallet).Updates(map[string]interface{}{
			"coins": gorm.Expr("coins + ?", coins),
			"score": gorm.Expr("score + ?", score),
		}).Error
	})
}

func (s *GormSessionStore) Notify(userID, kind, message string) error {
	return s.DB.Create(&models.DuelNotification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Kind:    kind,
		Message: message,
	}).Error
}

// RewardConfig loads the admin-configured table, falling back to defaults.
func (s *GormSessionStore) RewardConfig() models.RewardConfig {
	var cfg models.RewardConfig
	if err := s.DB.First(&cfg).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("⚠️ [REWARDS] Failed to load reward config, using defaults: %v", err)
		}
		return models.DefaultRewardConfig()
	}
	return cfg
}
