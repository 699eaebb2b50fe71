// services/quota_gate.go
package services

import (
	"log"
	"os"
	"strconv"
	"time"

	"duel-arena-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuotaConfig carries the game-limits configuration for gated resources.
// Duels have no intra-day recovery; the counter only resets at the daily
// boundary.
type QuotaConfig struct {
	BaseDaily      map[string]int
	VIPMultipliers map[int]int // vip tier → allowance multiplier
}

// LoadQuotaConfig reads the limits from the environment with sane defaults.
func LoadQuotaConfig() QuotaConfig {
	cfg := QuotaConfig{
		BaseDaily: map[string]int{
			models.ResourceDuels: envInt("DUEL_DAILY_LIMIT", 3),
		},
		VIPMultipliers: map[int]int{
			1: envInt("VIP_TIER1_MULTIPLIER", 2),
			2: envInt("VIP_TIER2_MULTIPLIER", 3),
		},
	}
	return cfg
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("⚠️ Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}

// QuotaGate tracks per-user daily usage counters for gated resources.
type QuotaGate struct {
	DB     *gorm.DB
	Config QuotaConfig
	Now    func() time.Time
}

func NewQuotaGate(db *gorm.DB, cfg QuotaConfig) *QuotaGate {
	return &QuotaGate{DB: db, Config: cfg, Now: time.Now}
}

// Allowance is baseDaily(resource) * vipMultiplier. Non-VIP (tier 0) and
// unknown tiers multiply by 1.
func (g *QuotaGate) Allowance(resource string, vipTier int) int {
	base := g.Config.BaseDaily[resource]
	mult := 1
	if m, ok := g.Config.VIPMultipliers[vipTier]; ok && m > 1 {
		mult = m
	}
	return base * mult
}

// dayStart truncates to the UTC daily boundary.
func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// needsDailyReset reports whether the usage row belongs to a previous day.
func needsDailyReset(usage models.QuotaUsage, now time.Time) bool {
	return usage.ResetAt.Before(dayStart(now))
}

// ensureUsage loads (or creates) the usage row and applies the lazy daily
// boundary reset.
func (g *QuotaGate) ensureUsage(tx *gorm.DB, userID, resource string) (*models.QuotaUsage, error) {
	now := g.Now()

	var usage models.QuotaUsage
	err := tx.Where("user_id = ? AND resource = ?", userID, resource).First(&usage).Error
	if err == gorm.ErrRecordNotFound {
		usage = models.QuotaUsage{
			ID:       uuid.NewString(),
			UserID:   userID,
			Resource: resource,
			Used:     0,
			ResetAt:  dayStart(now),
		}
		if err := tx.Create(&usage).Error; err != nil {
			return nil, err
		}
		return &usage, nil
	}
	if err != nil {
		return nil, err
	}

	if needsDailyReset(usage, now) {
		usage.Used = 0
		usage.ResetAt = dayStart(now)
		if err := tx.Save(&usage).Error; err != nil {
			return nil, err
		}
	}
	return &usage, nil
}

// HasRemaining reports whether the user can still consume the resource today.
func (g *QuotaGate) HasRemaining(userID, resource string, vipTier int) (bool, error) {
	usage, err := g.ensureUsage(g.DB, userID, resource)
	if err != nil {
		return false, err
	}
	return usage.Used < g.Allowance(resource, vipTier), nil
}

// Consume increments the counter once, or returns false when exhausted.
// Never pushes used beyond the allowance.
func (g *QuotaGate) Consume(userID, resource string, vipTier int) (bool, error) {
	consumed := false
	err := g.DB.Transaction(func(tx *gorm.DB) error {
		usage, err := g.ensureUsage(tx, userID, resource)
		if err != nil {
			return err
		}
		if usage.Used >= g.Allowance(resource, vipTier) {
			return nil
		}
		now := g.Now()
		usage.Used++
		usage.LastUsedAt = &now
		if err := tx.Save(usage).Error; err != nil {
			return err
		}
		consumed = true
		return nil
	})
	return consumed, err
}

// Usage returns the current counter for display.
func (g *QuotaGate) Usage(userID, resource string) (*models.QuotaUsage, error) {
	return g.ensureUsage(g.DB, userID, resource)
}

// Reset zeroes one user's counter (daily boundary crossing).
func (g *QuotaGate) Reset(userID, resource string) error {
	return g.DB.Model(&models.QuotaUsage{}).
		Where("user_id = ? AND resource = ?", userID, resource).
		Updates(map[string]interface{}{"used": 0, "reset_at": dayStart(g.Now())}).Error
}

// ResetAll zeroes every stale counter for a resource. Run by the daily job;
// the lazy check in ensureUsage covers rows missed between runs.
func (g *QuotaGate) ResetAll(resource string) error {
	boundary := dayStart(g.Now())
	return g.DB.Model(&models.QuotaUsage{}).
		Where("resource = ? AND reset_at < ?", resource, boundary).
		Updates(map[string]interface{}{"used": 0, "reset_at": boundary}).Error
}
