// models/quota.go
package models

import "time"

// Gated resource types
const (
	ResourceDuels = "duels"
)

// QuotaUsage tracks one user's daily consumption of a gated resource.
// Duels never recover mid-day; the counter only moves at the daily boundary.
type QuotaUsage struct {
	ID         string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID     string     `gorm:"type:uuid;not null;uniqueIndex:ux_user_resource,priority:1" json:"user_id"`
	Resource   string     `gorm:"type:varchar(32);not null;uniqueIndex:ux_user_resource,priority:2" json:"resource"`
	Used       int        `gorm:"default:0" json:"used"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ResetAt    time.Time  `gorm:"not null" json:"reset_at"` // start of the day the counter belongs to (UTC)

	Timestamps
}
