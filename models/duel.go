// models/duel.go
package models

import "time"

// Outcome values recorded on a resolved duel
const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// Resolution reasons
const (
	ReasonScore   = "score"   // resolved through the normal round sequence
	ReasonTimeout = "timeout" // forced loss by the expiry sweep
)

// MaxInvites caps the stored invite list per user (most urgent kept).
const MaxInvites = 12

// MaxHistoryEntries caps the stored duel history per user (newest kept).
const MaxHistoryEntries = 20

// DuelInvite is a time-limited challenge from another user, stored until
// accepted, declined or expired.
type DuelInvite struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex:ux_user_invite,priority:1" json:"user_id"`
	InviteID       string    `gorm:"not null;uniqueIndex:ux_user_invite,priority:2" json:"invite_id"`
	OpponentName   string    `gorm:"not null" json:"opponent_name"`
	OpponentAvatar string    `json:"opponent_avatar,omitempty"`
	Message        string    `json:"message,omitempty"`
	Source         string    `gorm:"type:varchar(32)" json:"source,omitempty"`
	RequestedAt    time.Time `gorm:"not null" json:"requested_at"`
	Deadline       time.Time `gorm:"not null;index" json:"deadline"`

	Timestamps
}

// PendingDuel is an accepted/matched duel not yet resolved to an outcome.
// The expiry sweep converts overdue rows into timeout losses.
type PendingDuel struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID         string    `gorm:"type:uuid;not null;uniqueIndex:ux_user_duel,priority:1" json:"user_id"`
	DuelID         string    `gorm:"not null;uniqueIndex:ux_user_duel,priority:2" json:"duel_id"`
	OpponentName   string    `gorm:"not null" json:"opponent_name"`
	OpponentAvatar string    `json:"opponent_avatar,omitempty"`
	StartedAt      time.Time `gorm:"not null" json:"started_at"`
	Deadline       time.Time `gorm:"not null;index" json:"deadline"`

	Timestamps
}

// DuelHistoryEntry records one resolved duel. Append-only, capped at
// MaxHistoryEntries per user, newest first.
type DuelHistoryEntry struct {
	ID            string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string    `gorm:"type:uuid;not null;index" json:"user_id"`
	DuelID        string    `gorm:"not null" json:"duel_id"`
	OpponentName  string    `json:"opponent_name"`
	Outcome       string    `gorm:"type:varchar(8);not null;check:outcome IN ('win','loss','draw')" json:"outcome"`
	Reason        string    `gorm:"type:varchar(16);not null;check:reason IN ('score','timeout')" json:"reason"`
	YourScore     int       `json:"your_score"`
	OpponentScore int       `json:"opponent_score"`
	StartedAt     time.Time `json:"started_at"`
	Deadline      time.Time `json:"deadline"`
	ResolvedAt    time.Time `gorm:"not null;index" json:"resolved_at"`

	Timestamps
}

// DuelStats holds the incremental win/loss/draw aggregates plus the identity
// fields the remote overview call needs. Must stay consistent with what can
// be reconstructed from DuelHistoryEntry plus remote-reported totals.
type DuelStats struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	UserName string `json:"user_name"`
	Avatar   string `json:"avatar,omitempty"`
	Wins     int64  `gorm:"default:0" json:"wins"`
	Losses   int64  `gorm:"default:0" json:"losses"`
	Draws    int64  `gorm:"default:0" json:"draws"`

	Timestamps
}

// PlayerWallet mirrors the coin/score balance this service credits duel
// rewards into. The authoritative wallet lives in the wallet service; this
// row only accumulates duel payouts applied locally.
type PlayerWallet struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Coins  int64  `gorm:"default:0" json:"coins"`
	Score  int64  `gorm:"default:0" json:"score"`

	Timestamps
}

// DuelNotification is a user-facing message produced by the sweep and by
// session cancellations. Read and cleared by the client.
type DuelNotification struct {
	ID      string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID  string `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind    string `gorm:"type:varchar(32);not null" json:"kind"`
	Message string `gorm:"not null" json:"message"`
	Seen    bool   `gorm:"default:false" json:"seen"`

	Timestamps
}
