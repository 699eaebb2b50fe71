// services/invite_registry.go
package services

import (
	"errors"
	"log"
	"sort"
	"time"

	"duel-arena-service/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InviteTimeout is how long a challenge stays open before it expires.
const InviteTimeout = 24 * time.Hour

// ErrMalformedInvite marks a wire payload with no derivable id or timing.
var ErrMalformedInvite = errors.New("malformed invite payload")

// InviteRegistry normalizes, stores and prunes duel invitations.
type InviteRegistry struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewInviteRegistry(db *gorm.DB) *InviteRegistry {
	return &InviteRegistry{DB: db, Now: time.Now}
}

// NormalizeInvite converts a heterogeneous wire invite into a typed record.
// The id may arrive under id/inviteId/duelId; deadline and requestedAt derive
// each other via InviteTimeout. Payloads lacking both an id and any timing
// are rejected rather than stored partially.
func NormalizeInvite(userID string, raw WireInvite) (models.DuelInvite, error) {
	inviteID := raw.ID
	if inviteID == "" {
		inviteID = raw.InviteID
	}
	if inviteID == "" {
		inviteID = raw.DuelID
	}
	if inviteID == "" {
		return models.DuelInvite{}, ErrMalformedInvite
	}

	if raw.RequestedAt == 0 && raw.Deadline == 0 {
		return models.DuelInvite{}, ErrMalformedInvite
	}

	var requestedAt, deadline time.Time
	switch {
	case raw.RequestedAt != 0 && raw.Deadline != 0:
		requestedAt = time.UnixMilli(raw.RequestedAt).UTC()
		deadline = time.UnixMilli(raw.Deadline).UTC()
	case raw.RequestedAt != 0:
		requestedAt = time.UnixMilli(raw.RequestedAt).UTC()
		deadline = requestedAt.Add(InviteTimeout)
	default:
		deadline = time.UnixMilli(raw.Deadline).UTC()
		requestedAt = deadline.Add(-InviteTimeout)
	}

	return models.DuelInvite{
		ID:             uuid.NewString(),
		UserID:         userID,
		InviteID:       inviteID,
		OpponentName:   raw.OpponentName,
		OpponentAvatar: raw.OpponentAvatar,
		Message:        raw.Message,
		Source:         raw.Source,
		RequestedAt:    requestedAt,
		Deadline:       deadline,
	}, nil
}

// Upsert stores an invite; duplicate invite ids collapse onto one row.
func (r *InviteRegistry) Upsert(invite models.DuelInvite) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "invite_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"opponent_name",
			"opponent_avatar",
			"message",
			"source",
			"requested_at",
			"deadline",
			"updated_at",
		}),
	}).Create(&invite).Error
}

// Hydrate replaces invalid wire invites with nothing (dropped + logged) and
// upserts the rest, then prunes and re-caps the stored list.
func (r *InviteRegistry) Hydrate(userID string, raw []WireInvite) error {
	for _, w := range raw {
		invite, err := NormalizeInvite(userID, w)
		if err != nil {
			log.Printf("⚠️ [INVITES] Dropping malformed invite for user %s: %+v", userID, w)
			continue
		}
		if err := r.Upsert(invite); err != nil {
			return err
		}
	}
	_, err := r.Prune(userID, r.Now())
	return err
}

// pruneInvites splits loaded invites into the kept list (ascending deadline,
// capped at MaxInvites) plus the expired and overflow rows to delete. Pure;
// a second pass over the kept list drops nothing.
func pruneInvites(invites []models.DuelInvite, now time.Time) (kept, expired, overflow []models.DuelInvite) {
	for _, inv := range invites {
		if !inv.Deadline.After(now) {
			expired = append(expired, inv)
			continue
		}
		kept = append(kept, inv)
	}
	sortInvitesByDeadline(kept)
	sortInvitesByDeadline(expired)
	if len(kept) > models.MaxInvites {
		overflow = kept[models.MaxInvites:]
		kept = kept[:models.MaxInvites]
	}
	return kept, expired, overflow
}

// Prune removes invites whose deadline has passed and returns them so the
// caller can notify. Idempotent: a second call with no new data returns an
// empty slice. Afterwards the list is re-capped to the MaxInvites most
// urgent entries.
func (r *InviteRegistry) Prune(userID string, now time.Time) ([]models.DuelInvite, error) {
	var expired []models.DuelInvite

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var invites []models.DuelInvite
		if err := tx.Where("user_id = ?", userID).Find(&invites).Error; err != nil {
			return err
		}

		var overflow []models.DuelInvite
		_, expired, overflow = pruneInvites(invites, now)
		for _, inv := range expired {
			if err := tx.Unscoped().Delete(&inv).Error; err != nil {
				return err
			}
		}
		for _, inv := range overflow {
			if err := tx.Unscoped().Delete(&inv).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expired, nil
}

// List returns the stored invites, ascending deadline, capped.
func (r *InviteRegistry) List(userID string) ([]models.DuelInvite, error) {
	var invites []models.DuelInvite
	err := r.DB.Where("user_id = ?", userID).
		Order("deadline ASC").
		Limit(models.MaxInvites).
		Find(&invites).Error
	return invites, err
}

// Remove deletes a single invite, e.g. after accept/decline.
func (r *InviteRegistry) Remove(userID, inviteID string) error {
	return r.DB.Unscoped().
		Where("user_id = ? AND invite_id = ?", userID, inviteID).
		Delete(&models.DuelInvite{}).Error
}

func sortInvitesByDeadline(invites []models.DuelInvite) {
	sort.Slice(invites, func(i, j int) bool {
		return invites[i].Deadline.Before(invites[j].Deadline)
	})
}
