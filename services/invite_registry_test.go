package services

import (
	"errors"
	"testing"
	"time"

	"duel-arena-service/models"
)

func TestNormalizeInviteIDAliases(t *testing.T) {
	requestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		raw  WireInvite
		want string
	}{
		{"id field", WireInvite{ID: "inv-1", RequestedAt: requestedAt.UnixMilli()}, "inv-1"},
		{"inviteId field", WireInvite{InviteID: "inv-2", RequestedAt: requestedAt.UnixMilli()}, "inv-2"},
		{"duelId field", WireInvite{DuelID: "duel-3", RequestedAt: requestedAt.UnixMilli()}, "duel-3"},
		{"id wins over others", WireInvite{ID: "inv-4", DuelID: "duel-4", RequestedAt: requestedAt.UnixMilli()}, "inv-4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			invite, err := NormalizeInvite("user-1", tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if invite.InviteID != tc.want {
				t.Errorf("invite id = %q, want %q", invite.InviteID, tc.want)
			}
		})
	}
}

func TestNormalizeInviteDerivesDeadline(t *testing.T) {
	requestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	invite, err := NormalizeInvite("user-1", WireInvite{ID: "inv-1", RequestedAt: requestedAt.UnixMilli()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invite.Deadline.Equal(requestedAt.Add(InviteTimeout)) {
		t.Errorf("deadline = %v, want requestedAt + 24h", invite.Deadline)
	}
}

func TestNormalizeInviteDerivesRequestedAt(t *testing.T) {
	deadline := time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC)

	invite, err := NormalizeInvite("user-1", WireInvite{InviteID: "inv-1", Deadline: deadline.UnixMilli()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invite.RequestedAt.Equal(deadline.Add(-InviteTimeout)) {
		t.Errorf("requestedAt = %v, want deadline - 24h", invite.RequestedAt)
	}
}

func TestNormalizeInviteKeepsExplicitTimes(t *testing.T) {
	requestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	deadline := requestedAt.Add(6 * time.Hour) // shorter than the default timeout

	invite, err := NormalizeInvite("user-1", WireInvite{
		ID:          "inv-1",
		RequestedAt: requestedAt.UnixMilli(),
		Deadline:    deadline.UnixMilli(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !invite.Deadline.Equal(deadline) {
		t.Errorf("explicit deadline overwritten: %v", invite.Deadline)
	}
}

func TestNormalizeInviteRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  WireInvite
	}{
		{"no id", WireInvite{OpponentName: "Bob", RequestedAt: time.Now().UnixMilli()}},
		{"no timing", WireInvite{ID: "inv-1", OpponentName: "Bob"}},
		{"empty", WireInvite{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NormalizeInvite("user-1", tc.raw); !errors.Is(err, ErrMalformedInvite) {
				t.Errorf("expected ErrMalformedInvite, got %v", err)
			}
		})
	}
}

func TestPruneInvitesExpiresAfterWindow(t *testing.T) {
	requestedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	stale, err := NormalizeInvite("user-1", WireInvite{ID: "stale", RequestedAt: requestedAt.UnixMilli()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fresh, err := NormalizeInvite("user-1", WireInvite{ID: "fresh", RequestedAt: requestedAt.Add(12 * time.Hour).UnixMilli()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One hour past the stale invite's 24h window.
	now := requestedAt.Add(25 * time.Hour)
	kept, expired, overflow := pruneInvites([]models.DuelInvite{fresh, stale}, now)

	if len(expired) != 1 || expired[0].InviteID != "stale" {
		t.Fatalf("expired = %v, want the stale invite", expired)
	}
	if len(kept) != 1 || kept[0].InviteID != "fresh" {
		t.Fatalf("kept = %v, want the fresh invite", kept)
	}
	if len(overflow) != 0 {
		t.Fatalf("overflow = %v, want none", overflow)
	}

	// Idempotent: a second pass over the kept rows drops nothing.
	kept2, expired2, overflow2 := pruneInvites(kept, now)
	if len(expired2) != 0 || len(overflow2) != 0 || len(kept2) != 1 {
		t.Errorf("second prune not idempotent: kept=%d expired=%d overflow=%d",
			len(kept2), len(expired2), len(overflow2))
	}
}

func TestPruneInvitesCapsMostUrgent(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var invites []models.DuelInvite
	for i := 15; i >= 1; i-- { // reversed order on purpose
		invites = append(invites, models.DuelInvite{
			InviteID: string(rune('a' + i - 1)),
			Deadline: now.Add(time.Duration(i) * time.Hour),
		})
	}

	kept, expired, overflow := pruneInvites(invites, now)
	if len(expired) != 0 {
		t.Fatalf("expired = %v, want none", expired)
	}
	if len(kept) != models.MaxInvites {
		t.Fatalf("kept %d invites, want %d", len(kept), models.MaxInvites)
	}
	if len(overflow) != 3 {
		t.Fatalf("overflow %d invites, want 3", len(overflow))
	}
	for i := 1; i < len(kept); i++ {
		if kept[i].Deadline.Before(kept[i-1].Deadline) {
			t.Fatal("kept invites not sorted ascending by deadline")
		}
	}
	// The least urgent entries are the ones dropped.
	if kept[len(kept)-1].Deadline.After(overflow[0].Deadline) {
		t.Error("cap removed a more urgent invite than it kept")
	}
}

func TestSortInvitesByDeadline(t *testing.T) {
	now := time.Now().UTC()
	invites := []models.DuelInvite{
		{InviteID: "c", Deadline: now.Add(3 * time.Hour)},
		{InviteID: "a", Deadline: now.Add(1 * time.Hour)},
		{InviteID: "b", Deadline: now.Add(2 * time.Hour)},
	}
	sortInvitesByDeadline(invites)
	for i, want := range []string{"a", "b", "c"} {
		if invites[i].InviteID != want {
			t.Fatalf("invites[%d] = %q, want %q", i, invites[i].InviteID, want)
		}
	}
}
