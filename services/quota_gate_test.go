package services

import (
	"testing"
	"time"

	"duel-arena-service/models"
)

func testQuotaGate() *QuotaGate {
	return &QuotaGate{
		Config: QuotaConfig{
			BaseDaily:      map[string]int{models.ResourceDuels: 3},
			VIPMultipliers: map[int]int{1: 2, 2: 3},
		},
	}
}

func TestAllowanceVIPMultiplier(t *testing.T) {
	g := testQuotaGate()

	cases := []struct {
		tier int
		want int
	}{
		{0, 3},  // non-VIP
		{1, 6},  // tier 1 doubles
		{2, 9},  // tier 2 triples
		{99, 3}, // unknown tier falls back to 1x
	}
	for _, tc := range cases {
		if got := g.Allowance(models.ResourceDuels, tc.tier); got != tc.want {
			t.Errorf("Allowance(duels, %d) = %d, want %d", tc.tier, got, tc.want)
		}
	}
}

func TestAllowanceUnknownResource(t *testing.T) {
	g := testQuotaGate()
	if got := g.Allowance("lootboxes", 0); got != 0 {
		t.Errorf("unknown resource allowance = %d, want 0", got)
	}
}

func TestNeedsDailyReset(t *testing.T) {
	now := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)

	sameDay := models.QuotaUsage{ResetAt: dayStart(now)}
	if needsDailyReset(sameDay, now) {
		t.Error("same-day counter must not reset")
	}

	yesterday := models.QuotaUsage{ResetAt: dayStart(now.Add(-24 * time.Hour))}
	if !needsDailyReset(yesterday, now) {
		t.Error("previous-day counter must reset")
	}

	// Just before midnight vs just after
	lateNight := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	usage := models.QuotaUsage{ResetAt: dayStart(lateNight)}
	if needsDailyReset(usage, lateNight) {
		t.Error("counter must hold until the boundary")
	}
	if !needsDailyReset(usage, lateNight.Add(2*time.Minute)) {
		t.Error("counter must reset right after the boundary")
	}
}

func TestExpiryMessagePhrasing(t *testing.T) {
	if got := expiryMessage(1); got != "A duel expired and was recorded as a loss." {
		t.Errorf("singular phrasing = %q", got)
	}
	if got := expiryMessage(3); got != "3 duels expired and were recorded as losses." {
		t.Errorf("plural phrasing = %q", got)
	}
}
