package services

import (
	"testing"
	"time"
)

func TestPendingFromWire(t *testing.T) {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	deadline := started.Add(DuelTimeout)

	t.Run("id aliases", func(t *testing.T) {
		byID, ok := pendingFromWire("user-1", WirePendingDuel{ID: "d1", Deadline: deadline.UnixMilli()})
		if !ok || byID.DuelID != "d1" {
			t.Errorf("id field: got %+v ok=%t", byID, ok)
		}
		byDuelID, ok := pendingFromWire("user-1", WirePendingDuel{DuelID: "d2", Deadline: deadline.UnixMilli()})
		if !ok || byDuelID.DuelID != "d2" {
			t.Errorf("duelId field: got %+v ok=%t", byDuelID, ok)
		}
	})

	t.Run("derives start from deadline", func(t *testing.T) {
		pending, ok := pendingFromWire("user-1", WirePendingDuel{ID: "d1", Deadline: deadline.UnixMilli()})
		if !ok {
			t.Fatal("record rejected")
		}
		if !pending.StartedAt.Equal(started) {
			t.Errorf("startedAt = %v, want deadline - 24h", pending.StartedAt)
		}
	})

	t.Run("derives deadline from start", func(t *testing.T) {
		pending, ok := pendingFromWire("user-1", WirePendingDuel{ID: "d1", StartedAt: started.UnixMilli()})
		if !ok {
			t.Fatal("record rejected")
		}
		if !pending.Deadline.Equal(deadline) {
			t.Errorf("deadline = %v, want startedAt + 24h", pending.Deadline)
		}
	})

	t.Run("keeps explicit times", func(t *testing.T) {
		short := started.Add(6 * time.Hour)
		pending, ok := pendingFromWire("user-1", WirePendingDuel{
			ID:        "d1",
			StartedAt: started.UnixMilli(),
			Deadline:  short.UnixMilli(),
		})
		if !ok {
			t.Fatal("record rejected")
		}
		if !pending.Deadline.Equal(short) {
			t.Errorf("explicit deadline overwritten: %v", pending.Deadline)
		}
	})

	t.Run("rejects malformed", func(t *testing.T) {
		if _, ok := pendingFromWire("user-1", WirePendingDuel{OpponentName: "Bob", Deadline: deadline.UnixMilli()}); ok {
			t.Error("accepted a record without an id")
		}
		if _, ok := pendingFromWire("user-1", WirePendingDuel{ID: "d1"}); ok {
			t.Error("accepted a record without any timing")
		}
	})
}
