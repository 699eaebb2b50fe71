package services

import (
	"testing"

	"duel-arena-service/models"
)

func TestNormalizeOutcome(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"win", models.OutcomeWin, true},
		{"winner", models.OutcomeWin, true},
		{"WON", models.OutcomeWin, true},
		{"loss", models.OutcomeLoss, true},
		{"lose", models.OutcomeLoss, true},
		{"loser", models.OutcomeLoss, true},
		{"draw", models.OutcomeDraw, true},
		{"tie", models.OutcomeDraw, true},
		{"  Draw ", models.OutcomeDraw, true},
		{"victory", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizeOutcome(tc.raw)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeOutcome(%q) = (%q, %t), want (%q, %t)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}

func TestApplyRewardBuckets(t *testing.T) {
	cfg := models.DefaultRewardConfig()

	wallet := Wallet{}
	result, err := ApplyReward("winner", cfg, &wallet, RewardOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != models.OutcomeWin || result.OpponentOutcome != models.OutcomeLoss {
		t.Errorf("unexpected outcomes: %+v", result)
	}
	if result.You.Coins != cfg.WinnerCoins || result.You.Score != cfg.WinnerScore {
		t.Errorf("winner bucket = %+v, want %d/%d", result.You, cfg.WinnerCoins, cfg.WinnerScore)
	}
	if result.Opponent.Coins != cfg.LoserCoins {
		t.Errorf("opponent bucket = %+v, want loser coins %d", result.Opponent, cfg.LoserCoins)
	}
	if !result.Applied {
		t.Error("reward should be applied by default")
	}
	if wallet.Coins != int64(cfg.WinnerCoins) || wallet.Score != int64(cfg.WinnerScore) {
		t.Errorf("wallet = %+v after apply", wallet)
	}
}

func TestApplyRewardPreviewDoesNotMutate(t *testing.T) {
	wallet := Wallet{Coins: 10, Score: 20}
	result, err := ApplyReward("draw", models.DefaultRewardConfig(), &wallet, RewardOptions{Preview: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied {
		t.Error("preview must not report applied")
	}
	if wallet.Coins != 10 || wallet.Score != 20 {
		t.Errorf("preview mutated wallet: %+v", wallet)
	}
}

func TestApplyRewardSanitizesNegatives(t *testing.T) {
	cfg := models.RewardConfig{WinnerCoins: -5, WinnerScore: -1, LoserCoins: 3, LoserScore: 4}
	result, err := ApplyReward("win", cfg, nil, RewardOptions{Preview: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.You.Coins != 0 || result.You.Score != 0 {
		t.Errorf("negative config not sanitized: %+v", result.You)
	}
}

func TestApplyRewardOpponentOverride(t *testing.T) {
	// A draw reported only for the opponent, e.g. from a remote summary.
	result, err := ApplyReward("win", models.DefaultRewardConfig(), nil, RewardOptions{
		Preview:         true,
		OpponentOutcome: "tie",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OpponentOutcome != models.OutcomeDraw {
		t.Errorf("opponent outcome = %q, want draw", result.OpponentOutcome)
	}
}

func TestApplyRewardUnknownOutcome(t *testing.T) {
	wallet := Wallet{}
	if _, err := ApplyReward("bogus", models.DefaultRewardConfig(), &wallet, RewardOptions{}); err == nil {
		t.Fatal("expected error for unknown outcome")
	}
	if wallet.Coins != 0 {
		t.Error("wallet mutated on error")
	}
}
