// services/reward_engine.go
package services

import (
	"fmt"
	"strings"

	"duel-arena-service/models"
)

// RewardBucket is the coin/score payout for one outcome.
type RewardBucket struct {
	Coins int `json:"coins"`
	Score int `json:"score"`
}

// Wallet is the mutable coin/score target a reward is credited into.
type Wallet struct {
	Coins int64 `json:"coins"`
	Score int64 `json:"score"`
}

// RewardOptions control how ApplyReward behaves.
// Preview computes the buckets without touching the wallet — used when the
// remote has already credited the reward server-side.
// OpponentOutcome overrides the default inverse outcome for the opponent.
type RewardOptions struct {
	Preview         bool
	OpponentOutcome string
}

// RewardResult reports both participants' buckets. The opponent bucket is
// informational only; their own client credits it.
type RewardResult struct {
	Outcome         string       `json:"outcome"`
	OpponentOutcome string       `json:"opponent_outcome"`
	You             RewardBucket `json:"you"`
	Opponent        RewardBucket `json:"opponent"`
	Applied         bool         `json:"applied"`
}

// NormalizeOutcome maps outcome synonyms onto win/loss/draw.
func NormalizeOutcome(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "win", "winner", "won":
		return models.OutcomeWin, true
	case "loss", "lose", "loser", "lost":
		return models.OutcomeLoss, true
	case "draw", "tie", "tied":
		return models.OutcomeDraw, true
	default:
		return "", false
	}
}

func inverseOutcome(outcome string) string {
	switch outcome {
	case models.OutcomeWin:
		return models.OutcomeLoss
	case models.OutcomeLoss:
		return models.OutcomeWin
	default:
		return models.OutcomeDraw
	}
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

func bucketFor(outcome string, cfg models.RewardConfig) RewardBucket {
	switch outcome {
	case models.OutcomeWin:
		return RewardBucket{Coins: clampNonNegative(cfg.WinnerCoins), Score: clampNonNegative(cfg.WinnerScore)}
	case models.OutcomeLoss:
		return RewardBucket{Coins: clampNonNegative(cfg.LoserCoins), Score: clampNonNegative(cfg.LoserScore)}
	default:
		return RewardBucket{Coins: clampNonNegative(cfg.DrawCoins), Score: clampNonNegative(cfg.DrawScore)}
	}
}

// ApplyReward resolves the reward buckets for a duel outcome and, unless
// opts.Preview is set, credits the user's bucket into wallet exactly once.
// Callers own the one-shot guard against repeated application.
func ApplyReward(outcome string, cfg models.RewardConfig, wallet *Wallet, opts RewardOptions) (RewardResult, error) {
	normalized, ok := NormalizeOutcome(outcome)
	if !ok {
		return RewardResult{}, fmt.Errorf("unknown duel outcome %q", outcome)
	}

	opponentOutcome := inverseOutcome(normalized)
	if opts.OpponentOutcome != "" {
		override, ok := NormalizeOutcome(opts.OpponentOutcome)
		if !ok {
			return RewardResult{}, fmt.Errorf("unknown opponent outcome %q", opts.OpponentOutcome)
		}
		opponentOutcome = override
	}

	result := RewardResult{
		Outcome:         normalized,
		OpponentOutcome: opponentOutcome,
		You:             bucketFor(normalized, cfg),
		Opponent:        bucketFor(opponentOutcome, cfg),
	}

	if !opts.Preview && wallet != nil {
		wallet.Coins += int64(result.You.Coins)
		wallet.Score += int64(result.You.Score)
		result.Applied = true
	}

	return result, nil
}
