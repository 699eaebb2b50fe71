// models/reward.go
package models

// RewardConfig is the admin-configurable three-bucket reward table for duel
// outcomes. A single row; defaulted when absent.
type RewardConfig struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	WinnerCoins int    `json:"winner_coins"`
	WinnerScore int    `json:"winner_score"`
	LoserCoins  int    `json:"loser_coins"`
	LoserScore  int    `json:"loser_score"`
	DrawCoins   int    `json:"draw_coins"`
	DrawScore   int    `json:"draw_score"`

	Timestamps
}

// DefaultRewardConfig returns the fallback table used until an admin
// publishes one.
func DefaultRewardConfig() RewardConfig {
	return RewardConfig{
		WinnerCoins: 100,
		WinnerScore: 150,
		LoserCoins:  20,
		LoserScore:  30,
		DrawCoins:   50,
		DrawScore:   75,
	}
}
