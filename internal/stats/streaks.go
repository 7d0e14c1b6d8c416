package stats

import (
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// StreakStats summarizes consecutive results.
type StreakStats struct {
	CurrentStreak     int // positive for wins, negative for losses
	LongestWinStreak  int
	LongestLossStreak int
}

// CalculateStreaks walks matches ordered oldest to newest. Ties and unknown
// results break a streak.
func CalculateStreaks(matches []*models.Match) *StreakStats {
	stats := &StreakStats{}
	wins, losses := 0, 0

	for _, match := range matches {
		switch match.Result {
		case models.ResultWin:
			wins++
			losses = 0
			stats.LongestWinStreak = max(stats.LongestWinStreak, wins)
		case models.ResultLoss:
			losses++
			wins = 0
			stats.LongestLossStreak = max(stats.LongestLossStreak, losses)
		default:
			wins, losses = 0, 0
		}
	}

	switch {
	case wins > 0:
		stats.CurrentStreak = wins
	case losses > 0:
		stats.CurrentStreak = -losses
	}
	return stats
}

// FormatCurrentStreak returns a human-readable string for the current streak.
func FormatCurrentStreak(streak int) string {
	switch {
	case streak == 0:
		return "No active streak"
	case streak == 1:
		return "1 win streak"
	case streak > 1:
		return fmt.Sprintf("%d win streak", streak)
	case streak == -1:
		return "1 loss streak"
	default:
		return fmt.Sprintf("%d loss streak", -streak)
	}
}
