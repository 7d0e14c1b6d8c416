package stats

import (
	"testing"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

func results(rs ...string) []*models.Match {
	out := make([]*models.Match, len(rs))
	for i, r := range rs {
		out[i] = &models.Match{Result: r}
	}
	return out
}

func TestCalculateStreaks(t *testing.T) {
	tests := []struct {
		name                  string
		matches               []*models.Match
		wantCurrentStreak     int
		wantLongestWinStreak  int
		wantLongestLossStreak int
	}{
		{name: "Empty matches", matches: nil},
		{name: "Single win", matches: results("win"), wantCurrentStreak: 1, wantLongestWinStreak: 1},
		{name: "Single loss", matches: results("loss"), wantCurrentStreak: -1, wantLongestLossStreak: 1},
		{
			name:                  "Win streak broken by loss",
			matches:               results("win", "win", "win", "loss", "loss"),
			wantCurrentStreak:     -2,
			wantLongestWinStreak:  3,
			wantLongestLossStreak: 2,
		},
		{
			name:                  "Tie breaks streak",
			matches:               results("win", "win", "tie"),
			wantCurrentStreak:     0,
			wantLongestWinStreak:  2,
			wantLongestLossStreak: 0,
		},
		{
			name:                  "Unknown breaks streak",
			matches:               results("loss", "unknown", "win"),
			wantCurrentStreak:     1,
			wantLongestWinStreak:  1,
			wantLongestLossStreak: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStreaks(tt.matches)
			if got.CurrentStreak != tt.wantCurrentStreak {
				t.Errorf("CurrentStreak = %d, want %d", got.CurrentStreak, tt.wantCurrentStreak)
			}
			if got.LongestWinStreak != tt.wantLongestWinStreak {
				t.Errorf("LongestWinStreak = %d, want %d", got.LongestWinStreak, tt.wantLongestWinStreak)
			}
			if got.LongestLossStreak != tt.wantLongestLossStreak {
				t.Errorf("LongestLossStreak = %d, want %d", got.LongestLossStreak, tt.wantLongestLossStreak)
			}
		})
	}
}

func TestFormatCurrentStreak(t *testing.T) {
	tests := []struct {
		streak int
		want   string
	}{
		{0, "No active streak"},
		{1, "1 win streak"},
		{4, "4 win streak"},
		{-1, "1 loss streak"},
		{-3, "3 loss streak"},
	}
	for _, tt := range tests {
		if got := FormatCurrentStreak(tt.streak); got != tt.want {
			t.Errorf("FormatCurrentStreak(%d) = %q, want %q", tt.streak, got, tt.want)
		}
	}
}
