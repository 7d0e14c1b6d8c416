package models

import "time"

// Filter narrows every analytics query. Zero values disable a criterion.
type Filter struct {
	DeckNames []string // empty means all decks
	Season    string   // "" or AllSeasons means all seasons
	Days      int      // rolling window in days; 0 means no window
	Opponent  string
	Result    string // win, loss or tie
	Now       time.Time
}

// Cutoff returns the earliest timestamp admitted by the window, or "" if none.
func (f Filter) Cutoff() string {
	if f.Days <= 0 {
		return ""
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	return FormatTime(now.AddDate(0, 0, -f.Days))
}

// DeckPerformance aggregates results for one deck.
type DeckPerformance struct {
	DeckID         int64
	DeckName       string
	Tags           []string
	Games          int
	Wins           int
	Losses         int
	Ties           int
	NetCubes       int
	AvgCubes       *float64 // nil when undefined (reported as N/A)
	AvgCubesPerWin *float64
	AvgCubesLoss   *float64
}

// WinRate returns wins / games, or 0 for an empty deck.
func (d *DeckPerformance) WinRate() float64 {
	if d.Games == 0 {
		return 0
	}
	return float64(d.Wins) / float64(d.Games)
}

// PartitionStats tracks one side of a drawn/played split.
type PartitionStats struct {
	Games int
	Wins  int
	Cubes int
}

// WinRate returns wins / games in percent, or nil when empty.
func (p PartitionStats) WinRate() *float64 {
	if p.Games == 0 {
		return nil
	}
	v := float64(p.Wins) / float64(p.Games) * 100
	return &v
}

// AvgCubes returns cubes / games, or nil when empty.
func (p PartitionStats) AvgCubes() *float64 {
	if p.Games == 0 {
		return nil
	}
	v := float64(p.Cubes) / float64(p.Games)
	return &v
}

// CardPerformance is the counterfactual drawn/played breakdown for one card.
type CardPerformance struct {
	CardID           string
	TotalGamesInDeck int
	Drawn            PartitionStats
	NotDrawn         PartitionStats
	Played           PartitionStats
	NotPlayed        PartitionStats
	DeltaCubesDrawn  float64
	DeltaCubesPlayed float64
}

// LocationPerformance aggregates results at one location id across all slots.
type LocationPerformance struct {
	LocationID string
	Games      int
	Wins       int
	Cubes      int
}

// WinRate returns wins / games.
func (l *LocationPerformance) WinRate() float64 {
	if l.Games == 0 {
		return 0
	}
	return float64(l.Wins) / float64(l.Games)
}

// AvgCubes returns cubes / games.
func (l *LocationPerformance) AvgCubes() float64 {
	if l.Games == 0 {
		return 0
	}
	return float64(l.Cubes) / float64(l.Games)
}

// MatchupSummary aggregates results against one opponent.
type MatchupSummary struct {
	Opponent string
	Games    int
	Wins     int
	Losses   int
	Ties     int
	NetCubes int
	AvgCubes float64
}

// RevealedCardStat is one card in an opponent drill-down.
type RevealedCardStat struct {
	CardID string
	Count  int     // matches in which the card was revealed
	Rate   float64 // Count / matches with any recorded reveal
}

// MatchupDetail is the drill-down for one opponent.
type MatchupDetail struct {
	Summary            MatchupSummary
	MatchesWithReveals int
	TopRevealed        []RevealedCardStat
}

// TrendPoint is one daily bucket.
type TrendPoint struct {
	Day      string // YYYY-MM-DD
	Matches  int
	Wins     int
	NetCubes int
}

// WinRate returns wins / matches.
func (p TrendPoint) WinRate() float64 {
	if p.Matches == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Matches)
}
