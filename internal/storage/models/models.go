package models

import "time"

// Result values for a match.
const (
	ResultWin     = "win"
	ResultLoss    = "loss"
	ResultTie     = "tie"
	ResultUnknown = "unknown"
)

// Event kinds.
const (
	KindDrawn  = "drawn"
	KindPlayed = "played"
)

// Event actors.
const (
	ActorLocal    = "local"
	ActorOpponent = "opponent"
)

// Zone names carried on events.
const (
	ZoneDeck     = "Deck"
	ZoneHand     = "Hand"
	ZoneLocation = "Location"
)

// NoLocation marks an event that did not target a location.
const NoLocation = -1

// TagAutoGenerated marks decks learned from the end-game block rather than
// from the collection file.
const TagAutoGenerated = "auto-generated"

// OpponentPlaceholder is the name the client reports before the opponent is known.
const OpponentPlaceholder = "Opponent"

// AllSeasons disables season filtering.
const AllSeasons = "All Seasons"

// TimeLayout is how timestamps are stored. Fixed-width UTC keeps string
// comparison and SQLite date functions consistent.
const TimeLayout = "2006-01-02T15:04:05Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// Deck is a stored decklist identified by its fingerprint.
type Deck struct {
	ID          int64
	Name        string
	Cards       []string // preserves multiplicity
	Fingerprint string
	ExternalID  *string // Nullable: collection deck id
	FirstSeen   string
	LastUsed    string
	Tags        []string
}

// Match is one completed game.
type Match struct {
	MatchID          string
	TimestampEnded   string
	LocalPlayer      string
	Opponent         string
	DeckID           int64
	DeckName         string // populated via JOIN
	DeckCards        []string
	Result           string
	Cubes            *int // Nullable: absent when the game did not report it
	Turns            int
	Location1        string
	Location2        string
	Location3        string
	SnapTurnSelf     int
	SnapTurnOpponent int
	FinalSnapState   string
	OpponentRevealed []string
	Season           string
	Rank             string
	Notes            string
}

// Locations returns the three location ids in slot order.
func (m *Match) Locations() []string {
	return []string{m.Location1, m.Location2, m.Location3}
}

// MatchEvent is a single draw/play observation within a match.
type MatchEvent struct {
	ID            int64
	MatchID       string
	Turn          int
	Kind          string
	Actor         string
	CardID        string
	LocationIndex int // NoLocation when not applicable
	SourceZone    string
	TargetZone    string
	Details       map[string]any
}

// DeckInput is what the caller knows about a deck when interning it.
type DeckInput struct {
	Cards      []string
	ExternalID string
	Name       string
	Tags       []string
}
