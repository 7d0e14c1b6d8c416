package events

// Event types published by the match tracker.
const (
	TypeSnapshotUpdated = "snapshot:updated"
	TypeMatchCommitted  = "match:committed"
	TypeMatchSkipped    = "match:skipped"
	TypeTrackerError    = "tracker:error"
)

// SnapshotUpdatedEvent is the payload for snapshot:updated events.
// Sent after every tick that observed a live match.
type SnapshotUpdatedEvent struct {
	MatchID    string         `json:"matchId"`
	Turn       string         `json:"turn"` // "?" when unknown
	CubeValue  string         `json:"cubeValue"`
	Remaining  map[string]int `json:"remaining,omitempty"`  // remaining-deck projection
	Unexpected map[string]int `json:"unexpected,omitempty"` // cards seen but not in the initial deck
	Events     int            `json:"events"`               // buffered events for the match
}

// MatchCommittedEvent is the payload for match:committed events.
type MatchCommittedEvent struct {
	MatchID  string `json:"matchId"`
	Result   string `json:"result"`
	Cubes    *int   `json:"cubes,omitempty"`
	DeckName string `json:"deckName"`
	Opponent string `json:"opponent"`
	Events   int    `json:"events"` // events submitted with the match
}

// MatchSkippedEvent is the payload for match:skipped events.
type MatchSkippedEvent struct {
	MatchID string `json:"matchId"`
	Reason  string `json:"reason"`
}

// TrackerErrorEvent is the payload for tracker:error events.
type TrackerErrorEvent struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
