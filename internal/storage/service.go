package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/snap/deckid"
	"github.com/ramonehamilton/snap-companion/internal/storage/models"
	"github.com/ramonehamilton/snap-companion/internal/storage/repository"
)

// ErrUniqueIndexPending is returned by CheckEventIndex while duplicate events
// prevent the dedup index from being created.
var ErrUniqueIndexPending = errors.New("unique event index pending duplicate cleanup")

// ErrEmptyDeck is returned when interning a deck with no cards.
var ErrEmptyDeck = errors.New("deck has no cards")

// Service provides high-level operations for storing and querying SNAP matches.
type Service struct {
	db     *DB
	logger *zap.Logger
	now    func() time.Time
	namer  deckid.CardNamer

	decks     repository.DeckRepository
	matches   repository.MatchRepository
	events    repository.EventRepository
	deckPerf  repository.DeckPerformanceRepository
	cardPerf  repository.CardPerformanceRepository
	locations repository.LocationPerformanceRepository
	opponents repository.OpponentRepository
	trends    repository.TrendsRepository
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock replaces time.Now for first-seen, last-used and filter windows.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithCardNamer sets how card ids are rendered in synthesized deck names.
func WithCardNamer(namer deckid.CardNamer) ServiceOption {
	return func(s *Service) { s.namer = namer }
}

// NewService creates a new storage service.
func NewService(db *DB, opts ...ServiceOption) *Service {
	conn := db.Conn()
	s := &Service{
		db:        db,
		logger:    db.logger,
		now:       time.Now,
		namer:     deckid.HumanizeCardID,
		decks:     repository.NewDeckRepository(conn),
		matches:   repository.NewMatchRepository(conn),
		events:    repository.NewEventRepository(conn),
		deckPerf:  repository.NewDeckPerformanceRepository(conn),
		cardPerf:  repository.NewCardPerformanceRepository(conn),
		locations: repository.NewLocationPerformanceRepository(conn),
		opponents: repository.NewOpponentRepository(conn),
		trends:    repository.NewTrendsRepository(conn),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying database.
func (s *Service) DB() *DB {
	return s.db
}

// Close closes the database.
func (s *Service) Close() error {
	return s.db.Close()
}

// InternDeck returns the internal id of the deck with input's fingerprint,
// creating it if needed. Existing decks pick up a supplied name, a newly known
// external id and any supplied tags; last_used always advances.
func (s *Service) InternDeck(ctx context.Context, input models.DeckInput) (int64, error) {
	return s.internDeck(ctx, s.decks, input)
}

func (s *Service) internDeck(ctx context.Context, decks repository.DeckRepository, input models.DeckInput) (int64, error) {
	if len(deckid.UniqueSorted(input.Cards)) == 0 {
		return 0, ErrEmptyDeck
	}

	fingerprint := deckid.Fingerprint(input.Cards)
	now := models.FormatTime(s.now())

	existing, err := decks.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return 0, fmt.Errorf("failed to look up deck: %w", err)
	}

	if existing != nil {
		if input.Name != "" {
			existing.Name = input.Name
		}
		if input.ExternalID != "" && (existing.ExternalID == nil || *existing.ExternalID != input.ExternalID) {
			ext := input.ExternalID
			existing.ExternalID = &ext
		}
		if len(input.Tags) > 0 {
			existing.Tags = mergeTags(existing.Tags, input.Tags)
		}
		existing.LastUsed = now

		if err := decks.Update(ctx, existing); err != nil {
			return 0, err
		}
		return existing.ID, nil
	}

	name := input.Name
	if name == "" {
		name = deckid.SynthesizeName(input.Cards, s.namer)
	}
	deck := &models.Deck{
		Name:        name,
		Cards:       input.Cards,
		Fingerprint: fingerprint,
		FirstSeen:   now,
		LastUsed:    now,
		Tags:        mergeTags(nil, input.Tags),
	}
	if input.ExternalID != "" {
		ext := input.ExternalID
		deck.ExternalID = &ext
	}
	if err := decks.Create(ctx, deck); err != nil {
		return 0, err
	}

	s.logger.Debug("deck created",
		zap.Int64("deck_id", deck.ID),
		zap.String("name", deck.Name),
		zap.String("fingerprint", fingerprint))
	return deck.ID, nil
}

// mergeTags appends tags not already present, keeping existing order.
func mergeTags(existing, supplied []string) []string {
	seen := make(map[string]bool, len(existing)+len(supplied))
	out := make([]string, 0, len(existing)+len(supplied))
	for _, list := range [][]string{existing, supplied} {
		for _, tag := range list {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}

// MatchExists reports whether a match id is already recorded.
func (s *Service) MatchExists(ctx context.Context, matchID string) (bool, error) {
	return s.matches.Exists(ctx, matchID)
}

// RecordMatch atomically interns the deck, inserts the match and inserts its
// events in order with insert-or-ignore. It returns false without writing
// anything when the match id is already recorded.
func (s *Service) RecordMatch(ctx context.Context, match *models.Match, deck models.DeckInput, events []*models.MatchEvent) (bool, error) {
	recorded := false

	err := s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		matches := repository.NewMatchRepository(tx)

		exists, err := matches.Exists(ctx, match.MatchID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		deckID, err := s.internDeck(ctx, repository.NewDeckRepository(tx), deck)
		if err != nil {
			return fmt.Errorf("failed to intern deck: %w", err)
		}
		match.DeckID = deckID

		if err := matches.Create(ctx, match); err != nil {
			return err
		}

		for _, e := range events {
			e.MatchID = match.MatchID
		}
		inserted, err := repository.NewEventRepository(tx).InsertIgnore(ctx, events)
		if err != nil {
			return err
		}

		s.logger.Info("match recorded",
			zap.String("match_id", match.MatchID),
			zap.String("result", match.Result),
			zap.Int64("deck_id", deckID),
			zap.Int("events", inserted),
			zap.Int("events_ignored", len(events)-inserted))
		recorded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record match %s: %w", match.MatchID, err)
	}
	return recorded, nil
}

// GetMatch returns a match, or nil if it is not recorded.
func (s *Service) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	return s.matches.GetByID(ctx, matchID)
}

// ListMatches returns matches under the filter, newest first.
func (s *Service) ListMatches(ctx context.Context, filter models.Filter, limit int) ([]*models.Match, error) {
	return s.matches.List(ctx, s.withNow(filter), limit)
}

// GetMatchEvents returns the stored events of a match in insertion order.
func (s *Service) GetMatchEvents(ctx context.Context, matchID string) ([]*models.MatchEvent, error) {
	return s.events.ListForMatch(ctx, matchID)
}

// UpdateNotes replaces the free-text notes of a match.
func (s *Service) UpdateNotes(ctx context.Context, matchID, notes string) error {
	return s.matches.UpdateNotes(ctx, matchID, notes)
}

// DeleteMatch removes a match and, by cascade, its events.
func (s *Service) DeleteMatch(ctx context.Context, matchID string) error {
	if err := s.matches.Delete(ctx, matchID); err != nil {
		return err
	}
	s.logger.Info("match deleted", zap.String("match_id", matchID))
	return nil
}

// ListDecks returns every stored deck, most recently used first.
func (s *Service) ListDecks(ctx context.Context) ([]*models.Deck, error) {
	return s.decks.List(ctx)
}

// SetDeckTags replaces a deck's tags.
func (s *Service) SetDeckTags(ctx context.Context, deckID int64, tags []string) error {
	return s.decks.SetTags(ctx, deckID, mergeTags(nil, tags))
}

// CleanupDuplicateEvents removes duplicate events and creates the dedup index.
func (s *Service) CleanupDuplicateEvents(ctx context.Context) (int64, error) {
	return s.db.CleanupDuplicateEvents(ctx)
}

// CheckEventIndex returns ErrUniqueIndexPending until the dedup index exists.
func (s *Service) CheckEventIndex() error {
	if !s.db.UniqueEventIndexReady() {
		return ErrUniqueIndexPending
	}
	return nil
}

// GetDeckPerformance returns per-deck aggregates.
func (s *Service) GetDeckPerformance(ctx context.Context, filter models.Filter) ([]*models.DeckPerformance, error) {
	return s.deckPerf.GetDeckPerformance(ctx, s.withNow(filter))
}

// GetCardPerformance returns per-card drawn/played partitions.
func (s *Service) GetCardPerformance(ctx context.Context, filter models.Filter) ([]*models.CardPerformance, error) {
	return s.cardPerf.GetCardPerformance(ctx, s.withNow(filter))
}

// GetLocationPerformance returns per-location aggregates.
func (s *Service) GetLocationPerformance(ctx context.Context, filter models.Filter) ([]*models.LocationPerformance, error) {
	return s.locations.GetLocationPerformance(ctx, s.withNow(filter))
}

// GetMatchups returns per-opponent summaries.
func (s *Service) GetMatchups(ctx context.Context, filter models.Filter) ([]*models.MatchupSummary, error) {
	return s.opponents.GetMatchups(ctx, s.withNow(filter))
}

// GetMatchupDetail returns the drill-down for one opponent.
func (s *Service) GetMatchupDetail(ctx context.Context, opponent string, filter models.Filter) (*models.MatchupDetail, error) {
	return s.opponents.GetMatchupDetail(ctx, opponent, s.withNow(filter))
}

// GetDailyTrends returns daily buckets over the filter window (30 days by default).
func (s *Service) GetDailyTrends(ctx context.Context, filter models.Filter) ([]*models.TrendPoint, error) {
	return s.trends.GetDailyTrends(ctx, s.withNow(filter))
}

func (s *Service) withNow(f models.Filter) models.Filter {
	if f.Now.IsZero() {
		f.Now = s.now()
	}
	return f
}
