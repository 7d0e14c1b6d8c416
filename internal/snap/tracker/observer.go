// Package tracker turns successive game-state reads into committed matches.
//
// An Observer is ticked on a single timeline. Each tick reads the game-state
// file, follows match boundaries, buffers draw and play events for the match
// in progress and, once the end-game block appears, reconciles the buffer
// with it and records the match.
package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/events"
	"github.com/ramonehamilton/snap-companion/internal/snap/deckid"
	"github.com/ramonehamilton/snap-companion/internal/snap/statereader"
	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// DefaultSelectedDeckAttempts bounds how many ticks try to correlate the
// selected deck with the collection file.
const DefaultSelectedDeckAttempts = 3

// Store is the persistence the observer commits matches to.
type Store interface {
	MatchExists(ctx context.Context, matchID string) (bool, error)
	RecordMatch(ctx context.Context, match *models.Match, deck models.DeckInput, events []*models.MatchEvent) (bool, error)
}

// Config configures an Observer. Locator and Store are required.
type Config struct {
	Locator    *statereader.Locator
	Reader     *statereader.Reader
	Collection *statereader.CollectionCache
	Store      Store
	Dispatcher *events.EventDispatcher
	ErrorLog   *ErrorLog
	Logger     *zap.Logger

	// SelectedDeckAttempts defaults to DefaultSelectedDeckAttempts.
	SelectedDeckAttempts int

	// Now defaults to time.Now.
	Now func() time.Time
}

// TickResult describes what a single tick observed and did.
type TickResult struct {
	Snapshot   *statereader.Snapshot
	Projection *Projection
	// Stale is set when the file still shows a match already recorded.
	Stale     bool
	Committed bool
	Skipped   bool
	Err       error
}

type playKey struct {
	turn   int
	card   string
	loc    int
	energy int
}

type matchBuffer struct {
	events []*models.MatchEvent
	played map[playKey]bool
	drawn  map[string]bool
}

// Observer is the match state machine. It is not safe for concurrent use.
type Observer struct {
	locator     *statereader.Locator
	reader      *statereader.Reader
	collection  *statereader.CollectionCache
	store       Store
	dispatcher  *events.EventDispatcher
	errLog      *ErrorLog
	logger      *zap.Logger
	maxAttempts int
	now         func() time.Time

	currentMatchID string
	initialDeck    []string
	deckAttempts   int
	buffers        map[string]*matchBuffer
	lastCommitted  string
	lastSkipped    string
}

// NewObserver creates an Observer.
func NewObserver(cfg Config) (*Observer, error) {
	if cfg.Locator == nil {
		return nil, fmt.Errorf("locator cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}

	o := &Observer{
		locator:     cfg.Locator,
		reader:      cfg.Reader,
		collection:  cfg.Collection,
		store:       cfg.Store,
		dispatcher:  cfg.Dispatcher,
		errLog:      cfg.ErrorLog,
		logger:      cfg.Logger,
		maxAttempts: cfg.SelectedDeckAttempts,
		now:         cfg.Now,
		buffers:     make(map[string]*matchBuffer),
	}
	if o.reader == nil {
		o.reader = statereader.NewReader(nil)
	}
	if o.collection == nil {
		o.collection = statereader.NewCollectionCache(o.reader)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.errLog == nil {
		o.errLog, _ = NewErrorLog("", o.logger)
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = DefaultSelectedDeckAttempts
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// CurrentMatchID returns the id of the match being observed, if any.
func (o *Observer) CurrentMatchID() string {
	return o.currentMatchID
}

// LastCommitted returns the id of the most recently recorded match.
func (o *Observer) LastCommitted() string {
	return o.lastCommitted
}

// InitialDeck returns the decklist captured for the current match.
func (o *Observer) InitialDeck() []string {
	return o.initialDeck
}

// Buffered returns the interim events held for matchID.
func (o *Observer) Buffered(matchID string) []*models.MatchEvent {
	if buf, ok := o.buffers[matchID]; ok {
		return buf.events
	}
	return nil
}

// Tick runs one observation step. Errors are classified, logged and
// returned in the result; Tick never panics.
func (o *Observer) Tick(ctx context.Context) (res *TickResult) {
	res = &TickResult{}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("tick panicked: %v", r)
			o.report(ctx, res.Err)
		}
	}()

	path, err := o.locator.GameState()
	if err != nil {
		return o.fail(ctx, res, err)
	}
	g, err := o.reader.ReadGraph(ctx, path)
	if err != nil {
		return o.fail(ctx, res, err)
	}

	snap := statereader.ExtractSnapshot(g)
	res.Snapshot = snap
	if !snap.InMatch() {
		if err := snap.Err(); err != nil {
			return o.fail(ctx, res, err)
		}
		return res
	}
	id := snap.MatchID

	exists := id == o.lastCommitted
	if !exists {
		exists, err = o.store.MatchExists(ctx, id)
		if err != nil {
			return o.fail(ctx, res, fmt.Errorf("failed to check match %s: %w", id, err))
		}
	}
	if exists {
		delete(o.buffers, id)
		res.Stale = true
		return res
	}

	if id != o.currentMatchID {
		o.startMatch(id)
	}
	if len(o.initialDeck) == 0 && o.deckAttempts < o.maxAttempts {
		o.captureInitialDeck(ctx)
	}

	shapeErr := snap.Err()
	if shapeErr != nil {
		o.report(ctx, shapeErr)
		res.Err = shapeErr
	}

	buf := o.buffer(id)
	if shapeErr == nil && !snap.Ended() {
		o.accrue(buf, snap)
	}

	res.Projection = Project(o.initialDeck, snap)
	if res.Projection != nil && len(res.Projection.Unexpected) > 0 {
		o.logger.Debug("cards seen outside the initial deck",
			zap.String("match_id", id),
			zap.Any("unexpected", res.Projection.Unexpected))
	}
	o.publishSnapshot(ctx, snap, res.Projection, len(buf.events))

	if shapeErr != nil || !snap.Ended() {
		return res
	}

	if snap.EndGame.IsBattleMode {
		delete(o.buffers, id)
		res.Skipped = true
		if o.lastSkipped != id {
			o.lastSkipped = id
			o.logger.Info("skipping battle mode match", zap.String("match_id", id))
			o.publish(ctx, events.TypeMatchSkipped, events.MatchSkippedEvent{MatchID: id, Reason: "battle mode"})
		}
		return res
	}

	committed, err := o.commit(ctx, snap)
	if err != nil {
		return o.fail(ctx, res, err)
	}
	res.Committed = committed
	return res
}

func (o *Observer) startMatch(id string) {
	if o.currentMatchID != "" {
		delete(o.buffers, o.currentMatchID)
	}
	o.logger.Info("match started", zap.String("match_id", id))
	o.currentMatchID = id
	o.initialDeck = nil
	o.deckAttempts = 0
}

func (o *Observer) buffer(id string) *matchBuffer {
	buf, ok := o.buffers[id]
	if !ok {
		buf = &matchBuffer{
			played: make(map[playKey]bool),
			drawn:  make(map[string]bool),
		}
		o.buffers[id] = buf
	}
	return buf
}

func (o *Observer) captureInitialDeck(ctx context.Context) {
	o.deckAttempts++
	defer func() {
		if len(o.initialDeck) == 0 && o.deckAttempts >= o.maxAttempts {
			o.logger.Info("no initial deck for match",
				zap.String("match_id", o.currentMatchID),
				zap.Int("attempts", o.deckAttempts))
		}
	}()

	playPath, err := o.locator.PlayState()
	if err != nil {
		o.report(ctx, err)
		return
	}
	deckID, ok, err := o.reader.ReadSelectedDeckID(ctx, playPath)
	if err != nil {
		o.report(ctx, err)
		return
	}
	if !ok {
		o.report(ctx, fmt.Errorf("no selected deck id: %w", ErrCollectionStale))
		return
	}

	coll, err := o.loadCollection(ctx)
	if err != nil {
		o.report(ctx, err)
		return
	}
	deck, ok := coll.Deck(deckID)
	if !ok {
		o.report(ctx, fmt.Errorf("deck %s: %w", deckID, ErrCollectionStale))
		return
	}
	if !deckid.PlausibleSize(deck.Cards) {
		o.logger.Debug("selected deck has an implausible size",
			zap.String("deck_id", deckID), zap.Int("cards", len(deck.Cards)))
		return
	}
	o.initialDeck = append([]string(nil), deck.Cards...)
}

func (o *Observer) loadCollection(ctx context.Context) (*statereader.Collection, error) {
	path, err := o.locator.Collection()
	if err != nil {
		return nil, err
	}
	return o.collection.Load(ctx, path)
}

func (o *Observer) accrue(buf *matchBuffer, snap *statereader.Snapshot) {
	turn := snap.Turn.Or(0)

	for _, req := range snap.StageRequests {
		if req.Stage != statereader.TerminalStage || req.CardDefID == "" {
			continue
		}
		t := req.Turn.Or(turn)
		key := playKey{turn: t, card: req.CardDefID, loc: req.TargetLocation, energy: req.Energy}
		if buf.played[key] {
			continue
		}
		buf.played[key] = true
		buf.events = append(buf.events, &models.MatchEvent{
			MatchID:       snap.MatchID,
			Turn:          t,
			Kind:          models.KindPlayed,
			Actor:         models.ActorLocal,
			CardID:        req.CardDefID,
			LocationIndex: req.TargetLocation,
			SourceZone:    models.ZoneHand,
			TargetZone:    models.ZoneLocation,
			Details:       map[string]any{"energy": req.Energy},
		})
	}

	for _, card := range snap.CardsDrawn {
		if card == "" || buf.drawn[card] {
			continue
		}
		buf.drawn[card] = true
		buf.events = append(buf.events, &models.MatchEvent{
			MatchID:       snap.MatchID,
			Turn:          turn,
			Kind:          models.KindDrawn,
			Actor:         models.ActorLocal,
			CardID:        card,
			LocationIndex: models.NoLocation,
			SourceZone:    models.ZoneDeck,
			TargetZone:    models.ZoneHand,
		})
	}
}

func (o *Observer) fail(ctx context.Context, res *TickResult, err error) *TickResult {
	o.report(ctx, err)
	res.Err = err
	return res
}

func (o *Observer) report(ctx context.Context, err error) {
	kind := Classify(err)
	o.errLog.Log(kind, err)
	o.publish(ctx, events.TypeTrackerError, events.TrackerErrorEvent{Kind: string(kind), Error: err.Error()})
}

func (o *Observer) publishSnapshot(ctx context.Context, snap *statereader.Snapshot, p *Projection, buffered int) {
	payload := events.SnapshotUpdatedEvent{
		MatchID:   snap.MatchID,
		Turn:      snap.Turn.String(),
		CubeValue: snap.CubeValue.String(),
		Events:    buffered,
	}
	if p != nil {
		payload.Remaining = p.Remaining
		payload.Unexpected = p.Unexpected
	}
	o.publish(ctx, events.TypeSnapshotUpdated, payload)
}

func (o *Observer) publish(ctx context.Context, eventType string, data any) {
	if o.dispatcher == nil {
		return
	}
	o.dispatcher.Dispatch(events.NewTypedEvent(eventType, data, ctx))
}
