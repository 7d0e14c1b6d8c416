package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// MatchRepository handles database operations for matches.
type MatchRepository interface {
	// Exists reports whether a match with the given id is already recorded.
	Exists(ctx context.Context, matchID string) (bool, error)

	// Create inserts a match row.
	Create(ctx context.Context, match *models.Match) error

	// GetByID retrieves a match with its deck name and card list. Returns nil if not found.
	GetByID(ctx context.Context, matchID string) (*models.Match, error)

	// List retrieves matches matching the filter, newest first. A limit of 0 means no limit.
	List(ctx context.Context, filter models.Filter, limit int) ([]*models.Match, error)

	// UpdateNotes replaces the notes of a match.
	UpdateNotes(ctx context.Context, matchID, notes string) error

	// Delete removes a match; its events are removed by cascade.
	Delete(ctx context.Context, matchID string) error
}

type matchRepository struct {
	db Querier
}

// NewMatchRepository creates a new match repository.
func NewMatchRepository(db Querier) MatchRepository {
	return &matchRepository{db: db}
}

const matchSelect = `
	SELECT m.match_id, m.timestamp_ended, m.local_player, m.opponent, m.deck_id,
	       d.name, d.card_list, m.result, m.cubes, m.turns,
	       m.location_1, m.location_2, m.location_3,
	       m.snap_turn_self, m.snap_turn_opponent, m.final_snap_state,
	       m.opponent_revealed_cards, m.season, m.rank, m.notes
	FROM matches m
	JOIN decks d ON d.id = m.deck_id
`

func (r *matchRepository) Exists(ctx context.Context, matchID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches WHERE match_id = ?`, matchID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check match: %w", err)
	}
	return n > 0, nil
}

func (r *matchRepository) Create(ctx context.Context, match *models.Match) error {
	revealed, err := encodeStrings(match.OpponentRevealed)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO matches (
			match_id, timestamp_ended, local_player, opponent, deck_id, result, cubes, turns,
			location_1, location_2, location_3, snap_turn_self, snap_turn_opponent,
			final_snap_state, opponent_revealed_cards, season, rank, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		match.MatchID,
		match.TimestampEnded,
		match.LocalPlayer,
		match.Opponent,
		match.DeckID,
		match.Result,
		match.Cubes,
		match.Turns,
		match.Location1,
		match.Location2,
		match.Location3,
		match.SnapTurnSelf,
		match.SnapTurnOpponent,
		match.FinalSnapState,
		revealed,
		match.Season,
		match.Rank,
		match.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *matchRepository) GetByID(ctx context.Context, matchID string) (*models.Match, error) {
	match, err := scanMatch(r.db.QueryRowContext(ctx, matchSelect+` WHERE m.match_id = ?`, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

func (r *matchRepository) List(ctx context.Context, filter models.Filter, limit int) ([]*models.Match, error) {
	where, args := buildFilter(filter)
	query := matchSelect + where + ` ORDER BY m.timestamp_ended DESC, m.match_id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer closeRows(rows)

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

func (r *matchRepository) UpdateNotes(ctx context.Context, matchID, notes string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE matches SET notes = ? WHERE match_id = ?`, notes, matchID)
	if err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return requireAffected(res, matchID)
}

func (r *matchRepository) Delete(ctx context.Context, matchID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE match_id = ?`, matchID)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return requireAffected(res, matchID)
}

// ErrMatchNotFound is returned when an update or delete targets an unknown match.
var ErrMatchNotFound = errors.New("match not found")

func requireAffected(res sql.Result, matchID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
	}
	return nil
}

func scanMatch(row rowScanner) (*models.Match, error) {
	m := &models.Match{}
	var cards, revealed sql.NullString
	var cubes sql.NullInt64

	if err := row.Scan(
		&m.MatchID,
		&m.TimestampEnded,
		&m.LocalPlayer,
		&m.Opponent,
		&m.DeckID,
		&m.DeckName,
		&cards,
		&m.Result,
		&cubes,
		&m.Turns,
		&m.Location1,
		&m.Location2,
		&m.Location3,
		&m.SnapTurnSelf,
		&m.SnapTurnOpponent,
		&m.FinalSnapState,
		&revealed,
		&m.Season,
		&m.Rank,
		&m.Notes,
	); err != nil {
		return nil, err
	}

	if cubes.Valid {
		v := int(cubes.Int64)
		m.Cubes = &v
	}

	var err error
	if m.DeckCards, err = decodeStrings(cards); err != nil {
		return nil, err
	}
	// A malformed revealed-cards column is treated as empty.
	if m.OpponentRevealed, err = decodeStrings(revealed); err != nil {
		m.OpponentRevealed = nil
	}
	return m, nil
}
