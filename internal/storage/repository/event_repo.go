package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// EventRepository handles database operations for match events.
type EventRepository interface {
	// InsertIgnore inserts events in order, silently skipping any whose dedup
	// key already exists. It returns the number of rows actually inserted.
	InsertIgnore(ctx context.Context, events []*models.MatchEvent) (int, error)

	// ListForMatch returns the events of a match in insertion order.
	ListForMatch(ctx context.Context, matchID string) ([]*models.MatchEvent, error)

	// CountForMatch returns the number of stored events for a match.
	CountForMatch(ctx context.Context, matchID string) (int, error)
}

type eventRepository struct {
	db Querier
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db Querier) EventRepository {
	return &eventRepository{db: db}
}

// EncodeDetails renders a detail map as the canonical JSON used in the dedup
// key. encoding/json sorts map keys, so equal maps encode identically.
func EncodeDetails(details map[string]any) (string, error) {
	if len(details) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to encode event details: %w", err)
	}
	return string(data), nil
}

func (r *eventRepository) InsertIgnore(ctx context.Context, events []*models.MatchEvent) (int, error) {
	// The NOT EXISTS guard keeps inserts idempotent even while the unique
	// index is missing because of legacy duplicates.
	query := `
		INSERT OR IGNORE INTO match_events (
			match_id, turn, kind, actor, card_id, location_index, source_zone, target_zone, details
		)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM match_events
			WHERE match_id = ? AND turn = ? AND kind = ? AND actor = ? AND card_id = ?
			  AND location_index = ? AND source_zone = ? AND target_zone = ? AND details = ?
		)
	`

	inserted := 0
	for _, e := range events {
		details, err := EncodeDetails(e.Details)
		if err != nil {
			return inserted, err
		}
		key := []any{
			e.MatchID, e.Turn, e.Kind, e.Actor, e.CardID,
			e.LocationIndex, e.SourceZone, e.TargetZone, details,
		}
		args := append(append([]any{}, key...), key...)

		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert event: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to read affected rows: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

func (r *eventRepository) ListForMatch(ctx context.Context, matchID string) ([]*models.MatchEvent, error) {
	query := `
		SELECT id, match_id, turn, kind, actor, card_id, location_index,
		       source_zone, target_zone, details
		FROM match_events
		WHERE match_id = ?
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer closeRows(rows)

	var events []*models.MatchEvent
	for rows.Next() {
		e := &models.MatchEvent{}
		var details string
		if err := rows.Scan(
			&e.ID,
			&e.MatchID,
			&e.Turn,
			&e.Kind,
			&e.Actor,
			&e.CardID,
			&e.LocationIndex,
			&e.SourceZone,
			&e.TargetZone,
			&details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if details != "" && details != "{}" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				e.Details = nil
			}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

func (r *eventRepository) CountForMatch(ctx context.Context, matchID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_events WHERE match_id = ?`, matchID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
