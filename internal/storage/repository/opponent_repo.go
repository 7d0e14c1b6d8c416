package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// TopRevealedLimit caps the revealed-card list of a matchup drill-down.
const TopRevealedLimit = 20

// OpponentRepository handles per-opponent matchup queries.
type OpponentRepository interface {
	// GetMatchups returns a summary per named opponent, most played first.
	GetMatchups(ctx context.Context, filter models.Filter) ([]*models.MatchupSummary, error)

	// GetMatchupDetail returns the summary and most frequent revealed cards
	// for one opponent. Returns nil if no match against the opponent exists.
	GetMatchupDetail(ctx context.Context, opponent string, filter models.Filter) (*models.MatchupDetail, error)
}

type opponentRepository struct {
	db Querier
}

// NewOpponentRepository creates a new opponent repository.
func NewOpponentRepository(db Querier) OpponentRepository {
	return &opponentRepository{db: db}
}

func (r *opponentRepository) GetMatchups(ctx context.Context, filter models.Filter) ([]*models.MatchupSummary, error) {
	where, args := buildFilter(filter)
	query := `
		SELECT
			m.opponent,
			COUNT(*) AS games,
			SUM(CASE WHEN m.result = 'win' THEN 1 ELSE 0 END),
			SUM(CASE WHEN m.result = 'loss' THEN 1 ELSE 0 END),
			SUM(CASE WHEN m.result = 'tie' THEN 1 ELSE 0 END),
			COALESCE(SUM(m.cubes), 0),
			COALESCE(AVG(m.cubes), 0)
		FROM matches m
		JOIN decks d ON d.id = m.deck_id
		` + where + `
		AND m.opponent <> '' AND m.opponent <> ?
		GROUP BY m.opponent
		ORDER BY games DESC, m.opponent
	`
	args = append(args, models.OpponentPlaceholder)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matchups: %w", err)
	}
	defer closeRows(rows)

	var results []*models.MatchupSummary
	for rows.Next() {
		s := &models.MatchupSummary{}
		if err := rows.Scan(&s.Opponent, &s.Games, &s.Wins, &s.Losses, &s.Ties, &s.NetCubes, &s.AvgCubes); err != nil {
			return nil, fmt.Errorf("failed to scan matchup: %w", err)
		}
		results = append(results, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matchups: %w", err)
	}
	return results, nil
}

func (r *opponentRepository) GetMatchupDetail(ctx context.Context, opponent string, filter models.Filter) (*models.MatchupDetail, error) {
	filter.Opponent = opponent

	summaries, err := r.GetMatchups(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}

	where, args := buildFilter(filter)
	query := `
		SELECT m.opponent_revealed_cards
		FROM matches m
		JOIN decks d ON d.id = m.deck_id
		` + where

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query revealed cards: %w", err)
	}
	defer closeRows(rows)

	counts := make(map[string]int)
	withReveals := 0
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan revealed cards: %w", err)
		}
		if !raw.Valid || raw.String == "" {
			continue
		}
		var cards []string
		if err := json.Unmarshal([]byte(raw.String), &cards); err != nil {
			// Malformed rows are skipped.
			continue
		}

		seen := make(map[string]bool, len(cards))
		for _, c := range cards {
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			counts[c]++
		}
		if len(seen) > 0 {
			withReveals++
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating revealed cards: %w", err)
	}

	top := make([]models.RevealedCardStat, 0, len(counts))
	for card, n := range counts {
		top = append(top, models.RevealedCardStat{
			CardID: card,
			Count:  n,
			Rate:   float64(n) / float64(withReveals),
		})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].CardID < top[j].CardID
	})
	if len(top) > TopRevealedLimit {
		top = top[:TopRevealedLimit]
	}

	return &models.MatchupDetail{
		Summary:            *summaries[0],
		MatchesWithReveals: withReveals,
		TopRevealed:        top,
	}, nil
}
