package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// DeckPerformanceRepository aggregates match results per deck.
type DeckPerformanceRepository interface {
	// GetDeckPerformance returns one row per deck with at least one match under the filter,
	// ordered by games played.
	GetDeckPerformance(ctx context.Context, filter models.Filter) ([]*models.DeckPerformance, error)
}

type deckPerformanceRepository struct {
	db Querier
}

// NewDeckPerformanceRepository creates a new deck performance repository.
func NewDeckPerformanceRepository(db Querier) DeckPerformanceRepository {
	return &deckPerformanceRepository{db: db}
}

func (r *deckPerformanceRepository) GetDeckPerformance(ctx context.Context, filter models.Filter) ([]*models.DeckPerformance, error) {
	where, args := buildFilter(filter)

	// AVG ignores NULL cubes and yields NULL for an empty subset.
	query := `
		SELECT
			d.id,
			d.name,
			d.tags,
			COUNT(*) AS games,
			SUM(CASE WHEN m.result = 'win' THEN 1 ELSE 0 END) AS wins,
			SUM(CASE WHEN m.result = 'loss' THEN 1 ELSE 0 END) AS losses,
			SUM(CASE WHEN m.result = 'tie' THEN 1 ELSE 0 END) AS ties,
			COALESCE(SUM(m.cubes), 0) AS net_cubes,
			AVG(m.cubes) AS avg_cubes,
			AVG(CASE WHEN m.result = 'win' THEN m.cubes END) AS avg_cubes_win,
			AVG(CASE WHEN m.result = 'loss' THEN m.cubes END) AS avg_cubes_loss
		FROM matches m
		JOIN decks d ON d.id = m.deck_id
		` + where + `
		GROUP BY d.id, d.name, d.tags
		ORDER BY games DESC, d.name
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deck performance: %w", err)
	}
	defer closeRows(rows)

	var results []*models.DeckPerformance
	for rows.Next() {
		perf := &models.DeckPerformance{}
		var tags sql.NullString
		var avg, avgWin, avgLoss sql.NullFloat64

		if err := rows.Scan(
			&perf.DeckID,
			&perf.DeckName,
			&tags,
			&perf.Games,
			&perf.Wins,
			&perf.Losses,
			&perf.Ties,
			&perf.NetCubes,
			&avg,
			&avgWin,
			&avgLoss,
		); err != nil {
			return nil, fmt.Errorf("failed to scan deck performance: %w", err)
		}

		perf.Tags, _ = decodeStrings(tags)
		perf.AvgCubes = nullFloat(avg)
		perf.AvgCubesPerWin = nullFloat(avgWin)
		perf.AvgCubesLoss = nullFloat(avgLoss)
		results = append(results, perf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deck performance: %w", err)
	}
	return results, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
