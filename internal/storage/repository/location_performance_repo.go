package repository

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// LocationPerformanceRepository aggregates results per location id.
type LocationPerformanceRepository interface {
	// GetLocationPerformance unpivots the three slots and groups by location id.
	GetLocationPerformance(ctx context.Context, filter models.Filter) ([]*models.LocationPerformance, error)
}

type locationPerformanceRepository struct {
	db Querier
}

// NewLocationPerformanceRepository creates a new location performance repository.
func NewLocationPerformanceRepository(db Querier) LocationPerformanceRepository {
	return &locationPerformanceRepository{db: db}
}

func (r *locationPerformanceRepository) GetLocationPerformance(ctx context.Context, filter models.Filter) ([]*models.LocationPerformance, error) {
	where, args := buildFilter(filter)

	query := `
		WITH filtered AS (
			SELECT m.location_1, m.location_2, m.location_3, m.result, COALESCE(m.cubes, 0) AS cubes
			FROM matches m
			JOIN decks d ON d.id = m.deck_id
			` + where + `
		),
		slots AS (
			SELECT location_1 AS location_id, result, cubes FROM filtered
			UNION ALL
			SELECT location_2, result, cubes FROM filtered
			UNION ALL
			SELECT location_3, result, cubes FROM filtered
		)
		SELECT
			location_id,
			COUNT(*) AS games,
			SUM(CASE WHEN result = 'win' THEN 1 ELSE 0 END) AS wins,
			SUM(cubes) AS cubes
		FROM slots
		WHERE location_id <> ''
		GROUP BY location_id
		ORDER BY games DESC, location_id
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query location performance: %w", err)
	}
	defer closeRows(rows)

	var results []*models.LocationPerformance
	for rows.Next() {
		perf := &models.LocationPerformance{}
		if err := rows.Scan(&perf.LocationID, &perf.Games, &perf.Wins, &perf.Cubes); err != nil {
			return nil, fmt.Errorf("failed to scan location performance: %w", err)
		}
		results = append(results, perf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating location performance: %w", err)
	}
	return results, nil
}
