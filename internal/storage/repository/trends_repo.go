package repository

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// DefaultTrendDays is the rolling window used when the filter has none.
const DefaultTrendDays = 30

// TrendsRepository buckets results by day.
type TrendsRepository interface {
	// GetDailyTrends returns one point per day that has matches, oldest first.
	GetDailyTrends(ctx context.Context, filter models.Filter) ([]*models.TrendPoint, error)
}

type trendsRepository struct {
	db Querier
}

// NewTrendsRepository creates a new trends repository.
func NewTrendsRepository(db Querier) TrendsRepository {
	return &trendsRepository{db: db}
}

func (r *trendsRepository) GetDailyTrends(ctx context.Context, filter models.Filter) ([]*models.TrendPoint, error) {
	if filter.Days <= 0 {
		filter.Days = DefaultTrendDays
	}
	where, args := buildFilter(filter)

	query := `
		SELECT
			substr(m.timestamp_ended, 1, 10) AS day,
			COUNT(*),
			SUM(CASE WHEN m.result = 'win' THEN 1 ELSE 0 END),
			COALESCE(SUM(m.cubes), 0)
		FROM matches m
		JOIN decks d ON d.id = m.deck_id
		` + where + `
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %w", err)
	}
	defer closeRows(rows)

	var points []*models.TrendPoint
	for rows.Next() {
		p := &models.TrendPoint{}
		if err := rows.Scan(&p.Day, &p.Matches, &p.Wins, &p.NetCubes); err != nil {
			return nil, fmt.Errorf("failed to scan trend point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trends: %w", err)
	}
	return points, nil
}
