package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// column is an expected column and the declaration used to add it.
type column struct {
	name string
	decl string
}

// expectedColumns lists every column each table must carry. Columns are only
// ever appended here; nothing is dropped or retyped.
var expectedColumns = map[string][]column{
	"decks": {
		{"id", "INTEGER"},
		{"name", "TEXT NOT NULL DEFAULT ''"},
		{"card_list", "TEXT NOT NULL DEFAULT '[]'"},
		{"fingerprint", "TEXT NOT NULL DEFAULT ''"},
		{"external_id", "TEXT"},
		{"first_seen", "TEXT NOT NULL DEFAULT ''"},
		{"last_used", "TEXT NOT NULL DEFAULT ''"},
		{"tags", "TEXT"},
	},
	"matches": {
		{"match_id", "TEXT"},
		{"timestamp_ended", "TEXT NOT NULL DEFAULT ''"},
		{"local_player", "TEXT NOT NULL DEFAULT ''"},
		{"opponent", "TEXT NOT NULL DEFAULT ''"},
		{"deck_id", "INTEGER"},
		{"result", "TEXT NOT NULL DEFAULT 'unknown'"},
		{"cubes", "INTEGER"},
		{"turns", "INTEGER NOT NULL DEFAULT 0"},
		{"location_1", "TEXT NOT NULL DEFAULT ''"},
		{"location_2", "TEXT NOT NULL DEFAULT ''"},
		{"location_3", "TEXT NOT NULL DEFAULT ''"},
		{"snap_turn_self", "INTEGER NOT NULL DEFAULT 0"},
		{"snap_turn_opponent", "INTEGER NOT NULL DEFAULT 0"},
		{"final_snap_state", "TEXT NOT NULL DEFAULT ''"},
		{"opponent_revealed_cards", "TEXT NOT NULL DEFAULT '[]'"},
		{"season", "TEXT NOT NULL DEFAULT ''"},
		{"rank", "TEXT NOT NULL DEFAULT ''"},
		{"notes", "TEXT NOT NULL DEFAULT ''"},
	},
	"match_events": {
		{"id", "INTEGER"},
		{"match_id", "TEXT"},
		{"turn", "INTEGER NOT NULL DEFAULT 0"},
		{"kind", "TEXT NOT NULL DEFAULT ''"},
		{"actor", "TEXT NOT NULL DEFAULT ''"},
		{"card_id", "TEXT NOT NULL DEFAULT ''"},
		{"location_index", "INTEGER NOT NULL DEFAULT -1"},
		{"source_zone", "TEXT NOT NULL DEFAULT ''"},
		{"target_zone", "TEXT NOT NULL DEFAULT ''"},
		{"details", "TEXT NOT NULL DEFAULT '{}'"},
	},
}

// tableOrder fixes the heal order so log output is stable.
var tableOrder = []string{"decks", "matches", "match_events"}

// secondaryIndexes are created after the heal pass, so an older database
// missing an indexed column gets the column before its index.
var secondaryIndexes = []string{
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_decks_fingerprint ON decks(fingerprint)",
	"CREATE INDEX IF NOT EXISTS idx_matches_deck_id ON matches(deck_id)",
	"CREATE INDEX IF NOT EXISTS idx_matches_timestamp_ended ON matches(timestamp_ended)",
	"CREATE INDEX IF NOT EXISTS idx_matches_opponent ON matches(opponent)",
	"CREATE INDEX IF NOT EXISTS idx_matches_result ON matches(result)",
	"CREATE INDEX IF NOT EXISTS idx_match_events_match_id ON match_events(match_id)",
	"CREATE INDEX IF NOT EXISTS idx_match_events_card_id ON match_events(card_id)",
}

const uniqueEventIndexName = "idx_match_events_unique"

const createUniqueEventIndex = `
	CREATE UNIQUE INDEX IF NOT EXISTS idx_match_events_unique ON match_events(
		match_id, turn, kind, actor, card_id, location_index, source_zone, target_zone, details
	)
`

// eventKeyColumns is the event dedup key.
const eventKeyColumns = "match_id, turn, kind, actor, card_id, location_index, source_zone, target_zone, details"

// existingColumns returns the column names currently on table.
func (db *DB) existingColumns(table string) (map[string]bool, error) {
	rows, err := db.conn.Query(fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", table))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() {
		//nolint:errcheck // Ignore error on cleanup - this is a defer cleanup operation
		_ = rows.Close()
	}()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return cols, nil
}

// healSchema adds every expected column that is missing from an existing
// table, so databases written by older releases open without a version bump.
func (db *DB) healSchema() error {
	for _, table := range tableOrder {
		have, err := db.existingColumns(table)
		if err != nil {
			return err
		}
		if len(have) == 0 {
			return fmt.Errorf("table %s does not exist", table)
		}

		for _, col := range expectedColumns[table] {
			if have[col.name] {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, col.decl)
			if _, err := db.conn.Exec(stmt); err != nil {
				return fmt.Errorf("failed to add column %s.%s: %w", table, col.name, err)
			}
			db.logger.Info("added missing column",
				zap.String("table", table),
				zap.String("column", col.name))
		}
	}
	return nil
}

// ensureIndexes creates the secondary indexes over the healed tables.
func (db *DB) ensureIndexes() error {
	for _, stmt := range secondaryIndexes {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// ensureUniqueEventIndex creates the event dedup index. It reports false,
// without failing startup, when existing duplicates prevent creation.
func (db *DB) ensureUniqueEventIndex() bool {
	if _, err := db.conn.Exec(createUniqueEventIndex); err != nil {
		db.logger.Warn("unique event index not created; duplicate events present",
			zap.String("index", uniqueEventIndexName),
			zap.Error(err))
		return false
	}
	return true
}

// CleanupDuplicateEvents keeps the lowest-id row of every dedup-key group,
// deletes the rest and then retries the unique index. It returns the number
// of rows removed.
func (db *DB) CleanupDuplicateEvents(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM match_events
		WHERE id NOT IN (
			SELECT MIN(id) FROM match_events GROUP BY %s
		)
	`, eventKeyColumns)

	res, err := db.conn.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted events: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx, createUniqueEventIndex); err != nil {
		return removed, fmt.Errorf("failed to create unique event index: %w", err)
	}
	db.uniqueEventIndex = true

	db.logger.Info("duplicate events removed", zap.Int64("removed", removed))
	return removed, nil
}
