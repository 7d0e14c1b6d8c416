// Package export writes recorded matches to CSV or JSON and reads them back
// from CSV.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// Format represents the export format.
type Format string

const (
	// FormatCSV represents CSV export format.
	FormatCSV Format = "csv"
	// FormatJSON represents JSON export format.
	FormatJSON Format = "json"
)

// Columns is the CSV header, in order. Import accepts rows that stop after
// card_list; the missing season, rank and notes cells read as empty.
var Columns = []string{
	"match_id",
	"timestamp_ended",
	"deck_name",
	"opponent",
	"result",
	"cubes",
	"turns",
	"location_1",
	"location_2",
	"location_3",
	"snap_turn_self",
	"snap_turn_opponent",
	"final_snap_state",
	"opponent_revealed_cards",
	"card_list",
	"season",
	"rank",
	"notes",
}

// minColumns is the shortest row import accepts: everything up to card_list.
const minColumns = 15

// Store is the match storage export and import work against.
type Store interface {
	ListMatches(ctx context.Context, filter models.Filter, limit int) ([]*models.Match, error)
	MatchExists(ctx context.Context, matchID string) (bool, error)
	RecordMatch(ctx context.Context, match *models.Match, deck models.DeckInput, events []*models.MatchEvent) (bool, error)
}

// Options holds configuration for export operations.
type Options struct {
	Format     Format
	FilePath   string
	PrettyJSON bool
	Overwrite  bool
	Filter     models.Filter
}

// Exporter writes matches from a Store to a file.
type Exporter struct {
	store Store
	opts  Options
}

// NewExporter creates a new Exporter with the given options.
func NewExporter(store Store, opts Options) *Exporter {
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	return &Exporter{store: store, opts: opts}
}

// Export writes every match admitted by the filter and returns how many were written.
func (e *Exporter) Export(ctx context.Context) (n int, err error) {
	matches, err := e.store.ListMatches(ctx, e.opts.Filter, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list matches: %w", err)
	}

	file, err := e.createFile()
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	switch e.opts.Format {
	case FormatCSV:
		err = writeCSV(file, matches)
	case FormatJSON:
		err = writeJSON(file, matches, e.opts.PrettyJSON)
	default:
		err = fmt.Errorf("unsupported export format: %s", e.opts.Format)
	}
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// createFile creates the output file, handling overwrite settings.
func (e *Exporter) createFile() (*os.File, error) {
	dir := filepath.Dir(e.opts.FilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := os.Stat(e.opts.FilePath); err == nil && !e.opts.Overwrite {
		return nil, fmt.Errorf("file already exists: %s (use overwrite option to replace)", e.opts.FilePath)
	}

	file, err := os.Create(e.opts.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

// ExportMatchesCSV writes the header and one row per match admitted by filter.
func ExportMatchesCSV(ctx context.Context, w io.Writer, store Store, filter models.Filter) (int, error) {
	matches, err := store.ListMatches(ctx, filter, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to list matches: %w", err)
	}
	if err := writeCSV(w, matches); err != nil {
		return 0, err
	}
	return len(matches), nil
}

func writeCSV(w io.Writer, matches []*models.Match) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, m := range matches {
		row, err := matchToRow(m)
		if err != nil {
			return fmt.Errorf("failed to encode match %s: %w", m.MatchID, err)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, matches []*models.Match, pretty bool) error {
	if matches == nil {
		matches = []*models.Match{}
	}
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(matches); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func matchToRow(m *models.Match) ([]string, error) {
	revealed, err := jsonList(m.OpponentRevealed)
	if err != nil {
		return nil, err
	}
	cards, err := jsonList(m.DeckCards)
	if err != nil {
		return nil, err
	}

	cubes := ""
	if m.Cubes != nil {
		cubes = strconv.Itoa(*m.Cubes)
	}

	return []string{
		m.MatchID,
		m.TimestampEnded,
		m.DeckName,
		m.Opponent,
		m.Result,
		cubes,
		strconv.Itoa(m.Turns),
		m.Location1,
		m.Location2,
		m.Location3,
		strconv.Itoa(m.SnapTurnSelf),
		strconv.Itoa(m.SnapTurnOpponent),
		m.FinalSnapState,
		revealed,
		cards,
		m.Season,
		m.Rank,
		m.Notes,
	}, nil
}

func jsonList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Imported int
	Skipped  int
}

// RowError reports a malformed CSV row. Line is 1-based and counts the header.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ErrBadHeader is returned when the first row is not the expected header.
var ErrBadHeader = errors.New("unexpected CSV header")

// ImportMatchesCSV records every row of r whose match id is not yet stored.
// Decks are interned from the card_list column under the deck_name column.
// Import stops at the first malformed row; rows before it stay recorded.
func ImportMatchesCSV(ctx context.Context, r io.Reader, store Store) (ImportResult, error) {
	var res ImportResult

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("failed to read CSV header: %w", err)
	}
	if len(header) < minColumns || header[0] != Columns[0] {
		return res, ErrBadHeader
	}

	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		line++
		if err != nil {
			return res, &RowError{Line: line, Err: err}
		}

		match, deck, err := rowToMatch(row)
		if err != nil {
			return res, &RowError{Line: line, Err: err}
		}

		exists, err := store.MatchExists(ctx, match.MatchID)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}

		recorded, err := store.RecordMatch(ctx, match, deck, nil)
		if err != nil {
			return res, err
		}
		if recorded {
			res.Imported++
		} else {
			res.Skipped++
		}
	}
}

func rowToMatch(row []string) (*models.Match, models.DeckInput, error) {
	if len(row) < minColumns {
		return nil, models.DeckInput{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(row))
	}
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	m := &models.Match{
		MatchID:        cell(0),
		TimestampEnded: cell(1),
		Opponent:       cell(3),
		Result:         cell(4),
		Location1:      cell(7),
		Location2:      cell(8),
		Location3:      cell(9),
		FinalSnapState: cell(12),
		Season:         cell(15),
		Rank:           cell(16),
		Notes:          cell(17),
	}
	if m.MatchID == "" {
		return nil, models.DeckInput{}, errors.New("empty match id")
	}
	if _, err := time.Parse(models.TimeLayout, m.TimestampEnded); err != nil {
		return nil, models.DeckInput{}, fmt.Errorf("invalid timestamp %q: %w", m.TimestampEnded, err)
	}

	if c := cell(5); c != "" {
		v, err := strconv.Atoi(c)
		if err != nil {
			return nil, models.DeckInput{}, fmt.Errorf("invalid cubes %q: %w", c, err)
		}
		m.Cubes = &v
	}

	ints := []struct {
		col int
		dst *int
	}{
		{6, &m.Turns},
		{10, &m.SnapTurnSelf},
		{11, &m.SnapTurnOpponent},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(cell(f.col))
		if err != nil {
			return nil, models.DeckInput{}, fmt.Errorf("invalid %s %q: %w", Columns[f.col], cell(f.col), err)
		}
		*f.dst = v
	}

	if err := json.Unmarshal([]byte(cell(13)), &m.OpponentRevealed); err != nil {
		return nil, models.DeckInput{}, fmt.Errorf("invalid opponent_revealed_cards: %w", err)
	}
	var cards []string
	if err := json.Unmarshal([]byte(cell(14)), &cards); err != nil {
		return nil, models.DeckInput{}, fmt.Errorf("invalid card_list: %w", err)
	}

	return m, models.DeckInput{Cards: cards, Name: cell(2)}, nil
}

// GenerateFilename generates a default filename based on the export type and format.
func GenerateFilename(exportType string, format Format, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", exportType, now.Format("20060102_150405"), format)
}
