package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/snap/deckid"
	"github.com/ramonehamilton/snap-companion/internal/storage"
	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

var cards = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}

func newStore(t *testing.T) *storage.Service {
	t.Helper()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return storage.NewService(storage.NewTestDB(t), storage.WithClock(func() time.Time { return now }))
}

func seed(t *testing.T, store *storage.Service) {
	t.Helper()
	ctx := context.Background()
	cubes := 4
	neg := -1

	matches := []struct {
		match *models.Match
		deck  models.DeckInput
	}{
		{
			match: &models.Match{
				MatchID: "M1", TimestampEnded: "2026-03-10T20:00:00Z", Opponent: "Rival",
				Result: models.ResultWin, Cubes: &cubes, Turns: 6,
				Location1: "Xandar", Location2: "Atlantis", Location3: "Asgard",
				SnapTurnSelf: 4, FinalSnapState: "self",
				OpponentRevealed: []string{"Hulk", "Iron Man"},
				Season: "S12", Rank: "Infinite", Notes: "close one, \"lucky\" top-deck",
			},
			deck: models.DeckInput{Cards: cards, Name: "Letters"},
		},
		{
			match: &models.Match{
				MatchID: "M2", TimestampEnded: "2026-03-11T20:00:00Z", Opponent: "Other",
				Result: models.ResultLoss, Cubes: &neg, Turns: 5,
				Location1: "Ego", FinalSnapState: "none",
			},
			deck: models.DeckInput{Cards: []string{"X", "Y", "Z", "X"}, Name: "Short"},
		},
		{
			match: &models.Match{
				MatchID: "M3", TimestampEnded: "2026-03-12T20:00:00Z", Opponent: "Rival",
				Result: models.ResultWin, Turns: 6, FinalSnapState: "both",
				SnapTurnSelf: 3, SnapTurnOpponent: 5,
			},
			deck: models.DeckInput{Cards: cards, Name: "Letters"},
		},
	}
	for _, m := range matches {
		ok, err := store.RecordMatch(ctx, m.match, m.deck, nil)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestExportMatchesCSV(t *testing.T) {
	store := newStore(t)
	seed(t, store)

	var buf bytes.Buffer
	n, err := ExportMatchesCSV(context.Background(), &buf, store, models.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])

	byID := map[string][]string{}
	for _, row := range rows[1:] {
		require.Len(t, row, len(Columns))
		byID[row[0]] = row
	}

	m1 := byID["M1"]
	assert.Equal(t, "Letters", m1[2])
	assert.Equal(t, "4", m1[5])
	assert.Equal(t, `["Hulk","Iron Man"]`, m1[13])
	assert.Equal(t, `close one, "lucky" top-deck`, m1[17])

	var list []string
	require.NoError(t, json.Unmarshal([]byte(m1[14]), &list))
	assert.Equal(t, cards, list)

	m3 := byID["M3"]
	assert.Empty(t, m3[5], "absent cubes export as an empty cell")
	assert.Equal(t, "[]", m3[13])
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newStore(t)
	seed(t, src)

	var first bytes.Buffer
	_, err := ExportMatchesCSV(ctx, &first, src, models.Filter{})
	require.NoError(t, err)

	dst := newStore(t)
	res, err := ImportMatchesCSV(ctx, bytes.NewReader(first.Bytes()), dst)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Imported: 3}, res)

	var second bytes.Buffer
	_, err = ExportMatchesCSV(ctx, &second, dst, models.Filter{})
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())

	srcDecks, err := src.ListDecks(ctx)
	require.NoError(t, err)
	dstDecks, err := dst.ListDecks(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, fingerprints(srcDecks), fingerprints(dstDecks))
	assert.Contains(t, fingerprints(dstDecks), deckid.Fingerprint(cards))
}

func TestImportSkipsExistingMatches(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	seed(t, store)

	var buf bytes.Buffer
	_, err := ExportMatchesCSV(ctx, &buf, store, models.Filter{})
	require.NoError(t, err)

	res, err := ImportMatchesCSV(ctx, &buf, store)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Skipped: 3}, res)

	matches, err := store.ListMatches(ctx, models.Filter{}, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestImportShortRows(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	data := strings.Join(Columns[:minColumns], ",") + "\n" +
		`M9,2026-03-01T10:00:00Z,Imported,Rival,tie,0,6,a,b,c,0,0,none,[],"[""A"",""B""]"` + "\n"

	res, err := ImportMatchesCSV(ctx, strings.NewReader(data), store)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	m, err := store.GetMatch(ctx, "M9")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Imported", m.DeckName)
	assert.Equal(t, []string{"A", "B"}, m.DeckCards)
	require.NotNil(t, m.Cubes)
	assert.Equal(t, 0, *m.Cubes)
	assert.Empty(t, m.Season)
	assert.Empty(t, m.Notes)
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()
	header := strings.Join(Columns, ",") + "\n"

	tests := []struct {
		name string
		data string
		line int
	}{
		{"bad timestamp", header + "M1,yesterday,D,O,win,1,6,a,b,c,0,0,none,[],[\"A\"],,,\n", 2},
		{"bad cubes", header + "M1,2026-03-01T10:00:00Z,D,O,win,lots,6,a,b,c,0,0,none,[],[\"A\"],,,\n", 2},
		{"bad card list", header + "M1,2026-03-01T10:00:00Z,D,O,win,1,6,a,b,c,0,0,none,[],A,,,\n", 2},
		{"too short", header + "M1,2026-03-01T10:00:00Z,D\n", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportMatchesCSV(ctx, strings.NewReader(tt.data), newStore(t))
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, tt.line, rowErr.Line)
		})
	}

	_, err := ImportMatchesCSV(ctx, strings.NewReader("id,when\n"), newStore(t))
	assert.ErrorIs(t, err, ErrBadHeader)

	res, err := ImportMatchesCSV(ctx, strings.NewReader(""), newStore(t))
	assert.NoError(t, err)
	assert.Zero(t, res)
}

func TestExporterWritesFile(t *testing.T) {
	store := newStore(t)
	seed(t, store)
	path := filepath.Join(t.TempDir(), "out", "matches.json")

	n, err := NewExporter(store, Options{Format: FormatJSON, FilePath: path, PrettyJSON: true}).Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded []models.Match
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 3)

	_, err = NewExporter(store, Options{FilePath: path}).Export(context.Background())
	assert.Error(t, err, "existing files are kept without Overwrite")

	_, err = NewExporter(store, Options{FilePath: path, Overwrite: true}).Export(context.Background())
	assert.NoError(t, err)
}

func TestGenerateFilename(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "matches_20260315_090507.csv", GenerateFilename("matches", FormatCSV, now))
}

func fingerprints(decks []*models.Deck) []string {
	out := make([]string, 0, len(decks))
	for _, d := range decks {
		out = append(out, d.Fingerprint)
	}
	return out
}
