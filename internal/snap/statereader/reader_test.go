package statereader

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/snap/statereader/statetest"
)

func TestReadGraph(t *testing.T) {
	dir := t.TempDir()
	path := statetest.WriteFile(t, dir, GameStateFile, []byte(`{"A": {"$id": "1", "B": 2}, "C": {"$ref": "1"}}`))

	r := NewReader(&ReaderConfig{Retries: 3, Backoff: time.Millisecond})
	g, err := r.ReadGraph(context.Background(), path)
	require.NoError(t, err)

	n, ok := g.Int(g.Root(), "C", "B")
	require.True(t, ok)
	assert.Equal(t, 2, n)
}

func TestReadGraphMissingFile(t *testing.T) {
	r := NewReader(nil)
	_, err := r.ReadGraph(context.Background(), filepath.Join(t.TempDir(), GameStateFile))
	assert.True(t, errors.Is(err, ErrStateFileNotFound))
}

func TestReadGraphTornWrite(t *testing.T) {
	dir := t.TempDir()
	path := statetest.WriteFile(t, dir, GameStateFile, []byte(`{"RemoteGame": {"GameState": {`))

	r := NewReader(&ReaderConfig{Retries: 3, Backoff: time.Millisecond})
	_, err := r.ReadGraph(context.Background(), path)

	var readErr *ReadError
	require.True(t, errors.As(err, &readErr), "got %v", err)
	assert.Equal(t, 3, readErr.Attempts)
	assert.Equal(t, path, readErr.Path)
}

func TestReadGraphCancelledBetweenRetries(t *testing.T) {
	dir := t.TempDir()
	path := statetest.WriteFile(t, dir, GameStateFile, []byte(`not json`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(&ReaderConfig{Retries: 3, Backoff: time.Hour})
	_, err := r.ReadGraph(ctx, path)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadSelectedDeckID(t *testing.T) {
	dir := t.TempDir()
	r := NewReader(nil)

	path := statetest.WriteFile(t, dir, PlayStateFile, statetest.PlayState("deck-7"))
	id, ok, err := r.ReadSelectedDeckID(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "deck-7", id)

	bare := statetest.WriteFile(t, dir, "bare.json", []byte(`{"SelectedDeckId": "deck-8"}`))
	id, ok, err = r.ReadSelectedDeckID(context.Background(), bare)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "deck-8", id)

	none := statetest.WriteFile(t, dir, "none.json", []byte(`{}`))
	_, ok, err = r.ReadSelectedDeckID(context.Background(), none)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShapeErrors(t *testing.T) {
	assert.NoError(t, ShapeErrors(nil))

	err := ShapeErrors([]string{"A.B", "C"})
	var shape *ShapeError
	require.True(t, errors.As(err, &shape))
	assert.Equal(t, "A.B", shape.Path)
	assert.Contains(t, err.Error(), "missing field path C")
}
