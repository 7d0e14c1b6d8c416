package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

func TestDeckRepository_CreateAndGet(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDeckRepository(db)
	ctx := context.Background()

	ext := "deck-ext-1"
	deck := &models.Deck{
		Name:        "Ongoing",
		Cards:       []string{"Wolverine", "Shang-Chi", "Wolverine"},
		Fingerprint: "abc123",
		ExternalID:  &ext,
		FirstSeen:   "2026-01-01T00:00:00Z",
		LastUsed:    "2026-01-01T00:00:00Z",
		Tags:        []string{models.TagAutoGenerated},
	}
	require.NoError(t, repo.Create(ctx, deck))
	assert.NotZero(t, deck.ID)

	got, err := repo.GetByFingerprint(ctx, "abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, deck.ID, got.ID)
	assert.Equal(t, []string{"Wolverine", "Shang-Chi", "Wolverine"}, got.Cards, "card list preserves multiplicity")
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "deck-ext-1", *got.ExternalID)
	assert.Equal(t, []string{models.TagAutoGenerated}, got.Tags)

	byID, err := repo.GetByID(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ongoing", byID.Name)
}

func TestDeckRepository_GetMissing(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDeckRepository(db)

	got, err := repo.GetByFingerprint(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDeckRepository_UniqueFingerprint(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDeckRepository(db)
	ctx := context.Background()

	first := &models.Deck{Name: "A", Cards: []string{"X"}, Fingerprint: "same", FirstSeen: "t", LastUsed: "t"}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Deck{Name: "B", Cards: []string{"X"}, Fingerprint: "same", FirstSeen: "t", LastUsed: "t"}
	assert.Error(t, repo.Create(ctx, second))
}

func TestDeckRepository_UpdateAndTags(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDeckRepository(db)
	ctx := context.Background()

	deck := &models.Deck{Name: "Old", Cards: []string{"X"}, Fingerprint: "fp", FirstSeen: "t1", LastUsed: "t1"}
	require.NoError(t, repo.Create(ctx, deck))

	deck.Name = "New"
	deck.LastUsed = "t2"
	require.NoError(t, repo.Update(ctx, deck))

	require.NoError(t, repo.SetTags(ctx, deck.ID, []string{"ladder", "ongoing"}))

	got, err := repo.GetByID(ctx, deck.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "t1", got.FirstSeen)
	assert.Equal(t, "t2", got.LastUsed)
	assert.Equal(t, []string{"ladder", "ongoing"}, got.Tags)

	assert.Error(t, repo.SetTags(ctx, 999, []string{"x"}))
}

func TestDeckRepository_List(t *testing.T) {
	db := setupRepoTestDB(t)
	repo := NewDeckRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Deck{Name: "Older", Cards: []string{"A"}, Fingerprint: "1", FirstSeen: "2026-01-01T00:00:00Z", LastUsed: "2026-01-01T00:00:00Z"}))
	require.NoError(t, repo.Create(ctx, &models.Deck{Name: "Newer", Cards: []string{"B"}, Fingerprint: "2", FirstSeen: "2026-01-02T00:00:00Z", LastUsed: "2026-01-02T00:00:00Z"}))

	decks, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, decks, 2)
	assert.Equal(t, "Newer", decks[0].Name)
	assert.Equal(t, "Older", decks[1].Name)
}
