package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// DeckRepository handles database operations for decks.
type DeckRepository interface {
	// Create inserts a new deck and sets deck.ID.
	Create(ctx context.Context, deck *models.Deck) error

	// Update writes name, external id, tags and last-used back to an existing deck.
	Update(ctx context.Context, deck *models.Deck) error

	// GetByID retrieves a deck by its internal id. Returns nil if not found.
	GetByID(ctx context.Context, id int64) (*models.Deck, error)

	// GetByFingerprint retrieves a deck by fingerprint. Returns nil if not found.
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.Deck, error)

	// List retrieves all decks, most recently used first.
	List(ctx context.Context) ([]*models.Deck, error)

	// SetTags replaces the tags of a deck.
	SetTags(ctx context.Context, id int64, tags []string) error
}

type deckRepository struct {
	db Querier
}

// NewDeckRepository creates a new deck repository.
func NewDeckRepository(db Querier) DeckRepository {
	return &deckRepository{db: db}
}

const deckColumns = `id, name, card_list, fingerprint, external_id, first_seen, last_used, tags`

func (r *deckRepository) Create(ctx context.Context, deck *models.Deck) error {
	cards, err := encodeStrings(deck.Cards)
	if err != nil {
		return err
	}
	tags, err := encodeTags(deck.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO decks (name, card_list, fingerprint, external_id, first_seen, last_used, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		deck.Name,
		cards,
		deck.Fingerprint,
		deck.ExternalID,
		deck.FirstSeen,
		deck.LastUsed,
		tags,
	)
	if err != nil {
		return fmt.Errorf("failed to create deck: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get deck id: %w", err)
	}
	deck.ID = id
	return nil
}

func (r *deckRepository) Update(ctx context.Context, deck *models.Deck) error {
	tags, err := encodeTags(deck.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE decks
		SET name = ?, external_id = ?, tags = ?, last_used = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, query,
		deck.Name,
		deck.ExternalID,
		tags,
		deck.LastUsed,
		deck.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
	}
	return nil
}

func (r *deckRepository) GetByID(ctx context.Context, id int64) (*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks WHERE id = ?`
	return r.getOne(ctx, query, id)
}

func (r *deckRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks WHERE fingerprint = ?`
	return r.getOne(ctx, query, fingerprint)
}

func (r *deckRepository) getOne(ctx context.Context, query string, arg any) (*models.Deck, error) {
	deck, err := scanDeck(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deck: %w", err)
	}
	return deck, nil
}

func (r *deckRepository) List(ctx context.Context) ([]*models.Deck, error) {
	query := `SELECT ` + deckColumns + ` FROM decks ORDER BY last_used DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer closeRows(rows)

	var decks []*models.Deck
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		decks = append(decks, deck)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decks: %w", err)
	}
	return decks, nil
}

func (r *deckRepository) SetTags(ctx context.Context, id int64, tags []string) error {
	encoded, err := encodeTags(tags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `UPDATE decks SET tags = ? WHERE id = ?`, encoded, id)
	if err != nil {
		return fmt.Errorf("failed to set deck tags: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set deck tags: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deck %d not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*models.Deck, error) {
	deck := &models.Deck{}
	var cards, tags, externalID sql.NullString

	if err := row.Scan(
		&deck.ID,
		&deck.Name,
		&cards,
		&deck.Fingerprint,
		&externalID,
		&deck.FirstSeen,
		&deck.LastUsed,
		&tags,
	); err != nil {
		return nil, err
	}

	var err error
	if deck.Cards, err = decodeStrings(cards); err != nil {
		return nil, err
	}
	if deck.Tags, err = decodeStrings(tags); err != nil {
		return nil, err
	}
	if externalID.Valid {
		deck.ExternalID = &externalID.String
	}
	return deck, nil
}

// encodeTags stores an empty tag list as NULL.
func encodeTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	return encodeStrings(tags)
}
