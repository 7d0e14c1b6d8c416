package statereader

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ramonehamilton/snap-companion/internal/snap/deckid"
	"github.com/ramonehamilton/snap-companion/internal/snap/refgraph"
)

// deckContainerPaths are the locations a collection file keeps its decks under.
var deckContainerPaths = [][]string{
	{"Decks"},
	{"ClientState", "Decks"},
	{"ServerState", "Decks"},
	{"ServerState", "PlayerState", "Decks"},
}

// CollectionDeck is a deck the player has built in the client.
type CollectionDeck struct {
	ExternalID  string
	Name        string
	Cards       []string
	Fingerprint string
}

// Collection is an immutable set of decks keyed by external id.
type Collection struct {
	byID          map[string]*CollectionDeck
	byFingerprint map[string]*CollectionDeck
}

// Deck returns the deck with the given external id.
func (c *Collection) Deck(externalID string) (*CollectionDeck, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.byID[externalID]
	return d, ok
}

// ByFingerprint returns a deck with the given card fingerprint.
func (c *Collection) ByFingerprint(fp string) (*CollectionDeck, bool) {
	if c == nil {
		return nil, false
	}
	d, ok := c.byFingerprint[fp]
	return d, ok
}

// Len returns the number of decks.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byID)
}

// Decks returns every deck ordered by external id.
func (c *Collection) Decks() []*CollectionDeck {
	if c == nil {
		return nil
	}
	out := make([]*CollectionDeck, 0, len(c.byID))
	for _, d := range c.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

// ParseCollection extracts decks from a decoded collection document. Entries
// without an id, a name or any cards are skipped.
func ParseCollection(g *refgraph.Graph) *Collection {
	c := &Collection{
		byID:          make(map[string]*CollectionDeck),
		byFingerprint: make(map[string]*CollectionDeck),
	}

	for _, path := range deckContainerPaths {
		decks, ok := g.List(g.Root(), path...)
		if !ok {
			continue
		}
		for _, raw := range decks {
			deck, ok := parseCollectionDeck(g, raw)
			if !ok {
				continue
			}
			if _, dup := c.byID[deck.ExternalID]; dup {
				continue
			}
			c.byID[deck.ExternalID] = deck
			if _, dup := c.byFingerprint[deck.Fingerprint]; !dup {
				c.byFingerprint[deck.Fingerprint] = deck
			}
		}
	}
	return c
}

func parseCollectionDeck(g *refgraph.Graph, raw any) (*CollectionDeck, bool) {
	id, ok := g.String(raw, "Id")
	if !ok || id == "" {
		return nil, false
	}
	name, ok := g.String(raw, "Name")
	if !ok || name == "" {
		return nil, false
	}
	items, ok := g.List(raw, "Cards")
	if !ok {
		return nil, false
	}

	var cards []string
	for _, item := range items {
		if s, ok := refgraph.AsString(item); ok && s != "" {
			cards = append(cards, s)
			continue
		}
		if s, ok := g.String(item, "CardDefId"); ok && s != "" {
			cards = append(cards, s)
		}
	}
	if len(cards) == 0 {
		return nil, false
	}

	return &CollectionDeck{
		ExternalID:  id,
		Name:        name,
		Cards:       cards,
		Fingerprint: deckid.Fingerprint(cards),
	}, true
}

// CollectionCache memoizes the parsed collection file by modification time.
type CollectionCache struct {
	reader *Reader

	mu         sync.Mutex
	path       string
	mtime      time.Time
	collection *Collection
}

// NewCollectionCache creates an empty cache that reads through reader.
func NewCollectionCache(reader *Reader) *CollectionCache {
	if reader == nil {
		reader = NewReader(nil)
	}
	return &CollectionCache{reader: reader}
}

// Load returns the collection at path, reparsing only when the file's
// modification time differs from the cached one. On a failed reparse the
// previous collection is kept and the error returned.
func (c *CollectionCache) Load(ctx context.Context, path string) (*Collection, error) {
	mtime, err := ModTime(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.collection != nil && c.path == path && c.mtime.Equal(mtime) {
		return c.collection, nil
	}

	g, err := c.reader.ReadGraph(ctx, path)
	if err != nil {
		return nil, err
	}
	c.collection = ParseCollection(g)
	c.path = path
	c.mtime = mtime
	return c.collection, nil
}

// Cached returns the last loaded collection without touching the file.
func (c *CollectionCache) Cached() *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection
}
