package statereader

import (
	"context"

	"github.com/ramonehamilton/snap-companion/internal/snap/refgraph"
)

// SelectedDeckID extracts SelectedDeckId.Value from a decoded play-state
// document. A bare string at SelectedDeckId is accepted as well.
func SelectedDeckID(g *refgraph.Graph) (string, bool) {
	if id, ok := g.String(g.Root(), "SelectedDeckId", "Value"); ok && id != "" {
		return id, true
	}
	if id, ok := g.String(g.Root(), "SelectedDeckId"); ok && id != "" {
		return id, true
	}
	return "", false
}

// ReadSelectedDeckID reads the play-state file at path and returns the
// external id of the deck the player has selected.
func (r *Reader) ReadSelectedDeckID(ctx context.Context, path string) (string, bool, error) {
	g, err := r.ReadGraph(ctx, path)
	if err != nil {
		return "", false, err
	}
	id, ok := SelectedDeckID(g)
	return id, ok, nil
}
