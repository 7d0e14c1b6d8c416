package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/snap/statereader"
)

func cardsOf(ids ...string) []statereader.Card {
	out := make([]statereader.Card, len(ids))
	for i, id := range ids {
		out[i] = statereader.Card{DefID: id}
	}
	return out
}

func TestProject(t *testing.T) {
	snap := &statereader.Snapshot{
		Local: &statereader.Player{
			Hand:      cardsOf("A", "B"),
			Graveyard: cardsOf("C"),
			Banished:  cardsOf("Z"),
		},
		Locations: []statereader.Location{
			{SelfCards: cardsOf("D"), OpponentCards: cardsOf("E")},
			{SelfCards: cardsOf("A")},
		},
	}

	p := Project([]string{"A", "B", "C", "D", "E", "F"}, snap)
	require.NotNil(t, p)
	assert.Equal(t, map[string]int{"E": 1, "F": 1}, p.Remaining, "opponent cards do not leave the local deck")
	assert.Equal(t, map[string]int{"A": 1, "Z": 1}, p.Unexpected)
	assert.Equal(t, 2, p.Total())
	assert.Equal(t, []string{"E", "F"}, p.Cards())
	for _, n := range p.Remaining {
		assert.Positive(t, n)
	}
}

func TestProjectWithoutDeck(t *testing.T) {
	assert.Nil(t, Project(nil, &statereader.Snapshot{Local: &statereader.Player{}}))
	assert.Nil(t, Project([]string{"A"}, &statereader.Snapshot{}))

	var p *Projection
	assert.Equal(t, 0, p.Total())
	assert.Nil(t, p.Cards())
}
