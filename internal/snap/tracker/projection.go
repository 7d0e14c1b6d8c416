package tracker

import (
	"sort"

	"github.com/ramonehamilton/snap-companion/internal/snap/statereader"
)

// Projection is the multiset of cards still expected in the local deck.
type Projection struct {
	Remaining map[string]int
	// Unexpected counts cards seen in a zone but absent from the initial
	// deck, or seen more often than the deck holds them.
	Unexpected map[string]int
}

// Project subtracts every card visible in hand, on the local side of the
// board, in the graveyard and banished from the initial deck. It returns nil
// when there is no initial deck or no local player.
func Project(initial []string, snap *statereader.Snapshot) *Projection {
	if len(initial) == 0 || snap == nil || snap.Local == nil {
		return nil
	}

	p := &Projection{
		Remaining:  make(map[string]int, len(initial)),
		Unexpected: make(map[string]int),
	}
	for _, id := range initial {
		p.Remaining[id]++
	}

	take := func(cards []statereader.Card) {
		for _, c := range cards {
			if c.DefID == "" {
				continue
			}
			if p.Remaining[c.DefID] > 0 {
				p.Remaining[c.DefID]--
				if p.Remaining[c.DefID] == 0 {
					delete(p.Remaining, c.DefID)
				}
				continue
			}
			p.Unexpected[c.DefID]++
		}
	}

	take(snap.Local.Hand)
	for _, loc := range snap.Locations {
		take(loc.SelfCards)
	}
	take(snap.Local.Graveyard)
	take(snap.Local.Banished)
	return p
}

// Total returns the number of cards remaining.
func (p *Projection) Total() int {
	if p == nil {
		return 0
	}
	n := 0
	for _, c := range p.Remaining {
		n += c
	}
	return n
}

// Cards returns the remaining card ids in sorted order, one entry per copy.
func (p *Projection) Cards() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Remaining))
	for id, n := range p.Remaining {
		for i := 0; i < n; i++ {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
