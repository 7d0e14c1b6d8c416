// Package deckid derives stable identities and display names for decklists.
package deckid

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MinDeckSize and MaxDeckSize bound a plausible decklist.
const (
	MinDeckSize = 10
	MaxDeckSize = 15
)

// CardNamer maps a card definition id to a display name.
type CardNamer func(cardID string) string

// UniqueSorted returns the sorted set of card ids with empty ids dropped.
func UniqueSorted(cardIDs []string) []string {
	seen := make(map[string]struct{}, len(cardIDs))
	out := make([]string, 0, len(cardIDs))
	for _, id := range cardIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Fingerprint is the hex SHA-256 of the compact JSON encoding of the sorted,
// deduplicated card list. Order and multiplicity of the input do not matter.
func Fingerprint(cardIDs []string) string {
	unique := UniqueSorted(cardIDs)
	data, err := json.Marshal(unique)
	if err != nil {
		// []string always marshals
		panic(fmt.Sprintf("marshal card ids: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PlausibleSize reports whether a decklist has a size the game allows.
func PlausibleSize(cardIDs []string) bool {
	n := len(cardIDs)
	return n >= MinDeckSize && n <= MaxDeckSize
}

// SynthesizeName builds "Deck with A, B, C" from the first three unique cards
// in list order.
func SynthesizeName(cardIDs []string, namer CardNamer) string {
	if namer == nil {
		namer = HumanizeCardID
	}

	names := make([]string, 0, 3)
	seen := make(map[string]struct{})
	for _, id := range cardIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		names = append(names, namer(id))
		if len(names) == 3 {
			break
		}
	}

	if len(names) == 0 {
		return "Unnamed Deck"
	}
	return "Deck with " + strings.Join(names, ", ")
}

var titleCaser = cases.Title(language.English, cases.NoLower)

// HumanizeCardID turns a definition id such as "IronMan" or "ant_man" into
// "Iron Man" / "Ant Man".
func HumanizeCardID(cardID string) string {
	var b strings.Builder
	runes := []rune(cardID)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
			continue
		case i > 0 && unicode.IsUpper(r) && !unicode.IsUpper(runes[i-1]) && runes[i-1] != '_' && runes[i-1] != '-':
			b.WriteRune(' ')
		case i > 0 && unicode.IsDigit(r) && !unicode.IsDigit(runes[i-1]):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return titleCaser.String(strings.Join(strings.Fields(b.String()), " "))
}
