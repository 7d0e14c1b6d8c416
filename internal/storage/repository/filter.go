package repository

import (
	"strings"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// buildFilter turns an analytics filter into a WHERE clause over matches
// aliased m joined to decks aliased d. The clause always starts with "WHERE".
func buildFilter(f models.Filter) (string, []any) {
	conds := []string{"1=1"}
	var args []any

	if len(f.DeckNames) > 0 {
		placeholders := make([]string, len(f.DeckNames))
		for i, name := range f.DeckNames {
			placeholders[i] = "?"
			args = append(args, name)
		}
		conds = append(conds, "d.name IN ("+strings.Join(placeholders, ", ")+")")
	}

	if f.Season != "" && f.Season != models.AllSeasons {
		conds = append(conds, "m.season = ?")
		args = append(args, f.Season)
	}

	if cutoff := f.Cutoff(); cutoff != "" {
		conds = append(conds, "m.timestamp_ended >= ?")
		args = append(args, cutoff)
	}

	if f.Opponent != "" {
		conds = append(conds, "m.opponent = ?")
		args = append(args, f.Opponent)
	}

	if f.Result != "" {
		conds = append(conds, "m.result = ?")
		args = append(args, f.Result)
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}
