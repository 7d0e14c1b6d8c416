package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/snap-companion/internal/storage"
)

func newMatchesCmd(a *app) *cobra.Command {
	flags := &filterFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:   "matches",
		Short: "List recorded matches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.Service) error {
				matches, err := store.ListMatches(cmd.Context(), flags.filter(), limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(matches) == 0 {
					fmt.Fprintln(w, "No matches recorded.")
					return nil
				}

				fmt.Fprintf(w, "%-20s %-20s %-24s %-18s %-6s %5s %5s %-8s\n",
					"Ended", "Match", "Deck", "Opponent", "Result", "Cubes", "Turns", "Snap")
				for _, m := range matches {
					cubes := "?"
					if m.Cubes != nil {
						cubes = fmt.Sprintf("%+d", *m.Cubes)
					}
					fmt.Fprintf(w, "%-20s %-20s %-24s %-18s %-6s %5s %5d %-8s\n",
						m.TimestampEnded, truncate(m.MatchID, 20), truncate(m.DeckName, 24), truncate(m.Opponent, 18),
						m.Result, cubes, m.Turns, m.FinalSnapState)
					if m.Notes != "" {
						fmt.Fprintf(w, "    note: %s\n", m.Notes)
					}
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum matches to list (0 for all)")
	return cmd
}

func newNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "note <match-id> <text>",
		Short: "Set the notes of a match",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.Service) error {
				if err := store.UpdateNotes(cmd.Context(), args[0], strings.Join(args[1:], " ")); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Notes updated for %s\n", args[0])
				return nil
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <match-id>",
		Short: "Delete a match and its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.Service) error {
				if err := store.DeleteMatch(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newDecksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decks",
		Short: "List stored decks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.Service) error {
				decks, err := store.ListDecks(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "%5s %-30s %5s %-20s %s\n", "ID", "Name", "Cards", "Last used", "Tags")
				for _, d := range decks {
					fmt.Fprintf(w, "%5d %-30s %5d %-20s %s\n",
						d.ID, truncate(d.Name, 30), len(d.Cards), d.LastUsed, strings.Join(d.Tags, ","))
				}
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "tag <deck-id> [tag...]",
		Short: "Replace a deck's tags (no tags clears them)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid deck id %q: %w", args[0], err)
			}
			return a.withStore(func(store *storage.Service) error {
				if err := store.SetDeckTags(cmd.Context(), id, args[1:]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Tags updated for deck %d\n", id)
				return nil
			})
		},
	})
	return cmd
}
