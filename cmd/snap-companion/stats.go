package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/snap-companion/internal/stats"
	"github.com/ramonehamilton/snap-companion/internal/storage"
	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// filterFlags are the analytics filters shared by stats and export.
type filterFlags struct {
	decks    []string
	season   string
	days     int
	opponent string
	result   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.decks, "deck", nil, "Only matches played with these deck names")
	cmd.Flags().StringVar(&f.season, "season", "", "Only matches from this season")
	cmd.Flags().IntVar(&f.days, "days", 0, "Only matches from the last N days")
	cmd.Flags().StringVar(&f.opponent, "opponent", "", "Only matches against this opponent")
	cmd.Flags().StringVar(&f.result, "result", "", "Only matches with this result (win, loss, tie)")
}

func (f *filterFlags) filter() models.Filter {
	return models.Filter{
		DeckNames: f.decks,
		Season:    f.season,
		Days:      f.days,
		Opponent:  f.opponent,
		Result:    f.result,
	}
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show match statistics",
	}

	cmd.AddCommand(
		statsSubcommand(a, "decks", "Per-deck results", cobra.NoArgs, displayDeckStats),
		statsSubcommand(a, "cards", "Per-card drawn and played breakdown", cobra.NoArgs, displayCardStats),
		statsSubcommand(a, "locations", "Results by location", cobra.NoArgs, displayLocationStats),
		statsSubcommand(a, "matchups", "Results by opponent", cobra.NoArgs, displayMatchups),
		statsSubcommand(a, "matchup <opponent>", "Drill down into one opponent", cobra.ExactArgs(1), displayMatchupDetail),
		statsSubcommand(a, "trends", "Daily results (last 30 days unless --days is set)", cobra.NoArgs, displayTrends),
	)
	return cmd
}

type statsFunc func(ctx context.Context, w io.Writer, store *storage.Service, filter models.Filter, args []string) error

func statsSubcommand(a *app, use, short string, args cobra.PositionalArgs, fn statsFunc) *cobra.Command {
	flags := &filterFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store *storage.Service) error {
				return fn(cmd.Context(), cmd.OutOrStdout(), store, flags.filter(), args)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// displayDeckStats displays per-deck aggregates, a totals row and streaks.
func displayDeckStats(ctx context.Context, w io.Writer, store *storage.Service, filter models.Filter, _ []string) error {
	decks, err := store.GetDeckPerformance(ctx, filter)
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		fmt.Fprintln(w, "No matches recorded.")
		return nil
	}

	fmt.Fprintln(w, "Deck Performance")
	fmt.Fprintln(w, "----------------")
	fmt.Fprintf(w, "%-30s %6s %5s %5s %5s %7s %6s %8s %8s %8s\n",
		"Deck", "Games", "W", "L", "T", "Win%", "Net", "Avg", "Avg/Win", "Avg/Loss")

	row := func(d *models.DeckPerformance) {
		fmt.Fprintf(w, "%-30s %6d %5d %5d %5d %7s %+6d %8s %8s %8s\n",
			truncate(d.DeckName, 30), d.Games, d.Wins, d.Losses, d.Ties,
			stats.FormatPercent(stats.Ratio(d.Wins, d.Games)), d.NetCubes,
			stats.FormatOptional(d.AvgCubes), stats.FormatOptional(d.AvgCubesPerWin), stats.FormatOptional(d.AvgCubesLoss))
	}
	for _, d := range decks {
		row(d)
	}
	totals := stats.Totals(decks)
	fmt.Fprintln(w, strings.Repeat("-", 96))
	row(&totals)
	fmt.Fprintln(w)

	matches, err := store.ListMatches(ctx, filter, 0)
	if err != nil {
		return err
	}
	// Streaks walk oldest to newest.
	for i, j := 0, len(matches)-1; i < j; i, j = i+1, j-1 {
		matches[i], matches[j] = matches[j], matches[i]
	}
	streaks := stats.CalculateStreaks(matches)

	fmt.Fprintln(w, "Streaks")
	fmt.Fprintln(w, "-------")
	fmt.Fprintf(w, "Current: %s\n", stats.FormatCurrentStreak(streaks.CurrentStreak))
	if streaks.LongestWinStreak > 0 {
		fmt.Fprintf(w, "Longest win streak: %d\n", streaks.LongestWinStreak)
	}
	if streaks.LongestLossStreak > 0 {
		fmt.Fprintf(w, "Longest loss streak: %d\n", streaks.LongestLossStreak)
	}
	return nil
}

// displayCardStats displays the counterfactual drawn/played split per card.
func displayCardStats(ctx context.Context, w io.Writer, store *storage.Service, filter models.Filter, _ []string) error {
	cards, err := store.GetCardPerformance(ctx, filter)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Fprintln(w, "No matches recorded.")
		return nil
	}

	fmt.Fprintln(w, "Card Performance")
	fmt.Fprintln(w, "----------------")
	fmt.Fprintf(w, "%-24s %6s | %-17s %-17s %7s | %-17s %-17s %7s\n",
		"Card", "Games", "Drawn", "Not drawn", "ΔDrawn", "Played", "Not played", "ΔPlayed")

	for _, c := range cards {
		fmt.Fprintf(w, "%-24s %6d | %-17s %-17s %7s | %-17s %-17s %7s\n",
			truncate(c.CardID, 24), c.TotalGamesInDeck,
			partition(c.Drawn), partition(c.NotDrawn), stats.FormatDelta(c.DeltaCubesDrawn),
			partition(c.Played), partition(c.NotPlayed), stats.FormatDelta(c.DeltaCubesPlayed))
	}
	return nil
}

// partition renders a split as "games win% avg".
func partition(p models.PartitionStats) string {
	return fmt.Sprintf("%d %s %s", p.Games, stats.FormatPercent(p.WinRate()), stats.FormatOptional(p.AvgCubes()))
}

// displayLocationStats displays results per location id.
func displayLocationStats(ctx context.Context, w io.Writer, store *storage.Service, filter models.Filter, _ []string) error {
	locations, err := store.GetLocationPerformance(ctx, filter)
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		fmt.Fprintln(w, "No matches recorded.")
		return nil
	}

	fmt.Fprintln(w, "Location Performance")
	fmt.Fprintln(w, "--------------------")
	fmt.Fprintf(w, "%-30s %6s %5s %7s %6s %8s\n", "Location", "Games", "W", "Win%", "Net", "Avg")
	for _, l := range locations {
		fmt.Fprintf(w, "%-30s %6d %5d %7s %+6d %8.2f\n",
			truncate(l.LocationID, 30), l.Games, l.Wins,
			stats.FormatPercent(stats.Ratio(l.Wins, l.Games)), l.Cubes, l.AvgCubes())
	}
	return nil
}

// displayMatchups displays results per opponent.
func displayMatchups(ctx context.Context, w io.Writer, store *storage.Service, filter models.Filter, _ []string) error {
	matchups, err := store.GetMatchups(ctx, filter)
	if err != nil {
		return err
	}
	if len(matchups) == 0 {
		fmt.Fprintln(w, "No named opponents recorded.")
		return nil
	}

	fmt.Fprintln(w, "Matchups")
	fmt.Fprintln(w, "--------")
	fmt.Fprintf(w, "%-24s %6s %5s %5s %5s %7s %6s %8s\n", "Opponent", "Games", "W", "L", "T", "Win%", "Net", "Avg")
	for _, m := range matchups {
		fmt.Fprintf(w, "%-24s %6d %5d %5d %5d %7s %+6d %8.2f\n",
			truncate(m.Opponent, 24), m.Games, m.Wins, m.Losses, m.Ties,
			stats.FormatPercent(stats.Ratio(m.Wins, m.Games)), m.NetCubes, m.AvgCubes)
	}
	return nil
}

// displayMatchupDetail displays one opponent's summary and revealed cards.
func displayMatchupDetail(ctx context.Context, w io.Writer, store *storage.Service, filter models.Filter, args []string) error {
	detail, err := store.GetMatchupDetail(ctx, args[0], filter)
	if err != nil {
		return err
	}
	s := detail.Summary
	if s.Games == 0 {
		fmt.Fprintf(w, "No matches against %s.\n", args[0])
		return nil
	}

	fmt.Fprintf(w, "Matchup: %s\n", s.Opponent)
	fmt.Fprintln(w, strings.Repeat("-", len(s.Opponent)+9))
	fmt.Fprintf(w, "Record: %d-%d-%d (%s)\n", s.Wins, s.Losses, s.Ties, stats.FormatPercent(stats.Ratio(s.Wins, s.Games)))
	fmt.Fprintf(w, "Net cubes: %+d (avg %.2f)\n", s.NetCubes, s.AvgCubes)

	if len(detail.TopRevealed) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Revealed cards (%d matches with reveals)\n", detail.MatchesWithReveals)
	for _, c := range detail.TopRevealed {
		fmt.Fprintf(w, "  %-24s %4d %6.1f%%\n", truncate(c.CardID, 24), c.Count, c.Rate*100)
	}
	return nil
}

// displayTrends displays daily buckets with a running cube total.
func displayTrends(ctx context.Context, w io.Writer, store *storage.Service, filter models.Filter, _ []string) error {
	points, err := store.GetDailyTrends(ctx, filter)
	if err != nil {
		return err
	}
	if len(points) == 0 {
		fmt.Fprintln(w, "No matches in the selected window.")
		return nil
	}

	fmt.Fprintln(w, "Daily Trends")
	fmt.Fprintln(w, "------------")
	fmt.Fprintf(w, "%-10s %7s %5s %7s %6s %10s\n", "Day", "Matches", "W", "Win%", "Net", "Cumulative")
	for _, p := range stats.Cumulative(points) {
		fmt.Fprintf(w, "%-10s %7d %5d %7s %+6d %+10d\n",
			p.Day, p.Matches, p.Wins, stats.FormatPercent(stats.Ratio(p.Wins, p.Matches)), p.NetCubes, p.CumulativeCubes)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
