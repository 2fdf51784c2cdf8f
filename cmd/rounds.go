package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/report"
	"github.com/pable/go-cs-coach/internal/storage"
)

// roundsCmd is the cobra command for the per-round drill-down of one stored match.
var roundsCmd = &cobra.Command{
	Use:   "rounds <hash-prefix> [<steamid64>]",
	Short: "Per-round predictions, and optionally one player's round roles",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runRounds,
}

func runRounds(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	a, err := db.GetAnalysisByPrefix(args[0])
	if err != nil {
		return fmt.Errorf("query analysis: %w", err)
	}
	if a == nil {
		fmt.Fprintf(os.Stderr, "No analysis found with prefix %q\n", args[0])
		return nil
	}
	res, err := db.LoadResult(a.ID)
	if err != nil {
		return fmt.Errorf("load result: %w", err)
	}
	if res == nil {
		return fmt.Errorf("analysis %s has no stored result", a.ID)
	}

	report.PrintMatchSummary(os.Stdout, res)
	report.PrintRoundTable(os.Stdout, res)

	if len(args) == 2 {
		id, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SteamID64 %q: %w", args[1], err)
		}
		p, ok := res.Players[strconv.FormatUint(id, 10)]
		if !ok {
			fmt.Fprintf(os.Stderr, "Player %d did not play this match\n", id)
			return nil
		}
		report.PrintRoundRoles(os.Stdout, p)
	}
	return nil
}
