package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/report"
	"github.com/pable/go-cs-coach/internal/storage"
)

// playerCmd prints the archived rating history of one or more players.
var playerCmd = &cobra.Command{
	Use:   "player <steamid64> [<steamid64>...]",
	Short: "Rating history of one or more players across stored analyses",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlayer,
}

func runPlayer(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SteamID64 %q: %w", arg, err)
		}
		rows, err := db.PlayerRatings(id)
		if err != nil {
			return fmt.Errorf("query ratings for %d: %w", id, err)
		}
		if len(rows) == 0 {
			fmt.Fprintf(os.Stderr, "No data found for SteamID64 %d\n", id)
			continue
		}
		report.PrintRatingHistory(os.Stdout, rows)
	}
	return nil
}
