package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/storage"
)

var showPlayerID uint64

var showCmd = &cobra.Command{
	Use:   "show <hash-prefix>",
	Short: "Show a stored analysis by demo hash or analysis id prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().Uint64Var(&showPlayerID, "player", 0, "focus player SteamID64")
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	a, err := db.GetAnalysisByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query analysis: %w", err)
	}
	if a == nil {
		fmt.Fprintf(os.Stderr, "No analysis found with prefix %q\n", prefix)
		return nil
	}

	res, err := db.LoadResult(a.ID)
	if err != nil {
		return fmt.Errorf("load result: %w", err)
	}
	if res == nil {
		return fmt.Errorf("analysis %s has no stored result", a.ID)
	}

	printResult(res, model.PlayerID(showPlayerID))
	return nil
}
