package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/report"
	"github.com/pable/go-cs-coach/internal/storage"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored analyses",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	list, err := db.ListAnalyses()
	if err != nil {
		return fmt.Errorf("list analyses: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(os.Stdout, "No analyses stored yet. Run 'cscoach analyze <demo.dem>' to add one.")
		return nil
	}

	report.PrintAnalysisList(os.Stdout, list, time.Now())
	return nil
}
