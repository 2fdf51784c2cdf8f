package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/storage"
)

var (
	dropAll   bool
	dropForce bool
)

// dropCmd deletes one archived analysis, or all of them.
var dropCmd = &cobra.Command{
	Use:   "drop <hash-prefix> | --all",
	Short: "Delete stored analyses",
	Long:  "Delete one archived analysis by demo hash or analysis id prefix, or every analysis with --all. Re-run analyze afterwards to rebuild.",
	Args: func(cmd *cobra.Command, args []string) error {
		if dropAll {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVar(&dropAll, "all", false, "delete every stored analysis")
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt for --all")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if dropAll && !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete every analysis in: %s\n", dbPath)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	if dropAll {
		n, err := db.DeleteAll()
		if err != nil {
			return fmt.Errorf("delete analyses: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Deleted %d analyses.\n", n)
		return nil
	}

	a, err := db.GetAnalysisByPrefix(args[0])
	if err != nil {
		return fmt.Errorf("query analysis: %w", err)
	}
	if a == nil {
		fmt.Fprintf(os.Stderr, "No analysis found with prefix %q\n", args[0])
		return nil
	}
	if _, err := db.DeleteAnalysis(a.ID); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s (%s)\n", a.ID, a.MapName)
	return nil
}
