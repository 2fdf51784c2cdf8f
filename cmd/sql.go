package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/report"
	"github.com/pable/go-cs-coach/internal/storage"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the results archive",
	Long: `Run an arbitrary SQL query against the results archive and print results as a table.

Schema overview:
  analyses(analysis_id, demo_hash, map_name, match_date, tick_rate, rounds_played,
    t_score, ct_score, mistakes, created_at, result_json)
  ratings(analysis_id, steam_id TEXT, name, squad, role, raw_impact, percentile,
    final, wpa, trade_potential)
  role_assignments(analysis_id, steam_id TEXT, round_number, role, confidence,
    evidence_count, demoted_from)   -- round_number 0 is the match-level role
  mistakes(analysis_id, seq, round_number, tick, steam_id TEXT, type, severity,
    label, wpa_loss, detail)
  rule_applications(analysis_id, steam_id TEXT, seq, rule, kind, value, before, after)

Note: steam_id is stored as TEXT. Use quotes: WHERE steam_id = '76561198031906602'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := storage.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	report.PrintRows(os.Stdout, cols, rows)
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
