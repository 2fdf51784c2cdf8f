package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-coach/internal/metrics"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/parser"
	"github.com/pable/go-cs-coach/internal/pipeline"
	"github.com/pable/go-cs-coach/internal/report"
	"github.com/pable/go-cs-coach/internal/schema"
	"github.com/pable/go-cs-coach/internal/storage"
)

var (
	analyzeParallel    int
	analyzeJSONOut     string
	analyzeNoStore     bool
	analyzeValidate    bool
	analyzeMetricsFile string
	analyzePlayerID    uint64
	analyzeSample      float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <demo.dem|events.json>...",
	Short: "Analyse one or more matches and store the results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeParallel, "parallel", "j", 1, "matches analysed concurrently")
	analyzeCmd.Flags().StringVar(&analyzeJSONOut, "json-out", "", "write results as JSON to this file, or into this directory when it exists")
	analyzeCmd.Flags().BoolVar(&analyzeNoStore, "no-store", false, "do not archive results in the database")
	analyzeCmd.Flags().BoolVar(&analyzeValidate, "validate", false, "validate each result against the embedded JSON Schema")
	analyzeCmd.Flags().StringVar(&analyzeMetricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format")
	analyzeCmd.Flags().Uint64Var(&analyzePlayerID, "player", 0, "focus player SteamID64")
	analyzeCmd.Flags().Float64Var(&analyzeSample, "sample-seconds", 1, "position sampling interval for .dem input")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeJSONOut != "" && len(args) > 1 && !isDir(analyzeJSONOut) {
		return fmt.Errorf("--json-out must be an existing directory when analysing %d matches", len(args))
	}

	var db *storage.DB
	if !analyzeNoStore {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return fmt.Errorf("create db dir: %w", err)
		}
		var err error
		db, err = storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer db.Close()
	}

	m := metrics.New()
	analyzer := pipeline.New(cfg, pipeline.WithLogger(logger), pipeline.WithMetrics(m))

	opts := parser.Options{SampleSeconds: analyzeSample}
	jobs := make([]pipeline.Job, len(args))
	for i, path := range args {
		jobs[i] = pipeline.Job{
			Name: path,
			Load: func(ctx context.Context) (model.MatchInput, error) {
				logger.Info("Loading match", "path", path)
				return parser.Load(ctx, path, opts)
			},
		}
	}

	results := analyzer.AnalyzeMany(cmd.Context(), jobs, analyzeParallel)

	var failed []error
	for _, jr := range results {
		if jr.Err != nil {
			logger.Error("Analysis failed", "path", jr.Name, "error", jr.Err)
			failed = append(failed, jr.Err)
			continue
		}
		if err := handleResult(db, jr); err != nil {
			failed = append(failed, err)
		}
	}

	if analyzeMetricsFile != "" {
		if err := m.WriteTextfile(analyzeMetricsFile); err != nil {
			failed = append(failed, err)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d matches failed: %w", len(failed), len(args), errors.Join(failed...))
	}
	return nil
}

func handleResult(db *storage.DB, jr pipeline.JobResult) error {
	res := jr.Result

	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", jr.Name, err)
	}
	if analyzeValidate {
		if err := schema.Validate(raw); err != nil {
			return fmt.Errorf("%s: %w", jr.Name, err)
		}
	}
	if analyzeJSONOut != "" {
		out := jsonOutPath(analyzeJSONOut, jr.Name)
		if err := os.WriteFile(out, append(raw, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		logger.Info("Wrote result", "path", out)
	}
	if db != nil {
		if err := db.InsertResult(res, time.Now()); err != nil {
			return fmt.Errorf("store %s: %w", jr.Name, err)
		}
	}

	printResult(res, model.PlayerID(analyzePlayerID))
	return nil
}

// printResult renders every table of a result to stdout.
func printResult(res *model.MatchResult, focus model.PlayerID) {
	report.PrintMatchSummary(os.Stdout, res)
	report.PrintPlayerTable(os.Stdout, res, focus)
	fmt.Fprintln(os.Stdout)
	report.PrintMistakeSummary(os.Stdout, res)
	fmt.Fprintln(os.Stdout)
	report.PrintMistakeTable(os.Stdout, res, focus)
	fmt.Fprintln(os.Stdout)
	report.PrintFeedback(os.Stdout, res, focus)
	fmt.Fprintln(os.Stdout)
	report.PrintRoundTable(os.Stdout, res)

	if focus != 0 {
		p, ok := res.Players[strconv.FormatUint(uint64(focus), 10)]
		if !ok {
			fmt.Fprintf(os.Stderr, "Player %d did not play this match\n", focus)
			return
		}
		report.PrintRuleTable(os.Stdout, p)
	}
}

func jsonOutPath(out, input string) string {
	if !isDir(out) {
		return out
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(out, base+".result.json")
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
