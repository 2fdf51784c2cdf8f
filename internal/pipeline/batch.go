package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pable/go-cs-coach/internal/model"
)

// Job is one match to load and analyse.
type Job struct {
	Name string
	Load func(ctx context.Context) (model.MatchInput, error)
}

// JobResult is the outcome of one Job. Exactly one of Result and Err is set.
type JobResult struct {
	Name   string
	Result *model.MatchResult
	Err    error
}

// AnalyzeMany runs jobs with at most limit in flight and returns results in job order.
// A failed match does not stop the others; cancelling ctx does.
func (a *Analyzer) AnalyzeMany(ctx context.Context, jobs []Job, limit int) []JobResult {
	if limit < 1 {
		limit = 1
	}
	out := make([]JobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		out[i].Name = job.Name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = fmt.Errorf("%s: %w", job.Name, err)
				return nil
			}
			in, err := job.Load(gctx)
			if err != nil {
				out[i].Err = fmt.Errorf("load %s: %w", job.Name, err)
				return nil
			}
			res, err := a.Analyze(gctx, in)
			if err != nil {
				out[i].Err = fmt.Errorf("%s: %w", job.Name, err)
				return nil
			}
			out[i].Result = res
			return nil
		})
	}
	_ = g.Wait()
	return out
}
