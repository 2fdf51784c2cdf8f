// Package pipeline runs the analysis stages for one match and assembles the result.
//
// Stages run sequentially because each consumes the frozen output of its predecessor.
// Analyses of different matches share nothing and may run in parallel.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/pable/go-cs-coach/internal/aggregator"
	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/errs"
	"github.com/pable/go-cs-coach/internal/features"
	"github.com/pable/go-cs-coach/internal/feedback"
	"github.com/pable/go-cs-coach/internal/metrics"
	"github.com/pable/go-cs-coach/internal/mistakes"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/normalize"
	"github.com/pable/go-cs-coach/internal/predict"
	"github.com/pable/go-cs-coach/internal/roles"
	"github.com/pable/go-cs-coach/internal/scoring"
)

// analysisNamespace seeds the name-based analysis ids.
var analysisNamespace = uuid.MustParse("6f1c2b8e-3d4a-5e6f-9a0b-1c2d3e4f5a6b")

// Analyzer runs the pipeline with one frozen configuration.
type Analyzer struct {
	cfg         *config.Config
	fingerprint string
	log         *slog.Logger
	metrics     *metrics.Manager
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithMetrics records stage timings and outcomes on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New creates an Analyzer. cfg must already be validated.
func New(cfg *config.Config, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, fingerprint: cfg.Fingerprint(), log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// run is the per-match accumulator threaded through the stages.
type run struct {
	in       model.MatchInput
	match    *normalize.Match
	fr       *features.Result
	players  []model.PlayerMatchFeatures
	roles    *roles.Result
	mistakes []model.Mistake
	feedback map[model.PlayerID]model.PlayerFeedback
	ratings  map[model.PlayerID]model.Rating
	preds    []model.PredictionResult
}

type stage struct {
	name string
	fn   func(a *Analyzer, r *run) error
}

var stages = []stage{
	{"normalize", (*Analyzer).normalize},
	{"features", (*Analyzer).features},
	{"aggregate", (*Analyzer).aggregate},
	{"roles", (*Analyzer).classify},
	{"mistakes", (*Analyzer).detect},
	{"feedback", (*Analyzer).coach},
	{"scoring", (*Analyzer).score},
	{"predict", (*Analyzer).predict},
}

// Analyze runs every stage on one match. It returns either a complete result or an error,
// never a partial result. ctx is checked between stages.
func (a *Analyzer) Analyze(ctx context.Context, in model.MatchInput) (*model.MatchResult, error) {
	if in.Meta.DemoHash == "" {
		hash, err := InputHash(in)
		if err != nil {
			return nil, err
		}
		in.Meta.DemoHash = hash
	}
	log := a.log.With("match", shortHash(in.Meta.DemoHash))

	r := &run{in: in}
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			a.finish(err)
			return nil, fmt.Errorf("analyze before %s: %w", st.name, err)
		}
		start := time.Now()
		if err := st.fn(a, r); err != nil {
			a.finish(err)
			log.Debug("Stage failed", "stage", st.name, "error", err)
			return nil, fmt.Errorf("analyze %s: %w", st.name, err)
		}
		d := time.Since(start)
		if a.metrics != nil {
			a.metrics.ObserveStage(st.name, d)
		}
		log.Debug("Stage done", "stage", st.name, "duration", d)
	}

	for _, n := range r.match.DroppedRounds {
		log.Warn("Dropped incomplete round", "round", n)
	}

	res := a.assemble(r)
	a.finish(nil)
	if a.metrics != nil {
		a.metrics.AddEvents(r.match.EventCount)
		for _, m := range r.mistakes {
			a.metrics.RecordMistake(string(m.Type))
		}
		for _, rt := range r.ratings {
			for _, rule := range rt.Rules {
				a.metrics.RecordRule(rule.Rule)
			}
		}
	}
	log.Info("Match analysed", "map", res.MapName, "rounds", res.RoundsPlayed, "mistakes", len(res.Mistakes))
	return res, nil
}

func (a *Analyzer) finish(err error) {
	if a.metrics != nil {
		a.metrics.RecordMatch(Outcome(err))
	}
}

// Outcome maps an Analyze error to a metrics outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, errs.ErrMalformedInput):
		return metrics.OutcomeMalformed
	case errors.Is(err, errs.ErrRuleConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeAborted
	default:
		return metrics.OutcomeError
	}
}

// ---- Stages ----

func (a *Analyzer) normalize(r *run) error {
	m, err := normalize.Normalize(r.in)
	r.match = m
	return err
}

func (a *Analyzer) features(r *run) error {
	fr, err := features.Compute(r.match, a.cfg.Features)
	r.fr = fr
	return err
}

func (a *Analyzer) aggregate(r *run) error {
	p, err := aggregator.Aggregate(r.match, r.fr)
	r.players = p
	return err
}

func (a *Analyzer) classify(r *run) error {
	rr, err := roles.Classify(r.players, a.cfg.Roles, a.cfg.Features)
	r.roles = rr
	return err
}

func (a *Analyzer) detect(r *run) error {
	r.mistakes = mistakes.Detect(r.fr, r.roles, r.match.TicksPerSecond, a.cfg.Mistakes)
	return nil
}

func (a *Analyzer) coach(r *run) error {
	r.feedback = feedback.Analyze(r.fr.Deaths, a.cfg.Feedback)
	return nil
}

func (a *Analyzer) score(r *run) error {
	byPlayer := mistakes.ByPlayer(r.mistakes)
	r.ratings = make(map[model.PlayerID]model.Rating, len(r.players))
	for _, p := range r.players {
		r.ratings[p.Player] = scoring.Score(scoring.Input{
			Features: p,
			Role:     r.roles.Match[p.Player].Role,
			Mistakes: byPlayer[p.Player],
			Map:      r.match.Meta.MapName,
		}, a.cfg.Scoring)
	}
	return nil
}

func (a *Analyzer) predict(r *run) error {
	r.preds = append(r.preds, predict.Rounds(r.fr, r.roles, r.mistakes, a.cfg.Predict.Round)...)
	r.preds = append(r.preds, predict.Players(r.players, r.roles, r.mistakes, a.cfg.Predict.Player)...)
	return nil
}

// ---- Assembly ----

func (a *Analyzer) assemble(r *run) *model.MatchResult {
	m := r.match
	res := &model.MatchResult{
		SchemaVersion:  model.SchemaVersion,
		AnalysisID:     AnalysisID(m.Meta.DemoHash, a.fingerprint),
		DemoHash:       m.Meta.DemoHash,
		MapName:        m.Meta.MapName,
		MatchDate:      m.Meta.MatchDate,
		TickRate:       m.TicksPerSecond,
		RoundsPlayed:   len(m.Rounds),
		Score:          map[model.Team]int{model.TeamT: 0, model.TeamCT: 0},
		Players:        make(map[string]model.PlayerRecord, len(r.players)),
		Mistakes:       r.mistakes,
		MistakeSummary: mistakes.Summary(r.mistakes),
		Predictions:    r.preds,
		Rounds:         make([]model.RoundSummary, 0, len(m.Rounds)),
	}
	if res.Mistakes == nil {
		res.Mistakes = []model.Mistake{}
	}
	if res.Predictions == nil {
		res.Predictions = []model.PredictionResult{}
	}

	for i := range m.Rounds {
		rd := &m.Rounds[i]
		res.Score[rd.Winner]++
		res.Rounds = append(res.Rounds, model.RoundSummary{
			Number:  rd.Number,
			Winner:  rd.Winner,
			Planted: r.fr.Rounds[i].Planted,
			Sides:   rd.Sides,
		})
	}

	for i := range r.players {
		p := &r.players[i]
		roundRoles := r.roles.Rounds[p.Player]
		if roundRoles == nil {
			roundRoles = []model.RoleAssignment{}
		}
		fb, ok := r.feedback[p.Player]
		if !ok {
			fb = feedback.Empty()
		}
		res.Players[strconv.FormatUint(uint64(p.Player), 10)] = model.PlayerRecord{
			ID:             p.Player,
			Name:           p.Name,
			Squad:          p.Squad,
			Rating:         r.ratings[p.Player],
			Role:           r.roles.Match[p.Player],
			RoundRoles:     roundRoles,
			WPA:            round4(p.WPA),
			TradePotential: round4(p.TradePotential()),
			Stats:          Summarize(p),
			Feedback:       fb,
		}
	}
	return res
}

// Summarize builds the stat line of one player.
func Summarize(p *model.PlayerMatchFeatures) model.PlayerSummary {
	return model.PlayerSummary{
		RoundsPlayed: p.RoundsPlayed,
		Kills:        p.Kills,
		Deaths:       p.Deaths,
		KDR:          round4(p.KDR()),
		ADR:          round4(p.ADR()),
		KAST:         round4(p.KAST()),
		EntryKills:   p.EntrySuccesses,
		TradeKills:   p.TradeKills,
		ExitFrags:    p.ExitFrags,
		ClutchWins:   p.ClutchWins,
		FlashAssists: p.FlashAssists,

		EntrySuccessRate: round4(p.EntrySuccessRate()),
	}
}

// AnalysisID derives a stable id from the demo hash and the configuration fingerprint, so
// re-running the same demo under the same config yields the same id.
func AnalysisID(demoHash, fingerprint string) string {
	return uuid.NewSHA1(analysisNamespace, []byte(demoHash+"|"+fingerprint)).String()
}

// InputHash hashes the canonical JSON form of an input that carries no demo hash.
func InputHash(in model.MatchInput) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("hash input: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(raw)), nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
