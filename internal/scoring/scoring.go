// Package scoring turns frozen player features into a bounded, auditable rating.
//
// The rating is produced by a fixed sequence of stages. Each stage reads the running
// score and may change it; every change is recorded as a RuleApplication. Reordering the
// stages changes results.
package scoring

import (
	"math"
	"strings"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/model"
)

// Input is everything the calibration needs for one player.
type Input struct {
	Features model.PlayerMatchFeatures
	Role     model.Role
	Mistakes []model.Mistake
	Map      string
}

// Stage is one named step of the calibration pipeline.
type Stage struct {
	Name  string
	Apply func(s *state)
}

// state is the running calibration of one player.
type state struct {
	in      *Input
	cfg     config.Scoring
	raw     float64
	score   float64
	applied []model.RuleApplication
}

func (s *state) record(rule string, kind model.RuleKind, value, after float64) {
	s.applied = append(s.applied, model.RuleApplication{
		Rule:   rule,
		Kind:   kind,
		Value:  round4(value),
		Before: round4(s.score),
		After:  round4(after),
	})
	s.score = after
}

func (s *state) multiply(rule string, m float64) {
	s.record(rule, model.RuleMultiplier, m, s.score*m)
}

func (s *state) capAt(rule string, limit float64) {
	if s.score > limit {
		s.record(rule, model.RuleCap, limit, limit)
	}
}

// Stages is the calibration order.
var Stages = []Stage{
	{"raw_impact", rawImpact},
	{"role_baseline", roleBaseline},
	{"map_role_weight", mapRoleWeight},
	{"kill_gate", killGate},
	{"exit_frag_tax", exitFragTax},
	{"consistency", consistency},
	{"mistake_load", mistakeLoad},
	{"smurf", smurf},
	{"role_ceiling", roleCeiling},
	{"low_kdr_cap", lowKDRCap},
	{"global_ceiling", globalCeiling},
	{"floor", floor},
}

// Score runs every stage for one player. A player with no rounds gets the floor and a
// single insufficient_data rule.
func Score(in Input, cfg config.Scoring) model.Rating {
	r := model.Rating{Player: in.Features.Player, Role: in.Role}
	if in.Features.RoundsPlayed == 0 {
		r.Final = cfg.Floor
		r.Rules = []model.RuleApplication{{
			Rule:  "insufficient_data",
			Kind:  model.RuleSentinel,
			Value: cfg.Floor,
			After: cfg.Floor,
		}}
		return r
	}

	s := &state{in: &in, cfg: cfg}
	for _, st := range Stages {
		st.Apply(s)
	}

	r.RawImpact = round4(s.raw)
	r.Final = round4(s.score)
	r.Rules = s.applied
	for _, a := range s.applied {
		if a.Rule == "role_baseline" {
			r.Percentile = a.After
		}
	}
	if r.Rules == nil {
		r.Rules = []model.RuleApplication{}
	}
	return r
}

// RawImpact is the weighted, uncapped impact of a player's match.
func RawImpact(p *model.PlayerMatchFeatures, w config.Impact) float64 {
	lost := p.Kills - p.KillsInWonRounds
	v := float64(p.KillsInWonRounds)*w.KillWon + float64(lost)*w.KillLost
	v += float64(p.EntrySuccesses) * w.EntryBonus
	v += float64(p.ClutchWinWeight) * w.ClutchBonus
	v += wpaPoints(p.WPA, w)
	v -= float64(p.TradeableDeaths)*w.TradeableDeath + float64(p.UntradeableDeaths)*w.UntradeableDeath
	return v
}

// wpaPoints scales contributions above the threshold down rather than clipping them.
func wpaPoints(wpa float64, w config.Impact) float64 {
	pts := wpa * w.WPAWeight
	if pts > w.WPABonusThreshold {
		pts = w.WPABonusThreshold + (pts-w.WPABonusThreshold)*w.WPAExcessScale
	}
	return pts
}

func rawImpact(s *state) {
	s.raw = RawImpact(&s.in.Features, s.cfg.Impact)
	s.score = s.raw
}

func roleBaseline(s *state) {
	b, _ := s.cfg.Baseline(s.in.Role)
	z := (s.raw - b.Mean) / b.Std
	s.record("role_baseline", model.RuleNormalize, z, Percentile(z))
}

// Percentile maps a z-score to 100*Phi(z).
func Percentile(z float64) float64 {
	return 50 * (1 + math.Erf(z/math.Sqrt2))
}

// MapKey strips the game-mode prefix from a map name: "de_nuke" becomes "nuke".
func MapKey(name string) string {
	name = strings.ToLower(name)
	if i := strings.Index(name, "_"); i >= 0 {
		return name[i+1:]
	}
	return name
}

func mapRoleWeight(s *state) {
	w, ok := s.cfg.MapWeights[MapKey(s.in.Map)][string(s.in.Role)]
	if !ok || w == 1 {
		return
	}
	s.multiply("map_role_weight", w)
}

func killGate(s *state) {
	if s.raw > s.cfg.KillGateRaw && s.in.Features.Kills < s.cfg.KillGateKills {
		s.multiply("kill_gate", s.cfg.KillGateMultiplier)
	}
}

func exitFragTax(s *state) {
	if s.in.Features.ExitFrags >= s.cfg.ExitFragThreshold {
		s.multiply("exit_frag_tax", s.cfg.ExitFragMultiplier)
	}
}

// consistency penalizes swingy per-round impact.
func consistency(s *state) {
	rounds := s.in.Features.Rounds
	if len(rounds) < 2 {
		return
	}
	vals := make([]float64, len(rounds))
	var mean float64
	for i := range rounds {
		vals[i] = roundImpact(&rounds[i], s.cfg.Impact)
		mean += vals[i]
	}
	mean /= float64(len(vals))
	var ss float64
	for _, v := range vals {
		ss += (v - mean) * (v - mean)
	}
	std := math.Sqrt(ss / float64(len(vals)))
	if std <= s.cfg.ConsistencyStdThreshold {
		return
	}
	penalty := math.Min((std-s.cfg.ConsistencyStdThreshold)*s.cfg.ConsistencyPenaltyPerStd, s.cfg.ConsistencyMaxPenalty)
	s.multiply("consistency", 1-penalty)
}

func roundImpact(f *model.PlayerRoundFeatures, w config.Impact) float64 {
	kill := w.KillLost
	if f.RoundWon {
		kill = w.KillWon
	}
	v := float64(f.Kills) * kill
	if f.EntrySuccess {
		v += w.EntryBonus
	}
	if f.ClutchWon {
		v += float64(f.ClutchOpponents) * w.ClutchBonus
	}
	v += f.WPA * w.WPAWeight
	if f.Deaths > 0 {
		if f.UntradeableDeath {
			v -= w.UntradeableDeath
		} else {
			v -= w.TradeableDeath
		}
	}
	return v
}

// mistakeLoad penalizes mean mistake severity per round above a threshold.
func mistakeLoad(s *state) {
	var total float64
	for _, m := range s.in.Mistakes {
		total += m.Severity
	}
	load := total / float64(s.in.Features.RoundsPlayed)
	if load <= s.cfg.MistakeLoadThreshold {
		return
	}
	penalty := math.Min((load-s.cfg.MistakeLoadThreshold)*s.cfg.MistakeLoadPenaltyRate, s.cfg.MistakeLoadMaxPenalty)
	s.multiply("mistake_load", 1-penalty)
}

// smurf flags short matches with outlier dominance. Long matches are exempt.
func smurf(s *state) {
	p := &s.in.Features
	if p.RoundsPlayed > s.cfg.SmurfMaxRounds {
		return
	}
	if p.KDR() > s.cfg.SmurfKDR && s.raw > s.cfg.SmurfRaw {
		s.multiply("smurf", s.cfg.SmurfMultiplier)
	}
}

// Breakout reports the multi-signal condition that lifts a role ceiling.
func Breakout(p *model.PlayerMatchFeatures, cfg config.Scoring) bool {
	return p.KDR() > cfg.BreakoutKDR && p.KAST() > cfg.BreakoutKAST && p.Kills >= cfg.BreakoutKills
}

// RoleCeiling returns the maximum score of role on a map.
func RoleCeiling(role model.Role, mapName string, cfg config.Scoring) float64 {
	if c, ok := cfg.MapCaps[MapKey(mapName)][string(role)]; ok {
		return c
	}
	b, _ := cfg.Baseline(role)
	return b.Max
}

func roleCeiling(s *state) {
	limit := RoleCeiling(s.in.Role, s.in.Map, s.cfg)
	if s.score <= limit {
		return
	}
	if Breakout(&s.in.Features, s.cfg) {
		s.record("breakout", model.RuleLift, limit, s.score)
		return
	}
	s.capAt("role_ceiling", limit)
}

func lowKDRCap(s *state) {
	if s.in.Features.KDR() < s.cfg.LowKDR {
		s.capAt("low_kdr_cap", s.cfg.LowKDRCap)
	}
}

func globalCeiling(s *state) {
	s.capAt("global_ceiling", s.cfg.Ceiling)
}

func floor(s *state) {
	if s.score < s.cfg.Floor {
		s.record("floor", model.RuleFloor, s.cfg.Floor, s.cfg.Floor)
	}
}

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
