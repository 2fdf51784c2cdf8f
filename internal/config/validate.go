package config

import (
	"fmt"
	"sort"

	"github.com/pable/go-cs-coach/internal/logging"
	"github.com/pable/go-cs-coach/internal/model"
)

// Validate checks every correctness value. It returns nil or an error wrapping
// errs.ErrConfiguration whose ValidationErrors name each offending key.
func (c *Config) Validate() error {
	var v validator

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		v.add("log_level", err.Error())
	}

	f := c.Features
	v.positive("features.trade_window_seconds", f.TradeWindowSeconds)
	v.positive("features.trade_distance", f.TradeDistance)
	v.positive("features.crossfire_seconds", f.CrossfireSeconds)
	v.positive("features.flash_support_seconds", f.FlashSupportSeconds)
	v.positive("features.flash_assist_seconds", f.FlashAssistSeconds)
	v.positive("features.flash_followup_seconds", f.FlashFollowupSeconds)
	v.positive("features.smoke_duration_seconds", f.SmokeDurationSeconds)
	v.positive("features.smoke_radius", f.SmokeRadius)
	v.positive("features.round_duration_seconds", f.RoundDurationSeconds)
	v.unit("features.early_phase_ratio", f.EarlyPhaseRatio)
	v.unit("features.late_phase_ratio", f.LatePhaseRatio)
	if f.EarlyPhaseRatio >= f.LatePhaseRatio {
		v.add("features.early_phase_ratio", "must be below late_phase_ratio")
	}
	v.positive("features.exit_frag_seconds", f.ExitFragSeconds)
	v.positive("features.swing_deficit", float64(f.SwingDeficit))
	v.positive("features.plant_proximity", f.PlantProximity)
	v.positive("features.retake_radius", f.RetakeRadius)
	v.positive("features.eco_threshold", float64(f.EcoThreshold))
	if f.FullBuyThreshold <= f.EcoThreshold {
		v.add("features.full_buy_threshold", "must exceed eco_threshold")
	}
	v.positive("features.wpa.economy_scale", f.WPA.EconomyScale)

	r := c.Roles
	v.positive("roles.lurk_distance", r.LurkDistance)
	v.positive("roles.rotation_distance", r.RotationDistance)
	v.positive("roles.anchor_movement", r.AnchorMovement)
	for _, name := range sortedKeys(r.Quotas) {
		key := "roles.quotas." + name
		if !model.Role(name).Valid() {
			v.add(key, "unknown role")
		}
		if model.Role(name) == model.RoleAnchor {
			v.add(key, "the fallback role cannot be quota-limited")
		}
		if r.Quotas[name] < 0 {
			v.add(key, "must not be negative")
		}
	}

	m := c.Mistakes
	v.positive("mistakes.isolation_distance", m.IsolationDistance)
	v.positive("mistakes.spacing_distance", m.SpacingDistance)
	v.positive("mistakes.rotation_delay_seconds", m.RotationDelaySeconds)
	for _, name := range sortedKeys(m.RoleThresholdScale) {
		key := "mistakes.role_threshold_scale." + name
		if !model.Role(name).Valid() {
			v.add(key, "unknown role")
		}
		v.positive(key, m.RoleThresholdScale[name])
	}

	s := c.Scoring
	for _, role := range model.Roles {
		key := "scoring.baselines." + string(role)
		b, ok := s.Baseline(role)
		if !ok {
			v.add(key, "required key is missing")
			continue
		}
		v.positive(key+".std", b.Std)
		v.within(key+".max", b.Max, s.Floor, s.Ceiling)
	}
	for _, name := range sortedKeys(s.Baselines) {
		if !model.Role(name).Valid() {
			v.add("scoring.baselines."+name, "unknown role")
		}
	}
	for _, mapName := range sortedKeys(s.MapWeights) {
		for _, role := range sortedKeys(s.MapWeights[mapName]) {
			key := fmt.Sprintf("scoring.map_weights.%s.%s", mapName, role)
			if !model.Role(role).Valid() {
				v.add(key, "unknown role")
			}
			v.positive(key, s.MapWeights[mapName][role])
		}
	}
	for _, mapName := range sortedKeys(s.MapCaps) {
		for _, role := range sortedKeys(s.MapCaps[mapName]) {
			key := fmt.Sprintf("scoring.map_caps.%s.%s", mapName, role)
			if !model.Role(role).Valid() {
				v.add(key, "unknown role")
			}
			v.within(key, s.MapCaps[mapName][role], s.Floor, s.Ceiling)
		}
	}
	v.multiplier("scoring.kill_gate_multiplier", s.KillGateMultiplier)
	v.multiplier("scoring.exit_frag_multiplier", s.ExitFragMultiplier)
	v.multiplier("scoring.smurf_multiplier", s.SmurfMultiplier)
	v.positive("scoring.kill_gate_kills", float64(s.KillGateKills))
	v.positive("scoring.exit_frag_threshold", float64(s.ExitFragThreshold))
	v.positive("scoring.smurf_max_rounds", float64(s.SmurfMaxRounds))
	v.unit("scoring.consistency_max_penalty", s.ConsistencyMaxPenalty)
	v.unit("scoring.mistake_load_max_penalty", s.MistakeLoadMaxPenalty)
	v.unit("scoring.breakout_kast", s.BreakoutKAST)
	v.positive("scoring.impact.wpa_excess_scale", s.Impact.WPAExcessScale)
	if s.Impact.WPAExcessScale > 1 {
		v.add("scoring.impact.wpa_excess_scale", "must not exceed 1")
	}
	v.positive("scoring.floor", s.Floor)
	if s.Ceiling <= s.Floor {
		v.add("scoring.ceiling", "must exceed floor")
	}
	v.within("scoring.low_kdr_cap", s.LowKDRCap, s.Floor, s.Ceiling)

	p := c.Predict
	v.positive("predict.round.economy_scale", p.Round.EconomyScale)
	v.positive("predict.round.history_rounds", float64(p.Round.HistoryRounds))
	v.positive("predict.round.log_odds_clamp", p.Round.LogOddsClamp)
	v.positive("predict.player.log_odds_clamp", p.Player.LogOddsClamp)
	v.bounds("predict.round", p.Round.MinProbability, p.Round.MaxProbability)
	v.bounds("predict.player", p.Player.MinProbability, p.Player.MaxProbability)

	fb := c.Feedback
	v.positive("feedback.solo_push_distance", fb.SoloPushDistance)
	v.positive("feedback.spacing_distance", fb.SpacingDistance)
	if fb.SpacingDistance >= fb.SoloPushDistance {
		v.add("feedback.spacing_distance", "must be below solo_push_distance")
	}
	v.positive("feedback.slow_trade_seconds", fb.SlowTradeSeconds)
	if fb.SlowTradeSeconds >= f.TradeWindowSeconds {
		v.add("feedback.slow_trade_seconds", "must be below features.trade_window_seconds")
	}
	if fb.CrossfireAttackers < 2 {
		v.add("feedback.crossfire_attackers", fmt.Sprintf("must be >= 2, got %d", fb.CrossfireAttackers))
	}
	v.positive("feedback.min_pattern", float64(fb.MinPattern))
	for _, cause := range model.DeathCauses {
		if _, ok := fb.Priorities[string(cause)]; !ok {
			v.add("feedback.priorities."+string(cause), "required key is missing")
		}
	}
	for _, name := range sortedKeys(fb.Priorities) {
		key := "feedback.priorities." + name
		if !model.DeathCause(name).Valid() {
			v.add(key, "unknown death cause")
		}
		if fb.Priorities[name] < 0 {
			v.add(key, "must not be negative")
		}
	}

	return v.errs.asError()
}

type validator struct {
	errs ValidationErrors
}

func (v *validator) add(key, msg string) {
	v.errs = append(v.errs, ValidationError{Key: key, Message: msg})
}

func (v *validator) positive(key string, x float64) {
	if x <= 0 {
		v.add(key, fmt.Sprintf("must be > 0, got %v", x))
	}
}

func (v *validator) unit(key string, x float64) {
	if x <= 0 || x >= 1 {
		v.add(key, fmt.Sprintf("must be in (0,1), got %v", x))
	}
}

func (v *validator) multiplier(key string, x float64) {
	if x <= 0 || x > 1 {
		v.add(key, fmt.Sprintf("must be in (0,1], got %v", x))
	}
}

func (v *validator) within(key string, x, lo, hi float64) {
	if x < lo || x > hi {
		v.add(key, fmt.Sprintf("must be in [%v,%v], got %v", lo, hi, x))
	}
}

func (v *validator) bounds(prefix string, lo, hi float64) {
	v.unit(prefix+".min_probability", lo)
	v.unit(prefix+".max_probability", hi)
	if lo >= hi {
		v.add(prefix+".min_probability", "must be below max_probability")
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
