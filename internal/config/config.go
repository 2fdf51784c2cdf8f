// Package config defines the analysis configuration surface and its loader.
//
// Every threshold the pipeline uses is a named key. Defaults live in the embedded
// defaults.yaml, which is also the reference documentation for each key.
package config

import (
	"github.com/pable/go-cs-coach/internal/model"
)

// Config is the full configuration of one analysis run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" json:"log_level"`
	// LogFile, when set, also writes JSON logs to that path.
	LogFile string `koanf:"log_file" json:"log_file"`

	Features Features `koanf:"features" json:"features"`
	Roles    Roles    `koanf:"roles" json:"roles"`
	Mistakes Mistakes `koanf:"mistakes" json:"mistakes"`
	Scoring  Scoring  `koanf:"scoring" json:"scoring"`
	Predict  Predict  `koanf:"predict" json:"predict"`
	Feedback Feedback `koanf:"feedback" json:"feedback"`
}

// Features configures the contextual feature engine.
type Features struct {
	TradeWindowSeconds   float64 `koanf:"trade_window_seconds" json:"trade_window_seconds"`
	TradeDistance        float64 `koanf:"trade_distance" json:"trade_distance"`
	CrossfireSeconds     float64 `koanf:"crossfire_seconds" json:"crossfire_seconds"`
	FlashSupportSeconds  float64 `koanf:"flash_support_seconds" json:"flash_support_seconds"`
	FlashAssistSeconds   float64 `koanf:"flash_assist_seconds" json:"flash_assist_seconds"`
	FlashFollowupSeconds float64 `koanf:"flash_followup_seconds" json:"flash_followup_seconds"`
	SmokeDurationSeconds float64 `koanf:"smoke_duration_seconds" json:"smoke_duration_seconds"`
	SmokeRadius          float64 `koanf:"smoke_radius" json:"smoke_radius"`
	RoundDurationSeconds float64 `koanf:"round_duration_seconds" json:"round_duration_seconds"`
	EarlyPhaseRatio      float64 `koanf:"early_phase_ratio" json:"early_phase_ratio"`
	LatePhaseRatio       float64 `koanf:"late_phase_ratio" json:"late_phase_ratio"`
	ExitFragSeconds      float64 `koanf:"exit_frag_seconds" json:"exit_frag_seconds"`
	SwingDeficit         int     `koanf:"swing_deficit" json:"swing_deficit"`
	PlantProximity       float64 `koanf:"plant_proximity" json:"plant_proximity"`
	RetakeRadius         float64 `koanf:"retake_radius" json:"retake_radius"`
	EcoThreshold         int     `koanf:"eco_threshold" json:"eco_threshold"`
	FullBuyThreshold     int     `koanf:"full_buy_threshold" json:"full_buy_threshold"`
	WPA                  WPA     `koanf:"wpa" json:"wpa"`
}

// WPA holds the coefficients of the in-round win probability formula.
type WPA struct {
	ManAdvantage float64 `koanf:"man_advantage" json:"man_advantage"`
	Economy      float64 `koanf:"economy" json:"economy"`
	EconomyScale float64 `koanf:"economy_scale" json:"economy_scale"`
	Bomb         float64 `koanf:"bomb" json:"bomb"`
}

// Roles configures the role classifier.
type Roles struct {
	LurkDistance     float64        `koanf:"lurk_distance" json:"lurk_distance"`
	RotationDistance float64        `koanf:"rotation_distance" json:"rotation_distance"`
	AnchorMovement   float64        `koanf:"anchor_movement" json:"anchor_movement"`
	Quotas           map[string]int `koanf:"quotas" json:"quotas"`
}

// Quota returns the per-team quota for r and whether r is quota-limited.
func (r Roles) Quota(role model.Role) (int, bool) {
	q, ok := r.Quotas[string(role)]
	return q, ok
}

// Mistakes configures the mistake detector.
type Mistakes struct {
	IsolationDistance    float64            `koanf:"isolation_distance" json:"isolation_distance"`
	SpacingDistance      float64            `koanf:"spacing_distance" json:"spacing_distance"`
	RotationDelaySeconds float64            `koanf:"rotation_delay_seconds" json:"rotation_delay_seconds"`
	UtilityWasteWPA      float64            `koanf:"utility_waste_wpa" json:"utility_waste_wpa"`
	RotationDelayWPA     float64            `koanf:"rotation_delay_wpa" json:"rotation_delay_wpa"`
	RoleThresholdScale   map[string]float64 `koanf:"role_threshold_scale" json:"role_threshold_scale"`
}

// Scale returns the threshold multiplier for role, 1.0 when unset.
func (m Mistakes) Scale(role model.Role) float64 {
	if s, ok := m.RoleThresholdScale[string(role)]; ok {
		return s
	}
	return 1.0
}

// Feedback configures death-cause classification and the coaching feedback built on it.
type Feedback struct {
	SoloPushDistance   float64        `koanf:"solo_push_distance" json:"solo_push_distance"`
	SpacingDistance    float64        `koanf:"spacing_distance" json:"spacing_distance"`
	SlowTradeSeconds   float64        `koanf:"slow_trade_seconds" json:"slow_trade_seconds"`
	CrossfireAttackers int            `koanf:"crossfire_attackers" json:"crossfire_attackers"`
	MinPattern         int            `koanf:"min_pattern" json:"min_pattern"`
	Priorities         map[string]int `koanf:"priorities" json:"priorities"`
}

// Priority returns the base priority of cause, 0 when unset.
func (f Feedback) Priority(cause model.DeathCause) int { return f.Priorities[string(cause)] }

// Baseline is the population mean/std a role's raw impact is compared against, plus the
// role's rating ceiling.
type Baseline struct {
	Mean float64 `koanf:"mean" json:"mean"`
	Std  float64 `koanf:"std" json:"std"`
	Max  float64 `koanf:"max" json:"max"`
}

// Impact holds the raw impact weights.
type Impact struct {
	KillWon           float64 `koanf:"kill_won" json:"kill_won"`
	KillLost          float64 `koanf:"kill_lost" json:"kill_lost"`
	EntryBonus        float64 `koanf:"entry_bonus" json:"entry_bonus"`
	ClutchBonus       float64 `koanf:"clutch_bonus" json:"clutch_bonus"`
	WPAWeight         float64 `koanf:"wpa_weight" json:"wpa_weight"`
	WPABonusThreshold float64 `koanf:"wpa_bonus_threshold" json:"wpa_bonus_threshold"`
	WPAExcessScale    float64 `koanf:"wpa_excess_scale" json:"wpa_excess_scale"`
	TradeableDeath    float64 `koanf:"tradeable_death" json:"tradeable_death"`
	UntradeableDeath  float64 `koanf:"untradeable_death" json:"untradeable_death"`
}

// Scoring configures the calibration pipeline.
type Scoring struct {
	Impact     Impact                        `koanf:"impact" json:"impact"`
	Baselines  map[string]Baseline           `koanf:"baselines" json:"baselines"`
	MapWeights map[string]map[string]float64 `koanf:"map_weights" json:"map_weights"`
	MapCaps    map[string]map[string]float64 `koanf:"map_caps" json:"map_caps"`

	KillGateRaw        float64 `koanf:"kill_gate_raw" json:"kill_gate_raw"`
	KillGateKills      int     `koanf:"kill_gate_kills" json:"kill_gate_kills"`
	KillGateMultiplier float64 `koanf:"kill_gate_multiplier" json:"kill_gate_multiplier"`

	ExitFragThreshold  int     `koanf:"exit_frag_threshold" json:"exit_frag_threshold"`
	ExitFragMultiplier float64 `koanf:"exit_frag_multiplier" json:"exit_frag_multiplier"`

	ConsistencyStdThreshold  float64 `koanf:"consistency_std_threshold" json:"consistency_std_threshold"`
	ConsistencyPenaltyPerStd float64 `koanf:"consistency_penalty_per_std" json:"consistency_penalty_per_std"`
	ConsistencyMaxPenalty    float64 `koanf:"consistency_max_penalty" json:"consistency_max_penalty"`

	MistakeLoadThreshold   float64 `koanf:"mistake_load_threshold" json:"mistake_load_threshold"`
	MistakeLoadPenaltyRate float64 `koanf:"mistake_load_penalty_rate" json:"mistake_load_penalty_rate"`
	MistakeLoadMaxPenalty  float64 `koanf:"mistake_load_max_penalty" json:"mistake_load_max_penalty"`

	SmurfKDR        float64 `koanf:"smurf_kdr" json:"smurf_kdr"`
	SmurfRaw        float64 `koanf:"smurf_raw" json:"smurf_raw"`
	SmurfMaxRounds  int     `koanf:"smurf_max_rounds" json:"smurf_max_rounds"`
	SmurfMultiplier float64 `koanf:"smurf_multiplier" json:"smurf_multiplier"`

	BreakoutKDR   float64 `koanf:"breakout_kdr" json:"breakout_kdr"`
	BreakoutKAST  float64 `koanf:"breakout_kast" json:"breakout_kast"`
	BreakoutKills int     `koanf:"breakout_kills" json:"breakout_kills"`

	LowKDR    float64 `koanf:"low_kdr" json:"low_kdr"`
	LowKDRCap float64 `koanf:"low_kdr_cap" json:"low_kdr_cap"`

	Floor   float64 `koanf:"floor" json:"floor"`
	Ceiling float64 `koanf:"ceiling" json:"ceiling"`
}

// Baseline returns the baseline for role.
func (s Scoring) Baseline(role model.Role) (Baseline, bool) {
	b, ok := s.Baselines[string(role)]
	return b, ok
}

// Predict configures both outcome models.
type Predict struct {
	Round  RoundModel  `koanf:"round" json:"round"`
	Player PlayerModel `koanf:"player" json:"player"`
}

// RoundModel holds the round win model coefficients.
type RoundModel struct {
	Economy          float64 `koanf:"economy" json:"economy"`
	EconomyScale     float64 `koanf:"economy_scale" json:"economy_scale"`
	ManAdvantage     float64 `koanf:"man_advantage" json:"man_advantage"`
	HasEntry         float64 `koanf:"has_entry" json:"has_entry"`
	HasSupport       float64 `koanf:"has_support" json:"has_support"`
	RoleDiversity    float64 `koanf:"role_diversity" json:"role_diversity"`
	RoleDiversityCap int     `koanf:"role_diversity_cap" json:"role_diversity_cap"`
	Mistakes         float64 `koanf:"mistakes" json:"mistakes"`
	MistakesCap      int     `koanf:"mistakes_cap" json:"mistakes_cap"`
	HighSeverity     float64 `koanf:"high_severity" json:"high_severity"`
	HighSeverityCap  int     `koanf:"high_severity_cap" json:"high_severity_cap"`
	Momentum         float64 `koanf:"momentum" json:"momentum"`
	MomentumCap      float64 `koanf:"momentum_cap" json:"momentum_cap"`
	HistoryRounds    int     `koanf:"history_rounds" json:"history_rounds"`
	LogOddsClamp     float64 `koanf:"log_odds_clamp" json:"log_odds_clamp"`
	MinProbability   float64 `koanf:"min_probability" json:"min_probability"`
	MaxProbability   float64 `koanf:"max_probability" json:"max_probability"`
}

// PlayerModel holds the player impact model coefficients.
type PlayerModel struct {
	WPARate        float64 `koanf:"wpa_rate" json:"wpa_rate"`
	Consistency    float64 `koanf:"consistency" json:"consistency"`
	RoleConfidence float64 `koanf:"role_confidence" json:"role_confidence"`
	EconomyComfort float64 `koanf:"economy_comfort" json:"economy_comfort"`
	TradeSupport   float64 `koanf:"trade_support" json:"trade_support"`
	RecentMistakes float64 `koanf:"recent_mistakes" json:"recent_mistakes"`
	LogOddsClamp   float64 `koanf:"log_odds_clamp" json:"log_odds_clamp"`
	MinProbability float64 `koanf:"min_probability" json:"min_probability"`
	MaxProbability float64 `koanf:"max_probability" json:"max_probability"`
}
