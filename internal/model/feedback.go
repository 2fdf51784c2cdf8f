package model

// DeathCause is the single most likely reason a death happened.
type DeathCause string

const (
	CauseEntryTrade     DeathCause = "entry_trade"
	CauseCrossfire      DeathCause = "crossfire"
	CauseSoloPush       DeathCause = "solo_push"
	CauseSpacingIssue   DeathCause = "spacing_issue"
	CauseTimingIssue    DeathCause = "timing_issue"
	CauseUtilityMissing DeathCause = "utility_missing"
	CauseUnknown        DeathCause = "unknown"
)

// DeathCauses lists every cause in classification order.
var DeathCauses = []DeathCause{
	CauseEntryTrade, CauseCrossfire, CauseSoloPush, CauseSpacingIssue,
	CauseTimingIssue, CauseUtilityMissing, CauseUnknown,
}

// Valid reports whether c is a known cause.
func (c DeathCause) Valid() bool { return c.Order() < len(DeathCauses) }

// Order returns the position of c in DeathCauses.
func (c DeathCause) Order() int {
	for i, known := range DeathCauses {
		if c == known {
			return i
		}
	}
	return len(DeathCauses)
}

// Actionable reports whether deaths of this cause carry coaching feedback. An entry death
// that was traded did its job, and an unknown cause has nothing to say.
func (c DeathCause) Actionable() bool { return c != CauseEntryTrade && c != CauseUnknown }

// DeathClassification is the cause assigned to one death.
type DeathClassification struct {
	Round             int        `json:"round"`
	Tick              int        `json:"tick"`
	Player            PlayerID   `json:"player"`
	Cause             DeathCause `json:"cause"`
	Phase             RoundPhase `json:"round_phase"`
	TeammateDistance  float64    `json:"teammate_distance"`
	Traded            bool       `json:"traded"`
	TradeDelaySeconds float64    `json:"trade_delay_seconds"`
	Attackers         int        `json:"attackers"`
	Advice            string     `json:"advice"`
}

// FeedbackItem is one recurring death pattern, deaths grouped by cause and round phase.
type FeedbackItem struct {
	Cause    DeathCause `json:"cause"`
	Phase    RoundPhase `json:"round_phase"`
	Count    int        `json:"count"`
	Priority int        `json:"priority"`
	Message  string     `json:"message"`
	// AvgTeammateDistance averages the deaths with a known teammate distance, 0 when none.
	AvgTeammateDistance float64  `json:"avg_teammate_distance"`
	Traded              int      `json:"traded"`
	Untraded            int      `json:"untraded"`
	Drills              []string `json:"drills"`
}

// PlayerFeedback is the per-player coaching section of a MatchResult.
type PlayerFeedback struct {
	Deaths          int                   `json:"deaths"`
	Causes          map[DeathCause]int    `json:"causes"` // every cause present, zero included
	PrimaryIssue    DeathCause            `json:"primary_issue,omitempty"`
	PrimaryCount    int                   `json:"primary_count"`
	Items           []FeedbackItem        `json:"items"`
	Classifications []DeathClassification `json:"classifications"`
}
