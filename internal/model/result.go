package model

// Role is a behavioral role.
type Role string

const (
	RoleEntry   Role = "entry"
	RoleSniper  Role = "sniper"
	RoleSupport Role = "support"
	RoleLurk    Role = "lurk"
	RoleRotator Role = "rotator"
	RoleAnchor  Role = "anchor"
)

// Roles lists every role in tie-break order.
var Roles = []Role{RoleEntry, RoleSniper, RoleSupport, RoleLurk, RoleRotator, RoleAnchor}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// RoleAssignment is a player's role for one round (Round > 0) or the whole match (Round == 0).
type RoleAssignment struct {
	Player             PlayerID `json:"player"`
	Round              int      `json:"round,omitempty"`
	Role               Role     `json:"role"`
	Confidence         float64  `json:"confidence"`
	EvidenceCount      int      `json:"evidence_count"`
	QualificationScore float64  `json:"qualification_score,omitempty"`
	DemotedFrom        []Role   `json:"demoted_from,omitempty"`
}

// MistakeType enumerates the detectable tactical mistakes.
type MistakeType string

const (
	MistakeDryPeek          MistakeType = "DRY_PEEK"
	MistakeIsolatedDeath    MistakeType = "ISOLATED_DEATH"
	MistakeNoTradeSpacing   MistakeType = "NO_TRADE_SPACING"
	MistakePostPlantMisplay MistakeType = "POSTPLANT_MISPLAY"
	MistakeRotationDelay    MistakeType = "ROTATION_DELAY"
	MistakeUtilityWaste     MistakeType = "UTILITY_WASTE"
)

// MistakeTypes lists every mistake type in output order.
var MistakeTypes = []MistakeType{
	MistakeDryPeek, MistakeIsolatedDeath, MistakeNoTradeSpacing,
	MistakePostPlantMisplay, MistakeRotationDelay, MistakeUtilityWaste,
}

// Order returns the position of t in MistakeTypes.
func (t MistakeType) Order() int {
	for i, known := range MistakeTypes {
		if t == known {
			return i
		}
	}
	return len(MistakeTypes)
}

// Severity labels.
const (
	SeverityHigh = "HIGH"
	SeverityMed  = "MED"
	SeverityLow  = "LOW"
)

// SeverityLabel maps a severity in [0,1] to its label.
func SeverityLabel(s float64) string {
	switch {
	case s >= 0.80:
		return SeverityHigh
	case s >= 0.50:
		return SeverityMed
	default:
		return SeverityLow
	}
}

// Mistake is one detected rule violation.
type Mistake struct {
	Tick       int         `json:"tick"`
	Round      int         `json:"round"`
	Player     PlayerID    `json:"player"`
	Type       MistakeType `json:"type"`
	Severity   float64     `json:"severity"`
	Label      string      `json:"label"`
	WPALoss    float64     `json:"wpa_loss"`
	Detail     string      `json:"detail"`
	Correction string      `json:"correction"`
}

// RuleKind classifies how a scoring rule changed the score.
type RuleKind string

const (
	RuleNormalize  RuleKind = "normalize"
	RuleMultiplier RuleKind = "multiplier"
	RuleCap        RuleKind = "cap"
	RuleLift       RuleKind = "lift"
	RuleFloor      RuleKind = "floor"
	RuleSentinel   RuleKind = "sentinel"
)

// RuleApplication records one scoring rule that fired.
type RuleApplication struct {
	Rule   string   `json:"rule"`
	Kind   RuleKind `json:"kind"`
	Value  float64  `json:"value"`
	Before float64  `json:"before"`
	After  float64  `json:"after"`
}

// Rating is a player's calibrated match rating.
type Rating struct {
	Player     PlayerID          `json:"player"`
	Role       Role              `json:"role"`
	RawImpact  float64           `json:"raw_impact"`
	Percentile float64           `json:"percentile"`
	Final      float64           `json:"final"`
	Rules      []RuleApplication `json:"rules"`
}

// Factor is one named contribution to a prediction's log-odds.
type Factor struct {
	Name         string  `json:"name"`
	Input        float64 `json:"input"`
	Contribution float64 `json:"contribution"`
}

// Prediction kinds.
const (
	PredictRoundWin     = "round_win"
	PredictPlayerImpact = "player_impact"
)

// PredictionResult is one bounded probability with its factor breakdown.
type PredictionResult struct {
	Kind        string   `json:"kind"`
	Round       int      `json:"round,omitempty"`
	Team        Team     `json:"team,omitempty"`
	Player      PlayerID `json:"player,omitempty"`
	Probability float64  `json:"probability"`
	LogOdds     float64  `json:"log_odds"`
	Confidence  float64  `json:"confidence"`
	Factors     []Factor `json:"factors"`
}

// PlayerSummary is the stat line carried in the output.
type PlayerSummary struct {
	RoundsPlayed int     `json:"rounds_played"`
	Kills        int     `json:"kills"`
	Deaths       int     `json:"deaths"`
	KDR          float64 `json:"kdr"`
	ADR          float64 `json:"adr"`
	KAST         float64 `json:"kast"`
	EntryKills   int     `json:"entry_kills"`
	TradeKills   int     `json:"trade_kills"`
	ExitFrags    int     `json:"exit_frags"`
	ClutchWins   int     `json:"clutch_wins"`
	FlashAssists int     `json:"flash_assists"`

	// EntrySuccessRate is entry kills over opening duels taken, 0 without any.
	EntrySuccessRate float64 `json:"entry_success_rate"`
}

// PlayerRecord is the per-player entry of a MatchResult.
type PlayerRecord struct {
	ID             PlayerID         `json:"id"`
	Name           string           `json:"name"`
	Squad          Team             `json:"squad"`
	Rating         Rating           `json:"rating"`
	Role           RoleAssignment   `json:"role"`
	RoundRoles     []RoleAssignment `json:"round_roles"`
	WPA            float64          `json:"wpa"`
	TradePotential float64          `json:"trade_potential"`
	Stats          PlayerSummary    `json:"stats"`
	Feedback       PlayerFeedback   `json:"feedback"`
}

// RoundSummary is the per-round entry of a MatchResult.
type RoundSummary struct {
	Number  int               `json:"number"`
	Winner  Team              `json:"winner"`
	Planted bool              `json:"planted"`
	Sides   map[PlayerID]Team `json:"sides"`
}

// SchemaVersion is the MatchResult schema version.
const SchemaVersion = "1.0"

// MatchResult is the single aggregate output of one match analysis.
type MatchResult struct {
	SchemaVersion  string                  `json:"schema_version"`
	AnalysisID     string                  `json:"analysis_id"`
	DemoHash       string                  `json:"demo_hash"`
	MapName        string                  `json:"map"`
	MatchDate      string                  `json:"match_date,omitempty"`
	TickRate       float64                 `json:"tick_rate"`
	RoundsPlayed   int                     `json:"rounds_played"`
	Score          map[Team]int            `json:"score"`
	Players        map[string]PlayerRecord `json:"players"`
	Mistakes       []Mistake               `json:"mistakes"`
	MistakeSummary map[MistakeType]int     `json:"mistake_summary"`
	Predictions    []PredictionResult      `json:"predictions"`
	Rounds         []RoundSummary          `json:"rounds"`
}
