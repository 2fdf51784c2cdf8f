package model

// RoundPhase buckets a moment of a round by elapsed share of the configured round duration.
type RoundPhase string

const (
	PhaseEarly RoundPhase = "early"
	PhaseMid   RoundPhase = "mid"
	PhaseLate  RoundPhase = "late"
)

// EcoState classifies a player's buy for a round.
type EcoState string

const (
	EcoEco   EcoState = "eco"
	EcoForce EcoState = "force"
	EcoFull  EcoState = "full"
)

// NoTeammateDistance is reported when no alive teammate position is known.
const NoTeammateDistance = 9999.0

// DeathContext is derived once per kill event.
type DeathContext struct {
	Round      int      `json:"round"`
	Tick       int      `json:"tick"`
	VictimID   PlayerID `json:"victim_id"`
	KillerID   PlayerID `json:"killer_id,omitempty"`
	VictimTeam Team     `json:"victim_team"`
	KillerTeam Team     `json:"killer_team"`
	Weapon     string   `json:"weapon,omitempty"`
	VictimPos  Vec3     `json:"victim_pos"`
	KillerPos  Vec3     `json:"killer_pos"`

	WasTraded         bool     `json:"was_traded"`
	TradedBy          PlayerID `json:"traded_by,omitempty"`
	TradeDelaySeconds float64  `json:"trade_delay_seconds,omitempty"`

	NearestTeammateDistance float64 `json:"nearest_teammate_distance"`
	TeammatesInTradeRange   int     `json:"teammates_in_trade_range"`
	TeammatesAlive          int     `json:"teammates_alive"` // victim's side, excluding victim, before the kill
	EnemiesAlive            int     `json:"enemies_alive"`   // before the kill
	// Attackers counts distinct enemies who damaged the victim inside the crossfire
	// window, the killer included.
	Attackers int `json:"attackers"`

	HadFlashSupport bool `json:"had_flash_support"`
	HadSmokeSupport bool `json:"had_smoke_support"`
	VictimBlind     bool `json:"victim_blind"`

	Phase       RoundPhase `json:"round_phase"`
	IsEntryFrag bool       `json:"is_entry_frag"`
	IsExitFrag  bool       `json:"is_exit_frag"`
	IsSwingKill bool       `json:"is_swing_kill"`
	IsTeamKill  bool       `json:"is_team_kill,omitempty"`
	AfterPlant  bool       `json:"after_plant"`

	// WPA swing of the victim's side caused by this death (<= 0 for a normal kill).
	VictimWPA float64 `json:"victim_wpa"`
}

// Tradeable reports whether a teammate was positioned to trade.
func (d *DeathContext) Tradeable() bool { return d.TeammatesInTradeRange > 0 }

// DryPeek reports a death without flash support, blindness or smoke cover.
func (d *DeathContext) DryPeek() bool {
	return !d.HadFlashSupport && !d.VictimBlind && !d.HadSmokeSupport
}

// FlashOutcome summarizes what one thrown flashbang achieved.
type FlashOutcome struct {
	Round            int      `json:"round"`
	Tick             int      `json:"tick"`
	ThrowerID        PlayerID `json:"thrower_id"`
	Team             Team     `json:"team"`
	EnemiesBlinded   int      `json:"enemies_blinded"`
	TeammatesBlinded int      `json:"teammates_blinded"`
	FollowupKill     bool     `json:"followup_kill"` // team kill inside the followup window
}

// RetakeArrival tracks one defender's response to a bomb plant.
type RetakeArrival struct {
	PlayerID    PlayerID `json:"player_id"`
	ArrivalTick int      `json:"arrival_tick,omitempty"` // 0 when never within retake radius
	DeathTick   int      `json:"death_tick,omitempty"`
}

// PlantContext is derived once per bomb plant.
type PlantContext struct {
	Round      int             `json:"round"`
	Tick       int             `json:"tick"`
	PlanterID  PlayerID        `json:"planter_id"`
	Site       string          `json:"site,omitempty"`
	Pos        Vec3            `json:"pos"`
	DefuseTick int             `json:"defuse_tick,omitempty"`
	EndTick    int             `json:"end_tick"`
	NearPlant  []PlayerID      `json:"near_plant,omitempty"`
	Retakes    []RetakeArrival `json:"retakes,omitempty"`
}

// RoundFeatures is the per-round, team-level state used by the predictor and the output.
type RoundFeatures struct {
	Number        int               `json:"number"`
	StartTick     int               `json:"start_tick"`
	EndTick       int               `json:"end_tick"`
	Winner        Team              `json:"winner"`
	Sides         map[PlayerID]Team `json:"sides"`
	TeamEquipment map[Team]int      `json:"team_equipment"`
	Planted       bool              `json:"planted"`
	TeamWPA       map[Team]float64  `json:"team_wpa"`
}

// PlayerRoundFeatures holds one player's features for one round.
type PlayerRoundFeatures struct {
	Player PlayerID `json:"player"`
	Round  int      `json:"round"`
	Team   Team     `json:"team"`

	Kills         int `json:"kills"`
	Deaths        int `json:"deaths"`
	Damage        int `json:"damage"`
	FlashAssists  int `json:"flash_assists"`
	HeadshotKills int `json:"headshot_kills"`
	SniperKills   int `json:"sniper_kills"`
	SniperDamage  int `json:"sniper_damage"`

	EntryAttempt bool `json:"entry_attempt"`
	EntrySuccess bool `json:"entry_success"`
	ExitFrags    int  `json:"exit_frags"`
	SwingKills   int  `json:"swing_kills"`
	TradeKills   int  `json:"trade_kills"`

	TradedDeath      bool       `json:"traded_death"`
	UntradeableDeath bool       `json:"untradeable_death"`
	DeathPhase       RoundPhase `json:"death_phase,omitempty"`

	FirstContactSeconds float64 `json:"first_contact_seconds"` // -1 when no contact
	TeamFirstContact    bool    `json:"team_first_contact"`

	FlashesThrown  int  `json:"flashes_thrown"`
	SmokesThrown   int  `json:"smokes_thrown"`
	EnemiesFlashed int  `json:"enemies_flashed"`
	Planted        bool `json:"planted"`
	Defused        bool `json:"defused"`
	NearPlant      bool `json:"near_plant"`

	WPA                 float64 `json:"wpa"`
	AvgTeammateDistance float64 `json:"avg_teammate_distance"`
	TeammateSamples     int     `json:"teammate_samples"`
	PathDistance        float64 `json:"path_distance"`

	Alive     bool     `json:"alive"`
	Equipment int      `json:"equipment"`
	Eco       EcoState `json:"eco"`

	ClutchOpponents int  `json:"clutch_opponents,omitempty"`
	ClutchWon       bool `json:"clutch_won,omitempty"`
	KAST            bool `json:"kast"`
	RoundWon        bool `json:"round_won"`
}

// PlayerMatchFeatures is the per-match roll-up of a player's rounds.
type PlayerMatchFeatures struct {
	Player PlayerID `json:"player"`
	Name   string   `json:"name"`
	Squad  Team     `json:"squad"` // side held in the player's first round

	RoundsPlayed      int `json:"rounds_played"`
	Kills             int `json:"kills"`
	Deaths            int `json:"deaths"`
	Damage            int `json:"damage"`
	FlashAssists      int `json:"flash_assists"`
	HeadshotKills     int `json:"headshot_kills"`
	SniperKills       int `json:"sniper_kills"`
	KillsInWonRounds  int `json:"kills_in_won_rounds"`
	EntryAttempts     int `json:"entry_attempts"`
	EntrySuccesses    int `json:"entry_successes"`
	ExitFrags         int `json:"exit_frags"`
	SwingKills        int `json:"swing_kills"`
	TradeKills        int `json:"trade_kills"`
	TradedDeaths      int `json:"traded_deaths"`
	TradeableDeaths   int `json:"tradeable_deaths"`
	UntradeableDeaths int `json:"untradeable_deaths"`
	FlashesThrown     int `json:"flashes_thrown"`
	SmokesThrown      int `json:"smokes_thrown"`
	Plants            int `json:"plants"`
	Defuses           int `json:"defuses"`
	ClutchAttempts    int `json:"clutch_attempts"`
	ClutchWins        int `json:"clutch_wins"`
	ClutchWinWeight   int `json:"clutch_win_weight"` // sum of opponents faced in won clutches
	KASTRounds        int `json:"kast_rounds"`
	FullBuyRounds     int `json:"full_buy_rounds"`

	WPA                 float64 `json:"wpa"`
	AvgTeammateDistance float64 `json:"avg_teammate_distance"`

	Rounds []PlayerRoundFeatures `json:"-"`
}

// KDR returns kills/deaths, or kills when the player never died.
func (p *PlayerMatchFeatures) KDR() float64 {
	if p.Deaths == 0 {
		return float64(p.Kills)
	}
	return float64(p.Kills) / float64(p.Deaths)
}

// KAST returns the KAST share in [0,1].
func (p *PlayerMatchFeatures) KAST() float64 {
	if p.RoundsPlayed == 0 {
		return 0
	}
	return float64(p.KASTRounds) / float64(p.RoundsPlayed)
}

// ADR returns average damage per round.
func (p *PlayerMatchFeatures) ADR() float64 {
	if p.RoundsPlayed == 0 {
		return 0
	}
	return float64(p.Damage) / float64(p.RoundsPlayed)
}

// TradePotential returns the share of deaths where a teammate could have traded, in
// percent. Zero deaths yields 100 by convention.
func (p *PlayerMatchFeatures) TradePotential() float64 {
	if p.Deaths == 0 {
		return 100
	}
	return 100 * float64(p.TradeableDeaths) / float64(p.Deaths)
}

// EntrySuccessRate returns entry successes over attempts.
func (p *PlayerMatchFeatures) EntrySuccessRate() float64 {
	if p.EntryAttempts == 0 {
		return 0
	}
	return float64(p.EntrySuccesses) / float64(p.EntryAttempts)
}
