package model

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// PlayerID is the stable player identity (SteamID64 for decoded demos).
type PlayerID uint64

// Team represents a side in CS2.
type Team int

const (
	TeamUnknown    Team = 0
	TeamSpectators Team = 1
	TeamT          Team = 2
	TeamCT         Team = 3
)

func (t Team) String() string {
	switch t {
	case TeamT:
		return "T"
	case TeamCT:
		return "CT"
	case TeamSpectators:
		return "SPEC"
	default:
		return "?"
	}
}

// MarshalText renders the side as "T", "CT", "SPEC" or "?".
func (t Team) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText parses the MarshalText form.
func (t *Team) UnmarshalText(b []byte) error {
	switch string(b) {
	case "T":
		*t = TeamT
	case "CT":
		*t = TeamCT
	case "SPEC":
		*t = TeamSpectators
	case "?", "":
		*t = TeamUnknown
	default:
		return fmt.Errorf("unknown team %q", string(b))
	}
	return nil
}

// Opponent returns the other playing side. Non-playing sides map to TeamUnknown.
func (t Team) Opponent() Team {
	switch t {
	case TeamT:
		return TeamCT
	case TeamCT:
		return TeamT
	default:
		return TeamUnknown
	}
}

// EventKind names one kind of MatchEvent.
type EventKind string

const (
	EventKill       EventKind = "kill"
	EventDamage     EventKind = "damage"
	EventFlash      EventKind = "flash" // flashbang detonation by actor
	EventBlind      EventKind = "blind" // actor blinded target
	EventSmoke      EventKind = "smoke" // smoke detonation by actor
	EventPlant      EventKind = "plant"
	EventDefuse     EventKind = "defuse"
	EventPosition   EventKind = "position"
	EventRoundStart EventKind = "round_start"
	EventRoundEnd   EventKind = "round_end"
)

// Known reports whether k is one of the supported event kinds.
func (k EventKind) Known() bool {
	switch k {
	case EventKill, EventDamage, EventFlash, EventBlind, EventSmoke,
		EventPlant, EventDefuse, EventPosition, EventRoundStart, EventRoundEnd:
		return true
	}
	return false
}

// Vec3 is a 3D world position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// VecFromR3 converts a geo vector.
func VecFromR3(v r3.Vector) Vec3 { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }

// R3 returns the vector as a geo r3.Vector.
func (v Vec3) R3() r3.Vector { return r3.Vector{X: v.X, Y: v.Y, Z: v.Z} }

// Dist is the euclidean distance between two positions.
func (v Vec3) Dist(o Vec3) float64 { return v.R3().Sub(o.R3()).Norm() }

// Flat drops the height component.
func (v Vec3) Flat() r3.Vector { return r3.Vector{X: v.X, Y: v.Y} }

// SegmentDistance2D returns the XY-plane distance from p to the segment a-b.
func SegmentDistance2D(p, a, b Vec3) float64 {
	ap := p.Flat().Sub(a.Flat())
	ab := b.Flat().Sub(a.Flat())
	l2 := ab.Norm2()
	if l2 == 0 {
		return ap.Norm()
	}
	t := math.Max(0, math.Min(1, ap.Dot(ab)/l2))
	closest := a.Flat().Add(ab.Mul(t))
	return p.Flat().Sub(closest).Norm()
}

// MatchEvent is one immutable decoded event.
type MatchEvent struct {
	Kind      EventKind `json:"kind"`
	Tick      int       `json:"tick"`
	Round     int       `json:"round"`
	ActorID   PlayerID  `json:"actor_id,omitempty"`
	TargetID  PlayerID  `json:"target_id,omitempty"`
	ActorPos  Vec3      `json:"actor_pos"`
	TargetPos Vec3      `json:"target_pos"`
	Weapon    string    `json:"weapon,omitempty"`
	Headshot  bool      `json:"headshot,omitempty"`
	Blind     bool      `json:"blind,omitempty"`    // kill: victim blind at death
	Damage    int       `json:"damage,omitempty"`   // damage: health damage
	Duration  float64   `json:"duration,omitempty"` // blind: seconds
	Winner    Team      `json:"winner,omitempty"`   // round_end
	Site      string    `json:"site,omitempty"`     // plant/defuse
}

// RoundSides is the per-round metadata supplied by the decoder.
type RoundSides struct {
	Number    int               `json:"number"`
	Sides     map[PlayerID]Team `json:"sides"`
	Equipment map[PlayerID]int  `json:"equipment,omitempty"` // equipment value at freeze end
}

// MatchMeta describes the match an event stream belongs to.
type MatchMeta struct {
	DemoHash    string              `json:"demo_hash"`
	MapName     string              `json:"map"`
	MatchDate   string              `json:"match_date,omitempty"`
	TickRate    float64             `json:"tick_rate"`
	Rounds      []RoundSides        `json:"rounds"`
	PlayerNames map[PlayerID]string `json:"player_names,omitempty"`
}

// SidesFor returns the side assignment for round n, or nil.
func (m *MatchMeta) SidesFor(n int) *RoundSides {
	for i := range m.Rounds {
		if m.Rounds[i].Number == n {
			return &m.Rounds[i]
		}
	}
	return nil
}

// MatchInput is the full input contract of one match analysis.
type MatchInput struct {
	Meta   MatchMeta    `json:"meta"`
	Events []MatchEvent `json:"events"`
}

// IsSniper reports whether a weapon name is a scoped sniper rifle.
func IsSniper(weapon string) bool {
	switch weapon {
	case "AWP", "SSG 08", "SCAR-20", "G3SG1", "awp", "ssg08", "scar20", "g3sg1":
		return true
	}
	return false
}
