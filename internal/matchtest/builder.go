// Package matchtest builds synthetic event streams for tests.
package matchtest

import (
	"math"

	"github.com/pable/go-cs-coach/internal/model"
)

// TickRate is the tick rate of every built match.
const TickRate = 64.0

// Player ids of the two built squads. T1..T5 start on T, C1..C5 on CT.
const (
	T1 model.PlayerID = 1001 + iota
	T2
	T3
	T4
	T5
)

const (
	C1 model.PlayerID = 2001 + iota
	C2
	C3
	C4
	C5
)

// TSquad and CTSquad list the built squads.
var (
	TSquad  = []model.PlayerID{T1, T2, T3, T4, T5}
	CTSquad = []model.PlayerID{C1, C2, C3, C4, C5}
)

// Builder accumulates a MatchInput. Methods append in call order, so callers keep
// ticks non-decreasing by using At with growing offsets.
type Builder struct {
	in         model.MatchInput
	round      int
	roundStart int
	tick       int
	swapped    bool
	equipment  map[model.PlayerID]int
	pos        map[model.PlayerID]model.Vec3
}

// New returns a builder for a 5v5 match on mirage.
func New() *Builder {
	b := &Builder{
		in: model.MatchInput{Meta: model.MatchMeta{
			DemoHash:    "testhash0000000000000000",
			MapName:     "de_mirage",
			TickRate:    TickRate,
			PlayerNames: make(map[model.PlayerID]string),
		}},
		equipment: make(map[model.PlayerID]int),
		pos:       make(map[model.PlayerID]model.Vec3),
	}
	for i, id := range TSquad {
		b.in.Meta.PlayerNames[id] = "t" + string(rune('1'+i))
	}
	for i, id := range CTSquad {
		b.in.Meta.PlayerNames[id] = "ct" + string(rune('1'+i))
	}
	return b
}

// Map sets the map name.
func (b *Builder) Map(name string) *Builder {
	b.in.Meta.MapName = name
	return b
}

// Swap switches sides for all following rounds.
func (b *Builder) Swap() *Builder {
	b.swapped = !b.swapped
	return b
}

// Equipment sets a player's equipment value for following rounds.
func (b *Builder) Equipment(p model.PlayerID, value int) *Builder {
	b.equipment[p] = value
	return b
}

// Side returns p's side in the current half.
func (b *Builder) Side(p model.PlayerID) model.Team {
	t := model.TeamCT
	if p < C1 {
		t = model.TeamT
	}
	if b.swapped {
		return t.Opponent()
	}
	return t
}

// StartRound opens round n one second after the previous tick.
func (b *Builder) StartRound(n int) *Builder {
	b.round = n
	if b.tick > 0 {
		b.tick += int(TickRate)
	}
	b.roundStart = b.tick
	sides := model.RoundSides{
		Number:    n,
		Sides:     make(map[model.PlayerID]model.Team),
		Equipment: make(map[model.PlayerID]int),
	}
	for _, id := range append(append([]model.PlayerID{}, TSquad...), CTSquad...) {
		sides.Sides[id] = b.Side(id)
		eq, ok := b.equipment[id]
		if !ok {
			eq = 4700
		}
		sides.Equipment[id] = eq
	}
	b.in.Meta.Rounds = append(b.in.Meta.Rounds, sides)
	b.pos = make(map[model.PlayerID]model.Vec3)
	return b.emit(model.MatchEvent{Kind: model.EventRoundStart})
}

// At moves the clock to seconds after the current round start.
func (b *Builder) At(seconds float64) *Builder {
	t := b.roundStart + int(math.Round(seconds*TickRate))
	if t > b.tick {
		b.tick = t
	}
	return b
}

// Tick returns the current tick.
func (b *Builder) Tick() int { return b.tick }

// Place emits a position sample.
func (b *Builder) Place(p model.PlayerID, x, y float64) *Builder {
	v := model.Vec3{X: x, Y: y}
	b.pos[p] = v
	return b.emit(model.MatchEvent{Kind: model.EventPosition, ActorID: p, ActorPos: v})
}

// KillOpt adjusts a kill event.
type KillOpt func(*model.MatchEvent)

// Weapon sets the kill weapon.
func Weapon(w string) KillOpt { return func(e *model.MatchEvent) { e.Weapon = w } }

// Headshot marks the kill as a headshot.
func Headshot() KillOpt { return func(e *model.MatchEvent) { e.Headshot = true } }

// VictimBlind marks the victim as blind at death.
func VictimBlind() KillOpt { return func(e *model.MatchEvent) { e.Blind = true } }

// Kill emits a kill using the last placed positions of both players.
func (b *Builder) Kill(killer, victim model.PlayerID, opts ...KillOpt) *Builder {
	ev := model.MatchEvent{
		Kind:      model.EventKill,
		ActorID:   killer,
		TargetID:  victim,
		ActorPos:  b.pos[killer],
		TargetPos: b.pos[victim],
		Weapon:    "AK-47",
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return b.emit(ev)
}

// Damage emits a damage event.
func (b *Builder) Damage(attacker, victim model.PlayerID, hp int, weapon string) *Builder {
	return b.emit(model.MatchEvent{
		Kind: model.EventDamage, ActorID: attacker, TargetID: victim,
		ActorPos: b.pos[attacker], TargetPos: b.pos[victim], Damage: hp, Weapon: weapon,
	})
}

// Flash emits a flash detonation at x,y.
func (b *Builder) Flash(thrower model.PlayerID, x, y float64) *Builder {
	return b.emit(model.MatchEvent{Kind: model.EventFlash, ActorID: thrower, ActorPos: model.Vec3{X: x, Y: y}})
}

// Blind emits a blind of target by thrower.
func (b *Builder) Blind(thrower, target model.PlayerID, seconds float64) *Builder {
	return b.emit(model.MatchEvent{Kind: model.EventBlind, ActorID: thrower, TargetID: target, Duration: seconds})
}

// Smoke emits a smoke detonation at x,y.
func (b *Builder) Smoke(thrower model.PlayerID, x, y float64) *Builder {
	return b.emit(model.MatchEvent{Kind: model.EventSmoke, ActorID: thrower, ActorPos: model.Vec3{X: x, Y: y}})
}

// Plant emits a bomb plant at the planter's last position.
func (b *Builder) Plant(p model.PlayerID) *Builder {
	return b.emit(model.MatchEvent{Kind: model.EventPlant, ActorID: p, ActorPos: b.pos[p], Site: "A"})
}

// Defuse emits a bomb defuse.
func (b *Builder) Defuse(p model.PlayerID) *Builder {
	return b.emit(model.MatchEvent{Kind: model.EventDefuse, ActorID: p, ActorPos: b.pos[p], Site: "A"})
}

// EndRound closes the round with winner.
func (b *Builder) EndRound(winner model.Team) *Builder {
	return b.emit(model.MatchEvent{Kind: model.EventRoundEnd, Winner: winner})
}

// Emit appends a raw event at the current tick and round.
func (b *Builder) Emit(ev model.MatchEvent) *Builder { return b.emit(ev) }

func (b *Builder) emit(ev model.MatchEvent) *Builder {
	ev.Tick = b.tick
	ev.Round = b.round
	b.in.Events = append(b.in.Events, ev)
	return b
}

// Input returns the built input.
func (b *Builder) Input() model.MatchInput { return b.in }

// QuietRounds appends n rounds in which side winner wins with no events. It is a cheap way
// to lengthen a match.
func (b *Builder) QuietRounds(first, n int, winner model.Team) *Builder {
	for r := first; r < first+n; r++ {
		b.StartRound(r).At(60).EndRound(winner)
	}
	return b
}
