// Package normalize validates a decoded event stream and groups it into rounds.
package normalize

import (
	"fmt"
	"math"
	"sort"

	"github.com/pable/go-cs-coach/internal/errs"
	"github.com/pable/go-cs-coach/internal/model"
)

// Round is one completed round with its in-round events in tick order.
type Round struct {
	Number    int
	StartTick int
	EndTick   int
	Winner    model.Team
	Sides     map[model.PlayerID]model.Team
	Equipment map[model.PlayerID]int
	Events    []model.MatchEvent // round_start/round_end excluded
}

// Side returns the side of p this round.
func (r *Round) Side(p model.PlayerID) model.Team { return r.Sides[p] }

// Match is the normalized, frozen view of one match.
type Match struct {
	Meta           model.MatchMeta
	TicksPerSecond float64
	Rounds         []Round
	Players        []model.PlayerID // ascending
	Squads         map[model.PlayerID]model.Team
	EventCount     int
	DroppedRounds  []int // rounds with no round_end, discarded
}

// Ticks converts match seconds to ticks.
func (m *Match) Ticks(seconds float64) int {
	return int(math.Round(seconds * m.TicksPerSecond))
}

// Seconds converts ticks to match seconds.
func (m *Match) Seconds(ticks int) float64 {
	return float64(ticks) / m.TicksPerSecond
}

// Name returns the display name of p, falling back to its id.
func (m *Match) Name(p model.PlayerID) string {
	if n, ok := m.Meta.PlayerNames[p]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("%d", p)
}

func malformed(i int, ev model.MatchEvent, format string, args ...any) error {
	return fmt.Errorf("%w: event %d (%s, tick %d, round %d): %s",
		errs.ErrMalformedInput, i, ev.Kind, ev.Tick, ev.Round, fmt.Sprintf(format, args...))
}

// Normalize validates the input contract and builds a Match. Any violation returns an error
// wrapping errs.ErrMalformedInput.
func Normalize(in model.MatchInput) (*Match, error) {
	if in.Meta.TickRate <= 0 || math.IsNaN(in.Meta.TickRate) || math.IsInf(in.Meta.TickRate, 0) {
		return nil, fmt.Errorf("%w: missing or invalid tick rate %v", errs.ErrMalformedInput, in.Meta.TickRate)
	}

	m := &Match{
		Meta:           in.Meta,
		TicksPerSecond: in.Meta.TickRate,
		Squads:         make(map[model.PlayerID]model.Team),
	}

	var (
		open      *Round
		lastRound int
		prevTick  = math.MinInt
	)

	for i, ev := range in.Events {
		if ev.Tick < prevTick {
			return nil, malformed(i, ev, "tick decreases from %d", prevTick)
		}
		prevTick = ev.Tick
		if !ev.Kind.Known() {
			return nil, malformed(i, ev, "unknown event kind")
		}

		switch ev.Kind {
		case model.EventRoundStart:
			if open != nil {
				return nil, malformed(i, ev, "round %d is still open", open.Number)
			}
			if ev.Round <= lastRound {
				return nil, malformed(i, ev, "round number must increase past %d", lastRound)
			}
			sides := in.Meta.SidesFor(ev.Round)
			if sides == nil || len(sides.Sides) == 0 {
				return nil, malformed(i, ev, "no side assignment for round")
			}
			open = &Round{
				Number:    ev.Round,
				StartTick: ev.Tick,
				Sides:     sides.Sides,
				Equipment: sides.Equipment,
			}
			lastRound = ev.Round
			continue

		case model.EventRoundEnd:
			if open == nil {
				return nil, malformed(i, ev, "round_end without round_start")
			}
			if ev.Round != open.Number {
				return nil, malformed(i, ev, "round_end for open round %d", open.Number)
			}
			open.EndTick = ev.Tick
			open.Winner = ev.Winner
			m.Rounds = append(m.Rounds, *open)
			open = nil
			continue
		}

		if open == nil {
			return nil, malformed(i, ev, "event outside of a round")
		}
		if ev.Round != open.Number {
			return nil, malformed(i, ev, "event tagged for a round other than open round %d", open.Number)
		}
		if err := checkParticipants(i, ev, open); err != nil {
			return nil, err
		}
		open.Events = append(open.Events, ev)
		m.EventCount++
	}

	if open != nil {
		m.DroppedRounds = append(m.DroppedRounds, open.Number)
		m.EventCount -= len(open.Events)
	}

	seen := make(map[model.PlayerID]bool)
	for _, r := range m.Rounds {
		// Iterate in id order so squads do not depend on map order.
		ids := make([]model.PlayerID, 0, len(r.Sides))
		for id := range r.Sides {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		for _, id := range ids {
			side := r.Sides[id]
			if side != model.TeamT && side != model.TeamCT {
				continue
			}
			if !seen[id] {
				seen[id] = true
				m.Players = append(m.Players, id)
				m.Squads[id] = side
			}
		}
	}
	sort.Slice(m.Players, func(a, b int) bool { return m.Players[a] < m.Players[b] })

	return m, nil
}

// checkParticipants verifies that every referenced player has a side this round.
func checkParticipants(i int, ev model.MatchEvent, r *Round) error {
	needsActor := true
	needsTarget := false
	switch ev.Kind {
	case model.EventKill, model.EventDamage:
		needsActor = false // world and fall damage have no actor
		needsTarget = true
	case model.EventBlind:
		needsTarget = true
	}

	if ev.ActorID == 0 && needsActor {
		return malformed(i, ev, "missing actor")
	}
	if ev.ActorID != 0 {
		if _, ok := r.Sides[ev.ActorID]; !ok {
			return malformed(i, ev, "actor %d has no side this round", ev.ActorID)
		}
	}
	if ev.TargetID == 0 && needsTarget {
		return malformed(i, ev, "missing target")
	}
	if ev.TargetID != 0 {
		if _, ok := r.Sides[ev.TargetID]; !ok {
			return malformed(i, ev, "target %d has no side this round", ev.TargetID)
		}
	}
	return nil
}
