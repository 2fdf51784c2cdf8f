package predict

import (
	"math"
	"sort"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/features"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/roles"
)

// Side is one team's state at the start of a round.
type Side struct {
	Equipment    int
	Alive        int
	Entry        bool
	Support      bool
	Roles        int     // distinct roles held this round
	Mistakes     int     // over the recent history window
	HighSeverity int     // HIGH mistakes over the recent history window
	WPA          float64 // over the recent history window
}

// RoundState is the input of the round win model, from the T side's point of view.
type RoundState struct {
	Round int
	T     Side
	CT    Side
}

// EconomyContribution is the saturating economy term for an equipment difference.
func EconomyContribution(diff int, cfg config.RoundModel) float64 {
	return cfg.Economy * math.Tanh(float64(diff)/cfg.EconomyScale)
}

func boolDiff(a, b bool) float64 {
	var v float64
	if a {
		v++
	}
	if b {
		v--
	}
	return v
}

// RoundWin predicts the T side's probability of winning from s.
func RoundWin(s RoundState, cfg config.RoundModel) model.PredictionResult {
	econ := s.T.Equipment - s.CT.Equipment
	man := float64(s.T.Alive - s.CT.Alive)
	entry := boolDiff(s.T.Entry, s.CT.Entry)
	support := boolDiff(s.T.Support, s.CT.Support)
	diversity := float64(capi(s.T.Roles, cfg.RoleDiversityCap) - capi(s.CT.Roles, cfg.RoleDiversityCap))
	mistakes := float64(capi(s.T.Mistakes, cfg.MistakesCap) - capi(s.CT.Mistakes, cfg.MistakesCap))
	high := float64(capi(s.T.HighSeverity, cfg.HighSeverityCap) - capi(s.CT.HighSeverity, cfg.HighSeverityCap))
	momentum := clampf(s.T.WPA-s.CT.WPA, -cfg.MomentumCap, cfg.MomentumCap)

	factors := []model.Factor{
		{Name: "economy", Input: float64(econ), Contribution: EconomyContribution(econ, cfg)},
		{Name: "man_advantage", Input: man, Contribution: cfg.ManAdvantage * man},
		{Name: "has_entry", Input: entry, Contribution: cfg.HasEntry * entry},
		{Name: "has_support", Input: support, Contribution: cfg.HasSupport * support},
		{Name: "role_diversity", Input: diversity, Contribution: cfg.RoleDiversity * diversity},
		{Name: "recent_mistakes", Input: mistakes, Contribution: cfg.Mistakes * mistakes},
		{Name: "recent_high_severity", Input: high, Contribution: cfg.HighSeverity * high},
		{Name: "wpa_momentum", Input: momentum, Contribution: cfg.Momentum * momentum},
	}
	res := combine(model.PredictRoundWin, factors, cfg.LogOddsClamp, cfg.MinProbability, cfg.MaxProbability)
	res.Round = s.Round
	res.Team = model.TeamT
	return res
}

// RoundStates builds one RoundState per round from the frozen match features. History
// terms follow the players on each side, so they stay with a squad across the half swap.
func RoundStates(fr *features.Result, rr *roles.Result, ms []model.Mistake, history int) []RoundState {
	type key struct {
		player model.PlayerID
		round  int
	}
	wpa := make(map[key]float64, len(fr.PlayerRounds))
	for _, f := range fr.PlayerRounds {
		wpa[key{f.Player, f.Round}] = f.WPA
	}
	mistakes := make(map[key]int)
	high := make(map[key]int)
	for _, m := range ms {
		mistakes[key{m.Player, m.Round}]++
		if m.Label == model.SeverityHigh {
			high[key{m.Player, m.Round}]++
		}
	}

	states := make([]RoundState, 0, len(fr.Rounds))
	for i, r := range fr.Rounds {
		s := RoundState{
			Round: r.Number,
			T:     Side{Equipment: r.TeamEquipment[model.TeamT]},
			CT:    Side{Equipment: r.TeamEquipment[model.TeamCT]},
		}
		rolesHeld := map[model.Team]map[model.Role]bool{
			model.TeamT:  {},
			model.TeamCT: {},
		}
		for _, id := range sortedIDs(r.Sides) {
			team := r.Sides[id]
			side := sideOf(&s, team)
			if side == nil {
				continue
			}
			side.Alive++
			role := rr.RoundRole(id, r.Number)
			rolesHeld[team][role] = true
			switch role {
			case model.RoleEntry:
				side.Entry = true
			case model.RoleSupport:
				side.Support = true
			}
			for j := i - history; j < i; j++ {
				if j < 0 {
					continue
				}
				prev := fr.Rounds[j].Number
				side.WPA += wpa[key{id, prev}]
				side.Mistakes += mistakes[key{id, prev}]
				side.HighSeverity += high[key{id, prev}]
			}
		}
		s.T.Roles = len(rolesHeld[model.TeamT])
		s.CT.Roles = len(rolesHeld[model.TeamCT])
		states = append(states, s)
	}
	return states
}

func sortedIDs(sides map[model.PlayerID]model.Team) []model.PlayerID {
	ids := make([]model.PlayerID, 0, len(sides))
	for id := range sides {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sideOf(s *RoundState, team model.Team) *Side {
	switch team {
	case model.TeamT:
		return &s.T
	case model.TeamCT:
		return &s.CT
	}
	return nil
}

// Rounds predicts every round of a match.
func Rounds(fr *features.Result, rr *roles.Result, ms []model.Mistake, cfg config.RoundModel) []model.PredictionResult {
	states := RoundStates(fr, rr, ms, cfg.HistoryRounds)
	out := make([]model.PredictionResult, 0, len(states))
	for _, s := range states {
		out = append(out, RoundWin(s, cfg))
	}
	return out
}
