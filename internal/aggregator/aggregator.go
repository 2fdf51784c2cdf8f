package aggregator

import (
	"fmt"
	"sort"

	"github.com/pable/go-cs-coach/internal/features"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/normalize"
)

// DefaultTeammateDistance is reported for players with no teammate distance samples.
const DefaultTeammateDistance = 1000.0

// Aggregate rolls the per-round features of a match up into one PlayerMatchFeatures per
// player, ordered by player id.
func Aggregate(m *normalize.Match, fr *features.Result) ([]model.PlayerMatchFeatures, error) {
	if m == nil || fr == nil {
		return nil, fmt.Errorf("nil match or features")
	}

	byPlayer := make(map[model.PlayerID]*model.PlayerMatchFeatures, len(m.Players))
	for _, id := range m.Players {
		byPlayer[id] = &model.PlayerMatchFeatures{
			Player: id,
			Name:   m.Name(id),
			Squad:  m.Squads[id],
		}
	}

	// ---- Pass 1: sum per-round counters. ----

	distSum := make(map[model.PlayerID]float64)
	distSamples := make(map[model.PlayerID]int)
	for _, rf := range fr.PlayerRounds {
		p, ok := byPlayer[rf.Player]
		if !ok {
			return nil, fmt.Errorf("round %d: player %d has features but no squad", rf.Round, rf.Player)
		}
		p.RoundsPlayed++
		p.Kills += rf.Kills
		p.Deaths += rf.Deaths
		p.Damage += rf.Damage
		p.FlashAssists += rf.FlashAssists
		p.HeadshotKills += rf.HeadshotKills
		p.SniperKills += rf.SniperKills
		if rf.RoundWon {
			p.KillsInWonRounds += rf.Kills
		}
		if rf.EntryAttempt {
			p.EntryAttempts++
		}
		if rf.EntrySuccess {
			p.EntrySuccesses++
		}
		p.ExitFrags += rf.ExitFrags
		p.SwingKills += rf.SwingKills
		p.TradeKills += rf.TradeKills
		if rf.TradedDeath {
			p.TradedDeaths++
		}
		p.FlashesThrown += rf.FlashesThrown
		p.SmokesThrown += rf.SmokesThrown
		if rf.Planted {
			p.Plants++
		}
		if rf.Defused {
			p.Defuses++
		}
		if rf.ClutchOpponents > 0 {
			p.ClutchAttempts++
			if rf.ClutchWon {
				p.ClutchWins++
				p.ClutchWinWeight += rf.ClutchOpponents
			}
		}
		if rf.KAST {
			p.KASTRounds++
		}
		if rf.Eco == model.EcoFull {
			p.FullBuyRounds++
		}
		p.WPA += rf.WPA

		distSum[rf.Player] += rf.AvgTeammateDistance * float64(rf.TeammateSamples)
		distSamples[rf.Player] += rf.TeammateSamples

		p.Rounds = append(p.Rounds, rf)
	}

	// ---- Pass 2: tradeability from death contexts. ----

	for i := range fr.Deaths {
		d := &fr.Deaths[i]
		p, ok := byPlayer[d.VictimID]
		if !ok {
			continue
		}
		if d.Tradeable() {
			p.TradeableDeaths++
		} else {
			p.UntradeableDeaths++
		}
	}

	// ---- Pass 3: averages and output order. ----

	out := make([]model.PlayerMatchFeatures, 0, len(byPlayer))
	for _, id := range m.Players {
		p := byPlayer[id]
		p.AvgTeammateDistance = DefaultTeammateDistance
		if n := distSamples[id]; n > 0 {
			p.AvgTeammateDistance = distSum[id] / float64(n)
		}
		sort.Slice(p.Rounds, func(i, j int) bool { return p.Rounds[i].Round < p.Rounds[j].Round })
		out = append(out, *p)
	}
	return out, nil
}

// Squad returns the players of side team, in id order.
func Squad(players []model.PlayerMatchFeatures, team model.Team) []model.PlayerMatchFeatures {
	var out []model.PlayerMatchFeatures
	for _, p := range players {
		if p.Squad == team {
			out = append(out, p)
		}
	}
	return out
}
