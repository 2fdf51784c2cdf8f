package predict

import (
	"math"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/roles"
)

// PlayerImpact predicts the probability that p has an above-average impact next match.
// mistakes are the player's own mistakes in this match.
func PlayerImpact(p *model.PlayerMatchFeatures, role model.RoleAssignment, mistakes int, cfg config.PlayerModel) model.PredictionResult {
	var rate, std, comfort, mistakeRate float64
	if p.RoundsPlayed > 0 {
		n := float64(p.RoundsPlayed)
		rate = 10 * p.WPA / n
		comfort = float64(p.FullBuyRounds)/n - 0.5
		mistakeRate = float64(mistakes) / n
		std = wpaStd(p.Rounds)
	}
	consistency := 0.2 - std
	trade := p.TradePotential()/100 - 0.5

	factors := []model.Factor{
		{Name: "wpa_rate", Input: rate, Contribution: cfg.WPARate * rate},
		{Name: "consistency", Input: consistency, Contribution: cfg.Consistency * consistency},
		{Name: "role_confidence", Input: role.Confidence, Contribution: cfg.RoleConfidence * role.Confidence},
		{Name: "economy_comfort", Input: comfort, Contribution: cfg.EconomyComfort * comfort},
		{Name: "trade_support", Input: trade, Contribution: cfg.TradeSupport * trade},
		{Name: "recent_mistakes", Input: mistakeRate, Contribution: cfg.RecentMistakes * mistakeRate},
	}
	res := combine(model.PredictPlayerImpact, factors, cfg.LogOddsClamp, cfg.MinProbability, cfg.MaxProbability)
	res.Player = p.Player
	return res
}

func wpaStd(rounds []model.PlayerRoundFeatures) float64 {
	if len(rounds) < 2 {
		return 0
	}
	var mean float64
	for i := range rounds {
		mean += rounds[i].WPA
	}
	mean /= float64(len(rounds))
	var ss float64
	for i := range rounds {
		d := rounds[i].WPA - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rounds)))
}

// Players predicts every player of a match, in the order given.
func Players(players []model.PlayerMatchFeatures, rr *roles.Result, ms []model.Mistake, cfg config.PlayerModel) []model.PredictionResult {
	counts := make(map[model.PlayerID]int)
	for _, m := range ms {
		counts[m.Player]++
	}
	out := make([]model.PredictionResult, 0, len(players))
	for i := range players {
		p := &players[i]
		out = append(out, PlayerImpact(p, rr.Match[p.Player], counts[p.Player], cfg))
	}
	return out
}
