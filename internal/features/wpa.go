package features

import (
	"math"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/model"
)

// State is the in-round situation a win probability is computed from.
type State struct {
	AliveT      int
	AliveCT     int
	EquipmentT  int
	EquipmentCT int
	Planted     bool
}

// WinProbability returns the probability that team wins the round from s.
func WinProbability(s State, team model.Team, cfg config.WPA) float64 {
	pT := winProbabilityT(s, cfg)
	if team == model.TeamCT {
		return 1 - pT
	}
	return pT
}

func winProbabilityT(s State, cfg config.WPA) float64 {
	switch {
	case s.AliveCT == 0:
		return 1
	case s.AliveT == 0 && !s.Planted:
		return 0
	}
	l := cfg.ManAdvantage*float64(s.AliveT-s.AliveCT) +
		cfg.Economy*math.Tanh(float64(s.EquipmentT-s.EquipmentCT)/cfg.EconomyScale)
	if s.Planted {
		l += cfg.Bomb
	}
	return sigmoid(l)
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// Phase buckets elapsed seconds of a round.
func Phase(elapsed float64, cfg config.Features) model.RoundPhase {
	ratio := elapsed / cfg.RoundDurationSeconds
	switch {
	case ratio < cfg.EarlyPhaseRatio:
		return model.PhaseEarly
	case ratio < cfg.LatePhaseRatio:
		return model.PhaseMid
	default:
		return model.PhaseLate
	}
}

// EcoFor classifies an equipment value.
func EcoFor(equipment int, cfg config.Features) model.EcoState {
	switch {
	case equipment < cfg.EcoThreshold:
		return model.EcoEco
	case equipment < cfg.FullBuyThreshold:
		return model.EcoForce
	default:
		return model.EcoFull
	}
}
