package aggregator

import (
	"testing"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/features"
	"github.com/pable/go-cs-coach/internal/matchtest"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/normalize"
)

func aggregate(t *testing.T, b *matchtest.Builder) map[model.PlayerID]model.PlayerMatchFeatures {
	t.Helper()
	m, err := normalize.Normalize(b.Input())
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	fr, err := features.Compute(m, config.New().Features)
	if err != nil {
		t.Fatalf("features: %v", err)
	}
	players, err := Aggregate(m, fr)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	out := make(map[model.PlayerID]model.PlayerMatchFeatures, len(players))
	for _, p := range players {
		out[p.Player] = p
	}
	return out
}

// ---- Roll-up tests ----

func TestAggregate_Counts(t *testing.T) {
	b := matchtest.New()
	b.StartRound(1).At(10).Kill(matchtest.T1, matchtest.C1, matchtest.Headshot()).
		At(12).Kill(matchtest.T1, matchtest.C2, matchtest.Weapon("AWP")).
		At(40).EndRound(model.TeamT)
	b.StartRound(2).At(10).Kill(matchtest.C3, matchtest.T1).At(40).EndRound(model.TeamCT)

	players := aggregate(t, b)

	t1 := players[matchtest.T1]
	if t1.RoundsPlayed != 2 {
		t.Errorf("RoundsPlayed: got %d, want 2", t1.RoundsPlayed)
	}
	if t1.Kills != 2 || t1.Deaths != 1 {
		t.Errorf("K/D: got %d/%d, want 2/1", t1.Kills, t1.Deaths)
	}
	if t1.HeadshotKills != 1 || t1.SniperKills != 1 {
		t.Errorf("HS/sniper: got %d/%d, want 1/1", t1.HeadshotKills, t1.SniperKills)
	}
	if t1.KillsInWonRounds != 2 {
		t.Errorf("KillsInWonRounds: got %d, want 2", t1.KillsInWonRounds)
	}
	if t1.EntrySuccesses != 1 || t1.EntryAttempts != 2 {
		t.Errorf("entries: got %d/%d, want 1/2", t1.EntrySuccesses, t1.EntryAttempts)
	}
	if got := t1.KDR(); got != 2 {
		t.Errorf("KDR: got %v, want 2", got)
	}
	if got := t1.KAST(); got != 0.5 {
		t.Errorf("KAST: got %v, want 0.5", got)
	}
	if t1.Name != "t1" || t1.Squad != model.TeamT {
		t.Errorf("identity: got %q %v", t1.Name, t1.Squad)
	}
	if len(t1.Rounds) != 2 || t1.Rounds[0].Round != 1 {
		t.Errorf("Rounds not kept in order: %+v", t1.Rounds)
	}
}

func TestAggregate_TradePotential(t *testing.T) {
	b := matchtest.New()
	b.StartRound(1).At(2).Place(matchtest.T1, 0, 0).Place(matchtest.T2, 200, 0).
		At(10).Kill(matchtest.C1, matchtest.T1).At(40).EndRound(model.TeamCT)
	b.StartRound(2).At(2).Place(matchtest.T1, 0, 0).Place(matchtest.T2, 4000, 0).
		At(10).Kill(matchtest.C1, matchtest.T1).At(40).EndRound(model.TeamCT)

	players := aggregate(t, b)

	t1 := players[matchtest.T1]
	if t1.TradeableDeaths != 1 || t1.UntradeableDeaths != 1 {
		t.Errorf("tradeable/untradeable: got %d/%d, want 1/1", t1.TradeableDeaths, t1.UntradeableDeaths)
	}
	if got := t1.TradePotential(); got != 50 {
		t.Errorf("TradePotential: got %v, want 50", got)
	}
	c1 := players[matchtest.C1]
	if got := c1.TradePotential(); got != 100 {
		t.Errorf("TradePotential with no deaths: got %v, want 100", got)
	}
}

func TestAggregate_TeammateDistanceDefault(t *testing.T) {
	b := matchtest.New()
	b.StartRound(1).At(1).Place(matchtest.T1, 0, 0).Place(matchtest.T2, 300, 0).At(40).EndRound(model.TeamT)

	players := aggregate(t, b)

	if got := players[matchtest.T2].AvgTeammateDistance; got != 300 {
		t.Errorf("T2 AvgTeammateDistance: got %v, want 300", got)
	}
	if got := players[matchtest.C1].AvgTeammateDistance; got != DefaultTeammateDistance {
		t.Errorf("C1 AvgTeammateDistance: got %v, want default", got)
	}
}

func TestAggregate_Clutch(t *testing.T) {
	b := matchtest.New().StartRound(1)
	for i, v := range []model.PlayerID{matchtest.T2, matchtest.T3, matchtest.T4, matchtest.T5} {
		b.At(float64(5+i)).Kill(matchtest.C1, v)
	}
	b.At(20).Kill(matchtest.T1, matchtest.C1).At(40).EndRound(model.TeamT)

	t1 := aggregate(t, b)[matchtest.T1]
	if t1.ClutchAttempts != 1 || t1.ClutchWins != 1 || t1.ClutchWinWeight != 5 {
		t.Errorf("clutch: got %d/%d/%d, want 1/1/5", t1.ClutchAttempts, t1.ClutchWins, t1.ClutchWinWeight)
	}
}

func TestSquad(t *testing.T) {
	b := matchtest.New().QuietRounds(1, 1, model.TeamT)
	m, _ := normalize.Normalize(b.Input())
	fr, _ := features.Compute(m, config.New().Features)
	players, _ := Aggregate(m, fr)

	if n := len(Squad(players, model.TeamCT)); n != 5 {
		t.Errorf("CT squad size: got %d, want 5", n)
	}
}

func TestAggregate_Nil(t *testing.T) {
	if _, err := Aggregate(nil, nil); err == nil {
		t.Error("expected error for nil input")
	}
}
