package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/matchtest"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/normalize"
)

func compute(t *testing.T, b *matchtest.Builder) *Result {
	t.Helper()
	m, err := normalize.Normalize(b.Input())
	require.NoError(t, err)
	res, err := Compute(m, config.New().Features)
	require.NoError(t, err)
	return res
}

func playerRound(t *testing.T, res *Result, round int, p model.PlayerID) model.PlayerRoundFeatures {
	t.Helper()
	for _, f := range res.PlayerRounds {
		if f.Round == round && f.Player == p {
			return f
		}
	}
	t.Fatalf("no features for player %d round %d", p, round)
	return model.PlayerRoundFeatures{}
}

// ---- Trade window tests ----

func TestTrade_ExactlyAtWindow(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(13).Kill(matchtest.T2, matchtest.C1)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	require.Len(t, res.Deaths, 2)
	d := res.Deaths[0]
	assert.True(t, d.WasTraded)
	assert.Equal(t, matchtest.T2, d.TradedBy)
	assert.InDelta(t, 3.0, d.TradeDelaySeconds, 1e-9)
	assert.Equal(t, 1, playerRound(t, res, 1, matchtest.T2).TradeKills)
	assert.True(t, playerRound(t, res, 1, matchtest.T1).TradedDeath)
	assert.True(t, playerRound(t, res, 1, matchtest.T1).KAST, "a traded death counts for KAST")
}

func TestTrade_JustOutsideWindow(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(13+1.0/matchtest.TickRate).Kill(matchtest.T2, matchtest.C1)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	assert.False(t, res.Deaths[0].WasTraded)
	assert.Equal(t, 0, playerRound(t, res, 1, matchtest.T2).TradeKills)
	assert.False(t, playerRound(t, res, 1, matchtest.T1).KAST)
}

func TestTrade_SameTickIsNotATrade(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(10).Kill(matchtest.T2, matchtest.C1)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	require.Len(t, res.Deaths, 2)
	d := res.Deaths[0]
	assert.False(t, d.WasTraded)
	assert.Equal(t, model.PlayerID(0), d.TradedBy)
	assert.Zero(t, d.TradeDelaySeconds)
	assert.Equal(t, 0, playerRound(t, res, 1, matchtest.T2).TradeKills)
	assert.False(t, playerRound(t, res, 1, matchtest.T1).TradedDeath)
}

func TestTradeWindow_SameTickClosesUntraded(t *testing.T) {
	w := newTradeWindow(192)
	w.push(0, 100, matchtest.C1)

	assert.Empty(t, w.resolve(matchtest.C1, 100))
	assert.Equal(t, 0, w.len(), "the killer is dead so nothing can trade the death later")
}

func TestTrade_NeverCrossesRounds(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(59).Kill(matchtest.C1, matchtest.T1)
	b.At(60).EndRound(model.TeamCT)
	b.StartRound(2).At(0.5).Kill(matchtest.T1, matchtest.C1)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	require.Len(t, res.Deaths, 2)
	assert.False(t, res.Deaths[0].WasTraded)
}

func TestTrade_RefragByKillersTeamIsNotCredited(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(11).Kill(matchtest.C2, matchtest.C1)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	assert.True(t, res.Deaths[1].IsTeamKill)
	assert.Equal(t, 0, playerRound(t, res, 1, matchtest.C2).TradeKills)
	assert.Equal(t, 0, playerRound(t, res, 1, matchtest.C2).Kills)
}

func TestTradeWindow_StaysBounded(t *testing.T) {
	b := matchtest.New().StartRound(1)
	victims := []model.PlayerID{matchtest.C1, matchtest.C2, matchtest.C3, matchtest.C4}
	for i, v := range victims {
		b.At(float64(10+4*i)).Kill(matchtest.T1, v)
	}
	b.At(40).EndRound(model.TeamT)

	res := compute(t, b)
	assert.Equal(t, 1, res.MaxPendingTrades, "deaths 4s apart never overlap a 3s window")
}

func TestTradeWindow_ExpireAndResolve(t *testing.T) {
	w := newTradeWindow(192)
	w.push(0, 100, matchtest.C1)
	w.push(1, 200, matchtest.C2)
	w.push(2, 250, matchtest.C1)

	w.expire(292)
	assert.Equal(t, 3, w.len(), "deadline 292 is inclusive")
	w.expire(293)
	assert.Equal(t, 2, w.len())

	hit := w.resolve(matchtest.C1, 300)
	require.Len(t, hit, 1)
	assert.Equal(t, 2, hit[0].idx)
	assert.Equal(t, 1, w.len())
}

// ---- Death context tests ----

func TestDeathContext_Attackers(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(5).Damage(matchtest.C4, matchtest.T1, 20, "M4A4")
	b.At(8).Damage(matchtest.C2, matchtest.T1, 30, "M4A4")
	b.At(9).Damage(matchtest.C3, matchtest.T1, 10, "Glock-18").Damage(matchtest.T2, matchtest.T1, 5, "AK-47")
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(20).Kill(matchtest.T2, matchtest.C5)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	require.Len(t, res.Deaths, 2)
	assert.Equal(t, 3, res.Deaths[0].Attackers, "killer plus two recent attackers; older and team damage ignored")
	assert.Equal(t, 1, res.Deaths[1].Attackers, "the killer alone")
}

func TestDryPeek_TeammateFlashAndBlindVictim(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(9).Flash(matchtest.T2, 100, 100)
	b.At(10).Kill(matchtest.C1, matchtest.T1, matchtest.VictimBlind())
	b.At(30).EndRound(model.TeamCT)

	d := compute(t, b).Deaths[0]
	assert.True(t, d.HadFlashSupport)
	assert.True(t, d.VictimBlind)
	assert.False(t, d.DryPeek())
}

func TestDryPeek_NoSupport(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(5).Flash(matchtest.T2, 100, 100)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(30).EndRound(model.TeamCT)

	d := compute(t, b).Deaths[0]
	assert.False(t, d.HadFlashSupport, "flash 5s earlier is outside the support window")
	assert.True(t, d.DryPeek())
}

func TestDeath_VictimBlindFromBlindEvent(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(9).Flash(matchtest.C2, 0, 0).Blind(matchtest.C2, matchtest.T1, 2.5)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(30).EndRound(model.TeamCT)

	res := compute(t, b)
	d := res.Deaths[0]
	assert.True(t, d.VictimBlind)
	assert.False(t, d.HadFlashSupport, "an enemy flash is not support")
	assert.Equal(t, 1, playerRound(t, res, 1, matchtest.C2).FlashAssists)
	assert.Equal(t, 1, playerRound(t, res, 1, matchtest.C2).EnemiesFlashed)
	require.Len(t, res.Flashes, 1)
	assert.Equal(t, 1, res.Flashes[0].EnemiesBlinded)
	assert.True(t, res.Flashes[0].FollowupKill)
}

func TestDeath_SmokeOnTheLine(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(2).Place(matchtest.T1, 0, 0).Place(matchtest.C1, 1000, 0)
	b.At(5).Smoke(matchtest.C3, 500, 60)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(11).Place(matchtest.T2, 0, 0).Place(matchtest.C2, 0, 1000)
	b.At(12).Kill(matchtest.C2, matchtest.T2)
	b.At(30).EndRound(model.TeamCT)

	res := compute(t, b)
	assert.True(t, res.Deaths[0].HadSmokeSupport)
	assert.False(t, res.Deaths[1].HadSmokeSupport)
}

func TestDeath_Spacing(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(2).Place(matchtest.T1, 0, 0).Place(matchtest.T2, 300, 0).Place(matchtest.T3, 5000, 0)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(30).EndRound(model.TeamCT)

	d := compute(t, b).Deaths[0]
	assert.InDelta(t, 300, d.NearestTeammateDistance, 1e-9)
	assert.Equal(t, 1, d.TeammatesInTradeRange)
	assert.Equal(t, 4, d.TeammatesAlive)
	assert.Equal(t, 5, d.EnemiesAlive)
	assert.True(t, d.Tradeable())
}

func TestDeath_PhaseBuckets(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(30).Kill(matchtest.C1, matchtest.T2)
	b.At(70).Kill(matchtest.C1, matchtest.T3)
	b.At(90).EndRound(model.TeamCT)

	res := compute(t, b)
	assert.Equal(t, model.PhaseEarly, res.Deaths[0].Phase)
	assert.Equal(t, model.PhaseMid, res.Deaths[1].Phase)
	assert.Equal(t, model.PhaseLate, res.Deaths[2].Phase)
}

func TestDeath_EntryAndExit(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(30).Kill(matchtest.C2, matchtest.T2)
	b.At(50).Kill(matchtest.C1, matchtest.T1)
	b.At(60).EndRound(model.TeamT)

	res := compute(t, b)
	assert.True(t, res.Deaths[0].IsEntryFrag)
	assert.False(t, res.Deaths[0].IsExitFrag)
	assert.False(t, res.Deaths[1].IsEntryFrag)
	assert.True(t, res.Deaths[1].IsExitFrag)

	c2 := playerRound(t, res, 1, matchtest.C2)
	assert.True(t, c2.EntryAttempt)
	assert.True(t, c2.EntrySuccess)
	assert.True(t, playerRound(t, res, 1, matchtest.T2).EntryAttempt)
	assert.Equal(t, 1, playerRound(t, res, 1, matchtest.C1).ExitFrags)
}

func TestDeath_OneEntryFragPerRound(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.T1, matchtest.C1)
	b.At(20).Kill(matchtest.C2, matchtest.T2)
	b.At(60).EndRound(model.TeamT)

	res := compute(t, b)
	require.Len(t, res.Deaths, 2)
	assert.True(t, res.Deaths[0].IsEntryFrag)
	assert.False(t, res.Deaths[1].IsEntryFrag, "the first T death is not an entry once a CT died")
	assert.False(t, playerRound(t, res, 1, matchtest.T2).EntryAttempt)
	assert.False(t, playerRound(t, res, 1, matchtest.C2).EntrySuccess)
}

func TestDeath_SwingAndClutch(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(5).Kill(matchtest.C1, matchtest.T2)
	b.At(8).Kill(matchtest.C1, matchtest.T3)
	b.At(12).Kill(matchtest.T1, matchtest.C1)
	b.At(20).Kill(matchtest.C2, matchtest.T4)
	b.At(25).Kill(matchtest.C2, matchtest.T5)
	b.At(40).EndRound(model.TeamT)

	res := compute(t, b)
	assert.True(t, res.Deaths[2].IsSwingKill, "3v5 kill is a swing")
	assert.False(t, res.Deaths[0].IsSwingKill)

	t1 := playerRound(t, res, 1, matchtest.T1)
	assert.Equal(t, 1, t1.SwingKills)
	assert.Equal(t, 4, t1.ClutchOpponents)
	assert.True(t, t1.ClutchWon)
	assert.True(t, t1.Alive)
}

// ---- WPA tests ----

func TestWPA_KillShiftsProbability(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.T1, matchtest.C1)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	cfg := config.New().Features.WPA
	before := WinProbability(State{AliveT: 5, AliveCT: 5, EquipmentT: 23500, EquipmentCT: 23500}, model.TeamCT, cfg)
	after := WinProbability(State{AliveT: 5, AliveCT: 4, EquipmentT: 23500, EquipmentCT: 23500}, model.TeamCT, cfg)

	d := res.Deaths[0]
	assert.Less(t, d.VictimWPA, 0.0)
	assert.InDelta(t, after-before, d.VictimWPA, 1e-9)
	assert.InDelta(t, before-after, playerRound(t, res, 1, matchtest.T1).WPA, 1e-6)
	assert.InDelta(t, after-before, playerRound(t, res, 1, matchtest.C1).WPA, 1e-6)
	assert.Greater(t, res.Rounds[0].TeamWPA[model.TeamT], 0.0)
}

func TestWPA_Terminal(t *testing.T) {
	cfg := config.New().Features.WPA
	assert.Equal(t, 1.0, WinProbability(State{AliveT: 1}, model.TeamT, cfg))
	assert.Equal(t, 0.0, WinProbability(State{AliveCT: 1}, model.TeamT, cfg))
	assert.Greater(t, WinProbability(State{AliveCT: 1, Planted: true}, model.TeamT, cfg), 0.0)
}

// ---- Utility, damage and movement tests ----

func TestDamage_CappedPerVictim(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(5).Damage(matchtest.T1, matchtest.C1, 80, "AWP")
	b.At(6).Damage(matchtest.T1, matchtest.C1, 80, "AWP")
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	t1 := playerRound(t, res, 1, matchtest.T1)
	assert.Equal(t, 100, t1.Damage)
	assert.Equal(t, 100, t1.SniperDamage)
	assert.InDelta(t, 5.0, t1.FirstContactSeconds, 1e-9)
	assert.True(t, t1.TeamFirstContact)
	assert.True(t, playerRound(t, res, 1, matchtest.C1).TeamFirstContact)
	assert.Equal(t, -1.0, playerRound(t, res, 1, matchtest.T2).FirstContactSeconds)
}

func TestMovement_TeammateDistanceAndPath(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(1).Place(matchtest.T1, 0, 0).Place(matchtest.T2, 300, 0)
	b.At(2).Place(matchtest.T1, 0, 400)
	b.At(30).EndRound(model.TeamT)

	res := compute(t, b)
	t1 := playerRound(t, res, 1, matchtest.T1)
	assert.Equal(t, 1, t1.TeammateSamples)
	assert.InDelta(t, 500, t1.AvgTeammateDistance, 1e-9)
	assert.InDelta(t, 400, t1.PathDistance, 1e-9)
	assert.InDelta(t, 300, playerRound(t, res, 1, matchtest.T2).AvgTeammateDistance, 1e-9)
}

func TestPlant_ContextAndRetake(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(30).Place(matchtest.T1, 0, 0).Place(matchtest.C1, 300, 0).Place(matchtest.C2, 3000, 0)
	b.At(31).Plant(matchtest.T1)
	b.At(40).Place(matchtest.C2, 100, 0)
	b.At(45).Defuse(matchtest.C2)
	b.At(46).EndRound(model.TeamCT)

	res := compute(t, b)
	require.Len(t, res.Plants, 1)
	pc := res.Plants[0]
	assert.ElementsMatch(t, []model.PlayerID{matchtest.T1, matchtest.C1}, pc.NearPlant)
	assert.Len(t, pc.Retakes, 5)
	for _, rt := range pc.Retakes {
		switch rt.PlayerID {
		case matchtest.C1:
			assert.Equal(t, pc.Tick, rt.ArrivalTick)
		case matchtest.C2:
			assert.Equal(t, 40*int(matchtest.TickRate), rt.ArrivalTick)
		default:
			assert.Zero(t, rt.ArrivalTick)
		}
	}
	assert.Equal(t, 45*int(matchtest.TickRate), pc.DefuseTick)
	assert.True(t, res.Rounds[0].Planted)

	t1 := playerRound(t, res, 1, matchtest.T1)
	assert.True(t, t1.Planted)
	assert.Greater(t, t1.WPA, 0.0)
	c2 := playerRound(t, res, 1, matchtest.C2)
	assert.True(t, c2.Defused)
	assert.Greater(t, c2.WPA, 0.0)
}

func TestEconomy_RoundStartEquipment(t *testing.T) {
	b := matchtest.New().Equipment(matchtest.T1, 800)
	b.StartRound(1).At(30).EndRound(model.TeamCT)

	res := compute(t, b)
	assert.Equal(t, model.EcoEco, playerRound(t, res, 1, matchtest.T1).Eco)
	assert.Equal(t, model.EcoFull, playerRound(t, res, 1, matchtest.T2).Eco)
	assert.Equal(t, 800+4*4700, res.Rounds[0].TeamEquipment[model.TeamT])
}

func TestCompute_DoubleDeathIsMalformed(t *testing.T) {
	b := matchtest.New().StartRound(1)
	b.At(10).Kill(matchtest.C1, matchtest.T1)
	b.At(11).Kill(matchtest.C2, matchtest.T1)
	b.At(30).EndRound(model.TeamCT)

	m, err := normalize.Normalize(b.Input())
	require.NoError(t, err)
	res, err := Compute(m, config.New().Features)
	assert.Error(t, err)
	assert.Nil(t, res)
}
