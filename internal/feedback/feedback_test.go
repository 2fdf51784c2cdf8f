package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/model"
)

func fcfg() config.Feedback { return config.New().Feedback }

// death returns an untraded enemy kill by a lone attacker with a teammate 300 units away.
func death() model.DeathContext {
	return model.DeathContext{
		Round: 1, Tick: 640, VictimID: 1, KillerID: 2,
		VictimTeam: model.TeamT, KillerTeam: model.TeamCT,
		NearestTeammateDistance: 300,
		TeammatesInTradeRange:   1,
		TeammatesAlive:          4,
		EnemiesAlive:            5,
		Attackers:               1,
		Phase:                   model.PhaseMid,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		edit func(d *model.DeathContext)
		want model.DeathCause
	}{
		{"traded entry", func(d *model.DeathContext) {
			d.IsEntryFrag, d.WasTraded, d.TradeDelaySeconds = true, true, 1
		}, model.CauseEntryTrade},
		{"two attackers", func(d *model.DeathContext) { d.Attackers = 2 }, model.CauseCrossfire},
		{"crossfire beats an untraded entry", func(d *model.DeathContext) {
			d.IsEntryFrag, d.Attackers = true, 3
		}, model.CauseCrossfire},
		{"far from the team", func(d *model.DeathContext) { d.NearestTeammateDistance = 900 }, model.CauseSoloPush},
		{"far from the team even when traded", func(d *model.DeathContext) {
			d.NearestTeammateDistance, d.WasTraded, d.TradeDelaySeconds = 900, true, 1
		}, model.CauseSoloPush},
		{"out of trade range", func(d *model.DeathContext) { d.NearestTeammateDistance = 700 }, model.CauseSpacingIssue},
		{"close but never traded", func(d *model.DeathContext) {}, model.CauseTimingIssue},
		{"teammate position unknown", func(d *model.DeathContext) {
			d.NearestTeammateDistance = model.NoTeammateDistance
		}, model.CauseTimingIssue},
		{"slow trade", func(d *model.DeathContext) { d.WasTraded, d.TradeDelaySeconds = true, 2.5 }, model.CauseTimingIssue},
		{"quick trade, no flash", func(d *model.DeathContext) { d.WasTraded, d.TradeDelaySeconds = true, 1 }, model.CauseUtilityMissing},
		{"last alive, no flash", func(d *model.DeathContext) {
			d.TeammatesAlive, d.TeammatesInTradeRange = 0, 0
			d.NearestTeammateDistance = model.NoTeammateDistance
		}, model.CauseUtilityMissing},
		{"quick trade with flash", func(d *model.DeathContext) {
			d.WasTraded, d.TradeDelaySeconds, d.HadFlashSupport = true, 1, true
		}, model.CauseUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := death()
			tt.edit(&d)
			c, ok := Classify(&d, fcfg())
			require.True(t, ok)
			assert.Equal(t, tt.want, c.Cause)
			assert.Equal(t, Advice(tt.want), c.Advice)
		})
	}
}

func TestClassify_SkipsWorldAndTeamKills(t *testing.T) {
	world := death()
	world.KillerID = 0
	_, ok := Classify(&world, fcfg())
	assert.False(t, ok)

	team := death()
	team.IsTeamKill = true
	_, ok = Classify(&team, fcfg())
	assert.False(t, ok)
}

func TestClassify_CopiesContext(t *testing.T) {
	d := death()
	d.WasTraded, d.TradeDelaySeconds, d.HadFlashSupport = true, 1.23456, true
	c, ok := Classify(&d, fcfg())
	require.True(t, ok)
	assert.Equal(t, 1, c.Round)
	assert.Equal(t, 640, c.Tick)
	assert.Equal(t, model.PlayerID(1), c.Player)
	assert.Equal(t, model.PhaseMid, c.Phase)
	assert.True(t, c.Traded)
	assert.Equal(t, 1.2346, c.TradeDelaySeconds)
	assert.Equal(t, 300.0, c.TeammateDistance)
	assert.Equal(t, 1, c.Attackers)
}

func TestAnalyze(t *testing.T) {
	var deaths []model.DeathContext
	add := func(round int, phase model.RoundPhase, edit func(d *model.DeathContext)) {
		d := death()
		d.Round, d.Tick, d.Phase = round, round*1000, phase
		edit(&d)
		deaths = append(deaths, d)
	}
	for i, dist := range []float64{900, 1000, 1100} {
		add(i+1, model.PhaseEarly, func(d *model.DeathContext) { d.NearestTeammateDistance = dist })
	}
	add(4, model.PhaseMid, func(d *model.DeathContext) {})
	add(5, model.PhaseMid, func(d *model.DeathContext) { d.WasTraded, d.TradeDelaySeconds = true, 2.5 })
	add(6, model.PhaseLate, func(d *model.DeathContext) { d.WasTraded, d.TradeDelaySeconds = true, 1 })
	add(7, model.PhaseEarly, func(d *model.DeathContext) { d.KillerID = 0 })

	out := Analyze(deaths, fcfg())
	require.Len(t, out, 1)
	fb := out[1]

	assert.Equal(t, 6, fb.Deaths)
	assert.Len(t, fb.Causes, len(model.DeathCauses), "every cause is present")
	assert.Equal(t, 3, fb.Causes[model.CauseSoloPush])
	assert.Equal(t, 2, fb.Causes[model.CauseTimingIssue])
	assert.Equal(t, 1, fb.Causes[model.CauseUtilityMissing])
	assert.Equal(t, 0, fb.Causes[model.CauseCrossfire])
	assert.Equal(t, model.CauseSoloPush, fb.PrimaryIssue)
	assert.Equal(t, 3, fb.PrimaryCount)
	require.Len(t, fb.Classifications, 6)
	assert.Equal(t, 1, fb.Classifications[0].Round)

	require.Len(t, fb.Items, 2, "a single utility death is not a pattern")
	solo, timing := fb.Items[0], fb.Items[1]
	assert.Equal(t, model.CauseSoloPush, solo.Cause)
	assert.Equal(t, model.PhaseEarly, solo.Phase)
	assert.Equal(t, 27, solo.Priority)
	assert.Equal(t, 1000.0, solo.AvgTeammateDistance)
	assert.Equal(t, 3, solo.Untraded)
	assert.Contains(t, solo.Message, "3 solo pushes in the early round")
	assert.NotEmpty(t, solo.Drills)

	assert.Equal(t, model.CauseTimingIssue, timing.Cause)
	assert.Equal(t, 14, timing.Priority)
	assert.Equal(t, 1, timing.Traded)
	assert.Equal(t, 1, timing.Untraded)
}

func TestAnalyze_SkipsEntryTradesAndUnknown(t *testing.T) {
	var deaths []model.DeathContext
	for r := 1; r <= 3; r++ {
		d := death()
		d.Round, d.IsEntryFrag, d.WasTraded, d.TradeDelaySeconds = r, true, true, 1
		deaths = append(deaths, d)
	}

	fb := Analyze(deaths, fcfg())[1]
	assert.Equal(t, 3, fb.Causes[model.CauseEntryTrade])
	assert.Empty(t, fb.Items)
	assert.NotNil(t, fb.Items)
	assert.Equal(t, model.DeathCause(""), fb.PrimaryIssue)
	assert.Zero(t, fb.PrimaryCount)
}

func TestAnalyze_ItemOrderIsStable(t *testing.T) {
	cfg := fcfg()
	cfg.Priorities = map[string]int{}
	for _, c := range model.DeathCauses {
		cfg.Priorities[string(c)] = 1
	}

	var deaths []model.DeathContext
	for _, phase := range []model.RoundPhase{model.PhaseLate, model.PhaseEarly} {
		for i := 0; i < 2; i++ {
			spaced := death()
			spaced.Phase, spaced.NearestTeammateDistance = phase, 700
			timed := death()
			timed.Phase = phase
			deaths = append(deaths, timed, spaced)
		}
	}

	items := Analyze(deaths, cfg)[1].Items
	require.Len(t, items, 4)
	want := []struct {
		cause model.DeathCause
		phase model.RoundPhase
	}{
		{model.CauseSpacingIssue, model.PhaseEarly},
		{model.CauseSpacingIssue, model.PhaseLate},
		{model.CauseTimingIssue, model.PhaseEarly},
		{model.CauseTimingIssue, model.PhaseLate},
	}
	for i, w := range want {
		assert.Equal(t, w.cause, items[i].Cause, "item %d", i)
		assert.Equal(t, w.phase, items[i].Phase, "item %d", i)
	}
}

func TestEmpty(t *testing.T) {
	fb := Empty()
	assert.Zero(t, fb.Deaths)
	assert.Len(t, fb.Causes, len(model.DeathCauses))
	assert.NotNil(t, fb.Items)
	assert.NotNil(t, fb.Classifications)
}

func TestDrillsAreCopies(t *testing.T) {
	d := Drills(model.CauseSoloPush)
	require.NotEmpty(t, d)
	d[0] = "changed"
	assert.NotEqual(t, "changed", Drills(model.CauseSoloPush)[0])
	assert.Empty(t, Drills(model.CauseUnknown))
}
