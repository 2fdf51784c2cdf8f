// Package feedback assigns each death a single cause and turns recurring causes into
// prioritised coaching items.
//
// Classification is ordered: the first matching cause wins. Items group a player's deaths
// by cause and round phase and are only raised once a pattern repeats.
package feedback

import (
	"fmt"
	"math"
	"sort"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/model"
)

var advice = map[model.DeathCause]string{
	model.CauseEntryTrade:     "Opening death that was traded; the entry did its job.",
	model.CauseCrossfire:      "Caught by several attackers at once. Clear one angle before exposing another.",
	model.CauseSoloPush:       "Pushed alone far from the team. Wait for a teammate or ask for a flash.",
	model.CauseSpacingIssue:   "No teammate close enough to trade. Stay inside refrag distance of a partner.",
	model.CauseTimingIssue:    "The trade came too late or never came. Sync the push with your teammate.",
	model.CauseUtilityMissing: "Peeked without flash support. Ask for a pop-flash or use your own utility.",
	model.CauseUnknown:        "",
}

var templates = map[model.DeathCause]string{
	model.CauseCrossfire:      "%d crossfire deaths in the %s round. Avoid exposing multiple angles at once.",
	model.CauseSoloPush:       "%d solo pushes in the %s round. Wait for a teammate or request flash support.",
	model.CauseSpacingIssue:   "%d deaths in the %s round with no teammate close enough to trade. Play inside trade distance of a partner.",
	model.CauseTimingIssue:    "%d deaths in the %s round where the trade took too long or never happened. Sync push timing with a teammate.",
	model.CauseUtilityMissing: "%d dry peeks in the %s round without flash support. Request a pop-flash or use your own utility.",
}

var drills = map[model.DeathCause][]string{
	model.CauseCrossfire: {
		"Shoulder peek drill: bait shots with short A-D peeks before committing to an angle.",
		"Prefire maps: clear common angles one at a time with crosshair placement.",
	},
	model.CauseSoloPush: {
		"Buddy system: attach to one teammate every round and never be more than 3s away.",
		"Retake servers: focus on entering sites together with a trade partner.",
	},
	model.CauseSpacingIssue: {
		"Crossfire co-op: hold crossfires with a partner at trade distance.",
		"Demo review: pause at every death and check the radar for spacing.",
	},
	model.CauseTimingIssue: {
		"Retake servers: focus on trading your teammate on site entry.",
		"Team drill: move through a site execute keeping constant distance to the entry.",
	},
	model.CauseUtilityMissing: {
		"Utility practice: learn pop-flashes for every common angle.",
		"Grenade practice: learn three lineups for every site execute.",
	},
}

var phaseOrder = map[model.RoundPhase]int{model.PhaseEarly: 0, model.PhaseMid: 1, model.PhaseLate: 2}

// Advice returns the one-line coaching note for cause.
func Advice(cause model.DeathCause) string { return advice[cause] }

// Drills returns practice drills for cause, empty when it has none.
func Drills(cause model.DeathCause) []string {
	out := make([]string, len(drills[cause]))
	copy(out, drills[cause])
	return out
}

// Classify assigns d its cause. World deaths and teamkills are not classified.
func Classify(d *model.DeathContext, cfg config.Feedback) (model.DeathClassification, bool) {
	if d.KillerID == 0 || d.IsTeamKill {
		return model.DeathClassification{}, false
	}
	c := model.DeathClassification{
		Round:            d.Round,
		Tick:             d.Tick,
		Player:           d.VictimID,
		Cause:            cause(d, cfg),
		Phase:            d.Phase,
		TeammateDistance: d.NearestTeammateDistance,
		Traded:           d.WasTraded,
		Attackers:        d.Attackers,
	}
	if d.WasTraded {
		c.TradeDelaySeconds = round4(d.TradeDelaySeconds)
	}
	c.TeammateDistance = round4(c.TeammateDistance)
	c.Advice = Advice(c.Cause)
	return c, true
}

func cause(d *model.DeathContext, cfg config.Feedback) model.DeathCause {
	// Distance and trade timing only mean something while a teammate is alive to trade.
	support := d.TeammatesAlive > 0
	known := support && d.NearestTeammateDistance < model.NoTeammateDistance
	dist := d.NearestTeammateDistance

	switch {
	case d.IsEntryFrag && d.WasTraded:
		return model.CauseEntryTrade
	case d.Attackers >= cfg.CrossfireAttackers:
		return model.CauseCrossfire
	case known && dist > cfg.SoloPushDistance:
		return model.CauseSoloPush
	case known && !d.WasTraded && dist > cfg.SpacingDistance:
		return model.CauseSpacingIssue
	case support && !d.WasTraded:
		return model.CauseTimingIssue
	case d.WasTraded && d.TradeDelaySeconds > cfg.SlowTradeSeconds:
		return model.CauseTimingIssue
	case !d.HadFlashSupport && !d.IsEntryFrag:
		return model.CauseUtilityMissing
	default:
		return model.CauseUnknown
	}
}

// Empty returns the feedback of a player who never died.
func Empty() model.PlayerFeedback {
	causes := make(map[model.DeathCause]int, len(model.DeathCauses))
	for _, c := range model.DeathCauses {
		causes[c] = 0
	}
	return model.PlayerFeedback{
		Causes:          causes,
		Items:           []model.FeedbackItem{},
		Classifications: []model.DeathClassification{},
	}
}

// Analyze classifies every death and builds per-player feedback. Only players who died
// have an entry; callers fill the rest with Empty.
func Analyze(deaths []model.DeathContext, cfg config.Feedback) map[model.PlayerID]model.PlayerFeedback {
	byPlayer := make(map[model.PlayerID][]model.DeathClassification)
	for i := range deaths {
		if c, ok := Classify(&deaths[i], cfg); ok {
			byPlayer[c.Player] = append(byPlayer[c.Player], c)
		}
	}

	out := make(map[model.PlayerID]model.PlayerFeedback, len(byPlayer))
	for p, cs := range byPlayer {
		out[p] = build(cs, cfg)
	}
	return out
}

type groupKey struct {
	cause model.DeathCause
	phase model.RoundPhase
}

func build(cs []model.DeathClassification, cfg config.Feedback) model.PlayerFeedback {
	fb := Empty()
	fb.Deaths = len(cs)
	fb.Classifications = cs

	groups := make(map[groupKey][]model.DeathClassification)
	for _, c := range cs {
		fb.Causes[c.Cause]++
		if c.Cause.Actionable() {
			k := groupKey{c.Cause, c.Phase}
			groups[k] = append(groups[k], c)
		}
	}

	for _, c := range model.DeathCauses {
		if c.Actionable() && fb.Causes[c] > fb.PrimaryCount {
			fb.PrimaryIssue, fb.PrimaryCount = c, fb.Causes[c]
		}
	}

	for k, g := range groups {
		if len(g) < cfg.MinPattern {
			continue
		}
		fb.Items = append(fb.Items, item(k, g, cfg))
	}
	sort.Slice(fb.Items, func(i, j int) bool {
		a, b := fb.Items[i], fb.Items[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Cause != b.Cause {
			return a.Cause.Order() < b.Cause.Order()
		}
		return phaseOrder[a.Phase] < phaseOrder[b.Phase]
	})
	return fb
}

func item(k groupKey, g []model.DeathClassification, cfg config.Feedback) model.FeedbackItem {
	it := model.FeedbackItem{
		Cause:    k.cause,
		Phase:    k.phase,
		Count:    len(g),
		Priority: cfg.Priority(k.cause) * len(g),
		Message:  fmt.Sprintf(templates[k.cause], len(g), k.phase),
		Drills:   Drills(k.cause),
	}
	var sum float64
	var known int
	for _, c := range g {
		if c.Traded {
			it.Traded++
		} else {
			it.Untraded++
		}
		if c.TeammateDistance < model.NoTeammateDistance {
			sum += c.TeammateDistance
			known++
		}
	}
	if known > 0 {
		it.AvgTeammateDistance = round4(sum / float64(known))
	}
	return it
}

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
