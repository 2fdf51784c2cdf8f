// Package mistakes detects tactical mistakes from frozen match features.
//
// Every rule is a pure function of one feature record and the configuration. Rules run in
// the order they are declared below and may each fire once per record; a single death can
// trigger several mistake types.
package mistakes

import (
	"fmt"
	"math"
	"sort"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/features"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/roles"
)

// finding is what a rule reports; Detect fills in identity and label.
type finding struct {
	severity   float64
	wpaLoss    float64
	detail     string
	correction string
}

// deathRule evaluates one death. role is the victim's role that round.
type deathRule struct {
	typ  model.MistakeType
	eval func(d *model.DeathContext, role model.Role, cfg config.Mistakes) (finding, bool)
}

// plantRule evaluates one defender's response to a plant.
type plantRule struct {
	typ  model.MistakeType
	eval func(pc *model.PlantContext, rt model.RetakeArrival, role model.Role, tps float64, cfg config.Mistakes) (finding, bool)
}

// flashRule evaluates one thrown flash.
type flashRule struct {
	typ  model.MistakeType
	eval func(f *model.FlashOutcome, cfg config.Mistakes) (finding, bool)
}

var deathRules = []deathRule{
	{model.MistakeDryPeek, dryPeek},
	{model.MistakeIsolatedDeath, isolatedDeath},
	{model.MistakeNoTradeSpacing, noTradeSpacing},
	{model.MistakePostPlantMisplay, postPlantMisplay},
}

var plantRules = []plantRule{
	{model.MistakeRotationDelay, rotationDelay},
}

var flashRules = []flashRule{
	{model.MistakeUtilityWaste, utilityWaste},
}

// severity maps how far value is past threshold onto [floor,1], saturating after span.
func severity(floor, value, threshold, span float64) float64 {
	if span <= 0 {
		return 1
	}
	x := (value - threshold) / span
	x = math.Max(0, math.Min(1, x))
	return floor + (1-floor)*x
}

// byEnemy reports a death that rules should judge: an enemy kill, not a teamkill or a
// world death.
func byEnemy(d *model.DeathContext) bool {
	return d.KillerID != 0 && !d.IsTeamKill
}

func dryPeek(d *model.DeathContext, role model.Role, _ config.Mistakes) (finding, bool) {
	if !byEnemy(d) || !d.DryPeek() {
		return finding{}, false
	}
	if role == model.RoleEntry && d.WasTraded {
		return finding{}, false
	}
	loss := math.Abs(d.VictimWPA)
	return finding{
		severity:   severity(0.4, loss, 0, 0.25),
		wpaLoss:    loss,
		detail:     fmt.Sprintf("took a fight without flash or smoke support and died%s", weaponName(d.Weapon)),
		correction: "Ask for a flash or smoke before taking the fight, or wait for a teammate to peek with you.",
	}, true
}

func isolatedDeath(d *model.DeathContext, role model.Role, cfg config.Mistakes) (finding, bool) {
	if !byEnemy(d) || d.WasTraded || d.TeammatesAlive == 0 {
		return finding{}, false
	}
	threshold := cfg.IsolationDistance * cfg.Scale(role)
	dist := d.NearestTeammateDistance
	if dist >= model.NoTeammateDistance || dist <= threshold {
		return finding{}, false
	}
	return finding{
		severity:   severity(0.4, dist, threshold, threshold),
		wpaLoss:    math.Abs(d.VictimWPA),
		detail:     fmt.Sprintf("died %.0f units from the nearest teammate (limit %.0f)", dist, threshold),
		correction: "Play closer to a teammate so your death can be traded.",
	}, true
}

func noTradeSpacing(d *model.DeathContext, role model.Role, cfg config.Mistakes) (finding, bool) {
	if !byEnemy(d) || !d.IsEntryFrag || d.WasTraded {
		return finding{}, false
	}
	threshold := cfg.SpacingDistance * cfg.Scale(role)
	dist := d.NearestTeammateDistance
	if dist >= model.NoTeammateDistance || dist <= threshold {
		return finding{}, false
	}
	return finding{
		severity:   severity(0.5, dist, threshold, cfg.SpacingDistance),
		wpaLoss:    math.Abs(d.VictimWPA),
		detail:     fmt.Sprintf("took the opening duel with the nearest teammate %.0f units away", dist),
		correction: "Entry with a trade partner inside refrag distance.",
	}, true
}

func postPlantMisplay(d *model.DeathContext, _ model.Role, _ config.Mistakes) (finding, bool) {
	if !byEnemy(d) || !d.AfterPlant || d.VictimTeam != model.TeamT || d.WasTraded || !d.DryPeek() {
		return finding{}, false
	}
	loss := math.Abs(d.VictimWPA)
	return finding{
		severity:   severity(0.6, loss, 0, 0.2),
		wpaLoss:    loss,
		detail:     "died after the plant in an unsupported, untraded fight",
		correction: "After planting, hold a crossfire on the bomb and let the defenders come to you.",
	}, true
}

func rotationDelay(pc *model.PlantContext, rt model.RetakeArrival, role model.Role, tps float64, cfg config.Mistakes) (finding, bool) {
	threshold := cfg.RotationDelaySeconds * cfg.Scale(role)
	limit := pc.Tick + int(math.Round(threshold*tps))
	if rt.DeathTick != 0 && rt.DeathTick <= limit {
		return finding{}, false
	}

	var delay float64
	var detail string
	switch {
	case rt.ArrivalTick != 0:
		delay = float64(rt.ArrivalTick-pc.Tick) / tps
		if delay <= threshold {
			return finding{}, false
		}
		detail = fmt.Sprintf("reached the planted site %.1fs after the plant (limit %.1fs)", delay, threshold)
	default:
		end := pc.EndTick
		if pc.DefuseTick != 0 {
			end = pc.DefuseTick
		}
		if rt.DeathTick != 0 {
			end = rt.DeathTick
		}
		if end <= limit {
			return finding{}, false
		}
		delay = float64(end-pc.Tick) / tps
		detail = fmt.Sprintf("never reached the planted site in %.1fs", delay)
	}

	sev := severity(0.4, delay, threshold, threshold)
	return finding{
		severity:   sev,
		wpaLoss:    cfg.RotationDelayWPA * sev,
		detail:     detail,
		correction: "Rotate as soon as the plant is called; a late retake rarely wins.",
	}, true
}

func utilityWaste(f *model.FlashOutcome, cfg config.Mistakes) (finding, bool) {
	if f.EnemiesBlinded > 0 || f.FollowupKill {
		return finding{}, false
	}
	sev := severity(0.3, float64(f.TeammatesBlinded), 0, 3)
	detail := "flash blinded no enemy and no kill followed"
	if f.TeammatesBlinded > 0 {
		detail = fmt.Sprintf("flash blinded no enemy and %d teammate(s)", f.TeammatesBlinded)
	}
	return finding{
		severity:   sev,
		wpaLoss:    cfg.UtilityWasteWPA * sev,
		detail:     detail,
		correction: "Throw flashes your team can play off, and call them before they pop.",
	}, true
}

func weaponName(w string) string {
	if w == "" {
		return ""
	}
	return " to the " + w
}

// Detect runs every rule over the match features. tps is the match tick rate.
func Detect(fr *features.Result, rr *roles.Result, tps float64, cfg config.Mistakes) []model.Mistake {
	var out []model.Mistake
	emit := func(typ model.MistakeType, round, tick int, p model.PlayerID, f finding) {
		sev := round4(f.severity)
		out = append(out, model.Mistake{
			Tick:       tick,
			Round:      round,
			Player:     p,
			Type:       typ,
			Severity:   sev,
			Label:      model.SeverityLabel(sev),
			WPALoss:    round4(f.wpaLoss),
			Detail:     f.detail,
			Correction: f.correction,
		})
	}

	for i := range fr.Deaths {
		d := &fr.Deaths[i]
		role := rr.RoundRole(d.VictimID, d.Round)
		for _, r := range deathRules {
			if f, ok := r.eval(d, role, cfg); ok {
				emit(r.typ, d.Round, d.Tick, d.VictimID, f)
			}
		}
	}

	for i := range fr.Plants {
		pc := &fr.Plants[i]
		for _, rt := range pc.Retakes {
			role := rr.RoundRole(rt.PlayerID, pc.Round)
			for _, r := range plantRules {
				if f, ok := r.eval(pc, rt, role, tps, cfg); ok {
					emit(r.typ, pc.Round, pc.Tick, rt.PlayerID, f)
				}
			}
		}
	}

	for i := range fr.Flashes {
		fl := &fr.Flashes[i]
		for _, r := range flashRules {
			if f, ok := r.eval(fl, cfg); ok {
				emit(r.typ, fl.Round, fl.Tick, fl.ThrowerID, f)
			}
		}
	}

	Sort(out)
	return out
}

// Sort orders mistakes by round, tick, player and type.
func Sort(ms []model.Mistake) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.Round != b.Round {
			return a.Round < b.Round
		}
		if a.Tick != b.Tick {
			return a.Tick < b.Tick
		}
		if a.Player != b.Player {
			return a.Player < b.Player
		}
		return a.Type.Order() < b.Type.Order()
	})
}

// Summary counts mistakes by type. Every type is present.
func Summary(ms []model.Mistake) map[model.MistakeType]int {
	out := make(map[model.MistakeType]int, len(model.MistakeTypes))
	for _, t := range model.MistakeTypes {
		out[t] = 0
	}
	for _, m := range ms {
		out[m.Type]++
	}
	return out
}

// ByPlayer groups mistakes per player, keeping order.
func ByPlayer(ms []model.Mistake) map[model.PlayerID][]model.Mistake {
	out := make(map[model.PlayerID][]model.Mistake)
	for _, m := range ms {
		out[m.Player] = append(out[m.Player], m)
	}
	return out
}

func round4(x float64) float64 { return math.Round(x*1e4) / 1e4 }
