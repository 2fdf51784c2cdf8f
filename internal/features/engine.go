// Package features derives per-death, per-utility and per-player-round features from a
// normalized match.
package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/errs"
	"github.com/pable/go-cs-coach/internal/model"
	"github.com/pable/go-cs-coach/internal/normalize"
)

// Result is the frozen output of the feature engine for one match.
type Result struct {
	Deaths       []model.DeathContext
	Flashes      []model.FlashOutcome
	Plants       []model.PlantContext
	Rounds       []model.RoundFeatures
	PlayerRounds []model.PlayerRoundFeatures // ordered by round, then player

	// Deepest the trade and flash lookahead windows got during the run.
	MaxPendingTrades  int
	MaxPendingFlashes int
}

// Compute walks every round once in tick order. All mutable state lives in the engine
// value created here, so concurrent calls on different matches never share anything.
func Compute(m *normalize.Match, cfg config.Features) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil match", errs.ErrMalformedInput)
	}
	e := &engine{
		m:   m,
		cfg: cfg,
		res: &Result{},
	}
	for i := range m.Rounds {
		if err := e.round(&m.Rounds[i]); err != nil {
			return nil, fmt.Errorf("round %d: %w", m.Rounds[i].Number, err)
		}
	}
	return e.res, nil
}

type engine struct {
	m   *normalize.Match
	cfg config.Features
	res *Result
}

// roundState is the per-round accumulator.
type roundState struct {
	r *normalize.Round

	alive   map[model.PlayerID]bool
	pos     map[model.PlayerID]model.Vec3
	hasPos  map[model.PlayerID]bool
	players map[model.PlayerID]*model.PlayerRoundFeatures
	distSum map[model.PlayerID]float64

	trades  *tradeWindow
	pending *flashWindow
	flashes trail // detonations, for flash support
	blinds  trail // blinds, for flash assists and victim blindness
	smokes  trail
	hits    trail // enemy damage, for crossfire attribution

	equipment   map[model.Team]int
	teamWPA     map[model.Team]float64
	damageTo    map[[2]model.PlayerID]int
	teamContact map[model.Team]bool
	clutchSides map[model.Team]bool

	firstKill bool
	planted   bool
	plant     *model.PlantContext
}

func (e *engine) ticks(seconds float64) int { return e.m.Ticks(seconds) }

// player returns p's round features. Players without a playing side get a scratch value
// that is never emitted.
func (s *roundState) player(p model.PlayerID) *model.PlayerRoundFeatures {
	if f, ok := s.players[p]; ok {
		return f
	}
	return &model.PlayerRoundFeatures{}
}

func (e *engine) round(r *normalize.Round) error {
	s := &roundState{
		r:           r,
		alive:       make(map[model.PlayerID]bool),
		pos:         make(map[model.PlayerID]model.Vec3),
		hasPos:      make(map[model.PlayerID]bool),
		players:     make(map[model.PlayerID]*model.PlayerRoundFeatures),
		distSum:     make(map[model.PlayerID]float64),
		trades:      newTradeWindow(e.ticks(e.cfg.TradeWindowSeconds)),
		pending:     newFlashWindow(e.ticks(e.cfg.FlashFollowupSeconds)),
		flashes:     trail{span: e.ticks(e.cfg.FlashSupportSeconds)},
		blinds:      trail{span: e.ticks(e.cfg.FlashAssistSeconds)},
		smokes:      trail{span: e.ticks(e.cfg.SmokeDurationSeconds)},
		hits:        trail{span: e.ticks(e.cfg.CrossfireSeconds)},
		equipment:   make(map[model.Team]int),
		teamWPA:     map[model.Team]float64{model.TeamT: 0, model.TeamCT: 0},
		damageTo:    make(map[[2]model.PlayerID]int),
		teamContact: make(map[model.Team]bool),
		clutchSides: make(map[model.Team]bool),
	}

	for id, side := range r.Sides {
		if side != model.TeamT && side != model.TeamCT {
			continue
		}
		eq := r.Equipment[id]
		s.alive[id] = true
		s.equipment[side] += eq
		s.players[id] = &model.PlayerRoundFeatures{
			Player:              id,
			Round:               r.Number,
			Team:                side,
			FirstContactSeconds: -1,
			Equipment:           eq,
			Eco:                 EcoFor(eq, e.cfg),
		}
	}

	for _, ev := range r.Events {
		s.trades.expire(ev.Tick)
		s.pending.expire(ev.Tick)
		s.flashes.prune(ev.Tick)
		s.blinds.prune(ev.Tick)
		s.smokes.prune(ev.Tick)
		s.hits.prune(ev.Tick)

		switch ev.Kind {
		case model.EventPosition:
			e.onPosition(s, ev)
		case model.EventDamage:
			e.onDamage(s, ev)
		case model.EventFlash:
			e.onFlash(s, ev)
		case model.EventBlind:
			e.onBlind(s, ev)
		case model.EventSmoke:
			e.onSmoke(s, ev)
		case model.EventPlant:
			e.onPlant(s, ev)
		case model.EventDefuse:
			e.onDefuse(s, ev)
		case model.EventKill:
			if err := e.onKill(s, ev); err != nil {
				return err
			}
		}

		if n := s.trades.len(); n > e.res.MaxPendingTrades {
			e.res.MaxPendingTrades = n
		}
		if n := len(s.pending.pending); n > e.res.MaxPendingFlashes {
			e.res.MaxPendingFlashes = n
		}
	}

	e.finishRound(s)
	return nil
}

func (e *engine) side(s *roundState, p model.PlayerID) model.Team { return s.r.Side(p) }

func (e *engine) aliveCount(s *roundState, team model.Team) int {
	n := 0
	for id, ok := range s.alive {
		if ok && s.r.Side(id) == team {
			n++
		}
	}
	return n
}

func (e *engine) state(s *roundState) State {
	return State{
		AliveT:      e.aliveCount(s, model.TeamT),
		AliveCT:     e.aliveCount(s, model.TeamCT),
		EquipmentT:  s.equipment[model.TeamT],
		EquipmentCT: s.equipment[model.TeamCT],
		Planted:     s.planted,
	}
}

func (e *engine) elapsed(s *roundState, tick int) float64 {
	return e.m.Seconds(tick - s.r.StartTick)
}

// nearestTeammate returns the distance to the closest alive teammate with a known position
// and the number of teammates within trade distance.
func (e *engine) nearestTeammate(s *roundState, p model.PlayerID, at model.Vec3) (float64, int) {
	team := s.r.Side(p)
	nearest := model.NoTeammateDistance
	inRange := 0
	for id, ok := range s.alive {
		if !ok || id == p || s.r.Side(id) != team || !s.hasPos[id] {
			continue
		}
		d := at.Dist(s.pos[id])
		if d < nearest {
			nearest = d
		}
		if d <= e.cfg.TradeDistance {
			inRange++
		}
	}
	return nearest, inRange
}

func (e *engine) onPosition(s *roundState, ev model.MatchEvent) {
	p := ev.ActorID
	if !s.alive[p] {
		return
	}
	f := s.player(p)
	if s.hasPos[p] {
		f.PathDistance += s.pos[p].Dist(ev.ActorPos)
	}
	s.pos[p] = ev.ActorPos
	s.hasPos[p] = true

	if d, _ := e.nearestTeammate(s, p, ev.ActorPos); d < model.NoTeammateDistance {
		s.distSum[p] += d
		f.TeammateSamples++
	}

	if s.plant != nil && e.side(s, p) == model.TeamCT {
		for i := range s.plant.Retakes {
			rt := &s.plant.Retakes[i]
			if rt.PlayerID == p && rt.ArrivalTick == 0 && ev.ActorPos.Dist(s.plant.Pos) <= e.cfg.RetakeRadius {
				rt.ArrivalTick = ev.Tick
			}
		}
	}
}

func (e *engine) contact(s *roundState, p model.PlayerID, tick int) {
	f, ok := s.players[p]
	if !ok || f.FirstContactSeconds >= 0 {
		return
	}
	f.FirstContactSeconds = e.elapsed(s, tick)
	if !s.teamContact[f.Team] {
		s.teamContact[f.Team] = true
		f.TeamFirstContact = true
	}
}

func (e *engine) onDamage(s *roundState, ev model.MatchEvent) {
	a, v := ev.ActorID, ev.TargetID
	if a == 0 || a == v || e.side(s, a) == e.side(s, v) {
		return
	}
	key := [2]model.PlayerID{a, v}
	dealt := ev.Damage
	if remaining := 100 - s.damageTo[key]; dealt > remaining {
		dealt = remaining
	}
	if dealt > 0 {
		s.damageTo[key] += dealt
		s.player(a).Damage += dealt
		if model.IsSniper(ev.Weapon) {
			s.player(a).SniperDamage += dealt
		}
	}
	s.hits.add(mark{tick: ev.Tick, until: ev.Tick, actor: a, target: v, team: e.side(s, a)})
	e.contact(s, a, ev.Tick)
	e.contact(s, v, ev.Tick)
}

func (e *engine) onFlash(s *roundState, ev model.MatchEvent) {
	team := e.side(s, ev.ActorID)
	s.player(ev.ActorID).FlashesThrown++
	s.flashes.add(mark{tick: ev.Tick, until: ev.Tick, actor: ev.ActorID, team: team, pos: ev.ActorPos})
	e.res.Flashes = append(e.res.Flashes, model.FlashOutcome{
		Round:     s.r.Number,
		Tick:      ev.Tick,
		ThrowerID: ev.ActorID,
		Team:      team,
	})
	s.pending.push(len(e.res.Flashes)-1, ev.Tick, ev.ActorID, team)
}

func (e *engine) onBlind(s *roundState, ev model.MatchEvent) {
	if ev.Duration <= 0 {
		return
	}
	thrower, victim := ev.ActorID, ev.TargetID
	enemy := e.side(s, thrower) != e.side(s, victim)
	if fl := s.pending.latestBy(thrower); fl != nil {
		out := &e.res.Flashes[fl.idx]
		if enemy {
			out.EnemiesBlinded++
		} else if thrower != victim {
			out.TeammatesBlinded++
		}
	}
	if enemy {
		s.player(thrower).EnemiesFlashed++
	}
	s.blinds.add(mark{
		tick:   ev.Tick,
		until:  ev.Tick + e.ticks(ev.Duration),
		actor:  thrower,
		target: victim,
		team:   e.side(s, thrower),
	})
}

func (e *engine) onSmoke(s *roundState, ev model.MatchEvent) {
	s.player(ev.ActorID).SmokesThrown++
	s.smokes.add(mark{
		tick:  ev.Tick,
		until: ev.Tick + s.smokes.span,
		actor: ev.ActorID,
		team:  e.side(s, ev.ActorID),
		pos:   ev.ActorPos,
	})
}

func (e *engine) onPlant(s *roundState, ev model.MatchEvent) {
	if s.planted {
		return
	}
	planter := ev.ActorID
	before := WinProbability(e.state(s), model.TeamT, e.cfg.WPA)
	s.planted = true
	after := WinProbability(e.state(s), model.TeamT, e.cfg.WPA)
	e.credit(s, planter, after-before)

	s.player(planter).Planted = true

	pc := model.PlantContext{
		Round:     s.r.Number,
		Tick:      ev.Tick,
		PlanterID: planter,
		Site:      ev.Site,
		Pos:       ev.ActorPos,
		EndTick:   s.r.EndTick,
	}
	for _, id := range e.sortedAlive(s) {
		if s.hasPos[id] && s.pos[id].Dist(ev.ActorPos) <= e.cfg.PlantProximity {
			pc.NearPlant = append(pc.NearPlant, id)
			s.player(id).NearPlant = true
		}
		if e.side(s, id) == model.TeamCT {
			rt := model.RetakeArrival{PlayerID: id}
			if s.hasPos[id] && s.pos[id].Dist(ev.ActorPos) <= e.cfg.RetakeRadius {
				rt.ArrivalTick = ev.Tick
			}
			pc.Retakes = append(pc.Retakes, rt)
		}
	}
	e.res.Plants = append(e.res.Plants, pc)
	s.plant = &e.res.Plants[len(e.res.Plants)-1]
}

func (e *engine) onDefuse(s *roundState, ev model.MatchEvent) {
	before := WinProbability(e.state(s), model.TeamCT, e.cfg.WPA)
	e.credit(s, ev.ActorID, 1-before)
	s.player(ev.ActorID).Defused = true
	if s.plant != nil {
		s.plant.DefuseTick = ev.Tick
	}
}

// credit adds a WPA delta to a player and their side's round total.
func (e *engine) credit(s *roundState, p model.PlayerID, delta float64) {
	f, ok := s.players[p]
	if !ok {
		return
	}
	f.WPA += delta
	s.teamWPA[f.Team] += delta
}

func (e *engine) sortedAlive(s *roundState) []model.PlayerID {
	ids := make([]model.PlayerID, 0, len(s.alive))
	for id, ok := range s.alive {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (e *engine) onKill(s *roundState, ev model.MatchEvent) error {
	victim, killer := ev.TargetID, ev.ActorID
	if !s.alive[victim] {
		return fmt.Errorf("%w: tick %d: player %d killed twice", errs.ErrMalformedInput, ev.Tick, victim)
	}
	victimTeam := e.side(s, victim)
	world := killer == 0 || killer == victim
	var killerTeam model.Team
	if !world {
		killerTeam = e.side(s, killer)
	}
	teamKill := !world && killerTeam == victimTeam

	// Deaths this kill trades.
	traded := s.trades.resolve(victim, ev.Tick)
	tradedAny := false
	for _, p := range traded {
		d := &e.res.Deaths[p.idx]
		d.WasTraded = true
		if !world {
			d.TradedBy = killer
		}
		d.TradeDelaySeconds = e.m.Seconds(ev.Tick - p.tick)
		s.player(d.VictimID).TradedDeath = true
		if !world && killerTeam == d.VictimTeam {
			tradedAny = true
		}
	}
	if tradedAny {
		s.player(killer).TradeKills++
	}

	if !world && !teamKill {
		for _, fl := range s.pending.openFor(killerTeam) {
			e.res.Flashes[fl.idx].FollowupKill = true
		}
	}

	victimPos := ev.TargetPos
	if victimPos == (model.Vec3{}) && s.hasPos[victim] {
		victimPos = s.pos[victim]
	}
	killerPos := ev.ActorPos
	if !world && killerPos == (model.Vec3{}) && s.hasPos[killer] {
		killerPos = s.pos[killer]
	}

	nearest, inRange := e.nearestTeammate(s, victim, victimPos)
	teammates := e.aliveCount(s, victimTeam) - 1
	enemies := e.aliveCount(s, victimTeam.Opponent())

	d := model.DeathContext{
		Round:                   s.r.Number,
		Tick:                    ev.Tick,
		VictimID:                victim,
		VictimTeam:              victimTeam,
		Weapon:                  ev.Weapon,
		VictimPos:               victimPos,
		NearestTeammateDistance: nearest,
		TeammatesInTradeRange:   inRange,
		TeammatesAlive:          teammates,
		EnemiesAlive:            enemies,
		HadFlashSupport:         e.flashSupport(s, victimTeam, ev.Tick),
		VictimBlind:             ev.Blind || e.blindAt(s, victim, ev.Tick),
		Phase:                   Phase(e.elapsed(s, ev.Tick), e.cfg),
		IsTeamKill:              teamKill,
		AfterPlant:              s.planted,
	}
	if !world {
		d.KillerID = killer
		d.KillerTeam = killerTeam
		d.KillerPos = killerPos
		d.HadSmokeSupport = e.smokeBetween(s, killerPos, victimPos, ev.Tick)
	}
	enemy := killer
	if world || teamKill {
		enemy = 0
	}
	d.Attackers = e.attackers(s, victim, enemy, ev.Tick)

	if !s.firstKill {
		s.firstKill = true
		d.IsEntryFrag = true
		s.player(victim).EntryAttempt = true
		if !world && !teamKill {
			s.player(killer).EntryAttempt = true
			s.player(killer).EntrySuccess = true
		}
	}

	if !world && !teamKill {
		own := e.aliveCount(s, killerTeam)
		opp := e.aliveCount(s, victimTeam)
		d.IsSwingKill = own-opp <= -e.cfg.SwingDeficit
		lost := s.r.Winner != model.TeamUnknown && s.r.Winner != killerTeam
		d.IsExitFrag = lost && e.m.Seconds(s.r.EndTick-ev.Tick) < e.cfg.ExitFragSeconds
	}

	// WPA of the victim's side across the death.
	before := WinProbability(e.state(s), victimTeam, e.cfg.WPA)
	s.alive[victim] = false
	after := WinProbability(e.state(s), victimTeam, e.cfg.WPA)
	delta := after - before
	d.VictimWPA = delta
	switch {
	case world:
		e.credit(s, victim, delta)
	case teamKill:
		e.credit(s, killer, delta)
	default:
		e.credit(s, killer, -delta)
		e.credit(s, victim, delta)
	}

	vf := s.player(victim)
	vf.Deaths++
	vf.DeathPhase = d.Phase
	vf.UntradeableDeath = !d.Tradeable()

	if !world && !teamKill {
		kf := s.player(killer)
		kf.Kills++
		if ev.Headshot {
			kf.HeadshotKills++
		}
		if model.IsSniper(ev.Weapon) {
			kf.SniperKills++
		}
		if d.IsExitFrag {
			kf.ExitFrags++
		}
		if d.IsSwingKill {
			kf.SwingKills++
		}
		e.contact(s, killer, ev.Tick)
		if blinder, ok := e.flashAssister(s, victim, killer, killerTeam, ev.Tick); ok {
			s.player(blinder).FlashAssists++
		}
	}
	e.contact(s, victim, ev.Tick)

	if !world {
		s.pos[killer] = killerPos
		s.hasPos[killer] = true
	}

	if s.plant != nil {
		for i := range s.plant.Retakes {
			if s.plant.Retakes[i].PlayerID == victim {
				s.plant.Retakes[i].DeathTick = ev.Tick
			}
		}
	}

	e.res.Deaths = append(e.res.Deaths, d)
	if !world && !teamKill {
		s.trades.push(len(e.res.Deaths)-1, ev.Tick, killer)
	}

	e.checkClutch(s)
	return nil
}

// attackers counts the distinct enemies that damaged victim inside the crossfire window
// ending at tick, plus killer when set.
func (e *engine) attackers(s *roundState, victim, killer model.PlayerID, tick int) int {
	seen := make(map[model.PlayerID]bool)
	if killer != 0 {
		seen[killer] = true
	}
	for _, h := range s.hits.marks {
		if h.target == victim && h.tick <= tick && tick-h.tick <= s.hits.span {
			seen[h.actor] = true
		}
	}
	return len(seen)
}

// flashSupport reports a teammate flash detonation within the support window before tick.
func (e *engine) flashSupport(s *roundState, team model.Team, tick int) bool {
	for _, f := range s.flashes.marks {
		if f.team == team && f.tick <= tick && tick-f.tick <= s.flashes.span {
			return true
		}
	}
	return false
}

// blindAt reports whether p is still blind at tick.
func (e *engine) blindAt(s *roundState, p model.PlayerID, tick int) bool {
	for _, b := range s.blinds.marks {
		if b.target == p && b.tick <= tick && tick <= b.until {
			return true
		}
	}
	return false
}

// flashAssister returns the killer's teammate who blinded victim inside the assist window.
func (e *engine) flashAssister(s *roundState, victim, killer model.PlayerID, team model.Team, tick int) (model.PlayerID, bool) {
	for i := len(s.blinds.marks) - 1; i >= 0; i-- {
		b := s.blinds.marks[i]
		if b.target != victim || b.team != team || b.actor == killer {
			continue
		}
		if tick-b.tick <= s.blinds.span {
			return b.actor, true
		}
	}
	return 0, false
}

// smokeBetween reports an active smoke covering the killer-victim line.
func (e *engine) smokeBetween(s *roundState, killer, victim model.Vec3, tick int) bool {
	for _, sm := range s.smokes.marks {
		if sm.tick > tick || tick >= sm.until {
			continue
		}
		if model.SegmentDistance2D(sm.pos, killer, victim) <= e.cfg.SmokeRadius {
			return true
		}
	}
	return false
}

// checkClutch records the first moment each side is down to its last player.
func (e *engine) checkClutch(s *roundState) {
	for _, team := range []model.Team{model.TeamT, model.TeamCT} {
		if s.clutchSides[team] {
			continue
		}
		if e.aliveCount(s, team) != 1 {
			continue
		}
		opp := e.aliveCount(s, team.Opponent())
		if opp == 0 {
			continue
		}
		s.clutchSides[team] = true
		for id, ok := range s.alive {
			if ok && s.r.Side(id) == team {
				s.player(id).ClutchOpponents = opp
			}
		}
	}
}

func (e *engine) finishRound(s *roundState) {
	r := s.r
	ids := make([]model.PlayerID, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		f := s.players[id]
		f.Alive = s.alive[id]
		f.RoundWon = r.Winner != model.TeamUnknown && r.Winner == f.Team
		f.KAST = f.Kills > 0 || f.Alive || f.TradedDeath || f.FlashAssists > 0
		if f.ClutchOpponents > 0 {
			f.ClutchWon = f.RoundWon
		}
		if f.TeammateSamples > 0 {
			f.AvgTeammateDistance = s.distSum[id] / float64(f.TeammateSamples)
		}
		f.WPA = round9(f.WPA)
		e.res.PlayerRounds = append(e.res.PlayerRounds, *f)
	}

	rf := model.RoundFeatures{
		Number:    r.Number,
		StartTick: r.StartTick,
		EndTick:   r.EndTick,
		Winner:    r.Winner,
		Sides:     r.Sides,
		TeamEquipment: map[model.Team]int{
			model.TeamT:  s.equipment[model.TeamT],
			model.TeamCT: s.equipment[model.TeamCT],
		},
		Planted: s.planted,
		TeamWPA: map[model.Team]float64{
			model.TeamT:  round9(s.teamWPA[model.TeamT]),
			model.TeamCT: round9(s.teamWPA[model.TeamCT]),
		},
	}
	e.res.Rounds = append(e.res.Rounds, rf)
}

// round9 trims float noise from accumulated sums so equal inputs serialize identically
// whatever the summation order.
func round9(x float64) float64 { return math.Round(x*1e9) / 1e9 }
