package features

import "github.com/pable/go-cs-coach/internal/model"

// pendingDeath is a death whose trade outcome is still open.
type pendingDeath struct {
	idx      int // index into Result.Deaths
	tick     int
	killer   model.PlayerID
	deadline int
}

// tradeWindow holds deaths until their trade window closes. Entries are appended in tick
// order, so expiry only ever pops from the front and the buffer never holds more than one
// window's worth of deaths.
type tradeWindow struct {
	span    int
	pending []pendingDeath
}

func newTradeWindow(spanTicks int) *tradeWindow {
	return &tradeWindow{span: spanTicks}
}

func (w *tradeWindow) push(idx, tick int, killer model.PlayerID) {
	w.pending = append(w.pending, pendingDeath{idx: idx, tick: tick, killer: killer, deadline: tick + w.span})
}

// expire drops every death whose window closed before tick.
func (w *tradeWindow) expire(tick int) {
	n := 0
	for n < len(w.pending) && w.pending[n].deadline < tick {
		n++
	}
	w.pending = w.pending[n:]
}

// resolve removes every open death whose killer is victim and returns, earliest first,
// those the death at tick trades. A death on the same tick as the original kill is a
// simultaneous exchange, not a trade, and closes that window untraded.
func (w *tradeWindow) resolve(victim model.PlayerID, tick int) []pendingDeath {
	var hit []pendingDeath
	kept := w.pending[:0]
	for _, p := range w.pending {
		if p.killer != victim {
			kept = append(kept, p)
			continue
		}
		if p.tick < tick && tick <= p.deadline {
			hit = append(hit, p)
		}
	}
	w.pending = kept
	return hit
}

func (w *tradeWindow) len() int { return len(w.pending) }

// pendingFlash is a flash whose followup window is still open.
type pendingFlash struct {
	idx      int // index into Result.Flashes
	tick     int
	thrower  model.PlayerID
	team     model.Team
	deadline int
}

// flashWindow holds thrown flashes until their followup window closes.
type flashWindow struct {
	span    int
	pending []pendingFlash
}

func newFlashWindow(spanTicks int) *flashWindow {
	return &flashWindow{span: spanTicks}
}

func (w *flashWindow) push(idx, tick int, thrower model.PlayerID, team model.Team) {
	w.pending = append(w.pending, pendingFlash{idx: idx, tick: tick, thrower: thrower, team: team, deadline: tick + w.span})
}

func (w *flashWindow) expire(tick int) {
	n := 0
	for n < len(w.pending) && w.pending[n].deadline < tick {
		n++
	}
	w.pending = w.pending[n:]
}

// latestBy returns the most recent open flash thrown by p, or nil.
func (w *flashWindow) latestBy(p model.PlayerID) *pendingFlash {
	for i := len(w.pending) - 1; i >= 0; i-- {
		if w.pending[i].thrower == p {
			return &w.pending[i]
		}
	}
	return nil
}

// openFor returns every open flash thrown by team.
func (w *flashWindow) openFor(team model.Team) []pendingFlash {
	var out []pendingFlash
	for _, f := range w.pending {
		if f.team == team {
			out = append(out, f)
		}
	}
	return out
}

// mark is a timestamped utility event used for backward-looking support checks.
type mark struct {
	tick   int
	until  int
	actor  model.PlayerID
	target model.PlayerID
	team   model.Team
	pos    model.Vec3
}

// trail keeps marks no older than span ticks.
type trail struct {
	span  int
	marks []mark
}

func (t *trail) add(m mark) { t.marks = append(t.marks, m) }

// prune drops marks that can no longer matter at tick.
func (t *trail) prune(tick int) {
	n := 0
	for n < len(t.marks) && t.marks[n].tick+t.span < tick && t.marks[n].until < tick {
		n++
	}
	t.marks = t.marks[n:]
}
