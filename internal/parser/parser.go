// Package parser decodes match recordings into the pipeline's event stream.
package parser

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	demoinfocs "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs"
	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	"github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/events"

	"github.com/pable/go-cs-coach/internal/model"
)

// Options tunes demo decoding.
type Options struct {
	// SampleSeconds is the interval between position samples. Zero means one second.
	SampleSeconds float64
}

// Load reads a .dem recording or a pre-decoded .json event file.
func Load(ctx context.Context, path string, opts Options) (model.MatchInput, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dem":
		return ParseDemo(ctx, path, opts)
	case ".json":
		return LoadJSON(path)
	default:
		return model.MatchInput{}, fmt.Errorf("load %s: unsupported file type", path)
	}
}

// LoadJSON reads a pre-decoded MatchInput.
func LoadJSON(path string) (model.MatchInput, error) {
	var in model.MatchInput
	raw, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read events: %w", err)
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("decode events %s: %w", path, err)
	}
	return in, nil
}

// ParseDemo decodes the demo at path into a MatchInput.
func ParseDemo(ctx context.Context, path string, opts Options) (model.MatchInput, error) {
	var in model.MatchInput

	f, err := os.Open(path)
	if err != nil {
		return in, fmt.Errorf("open demo: %w", err)
	}
	defer f.Close()

	// Hash file for idempotency key.
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return in, fmt.Errorf("hash demo: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return in, fmt.Errorf("seek demo: %w", err)
	}
	var date string
	if st, err := f.Stat(); err == nil {
		date = st.ModTime().UTC().Format("2006-01-02")
	}

	p := demoinfocs.NewParser(f)
	defer p.Close()

	d := newDecoder(p, opts)
	d.in.Meta.DemoHash = fmt.Sprintf("%x", h.Sum(nil))
	d.in.Meta.MatchDate = date
	d.register()

	stop := context.AfterFunc(ctx, p.Cancel)
	defer stop()

	if err := p.ParseToEnd(); err != nil {
		if errors.Is(err, demoinfocs.ErrCancelled) {
			return in, fmt.Errorf("parse demo: %w", ctx.Err())
		}
		return in, fmt.Errorf("parse demo: %w", err)
	}

	d.in.Meta.MapName = p.Header().MapName
	d.in.Meta.TickRate = p.TickRate()
	return d.in, nil
}

// decoder turns parser callbacks into MatchEvents. Only events between freeze end and
// round end are emitted, and only for players with a side that round.
type decoder struct {
	p         demoinfocs.Parser
	sampleSec float64

	in         model.MatchInput
	round      int
	open       bool
	startIdx   int
	sides      map[model.PlayerID]model.Team
	lastSample int
}

func newDecoder(p demoinfocs.Parser, opts Options) *decoder {
	sec := opts.SampleSeconds
	if sec <= 0 {
		sec = 1
	}
	return &decoder{
		p:         p,
		sampleSec: sec,
		in: model.MatchInput{Meta: model.MatchMeta{
			PlayerNames: make(map[model.PlayerID]string),
		}},
	}
}

func (d *decoder) gs() demoinfocs.GameState { return d.p.GameState() }

func (d *decoder) tick() int { return d.gs().IngameTick() }

func (d *decoder) emit(ev model.MatchEvent) {
	ev.Tick = d.tick()
	ev.Round = d.round
	d.in.Events = append(d.in.Events, ev)
}

// known returns the id of pl when it holds a side this round.
func (d *decoder) known(pl *common.Player) (model.PlayerID, bool) {
	if !d.open || pl == nil || pl.SteamID64 == 0 {
		return 0, false
	}
	id := model.PlayerID(pl.SteamID64)
	_, ok := d.sides[id]
	return id, ok
}

func (d *decoder) register() {
	d.p.RegisterEventHandler(d.onFreezeEnd)
	d.p.RegisterEventHandler(d.onRoundEnd)
	d.p.RegisterEventHandler(d.onKill)
	d.p.RegisterEventHandler(d.onHurt)
	d.p.RegisterEventHandler(d.onFlashExplode)
	d.p.RegisterEventHandler(d.onFlashed)
	d.p.RegisterEventHandler(d.onSmoke)
	d.p.RegisterEventHandler(d.onPlant)
	d.p.RegisterEventHandler(d.onDefuse)
	d.p.RegisterEventHandler(d.onFrame)
}

// onFreezeEnd opens a round. A round still open here never saw its end (a restart or a
// skipped round_end) and is discarded.
func (d *decoder) onFreezeEnd(events.RoundFreezetimeEnd) {
	if d.gs().IsWarmupPeriod() {
		return
	}
	if d.open {
		d.in.Events = d.in.Events[:d.startIdx]
		d.in.Meta.Rounds = d.in.Meta.Rounds[:len(d.in.Meta.Rounds)-1]
		d.round--
	}
	d.round++
	d.startIdx = len(d.in.Events)
	d.open = true
	d.sides = make(map[model.PlayerID]model.Team)
	rs := model.RoundSides{
		Number:    d.round,
		Sides:     make(map[model.PlayerID]model.Team),
		Equipment: make(map[model.PlayerID]int),
	}
	for _, pl := range d.gs().Participants().Playing() {
		if pl == nil || pl.SteamID64 == 0 {
			continue
		}
		team := teamFromCommon(pl.Team)
		if team != model.TeamT && team != model.TeamCT {
			continue
		}
		id := model.PlayerID(pl.SteamID64)
		d.sides[id] = team
		rs.Sides[id] = team
		rs.Equipment[id] = pl.EquipmentValueCurrent()
		d.in.Meta.PlayerNames[id] = pl.Name
	}
	d.in.Meta.Rounds = append(d.in.Meta.Rounds, rs)
	d.emit(model.MatchEvent{Kind: model.EventRoundStart})
	d.lastSample = d.tick()
	d.sample()
}

func (d *decoder) onRoundEnd(e events.RoundEnd) {
	if !d.open {
		return
	}
	d.emit(model.MatchEvent{Kind: model.EventRoundEnd, Winner: teamFromCommon(e.Winner)})
	d.open = false
}

func (d *decoder) onKill(e events.Kill) {
	victim, ok := d.known(e.Victim)
	if !ok {
		return
	}
	ev := model.MatchEvent{
		Kind:      model.EventKill,
		TargetID:  victim,
		TargetPos: model.VecFromR3(e.Victim.Position()),
		Headshot:  e.IsHeadshot,
		Blind:     e.Victim.IsBlinded(),
	}
	if killer, ok := d.known(e.Killer); ok {
		ev.ActorID = killer
		ev.ActorPos = model.VecFromR3(e.Killer.Position())
	}
	if e.Weapon != nil {
		ev.Weapon = e.Weapon.Type.String()
	}
	d.emit(ev)
}

func (d *decoder) onHurt(e events.PlayerHurt) {
	attacker, ok := d.known(e.Attacker)
	if !ok {
		return
	}
	victim, ok := d.known(e.Player)
	if !ok || attacker == victim {
		return // ignore self-damage
	}
	ev := model.MatchEvent{
		Kind:      model.EventDamage,
		ActorID:   attacker,
		TargetID:  victim,
		ActorPos:  model.VecFromR3(e.Attacker.Position()),
		TargetPos: model.VecFromR3(e.Player.Position()),
		Damage:    e.HealthDamage,
	}
	if e.Weapon != nil {
		ev.Weapon = e.Weapon.Type.String()
	}
	d.emit(ev)
}

func (d *decoder) onFlashExplode(e events.FlashExplode) {
	thrower, ok := d.known(e.Thrower)
	if !ok {
		return
	}
	d.emit(model.MatchEvent{Kind: model.EventFlash, ActorID: thrower, ActorPos: model.VecFromR3(e.Position)})
}

func (d *decoder) onFlashed(e events.PlayerFlashed) {
	attacker, ok := d.known(e.Attacker)
	if !ok {
		return
	}
	target, ok := d.known(e.Player)
	if !ok {
		return
	}
	dur := e.FlashDuration()
	if dur <= 0 {
		return
	}
	d.emit(model.MatchEvent{
		Kind:      model.EventBlind,
		ActorID:   attacker,
		TargetID:  target,
		TargetPos: model.VecFromR3(e.Player.Position()),
		Duration:  dur.Seconds(),
	})
}

func (d *decoder) onSmoke(e events.SmokeStart) {
	thrower, ok := d.known(e.Thrower)
	if !ok {
		return
	}
	d.emit(model.MatchEvent{Kind: model.EventSmoke, ActorID: thrower, ActorPos: model.VecFromR3(e.Position)})
}

func (d *decoder) onPlant(e events.BombPlanted) {
	planter, ok := d.known(e.Player)
	if !ok {
		return
	}
	d.emit(model.MatchEvent{
		Kind:     model.EventPlant,
		ActorID:  planter,
		ActorPos: model.VecFromR3(e.Player.Position()),
		Site:     siteName(e.Site),
	})
}

func (d *decoder) onDefuse(e events.BombDefused) {
	defuser, ok := d.known(e.Player)
	if !ok {
		return
	}
	d.emit(model.MatchEvent{
		Kind:     model.EventDefuse,
		ActorID:  defuser,
		ActorPos: model.VecFromR3(e.Player.Position()),
		Site:     siteName(e.Site),
	})
}

func (d *decoder) onFrame(events.FrameDone) {
	if !d.open {
		return
	}
	rate := d.p.TickRate()
	if rate <= 0 {
		rate = 64
	}
	if float64(d.tick()-d.lastSample) < d.sampleSec*rate {
		return
	}
	d.lastSample = d.tick()
	d.sample()
}

// sample emits one position event per alive player with a side.
func (d *decoder) sample() {
	for _, pl := range d.gs().Participants().Playing() {
		id, ok := d.known(pl)
		if !ok || !pl.IsAlive() {
			continue
		}
		d.emit(model.MatchEvent{Kind: model.EventPosition, ActorID: id, ActorPos: model.VecFromR3(pl.Position())})
	}
}

func siteName(s events.Bombsite) string {
	switch s {
	case events.BombsiteA:
		return "A"
	case events.BombsiteB:
		return "B"
	default:
		return ""
	}
}

func teamFromCommon(t common.Team) model.Team {
	switch t {
	case common.TeamTerrorists:
		return model.TeamT
	case common.TeamCounterTerrorists:
		return model.TeamCT
	case common.TeamSpectators:
		return model.TeamSpectators
	default:
		return model.TeamUnknown
	}
}
