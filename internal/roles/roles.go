// Package roles assigns behavioral roles per round and per match.
package roles

import (
	"fmt"
	"sort"

	"github.com/pable/go-cs-coach/internal/aggregator"
	"github.com/pable/go-cs-coach/internal/config"
	"github.com/pable/go-cs-coach/internal/errs"
	"github.com/pable/go-cs-coach/internal/features"
	"github.com/pable/go-cs-coach/internal/model"
)

// maxEvidence is the largest evidence weight a single round can give each role.
var maxEvidence = map[model.Role]float64{
	model.RoleEntry:   4,
	model.RoleSniper:  3,
	model.RoleSupport: 4,
	model.RoleLurk:    3,
	model.RoleRotator: 3,
	model.RoleAnchor:  3,
}

// Evidence is the weight and signal count one round gives one role.
type Evidence struct {
	Weight float64
	Count  int
}

func (e *Evidence) add(w float64) {
	e.Weight += w
	e.Count++
}

// Confidence is the evidence weight over the role's maximum, in [0,1].
func (e Evidence) Confidence(role model.Role) float64 {
	c := e.Weight / maxEvidence[role]
	if c > 1 {
		return 1
	}
	return c
}

// RoundEvidence collects the evidence one round of play gives each role.
func RoundEvidence(f model.PlayerRoundFeatures, rc config.Roles, fc config.Features) map[model.Role]Evidence {
	ev := make(map[model.Role]Evidence, len(model.Roles))

	var entry Evidence
	if f.TeamFirstContact {
		entry.add(2)
	}
	if f.FirstContactSeconds >= 0 && features.Phase(f.FirstContactSeconds, fc) == model.PhaseEarly {
		entry.add(1)
	}
	if f.EntrySuccess {
		entry.add(1)
	}
	ev[model.RoleEntry] = entry

	var sniper Evidence
	for i := 0; i < f.SniperKills; i++ {
		sniper.add(1.5)
	}
	if f.SniperDamage > 0 {
		sniper.add(1)
	}
	ev[model.RoleSniper] = sniper

	var support Evidence
	for i := 0; i < f.FlashesThrown && i < 2; i++ {
		support.add(1)
	}
	if f.FlashAssists > 0 {
		support.add(1)
	}
	if f.SmokesThrown > 0 {
		support.add(1)
	}
	ev[model.RoleSupport] = support

	var lurk Evidence
	if f.TeammateSamples > 0 {
		if f.AvgTeammateDistance > rc.LurkDistance {
			lurk.add(2)
		}
		if f.AvgTeammateDistance > 1.5*rc.LurkDistance {
			lurk.add(1)
		}
	}
	ev[model.RoleLurk] = lurk

	var rotator Evidence
	if f.PathDistance > rc.RotationDistance {
		rotator.add(2)
	}
	if f.PathDistance > 1.5*rc.RotationDistance {
		rotator.add(1)
	}
	ev[model.RoleRotator] = rotator

	var anchor Evidence
	if f.Team == model.TeamCT {
		if f.PathDistance > 0 && f.PathDistance < rc.AnchorMovement {
			anchor.add(1)
		}
		if f.NearPlant {
			anchor.add(1)
		}
		if f.Alive || f.DeathPhase == model.PhaseLate {
			anchor.add(1)
		}
	}
	ev[model.RoleAnchor] = anchor

	return ev
}

// AssignRound picks the role with the highest confidence, ties broken in model.Roles order.
// A round with no evidence for any role falls back to Anchor at confidence 0.
func AssignRound(f model.PlayerRoundFeatures, rc config.Roles, fc config.Features) model.RoleAssignment {
	ev := RoundEvidence(f, rc, fc)
	best := model.RoleAnchor
	bestConf := 0.0
	for _, role := range model.Roles {
		if c := ev[role].Confidence(role); c > bestConf {
			best, bestConf = role, c
		}
	}
	a := model.RoleAssignment{Player: f.Player, Round: f.Round, Role: best, Confidence: bestConf}
	if bestConf > 0 {
		a.EvidenceCount = ev[best].Count
	}
	return a
}

type roundKey struct {
	player model.PlayerID
	round  int
}

// assignmentSet holds at most one role per player and round.
type assignmentSet struct {
	byKey map[roundKey]model.Role
	list  []model.RoleAssignment
}

func newAssignmentSet() *assignmentSet {
	return &assignmentSet{byKey: make(map[roundKey]model.Role)}
}

func (s *assignmentSet) add(a model.RoleAssignment) error {
	k := roundKey{a.Player, a.Round}
	if prev, ok := s.byKey[k]; ok {
		return fmt.Errorf("%w: player %d round %d assigned %s and %s",
			errs.ErrRuleConflict, a.Player, a.Round, prev, a.Role)
	}
	s.byKey[k] = a.Role
	s.list = append(s.list, a)
	return nil
}

// Result holds every role assignment of a match.
type Result struct {
	Rounds        map[model.PlayerID][]model.RoleAssignment // per player, round order
	Match         map[model.PlayerID]model.RoleAssignment
	Qualification map[model.PlayerID]map[model.Role]float64
}

// RoundRole returns p's role in round n, or Anchor when p did not play it.
func (r *Result) RoundRole(p model.PlayerID, n int) model.Role {
	for _, a := range r.Rounds[p] {
		if a.Round == n {
			return a.Role
		}
	}
	return model.RoleAnchor
}

// Classify assigns round and match roles to every player and enforces per-squad quotas.
func Classify(players []model.PlayerMatchFeatures, rc config.Roles, fc config.Features) (*Result, error) {
	res := &Result{
		Rounds:        make(map[model.PlayerID][]model.RoleAssignment, len(players)),
		Match:         make(map[model.PlayerID]model.RoleAssignment, len(players)),
		Qualification: make(map[model.PlayerID]map[model.Role]float64, len(players)),
	}
	set := newAssignmentSet()
	votes := make(map[model.PlayerID]map[model.Role]float64, len(players))
	counts := make(map[model.PlayerID]map[model.Role]int, len(players))

	for _, p := range players {
		votes[p.Player] = make(map[model.Role]float64)
		counts[p.Player] = make(map[model.Role]int)
		qual := make(map[model.Role]float64)
		for _, rf := range p.Rounds {
			a := AssignRound(rf, rc, fc)
			if err := set.add(a); err != nil {
				return nil, err
			}
			res.Rounds[p.Player] = append(res.Rounds[p.Player], a)
			votes[p.Player][a.Role] += a.Confidence
			counts[p.Player][a.Role] += a.EvidenceCount

			ev := RoundEvidence(rf, rc, fc)
			for _, role := range model.Roles {
				qual[role] += ev[role].Confidence(role)
			}
		}
		res.Qualification[p.Player] = qual
		res.Match[p.Player] = matchAssignment(p, model.Roles, votes[p.Player], counts[p.Player], qual)
	}

	enforceQuotas(players, res, votes, counts, rc)
	return res, nil
}

// matchAssignment picks the most voted role among candidates.
func matchAssignment(p model.PlayerMatchFeatures, candidates []model.Role, votes map[model.Role]float64, counts map[model.Role]int, qual map[model.Role]float64) model.RoleAssignment {
	best := model.RoleAnchor
	bestVotes := 0.0
	for _, role := range candidates {
		if v := votes[role]; v > bestVotes {
			best, bestVotes = role, v
		}
	}
	a := model.RoleAssignment{
		Player:             p.Player,
		Role:               best,
		EvidenceCount:      counts[best],
		QualificationScore: qual[best],
	}
	if p.RoundsPlayed > 0 {
		a.Confidence = bestVotes / float64(p.RoundsPlayed)
	}
	return a
}

// enforceQuotas demotes the lowest qualified holders of an over-subscribed role to their
// next best role until every squad is within quota.
func enforceQuotas(players []model.PlayerMatchFeatures, res *Result, votes map[model.PlayerID]map[model.Role]float64, counts map[model.PlayerID]map[model.Role]int, rc config.Roles) {
	for _, squad := range []model.Team{model.TeamT, model.TeamCT} {
		members := aggregator.Squad(players, squad)
		for changed := true; changed; {
			changed = false
			for _, role := range model.Roles {
				quota, limited := rc.Quota(role)
				if !limited {
					continue
				}
				var holders []model.PlayerMatchFeatures
				for _, p := range members {
					if res.Match[p.Player].Role == role {
						holders = append(holders, p)
					}
				}
				if len(holders) <= quota {
					continue
				}
				sort.SliceStable(holders, func(i, j int) bool {
					qi := res.Qualification[holders[i].Player][role]
					qj := res.Qualification[holders[j].Player][role]
					if qi != qj {
						return qi > qj
					}
					return holders[i].Player < holders[j].Player
				})
				for _, p := range holders[quota:] {
					res.Match[p.Player] = demote(p, res.Match[p.Player], votes[p.Player], counts[p.Player], res.Qualification[p.Player])
					changed = true
				}
			}
		}
	}
}

func demote(p model.PlayerMatchFeatures, cur model.RoleAssignment, votes map[model.Role]float64, counts map[model.Role]int, qual map[model.Role]float64) model.RoleAssignment {
	excluded := map[model.Role]bool{cur.Role: true}
	for _, r := range cur.DemotedFrom {
		excluded[r] = true
	}
	var candidates []model.Role
	for _, r := range model.Roles {
		if !excluded[r] {
			candidates = append(candidates, r)
		}
	}
	next := matchAssignment(p, candidates, votes, counts, qual)
	next.DemotedFrom = append(append([]model.Role{}, cur.DemotedFrom...), cur.Role)
	return next
}
