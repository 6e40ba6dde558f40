package bidding

import (
	"sort"

	"bidengine.ai/internal/sim/ability"
	"bidengine.ai/internal/sim/community"
)

// SacrificeDetector finds tasks nobody can take on without exhausting
// themselves. Gap is max energy minus the exhausted level.
type SacrificeDetector struct {
	Gap int
}

// Active reports whether tasks are scarce enough for sacrifices.
func (d SacrificeDetector) Active(remaining, population int) bool {
	return remaining < population/2
}

// Exhausting returns, in task order, the tasks where every solo deficit is at
// least Gap and every pair deficit is at least twice Gap.
func (d SacrificeDetector) Exhausting(snap *community.Snapshot) []int {
	var out []int
	for ti, t := range snap.Tasks {
		if d.exhausting(snap.Members, t.Requirement) {
			out = append(out, ti)
		}
	}
	return out
}

func (d SacrificeDetector) exhausting(members []community.Agent, req ability.Vector) bool {
	for _, m := range members {
		if ability.Deficit(m.Abilities, req) < d.Gap {
			return false
		}
	}
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			joint := ability.Max(members[i].Abilities, members[j].Abilities)
			if ability.Deficit(joint, req) < 2*d.Gap {
				return false
			}
		}
	}
	return true
}

// Weakest returns the ids of the n agents with the lowest total ability,
// weakest first, skipping incapacitated agents. Ties keep input order.
func Weakest(agents []community.Agent, n int) []int {
	if n <= 0 {
		return nil
	}
	live := make([]community.Agent, 0, len(agents))
	for _, a := range agents {
		if !a.Incapacitated {
			live = append(live, a)
		}
	}
	sort.SliceStable(live, func(i, j int) bool { return live[i].Abilities.Sum() < live[j].Abilities.Sum() })
	if n > len(live) {
		n = len(live)
	}
	out := make([]int, n)
	for i := range out {
		out[i] = live[i].ID
	}
	return out
}

// Sacrifice is the forced Phase II assignment for one round.
type Sacrifice struct {
	Tasks  []int `json:"tasks"`
	Agents []int `json:"agents"`
}

// Plan returns the round's sacrifice set, or nil when tasks are not scarce
// or nothing is exhausting. One weakest agent is chosen per exhausting task.
func (d SacrificeDetector) Plan(snap *community.Snapshot) *Sacrifice {
	if !d.Active(len(snap.Tasks), snap.Population()) {
		return nil
	}
	tasks := d.Exhausting(snap)
	if len(tasks) == 0 {
		return nil
	}
	return &Sacrifice{Tasks: tasks, Agents: Weakest(snap.Members, len(tasks))}
}

func (s *Sacrifice) Includes(id int) bool {
	if s == nil {
		return false
	}
	for _, a := range s.Agents {
		if a == id {
			return true
		}
	}
	return false
}
