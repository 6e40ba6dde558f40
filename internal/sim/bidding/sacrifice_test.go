package bidding

import (
	"testing"

	"bidengine.ai/internal/sim/ability"
	"bidengine.ai/internal/sim/community"
)

func TestSacrificeDetector_Active(t *testing.T) {
	d := SacrificeDetector{Gap: 20}
	if !d.Active(1, 5) {
		t.Fatalf("1 task / 5 agents should be scarce")
	}
	if d.Active(2, 5) || d.Active(2, 4) {
		t.Fatalf("ratio at or above half should not be scarce")
	}
}

func TestSacrificeDetector_Exhausting(t *testing.T) {
	d := SacrificeDetector{Gap: 20}
	snap := snapshotOf([]community.Agent{agent(0, 10, 0, 0), agent(1, 10, 0, 0)},
		ability.Vector{10, 10}, // solo 20: no solo, but pair 20 < 40
		ability.Vector{25, 25}, // solo and pair 50
		ability.Vector{5, 5},   // solo 10
	)
	if got := d.Exhausting(snap); !equalInts(got, []int{1}) {
		t.Fatalf("exhausting: got %v want [1]", got)
	}

	// Each agent alone is exhausted; together they cover the task for free.
	snap = snapshotOf([]community.Agent{agent(0, 10, 20, 0), agent(1, 10, 0, 20), agent(2, 10, 0, 0)},
		ability.Vector{20, 20})
	if got := d.Exhausting(snap); len(got) != 0 {
		t.Fatalf("pair-solvable task flagged: %v", got)
	}
}

func TestSacrificeDetector_ExhaustingIffNoSoloOrPair(t *testing.T) {
	d := SacrificeDetector{Gap: 4}
	var members []community.Agent
	for id := 0; id < 4; id++ {
		members = append(members, agent(id, 10, id, 3-id))
	}
	var tasks []ability.Vector
	for a := 0; a <= 6; a += 2 {
		for b := 0; b <= 6; b += 3 {
			tasks = append(tasks, ability.Vector{a, b})
		}
	}
	snap := snapshotOf(members, tasks...)
	flagged := map[int]bool{}
	for _, ti := range d.Exhausting(snap) {
		flagged[ti] = true
	}
	for ti, task := range tasks {
		feasible := false
		for i, m := range members {
			if ability.Deficit(m.Abilities, task) < d.Gap {
				feasible = true
			}
			for _, o := range members[i+1:] {
				if ability.Deficit(ability.Max(m.Abilities, o.Abilities), task) < 2*d.Gap {
					feasible = true
				}
			}
		}
		if flagged[ti] == feasible {
			t.Fatalf("task %d %v: flagged=%v feasible=%v", ti, task, flagged[ti], feasible)
		}
	}
}

func TestWeakest_StableSkipsIncapacitated(t *testing.T) {
	agents := []community.Agent{
		agent(0, 10, 0, 0),
		agent(1, 10, 3, 3),
		agent(2, 10, 1, 1),
		agent(3, 10, 2, 0),
		agent(4, 10, 0, 2),
	}
	agents[0].Incapacitated = true

	got := Weakest(agents, 3)
	if !equalInts(got, []int{2, 3, 4}) {
		t.Fatalf("weakest: got %v want [2 3 4]", got)
	}
	if got := Weakest(agents, 10); len(got) != 4 {
		t.Fatalf("n beyond live agents: got %v", got)
	}
	if got := Weakest(agents, 0); got != nil {
		t.Fatalf("n=0: got %v", got)
	}
	prev := -1
	for _, id := range Weakest(agents, 4) {
		if id == 0 {
			t.Fatalf("incapacitated agent selected")
		}
		s := agents[id].Abilities.Sum()
		if s < prev {
			t.Fatalf("weakest not in non-decreasing ability order")
		}
		prev = s
	}
}

func TestSacrificeDetector_Plan(t *testing.T) {
	d := SacrificeDetector{Gap: 20}
	members := []community.Agent{agent(0, 10, 0, 0), agent(1, 10, 1, 0), agent(2, 10, 0, 0), agent(3, 10, 2, 2), agent(4, 10, 1, 1)}
	members[0].Incapacitated = true

	plan := d.Plan(snapshotOf(members, ability.Vector{30, 30}))
	if plan == nil || !equalInts(plan.Tasks, []int{0}) || !equalInts(plan.Agents, []int{2}) {
		t.Fatalf("plan: %+v", plan)
	}
	if !plan.Includes(2) || plan.Includes(1) {
		t.Fatalf("includes mismatch")
	}

	// Not scarce: 3 tasks for 5 agents.
	if plan := d.Plan(snapshotOf(members, ability.Vector{30, 30}, ability.Vector{30, 30}, ability.Vector{30, 30})); plan != nil {
		t.Fatalf("non-scarce plan: %+v", plan)
	}
	var none *Sacrifice
	if none.Includes(0) {
		t.Fatalf("nil plan includes nobody")
	}
}
