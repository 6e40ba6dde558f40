package bidding

import (
	"testing"

	"bidengine.ai/internal/sim/ability"
	"bidengine.ai/internal/sim/community"
	"bidengine.ai/internal/sim/tuning"
)

func agent(id, energy int, abilities ...int) community.Agent {
	return community.Agent{ID: id, Energy: energy, Abilities: ability.Vector(abilities)}
}

func snapshotOf(members []community.Agent, tasks ...ability.Vector) *community.Snapshot {
	s := &community.Snapshot{Members: members}
	for _, t := range tasks {
		s.Tasks = append(s.Tasks, community.Task{Requirement: t})
	}
	return s
}

func engineFor(t *testing.T, strategy string) *Engine {
	t.Helper()
	tune := tuning.Defaults()
	tune.Strategy = strategy
	tune.Normalize()
	e, err := New(tune, NewStrongRegistry())
	if err != nil {
		t.Fatalf("new engine %s: %v", strategy, err)
	}
	return e
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalPairs(a, b []PairBid) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
