package bidding

import (
	"bidengine.ai/internal/sim/ability"
	"bidengine.ai/internal/sim/community"
)

// SoloGenerator picks the tasks a non-strong, rested caller bids on alone.
type SoloGenerator interface {
	Solo(caller community.Agent, snap *community.Snapshot) []int
}

// TieredSolo admits cheap tasks outright and costlier ones only with a large
// energy reserve.
type TieredSolo struct {
	LowCost     int
	HighCost    int
	HighReserve int
}

func (g TieredSolo) Solo(caller community.Agent, snap *community.Snapshot) []int {
	var out []int
	for ti, t := range snap.Tasks {
		cost := ability.Deficit(caller.Abilities, t.Requirement)
		if cost <= g.LowCost || (cost <= g.HighCost && caller.Energy >= g.HighReserve) {
			out = append(out, ti)
		}
	}
	return out
}

// FloorSolo admits a task when the caller stays above the energy floor after
// paying its deficit.
type FloorSolo struct {
	Floor FloorPolicy
}

func (g FloorSolo) Solo(caller community.Agent, snap *community.Snapshot) []int {
	floor := g.Floor.Floor(len(snap.Tasks), snap.Population())
	var out []int
	for ti, t := range snap.Tasks {
		if Admits(caller.Energy, ability.Deficit(caller.Abilities, t.Requirement), floor) {
			out = append(out, ti)
		}
	}
	return out
}
