package bidding

import (
	"sort"

	"bidengine.ai/internal/sim/ability"
	"bidengine.ai/internal/sim/community"
)

// PairBid is a Phase I proposal to perform Task jointly with Partner.
type PairBid struct {
	Task    int `json:"task"`
	Partner int `json:"partner"`
}

// PairGenerator produces the caller's Phase I bids over a validated snapshot.
type PairGenerator interface {
	Pairs(caller community.Agent, snap *community.Snapshot) []PairBid
}

// RankedPairs admits every (task, partner) whose joint deficit keeps both
// agents above the energy floor and returns the MaxBids cheapest. Registered
// strong callers bid solo instead and return nothing here; they remain
// eligible as partners.
type RankedPairs struct {
	Floor   FloorPolicy
	MaxBids int
	Strong  *StrongRegistry
}

type rankedPair struct {
	bid  PairBid
	cost int
}

func (g RankedPairs) Pairs(caller community.Agent, snap *community.Snapshot) []PairBid {
	if g.Strong.Contains(caller.ID) {
		return nil
	}
	floor := g.Floor.Floor(len(snap.Tasks), snap.Population())

	var cands []rankedPair
	for ti, t := range snap.Tasks {
		for _, other := range snap.Members {
			if other.ID == caller.ID {
				continue
			}
			cost := ability.Deficit(ability.Max(caller.Abilities, other.Abilities), t.Requirement)
			if !Admits(caller.Energy, cost, floor) || !Admits(other.Energy, cost, floor) {
				continue
			}
			cands = append(cands, rankedPair{bid: PairBid{Task: ti, Partner: other.ID}, cost: cost})
		}
	}
	// Stable: equal costs keep task-major, member-order enumeration.
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].cost < cands[j].cost })

	n := len(cands)
	if g.MaxBids > 0 && n > g.MaxBids {
		n = g.MaxBids
	}
	out := make([]PairBid, n)
	for i := range out {
		out[i] = cands[i].bid
	}
	return out
}

// CapabilityPairs pairs the caller with every other non-strong agent and
// bids on each task the pair meets in every dimension. Unranked and
// unbounded; strong agents neither bid nor serve as partners.
type CapabilityPairs struct {
	Strong *StrongRegistry
}

func (g CapabilityPairs) Pairs(caller community.Agent, snap *community.Snapshot) []PairBid {
	if g.Strong.Contains(caller.ID) {
		return nil
	}
	partners := make([]community.Agent, 0, len(snap.Members))
	for _, m := range snap.Members {
		if m.ID == caller.ID || g.Strong.Contains(m.ID) {
			continue
		}
		partners = append(partners, m)
	}
	sort.SliceStable(partners, func(i, j int) bool { return partners[i].ID < partners[j].ID })

	var out []PairBid
	for _, p := range partners {
		joint := ability.Max(caller.Abilities, p.Abilities)
		for ti, t := range snap.Tasks {
			if ability.Capable(joint, t.Requirement) {
				out = append(out, PairBid{Task: ti, Partner: p.ID})
			}
		}
	}
	return out
}
