// Package bidding is the per-agent decision engine: given a validated round
// snapshot it proposes Phase I (task, partner) bids and Phase II solo bids.
package bidding

import (
	"fmt"

	"bidengine.ai/internal/sim/community"
	"bidengine.ai/internal/sim/tuning"
)

// Strategy is the two-phase bidding contract. Implementations are pure
// functions of the snapshot and the registry they were built with.
type Strategy interface {
	Name() string
	PhaseOne(snap *community.Snapshot, agentID int) ([]PairBid, error)
	PhaseTwo(snap *community.Snapshot, agentID int) ([]int, error)
}

// Engine composes a pair generator, a solo generator and an optional
// sacrifice detector around a shared strong-agent registry.
type Engine struct {
	name      string
	strong    *StrongRegistry
	pairs     PairGenerator
	solo      SoloGenerator
	sacrifice *SacrificeDetector
}

var _ Strategy = (*Engine)(nil)

// New builds the engine described by t.
func New(t tuning.Tuning, strong *StrongRegistry) (*Engine, error) {
	if strong == nil {
		return nil, fmt.Errorf("bidding: nil strong registry")
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("bidding: %w", err)
	}
	floor := FloorPolicy{Normal: t.Energy.Normal, Step: t.Energy.FloorStep}
	e := &Engine{name: t.Strategy, strong: strong}

	switch t.Pairs.Policy {
	case tuning.PairsRanked:
		e.pairs = RankedPairs{Floor: floor, MaxBids: t.Pairs.MaxBids, Strong: strong}
	case tuning.PairsCapability:
		e.pairs = CapabilityPairs{Strong: strong}
	}
	switch t.Solo.Policy {
	case tuning.SoloFloor:
		e.solo = FloorSolo{Floor: floor}
	case tuning.SoloTiered:
		e.solo = TieredSolo{LowCost: t.Solo.LowCost, HighCost: t.Solo.HighCost, HighReserve: t.Solo.HighReserve}
	}
	if t.Sacrifice.On() {
		e.sacrifice = &SacrificeDetector{Gap: t.Energy.Gap()}
	}
	return e, nil
}

// NewWith assembles an engine from explicit parts. sacrifice may be nil.
func NewWith(name string, strong *StrongRegistry, pairs PairGenerator, solo SoloGenerator, sacrifice *SacrificeDetector) *Engine {
	return &Engine{name: name, strong: strong, pairs: pairs, solo: solo, sacrifice: sacrifice}
}

func (e *Engine) Name() string { return e.name }

func (e *Engine) Registry() *StrongRegistry { return e.strong }

// Accepted is implemented by strategies that can bid on a snapshot the
// caller has already validated and classified against the strategy's
// registry. A round pays for validation once instead of once per agent.
type Accepted interface {
	PhaseOneAccepted(snap *community.Snapshot, agentID int) ([]PairBid, error)
	PhaseTwoAccepted(snap *community.Snapshot, agentID int) ([]int, error)
}

var _ Accepted = (*Engine)(nil)

// Accept validates snap and records its strong agents.
func (e *Engine) Accept(snap *community.Snapshot) error {
	if snap == nil {
		return nil
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	e.strong.Classify(snap)
	return nil
}

// caller resolves agentID in an accepted snapshot. ok is false when there is
// nothing to bid on.
func caller(snap *community.Snapshot, agentID int) (community.Agent, bool, error) {
	if snap == nil || len(snap.Members) == 0 {
		return community.Agent{}, false, nil
	}
	c, err := snap.Member(agentID)
	if err != nil {
		return c, false, err
	}
	return c, len(snap.Tasks) > 0, nil
}

func (e *Engine) PhaseOne(snap *community.Snapshot, agentID int) ([]PairBid, error) {
	if err := e.Accept(snap); err != nil {
		return nil, err
	}
	return e.PhaseOneAccepted(snap, agentID)
}

func (e *Engine) PhaseTwo(snap *community.Snapshot, agentID int) ([]int, error) {
	if err := e.Accept(snap); err != nil {
		return nil, err
	}
	return e.PhaseTwoAccepted(snap, agentID)
}

func (e *Engine) PhaseOneAccepted(snap *community.Snapshot, agentID int) ([]PairBid, error) {
	c, ok, err := caller(snap, agentID)
	if err != nil || !ok {
		return nil, err
	}
	return e.pairs.Pairs(c, snap), nil
}

func (e *Engine) PhaseTwoAccepted(snap *community.Snapshot, agentID int) ([]int, error) {
	c, ok, err := caller(snap, agentID)
	if err != nil || !ok {
		return nil, err
	}
	if e.strong.Contains(c.ID) {
		return snap.TaskIndexes(), nil
	}
	if plan := e.Sacrifices(snap); plan.Includes(c.ID) {
		return append([]int(nil), plan.Tasks...), nil
	}
	if c.Energy < 0 {
		return nil, nil
	}
	return e.solo.Solo(c, snap), nil
}

// Sacrifices returns the round's forced assignment, or nil when the engine
// has no detector or nothing needs sacrificing. snap must be validated.
func (e *Engine) Sacrifices(snap *community.Snapshot) *Sacrifice {
	if e.sacrifice == nil || snap == nil {
		return nil
	}
	return e.sacrifice.Plan(snap)
}
