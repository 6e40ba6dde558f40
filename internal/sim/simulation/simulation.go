// Package simulation owns the state that outlives a single bidding call: the
// strong-agent registry of one simulation run and the strategy bound to it.
package simulation

import (
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"bidengine.ai/internal/sim/bidding"
	"bidengine.ai/internal/sim/community"
	"bidengine.ai/internal/sim/tuning"
)

type RoundLogger interface {
	WriteRound(entry RoundEntry) error
}

// StrategyFactory binds a strategy to the registry of a fresh simulation.
type StrategyFactory func(t tuning.Tuning, strong *bidding.StrongRegistry) (bidding.Strategy, error)

func defaultFactory(t tuning.Tuning, strong *bidding.StrongRegistry) (bidding.Strategy, error) {
	return bidding.New(t, strong)
}

type Config struct {
	// Label names the orchestrator run. Ids are always freshly generated and
	// prefixed with it ("<label>/<uuid>"), so two runs never share an id.
	Label       string
	Tuning      tuning.Tuning
	NewStrategy StrategyFactory
	Recorders   []RoundLogger
	Logger      *log.Logger
}

type Instance struct {
	mu sync.Mutex

	id        string
	label     string
	tune      tuning.Tuning
	strong    *bidding.StrongRegistry
	strategy  bidding.Strategy
	factory   StrategyFactory
	recorders []RoundLogger
	log       *log.Logger
	seq       int
}

func New(cfg Config) (*Instance, error) {
	cfg.Tuning.Normalize()
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	in := &Instance{
		label:     cfg.Label,
		tune:      cfg.Tuning,
		factory:   cfg.NewStrategy,
		recorders: cfg.Recorders,
		log:       cfg.Logger,
	}
	if in.factory == nil {
		in.factory = defaultFactory
	}
	if in.log == nil {
		in.log = log.New(io.Discard, "", 0)
	}
	if err := in.start(); err != nil {
		return nil, err
	}
	return in, nil
}

// start begins a new simulation run: fresh id, empty registry, new strategy.
func (in *Instance) start() error {
	id := uuid.NewString()
	if in.label != "" {
		id = in.label + "/" + id
	}
	strong := bidding.NewStrongRegistry()
	strategy, err := in.factory(in.tune, strong)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	in.id = id
	in.strong = strong
	in.strategy = strategy
	in.seq = 0
	in.log.Printf("simulation %s started (strategy=%s)", id, strategy.Name())
	return nil
}

// Reset discards every strong classification and starts a new simulation
// run under a new id. Call it whenever the orchestrator begins a new run.
func (in *Instance) Reset() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	prev := in.id
	if err := in.start(); err != nil {
		return err
	}
	in.log.Printf("simulation %s reset (was %s)", in.id, prev)
	return nil
}

func (in *Instance) ID() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.id
}

func (in *Instance) Label() string { return in.label }

func (in *Instance) Tuning() tuning.Tuning { return in.tune }

func (in *Instance) StrongIDs() []int {
	_, strong := in.current()
	return strong.IDs()
}

func (in *Instance) current() (bidding.Strategy, *bidding.StrongRegistry) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.strategy, in.strong
}

// accept validates snap at the instance boundary and records any newly
// strong agents. Strategies implementing bidding.Accepted then bid on it
// without repeating either step.
func (in *Instance) accept(snap *community.Snapshot, strong *bidding.StrongRegistry) error {
	if snap == nil {
		return nil
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	if added := strong.Classify(snap); len(added) > 0 {
		in.log.Printf("round %d: strong agents %v", snap.Round, added)
	}
	return nil
}

func (in *Instance) PhaseOne(snap *community.Snapshot, agentID int) ([]bidding.PairBid, error) {
	strategy, strong := in.current()
	if err := in.accept(snap, strong); err != nil {
		return nil, err
	}
	if a, ok := strategy.(bidding.Accepted); ok {
		return a.PhaseOneAccepted(snap, agentID)
	}
	return strategy.PhaseOne(snap, agentID)
}

func (in *Instance) PhaseTwo(snap *community.Snapshot, agentID int) ([]int, error) {
	strategy, strong := in.current()
	if err := in.accept(snap, strong); err != nil {
		return nil, err
	}
	if a, ok := strategy.(bidding.Accepted); ok {
		return a.PhaseTwoAccepted(snap, agentID)
	}
	return strategy.PhaseTwo(snap, agentID)
}
