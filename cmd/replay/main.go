package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	persistlog "bidengine.ai/internal/persistence/log"
	"bidengine.ai/internal/sim/simulation"
)

type options struct {
	eventsDir string
	simID     string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	fs.StringVar(&o.eventsDir, "events", "", "directory containing bids-*.jsonl.zst")
	fs.StringVar(&o.simID, "simulation", "", "only verify this simulation id (optional)")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.eventsDir == "" {
		return o, fmt.Errorf("missing --events DIR")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "usage: replay --events DIR [--simulation ID]:", err)
		os.Exit(2)
	}

	files, err := persistlog.ListBidFiles(opts.eventsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list bid logs:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no bid logs found in", opts.eventsDir)
		os.Exit(1)
	}

	r := newReplayer(opts.simID)
	for _, path := range files {
		if err := persistlog.ReadRounds(path, r.check); err != nil {
			fmt.Fprintf(os.Stderr, "replay %s: %v\n", filepath.Base(path), err)
			os.Exit(1)
		}
	}
	fmt.Printf("replay ok: checked=%d rounds simulations=%d skipped=%d\n", r.checked, len(r.sims), r.skipped)
}

type replaySim struct {
	inst *simulation.Instance
	next int
}

// replayer rebuilds each logged simulation from its recorded tuning and
// re-runs its snapshots in sequence. The strong registry is cumulative, so a
// simulation whose log does not start at seq 1 cannot be verified.
type replayer struct {
	only    string
	sims    map[string]*replaySim
	partial map[string]bool

	checked int
	skipped int
}

func newReplayer(only string) *replayer {
	return &replayer{
		only:    only,
		sims:    map[string]*replaySim{},
		partial: map[string]bool{},
	}
}

func (r *replayer) check(e simulation.RoundEntry) error {
	if r.only != "" && e.Simulation != r.only {
		return nil
	}
	if r.partial[e.Simulation] {
		r.skipped++
		return nil
	}
	sim := r.sims[e.Simulation]
	if sim == nil {
		if e.Seq != 1 {
			r.partial[e.Simulation] = true
			r.skipped++
			return nil
		}
		inst, err := simulation.New(simulation.Config{Tuning: e.Tuning})
		if err != nil {
			return fmt.Errorf("simulation %s: %w", e.Simulation, err)
		}
		sim = &replaySim{inst: inst, next: 1}
		r.sims[e.Simulation] = sim
	}
	if e.Seq != sim.next {
		return fmt.Errorf("simulation %s: seq gap: want=%d got=%d", e.Simulation, sim.next, e.Seq)
	}
	sim.next++

	snap := e.Snapshot
	got, err := sim.inst.Round(&snap)
	if err != nil {
		return fmt.Errorf("simulation %s seq %d: %w", e.Simulation, e.Seq, err)
	}
	if got.Strategy != e.Strategy {
		return fmt.Errorf("simulation %s seq %d: strategy mismatch: got=%s want=%s", e.Simulation, e.Seq, got.Strategy, e.Strategy)
	}
	if got.Digest != e.Digest {
		return fmt.Errorf("simulation %s seq %d: digest mismatch: got=%s want=%s", e.Simulation, e.Seq, got.Digest, e.Digest)
	}
	r.checked++
	return nil
}
