// Command bids runs snapshot files through one simulation, in the order
// given, and prints the bids of every round as JSON lines.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/pflag"

	persistlog "bidengine.ai/internal/persistence/log"
	"bidengine.ai/internal/sim/community"
	"bidengine.ai/internal/sim/simulation"
	"bidengine.ai/internal/sim/tuning"
)

func main() {
	var (
		tuningPath = pflag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		strategy   = pflag.String("strategy", "", "strategy preset overriding tuning.yaml (conservative|strong-first)")
		agent      = pflag.Int("agent", -1, "only print this agent's bids")
		label      = pflag.String("label", "", "orchestrator label prefixed to the simulation id")
		logDir     = pflag.String("log_dir", "", "also append rounds to a bid log in this directory")
		verbose    = pflag.BoolP("verbose", "v", false, "log engine decisions to stderr")
	)
	pflag.Parse()

	if pflag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: bids [--tuning FILE] [--strategy NAME] [--agent ID] snapshot.json...")
		os.Exit(2)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
		tune = tuning.Defaults()
	}
	if *strategy != "" {
		tune.Strategy = *strategy
		tune.Pairs.Policy = ""
		tune.Solo.Policy = ""
		tune.Sacrifice.Enabled = nil
	}

	cfg := simulation.Config{Label: *label, Tuning: tune}
	if *verbose {
		cfg.Logger = log.New(os.Stderr, "[bids] ", log.LstdFlags)
	}
	if *logDir != "" {
		bl := persistlog.NewBidLogger(*logDir)
		defer bl.Close()
		cfg.Recorders = []simulation.RoundLogger{bl}
	}

	if err := run(cfg, pflag.Args(), *agent, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type roundOutput struct {
	Simulation string                 `json:"simulation"`
	Round      int                    `json:"round"`
	Strong     []int                  `json:"strong"`
	Bids       []simulation.AgentBids `json:"bids"`
	Digest     string                 `json:"digest"`
}

func run(cfg simulation.Config, paths []string, agent int, out io.Writer) error {
	inst, err := simulation.New(cfg)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, p := range paths {
		snap, err := community.LoadFile(p)
		if err != nil {
			return err
		}
		if agent >= 0 {
			if _, err := snap.Member(agent); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
		}
		entry, err := inst.Round(&snap)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		o := roundOutput{Simulation: entry.Simulation, Round: entry.Round, Strong: entry.Strong, Bids: entry.Bids, Digest: entry.Digest}
		if agent >= 0 {
			o.Bids = nil
			for _, b := range entry.Bids {
				if b.Agent == agent {
					o.Bids = append(o.Bids, b)
				}
			}
		}
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	return nil
}
