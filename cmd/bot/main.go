// Command bot is a toy orchestrator: it drives a bidding server with a
// random community, spends energy on each agent's first solo bid and prints
// what the engine asked for.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/spf13/pflag"

	"bidengine.ai/internal/protocol"
	"bidengine.ai/internal/sim/ability"
	"bidengine.ai/internal/sim/community"
)

func main() {
	var (
		url      = pflag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		strategy = pflag.String("strategy", "", "strategy preset to request (empty: server default)")
		agents   = pflag.Int("agents", 6, "community size")
		dim      = pflag.Int("dim", 3, "ability dimensions")
		rounds   = pflag.Int("rounds", 20, "rounds to run")
		seed     = pflag.Int64("seed", 1, "rng seed")
	)
	pflag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Strategy:        *strategy,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	r := rand.New(rand.NewSource(*seed))
	snap := randomCommunity(r, *agents, *dim)
	for {
		select {
		case <-stop:
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.Printf("WELCOME simulation=%s strategy=%s", w.SimulationID, w.Strategy)

		case protocol.TypeBids:
			var b protocol.BidsMsg
			if err := json.Unmarshal(msg, &b); err != nil {
				continue
			}
			logger.Printf("round %d: strong=%v sacrifice=%v", b.Round, b.Strong, b.Sacrifice)
			settle(&snap, b)

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Fatalf("ERROR %s: %s", e.Code, e.Message)
		default:
			continue
		}

		if snap.Round >= *rounds {
			return
		}
		snap.Round++
		snap.Tasks = randomTasks(r, 1+r.Intn(*agents), *dim)
		req := protocol.BidRequestMsg{
			Type:      protocol.TypeBidRequest,
			RequestID: fmt.Sprintf("R%d", snap.Round),
			Phase:     protocol.PhaseBoth,
			Snapshot:  snap,
		}
		if err := conn.WriteJSON(req); err != nil {
			logger.Fatalf("send BID_REQUEST: %v", err)
		}
	}
}

// settle pretends every agent works its first solo bid alone and pays the
// deficit; agents without a bid rest and recover one unit.
func settle(snap *community.Snapshot, b protocol.BidsMsg) {
	byID := make(map[int]protocol.AgentBids, len(b.Bids))
	for _, ab := range b.Bids {
		byID[ab.Agent] = ab
	}
	for i := range snap.Members {
		m := &snap.Members[i]
		ab := byID[m.ID]
		if len(ab.PhaseTwo) == 0 || ab.PhaseTwo[0] >= len(snap.Tasks) {
			if m.Energy < 10 {
				m.Energy++
			}
			continue
		}
		m.Energy -= ability.Deficit(m.Abilities, snap.Tasks[ab.PhaseTwo[0]].Requirement)
	}
}

func randomCommunity(r *rand.Rand, n, dim int) community.Snapshot {
	snap := community.Snapshot{}
	for i := 0; i < n; i++ {
		v := make(ability.Vector, dim)
		for d := range v {
			v[d] = r.Intn(6)
		}
		snap.Members = append(snap.Members, community.Agent{ID: i, Abilities: v, Energy: 10})
	}
	return snap
}

func randomTasks(r *rand.Rand, n, dim int) []community.Task {
	out := make([]community.Task, n)
	for i := range out {
		v := make(ability.Vector, dim)
		for d := range v {
			v[d] = r.Intn(7)
		}
		out[i] = community.Task{Requirement: v}
	}
	return out
}
