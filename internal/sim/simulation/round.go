package simulation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"bidengine.ai/internal/sim/bidding"
	"bidengine.ai/internal/sim/community"
	"bidengine.ai/internal/sim/tuning"
)

type AgentBids struct {
	Agent    int               `json:"agent"`
	PhaseOne []bidding.PairBid `json:"phase_one"`
	PhaseTwo []int             `json:"phase_two"`
}

// RoundEntry is everything needed to audit or replay one round of bidding.
type RoundEntry struct {
	Simulation string             `json:"simulation"`
	Seq        int                `json:"seq"`
	Round      int                `json:"round"`
	Strategy   string             `json:"strategy"`
	Tuning     tuning.Tuning      `json:"tuning"`
	Snapshot   community.Snapshot `json:"snapshot"`
	Strong     []int              `json:"strong"`
	Sacrifice  *bidding.Sacrifice `json:"sacrifice,omitempty"`
	Bids       []AgentBids        `json:"bids"`
	Digest     string             `json:"digest"`
}

type sacrificer interface {
	Sacrifices(snap *community.Snapshot) *bidding.Sacrifice
}

// Round computes both phases for every member of snap concurrently. It only
// gathers each agent's independent bids; resolving them is the caller's job.
func (in *Instance) Round(snap *community.Snapshot) (RoundEntry, error) {
	in.mu.Lock()
	strategy, strong := in.strategy, in.strong
	in.seq++
	entry := RoundEntry{Simulation: in.id, Seq: in.seq, Strategy: strategy.Name(), Tuning: in.tune}
	in.mu.Unlock()

	if snap == nil {
		snap = &community.Snapshot{}
	}
	if err := in.accept(snap, strong); err != nil {
		return RoundEntry{}, err
	}
	entry.Round = snap.Round
	entry.Snapshot = *snap

	bids := make([]AgentBids, len(snap.Members))
	errs := make([]error, len(snap.Members))
	phaseOne, phaseTwo := strategy.PhaseOne, strategy.PhaseTwo
	if a, ok := strategy.(bidding.Accepted); ok {
		phaseOne, phaseTwo = a.PhaseOneAccepted, a.PhaseTwoAccepted
	}
	var wg sync.WaitGroup
	for i, m := range snap.Members {
		wg.Add(1)
		go func(i, id int) {
			defer wg.Done()
			one, err := phaseOne(snap, id)
			if err != nil {
				errs[i] = err
				return
			}
			two, err := phaseTwo(snap, id)
			if err != nil {
				errs[i] = err
				return
			}
			bids[i] = AgentBids{Agent: id, PhaseOne: one, PhaseTwo: two}
		}(i, m.ID)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return RoundEntry{}, err
		}
	}

	entry.Bids = bids
	entry.Strong = strong.IDs()
	if s, ok := strategy.(sacrificer); ok {
		entry.Sacrifice = s.Sacrifices(snap)
	}
	entry.Digest = Digest(entry)

	for _, r := range in.recorders {
		if err := r.WriteRound(entry); err != nil {
			in.log.Printf("record round %d: %v", entry.Seq, err)
		}
	}
	return entry, nil
}

// Digest hashes the decisions of a round (strong set, sacrifice, bids), not
// its inputs, so identical snapshots replayed through an identical strategy
// must reproduce it.
func Digest(e RoundEntry) string {
	b, _ := json.Marshal(struct {
		Strong    []int              `json:"strong"`
		Sacrifice *bidding.Sacrifice `json:"sacrifice,omitempty"`
		Bids      []AgentBids        `json:"bids"`
	}{e.Strong, e.Sacrifice, e.Bids})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
