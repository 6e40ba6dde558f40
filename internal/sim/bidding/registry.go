package bidding

import (
	"sort"
	"sync"

	"bidengine.ai/internal/sim/ability"
	"bidengine.ai/internal/sim/community"
)

// StrongRegistry is the sticky set of agents that could solo every task of
// some round at zero cost. Ids are only ever added; Reset starts a new
// simulation. Safe for concurrent use.
type StrongRegistry struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func NewStrongRegistry() *StrongRegistry {
	return &StrongRegistry{ids: map[int]struct{}{}}
}

// IsStrong reports whether a can perform every task alone at zero cost.
func IsStrong(a community.Agent, tasks []community.Task) bool {
	for _, t := range tasks {
		if !ability.Capable(a.Abilities, t.Requirement) {
			return false
		}
	}
	return true
}

// Classify records every member of snap that is strong against its tasks and
// returns the ids added by this call. Members already registered are not
// re-evaluated. A snapshot without tasks deliberately classifies nobody,
// even though IsStrong(a, nil) is vacuously true: otherwise an empty round
// would make every member strong for the rest of the simulation.
func (r *StrongRegistry) Classify(snap *community.Snapshot) []int {
	if r == nil || snap == nil || len(snap.Tasks) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []int
	for _, m := range snap.Members {
		if _, ok := r.ids[m.ID]; ok {
			continue
		}
		if IsStrong(m, snap.Tasks) {
			r.ids[m.ID] = struct{}{}
			added = append(added, m.ID)
		}
	}
	return added
}

func (r *StrongRegistry) Contains(id int) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// IDs returns the registered ids in ascending order.
func (r *StrongRegistry) IDs() []int {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	out := make([]int, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	r.mu.Unlock()
	sort.Ints(out)
	return out
}

func (r *StrongRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func (r *StrongRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = map[int]struct{}{}
}
