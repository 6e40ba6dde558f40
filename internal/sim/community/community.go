// Package community is the read-only round snapshot handed to every agent:
// the members with their abilities and energy, and the remaining tasks.
package community

import (
	"encoding/json"
	"errors"
	"fmt"

	"bidengine.ai/internal/sim/ability"
)

var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrUnknownAgent      = errors.New("unknown agent")
	ErrDuplicateAgent    = errors.New("duplicate agent id")
)

// DimensionError reports the first agent or task whose vector length differs
// from the snapshot's dimensionality.
type DimensionError struct {
	Kind  string // "agent" or "task"
	Index int    // agent id or task index
	Got   int
	Want  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s %d: %d dimensions, want %d: %v", e.Kind, e.Index, e.Got, e.Want, ErrDimensionMismatch)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }

type Agent struct {
	ID            int            `json:"id"`
	Abilities     ability.Vector `json:"abilities"`
	Energy        int            `json:"energy"`
	Incapacitated bool           `json:"incapacitated,omitempty"`
}

// Task is identified by its position in Snapshot.Tasks. On the wire it is the
// bare requirement array.
type Task struct {
	Requirement ability.Vector
}

func (t Task) MarshalJSON() ([]byte, error) {
	if t.Requirement == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]int(t.Requirement))
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var req []int
	if err := json.Unmarshal(b, &req); err != nil {
		return err
	}
	t.Requirement = req
	return nil
}

type Snapshot struct {
	Round   int     `json:"round,omitempty"`
	Members []Agent `json:"members"`
	Tasks   []Task  `json:"tasks"`
}

// Dim is the shared dimensionality, taken from the first member (or the first
// task when there are no members).
func (s *Snapshot) Dim() int {
	if len(s.Members) > 0 {
		return len(s.Members[0].Abilities)
	}
	if len(s.Tasks) > 0 {
		return len(s.Tasks[0].Requirement)
	}
	return 0
}

func (s *Snapshot) Population() int { return len(s.Members) }

// Validate checks the snapshot invariants once, at the boundary where it is
// accepted, so bidding code can index vectors freely.
func (s *Snapshot) Validate() error {
	want := s.Dim()
	seen := make(map[int]struct{}, len(s.Members))
	for _, m := range s.Members {
		if len(m.Abilities) != want {
			return &DimensionError{Kind: "agent", Index: m.ID, Got: len(m.Abilities), Want: want}
		}
		if _, dup := seen[m.ID]; dup {
			return fmt.Errorf("agent %d: %w", m.ID, ErrDuplicateAgent)
		}
		seen[m.ID] = struct{}{}
	}
	for i, t := range s.Tasks {
		if len(t.Requirement) != want {
			return &DimensionError{Kind: "task", Index: i, Got: len(t.Requirement), Want: want}
		}
	}
	return nil
}

// Member looks up an agent by id.
func (s *Snapshot) Member(id int) (Agent, error) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, nil
		}
	}
	return Agent{}, fmt.Errorf("agent %d: %w", id, ErrUnknownAgent)
}

// Requirements returns the task requirement vectors in task-index order.
func (s *Snapshot) Requirements() []ability.Vector {
	out := make([]ability.Vector, len(s.Tasks))
	for i, t := range s.Tasks {
		out[i] = t.Requirement
	}
	return out
}

// TaskIndexes returns 0..len(Tasks)-1.
func (s *Snapshot) TaskIndexes() []int {
	out := make([]int, len(s.Tasks))
	for i := range out {
		out[i] = i
	}
	return out
}
