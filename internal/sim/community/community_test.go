package community

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bidengine.ai/internal/sim/ability"
)

func TestValidate_DimensionMismatch(t *testing.T) {
	snap := Snapshot{
		Members: []Agent{
			{ID: 0, Abilities: ability.Vector{1, 2}, Energy: 10},
			{ID: 1, Abilities: ability.Vector{1, 2}, Energy: 10},
		},
		Tasks: []Task{{Requirement: ability.Vector{1, 2}}, {Requirement: ability.Vector{1, 2, 3}}},
	}
	err := snap.Validate()
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
	var de *DimensionError
	if !errors.As(err, &de) || de.Kind != "task" || de.Index != 1 || de.Got != 3 || de.Want != 2 {
		t.Fatalf("unexpected error detail: %+v", de)
	}

	snap.Tasks = snap.Tasks[:1]
	snap.Members[1].Abilities = ability.Vector{1}
	if err := snap.Validate(); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected agent dimension mismatch, got %v", err)
	}
}

func TestValidate_DuplicateAndEmpty(t *testing.T) {
	var empty Snapshot
	if err := empty.Validate(); err != nil {
		t.Fatalf("empty snapshot should validate: %v", err)
	}
	dup := Snapshot{Members: []Agent{{ID: 3, Abilities: ability.Vector{1}}, {ID: 3, Abilities: ability.Vector{2}}}}
	if err := dup.Validate(); !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("expected duplicate agent, got %v", err)
	}
}

func TestMember_Unknown(t *testing.T) {
	snap := Snapshot{Members: []Agent{{ID: 4, Abilities: ability.Vector{1}}}}
	if m, err := snap.Member(4); err != nil || m.ID != 4 {
		t.Fatalf("member 4: %+v %v", m, err)
	}
	if _, err := snap.Member(9); !errors.Is(err, ErrUnknownAgent) {
		t.Fatalf("expected unknown agent, got %v", err)
	}
}

func TestDecode_SchemaAndTasksAsArrays(t *testing.T) {
	snap, err := Decode([]byte(`{
	  "round": 2,
	  "members": [
	    {"id":0,"abilities":[5,5],"energy":10},
	    {"id":1,"abilities":[1,1],"energy":-3,"incapacitated":true}
	  ],
	  "tasks": [[3,3],[4,4]]
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Round != 2 || len(snap.Members) != 2 || len(snap.Tasks) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Tasks[1].Requirement[0] != 4 || !snap.Members[1].Incapacitated || snap.Members[1].Energy != -3 {
		t.Fatalf("fields not decoded: %+v", snap)
	}
	if idx := snap.TaskIndexes(); len(idx) != 2 || idx[1] != 1 {
		t.Fatalf("task indexes: %v", idx)
	}
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing tasks":   `{"members":[]}`,
		"unknown field":   `{"members":[],"tasks":[],"extra":1}`,
		"float ability":   `{"members":[{"id":0,"abilities":[1.5],"energy":1}],"tasks":[]}`,
		"dimension":       `{"members":[{"id":0,"abilities":[1,1],"energy":1}],"tasks":[[1]]}`,
		"not json":        `{`,
		"negative demand": `{"members":[],"tasks":[[-1]]}`,
	}
	for name, raw := range cases {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	_, err := Decode([]byte(`{"members":[{"id":0,"abilities":[1,1],"energy":1}],"tasks":[[1]]}`))
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("dimension error should unwrap, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "round.json")
	if err := os.WriteFile(p, []byte(`{"members":[{"id":0,"abilities":[2],"energy":4}],"tasks":[[1]]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap.Dim() != 1 || snap.Population() != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.json")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
