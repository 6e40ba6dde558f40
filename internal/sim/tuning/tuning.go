package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy presets.
const (
	StrategyConservative = "conservative"
	StrategyStrongFirst  = "strong-first"
)

// Phase I policies.
const (
	PairsRanked     = "ranked"
	PairsCapability = "capability"
)

// Phase II policies.
const (
	SoloFloor  = "floor"
	SoloTiered = "tiered"
)

type Tuning struct {
	Strategy string `yaml:"strategy" json:"strategy"`

	Energy    Energy    `yaml:"energy" json:"energy"`
	Pairs     Pairs     `yaml:"pairs" json:"pairs"`
	Solo      Solo      `yaml:"solo" json:"solo"`
	Sacrifice Sacrifice `yaml:"sacrifice" json:"sacrifice"`
}

type Energy struct {
	Max       int `yaml:"max" json:"max"`
	Exhausted int `yaml:"exhausted" json:"exhausted"`
	Normal    int `yaml:"normal" json:"normal"`
	FloorStep int `yaml:"floor_step" json:"floor_step"`
}

// Gap is the energy an agent can spend from full before it is exhausted.
func (e Energy) Gap() int { return e.Max - e.Exhausted }

type Pairs struct {
	Policy  string `yaml:"policy" json:"policy"`
	MaxBids int    `yaml:"max_bids" json:"max_bids"`
}

type Solo struct {
	Policy      string `yaml:"policy" json:"policy"`
	LowCost     int    `yaml:"low_cost" json:"low_cost"`
	HighCost    int    `yaml:"high_cost" json:"high_cost"`
	HighReserve int    `yaml:"high_reserve" json:"high_reserve"`
}

type Sacrifice struct {
	// nil means "use the strategy preset".
	Enabled *bool `yaml:"enabled" json:"enabled,omitempty"`
}

func (s Sacrifice) On() bool { return s.Enabled != nil && *s.Enabled }

func Defaults() Tuning {
	return Tuning{
		Strategy: StrategyConservative,
		Energy:   Energy{Max: 10, Exhausted: -10, Normal: 0, FloorStep: 1},
		Pairs:    Pairs{MaxBids: 8},
		Solo:     Solo{LowCost: 2, HighCost: 4, HighReserve: 8},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Normalize fills policies left empty from the strategy preset. Explicit
// policy keys win over the preset.
func (t *Tuning) Normalize() {
	t.Strategy = strings.ToLower(strings.TrimSpace(t.Strategy))
	if t.Strategy == "" {
		t.Strategy = StrategyConservative
	}
	t.Pairs.Policy = strings.ToLower(strings.TrimSpace(t.Pairs.Policy))
	t.Solo.Policy = strings.ToLower(strings.TrimSpace(t.Solo.Policy))

	var pairs, solo string
	var sacrifice bool
	switch t.Strategy {
	case StrategyStrongFirst:
		pairs, solo, sacrifice = PairsCapability, SoloTiered, false
	default:
		pairs, solo, sacrifice = PairsRanked, SoloFloor, true
	}
	if t.Pairs.Policy == "" {
		t.Pairs.Policy = pairs
	}
	if t.Solo.Policy == "" {
		t.Solo.Policy = solo
	}
	if t.Sacrifice.Enabled == nil {
		t.Sacrifice.Enabled = &sacrifice
	}
}

func (t Tuning) Validate() error {
	switch t.Strategy {
	case StrategyConservative, StrategyStrongFirst:
	default:
		return fmt.Errorf("unknown strategy %q", t.Strategy)
	}
	switch t.Pairs.Policy {
	case PairsRanked, PairsCapability:
	default:
		return fmt.Errorf("unknown pairs.policy %q", t.Pairs.Policy)
	}
	switch t.Solo.Policy {
	case SoloFloor, SoloTiered:
	default:
		return fmt.Errorf("unknown solo.policy %q", t.Solo.Policy)
	}
	e := t.Energy
	if e.Exhausted >= e.Max {
		return fmt.Errorf("energy.exhausted (%d) must be below energy.max (%d)", e.Exhausted, e.Max)
	}
	if e.Normal <= e.Exhausted || e.Normal > e.Max {
		return fmt.Errorf("energy.normal (%d) must be in (%d, %d]", e.Normal, e.Exhausted, e.Max)
	}
	if e.FloorStep < 0 {
		return fmt.Errorf("energy.floor_step must be >= 0")
	}
	if t.Pairs.MaxBids < 1 {
		return fmt.Errorf("pairs.max_bids must be >= 1")
	}
	if t.Solo.LowCost < 0 || t.Solo.LowCost > t.Solo.HighCost {
		return fmt.Errorf("solo.low_cost (%d) must be in [0, solo.high_cost=%d]", t.Solo.LowCost, t.Solo.HighCost)
	}
	return nil
}
