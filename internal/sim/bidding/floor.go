package bidding

// FloorPolicy maps task scarcity to the energy an agent must stay strictly
// above after paying for a task. The floor drops by Step for every decile the
// remaining-task/population ratio falls below, down to Normal-9*Step.
type FloorPolicy struct {
	Normal int
	Step   int
}

func (p FloorPolicy) Floor(remaining, population int) int {
	f := p.Normal
	if population <= 0 {
		return f
	}
	// remaining/population < k/10, kept in integers.
	for k := 9; k >= 1; k-- {
		if remaining*10 < k*population {
			f -= p.Step
		}
	}
	return f
}

// Admits reports whether energy-cost stays strictly above floor.
func Admits(energy, cost, floor int) bool {
	return energy-cost > floor
}
