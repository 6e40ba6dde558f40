// Package ability holds the integer ability vectors shared by agents and tasks
// and the two primitive judgements made over them: capability and deficit.
package ability

// Vector is an ordered list of ability levels over D dimensions.
type Vector []int

func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Sum is the total raw ability level.
func (v Vector) Sum() int {
	s := 0
	for _, x := range v {
		s += x
	}
	return s
}

// Max returns the element-wise maximum of vs, the joint ability of a group.
// Missing trailing dimensions count as zero.
func Max(vs ...Vector) Vector {
	if len(vs) == 0 {
		return Vector{}
	}
	n := 0
	for _, v := range vs {
		if len(v) > n {
			n = len(v)
		}
	}
	out := make(Vector, n)
	for i := range out {
		out[i] = level(vs[0], i)
	}
	for _, v := range vs[1:] {
		for i := range out {
			if x := level(v, i); x > out[i] {
				out[i] = x
			}
		}
	}
	return out
}

// Deficit is the energy cost of attempting req with abilities have: the summed
// per-dimension shortfall. Surplus never offsets a shortfall elsewhere.
func Deficit(have, req Vector) int {
	cost := 0
	for i, r := range req {
		if d := r - level(have, i); d > 0 {
			cost += d
		}
	}
	return cost
}

// Capable reports whether have meets req in every dimension.
func Capable(have, req Vector) bool {
	for i, r := range req {
		if level(have, i) < r {
			return false
		}
	}
	return true
}

func level(v Vector, i int) int {
	if i < len(v) {
		return v[i]
	}
	return 0
}
