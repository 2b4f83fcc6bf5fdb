package models

// Move returns a copy of items with the element at from moved to index to;
// the elements in between shift by one. Out-of-range indexes are clamped.
func Move[T any](items []T, from, to int) []T {
	out := make([]T, len(items))
	copy(out, items)
	if len(out) == 0 {
		return out
	}
	from = clamp(from, 0, len(out)-1)
	to = clamp(to, 0, len(out)-1)
	if from == to {
		return out
	}

	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// RenumberJobs assigns dense 1-based orders following slice position.
func RenumberJobs(jobs []Job) {
	for i := range jobs {
		jobs[i].Order = i + 1
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
