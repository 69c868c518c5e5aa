package scenecs

// reserve returns s with capacity for at least n more elements, reallocating
// if necessary. Length and contents are unchanged.
func reserve[T any](s []T, n int) []T {
	need := len(s) + n
	if cap(s) >= need {
		return s
	}
	newCap := max(2*cap(s), need)
	ns := make([]T, len(s), newCap)
	copy(ns, s)
	return ns
}
