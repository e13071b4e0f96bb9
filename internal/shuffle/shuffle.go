// Package shuffle provides the uniform random permutation used to order
// candidate questions and image pairs.
package shuffle

import "math/rand/v2"

// Shuffle permutes s in place using the package-level random source.
func Shuffle[T any](s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// ShuffleWith permutes s in place using r. Backward Fisher-Yates: for each
// index i from the end, swap with a uniformly drawn index in [0, i].
func ShuffleWith[T any](r *rand.Rand, s []T) {
	if r == nil {
		Shuffle(s)
		return
	}
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// Shuffled returns a shuffled copy of s, leaving s untouched.
func Shuffled[T any](r *rand.Rand, s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	ShuffleWith(r, out)
	return out
}
