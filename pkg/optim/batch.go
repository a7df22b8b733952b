package optim

import "math/rand"

// Batches shuffles the row indices [0, n) with rnd and cuts them into
// mini-batches of at most size rows. The last batch may be short.
func Batches(n, size int, rnd *rand.Rand) [][]int {
	if n <= 0 {
		return nil
	}
	if size <= 0 || size > n {
		size = n
	}
	perm := rnd.Perm(n)
	out := make([][]int, 0, (n+size-1)/size)
	for s := 0; s < n; s += size {
		e := min(s+size, n)
		out = append(out, perm[s:e:e])
	}
	return out
}
