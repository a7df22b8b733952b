package dataprep

import "sort"

// Levels returns the distinct categories of data in sorted order.
func Levels(data []string) []string {
	unique := map[string]struct{}{}
	out := make([]string, 0)
	for _, v := range data {
		if _, ok := unique[v]; !ok {
			unique[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// EncodeCategorical one-hot encodes a slice of categories against sorted
// levels. With dropFirst the first level is the reference category and gets
// no indicator, so k levels give k-1 columns. The result is column-major:
// cols[l][i] is the indicator of the l-th kept level for row i.
func EncodeCategorical(data []string, dropFirst bool) (kept []string, cols [][]float64) {
	levels := Levels(data)
	if dropFirst && len(levels) > 0 {
		levels = levels[1:]
	}
	pos := make(map[string]int, len(levels))
	for l, v := range levels {
		pos[v] = l
	}
	cols = make([][]float64, len(levels))
	for l := range cols {
		cols[l] = make([]float64, len(data))
	}
	for i, v := range data {
		if l, ok := pos[v]; ok {
			cols[l][i] = 1
		}
	}
	return levels, cols
}
