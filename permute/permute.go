// Package permute rearranges sequences in place according to a fixed-size
// permutation applied block by block.
package permute

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Apply rewrites s in place, one block of len(perm) elements at a time, so that
// within every block the element at position i is taken from position perm[i]
// of the original block.
//
// Each block is rearranged by following the cycles of perm with swaps; only a
// len(perm) array of placed flags is allocated. A trailing partial block is
// left untouched and its length is returned.
//
// Apply panics if perm is not a permutation of [0, len(perm)).
func Apply[E any, I constraints.Integer](s []E, perm []I) int {
	if err := Validate(perm); err != nil {
		panic(err)
	}
	n := len(perm)
	placed := make([]bool, n)
	full := len(s) - len(s)%n
	for off := 0; off < full; off += n {
		block := s[off : off+n]
		clear(placed)
		for i := range block {
			if placed[i] {
				continue
			}
			// block[j] holds the original block[i] until the cycle closes.
			j := i
			for {
				k := int(perm[j])
				if k == i {
					break
				}
				block[j], block[k] = block[k], block[j]
				placed[j] = true
				j = k
			}
			placed[j] = true
		}
	}
	return len(s) - full
}

// Validate reports whether perm is a permutation of [0, len(perm)).
func Validate[I constraints.Integer](perm []I) error {
	n := len(perm)
	if n == 0 {
		return fmt.Errorf("permutation is empty")
	}
	seen := make([]bool, n)
	for i, v := range perm {
		if v < 0 || uint64(v) >= uint64(n) {
			return fmt.Errorf("permutation value %d at index %d is out of range [0, %d)", v, i, n)
		}
		if seen[v] {
			return fmt.Errorf("permutation value %d is repeated at index %d", v, i)
		}
		seen[v] = true
	}
	return nil
}

// Inverse returns the permutation that undoes perm.
func Inverse[I constraints.Integer](perm []I) []I {
	if err := Validate(perm); err != nil {
		panic(err)
	}
	inv := make([]I, len(perm))
	for i, v := range perm {
		inv[v] = I(i)
	}
	return inv
}
