package candidates

import (
	"iter"
	"math"
)

// Exhaustive yields every string over alphabet with length 1..maxLen.
// Within a length the rightmost position turns fastest, like an odometer:
// {a,b} with maxLen 2 gives a, b, aa, ab, ba, bb.
func Exhaustive(alphabet []rune, maxLen int) iter.Seq[string] {
	return func(yield func(string) bool) {
		k := len(alphabet)
		if k == 0 {
			return
		}

		for length := 1; length <= maxLen; length++ {
			indices := make([]int, length)
			buf := make([]rune, length)
			for i := range buf {
				buf[i] = alphabet[0]
			}

			for {
				if !yield(string(buf)) {
					return
				}

				// Increment from the right, carrying on overflow
				pos := length - 1
				for pos >= 0 {
					indices[pos]++
					if indices[pos] < k {
						buf[pos] = alphabet[indices[pos]]
						break
					}
					indices[pos] = 0
					buf[pos] = alphabet[0]
					pos--
				}
				if pos < 0 {
					break
				}
			}
		}
	}
}

// Count returns how many candidates Exhaustive yields for an alphabet of
// size k: the sum of k^len for len 1..maxLen. It saturates at math.MaxUint64.
func Count(k, maxLen int) uint64 {
	if k <= 0 || maxLen <= 0 {
		return 0
	}

	var total uint64
	power := uint64(1)
	for length := 1; length <= maxLen; length++ {
		if power > math.MaxUint64/uint64(k) {
			return math.MaxUint64
		}
		power *= uint64(k)
		if total > math.MaxUint64-power {
			return math.MaxUint64
		}
		total += power
	}
	return total
}
