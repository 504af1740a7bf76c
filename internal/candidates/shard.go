package candidates

import "iter"

// Shard yields the elements of seq whose 0-based position is congruent to
// instanceID modulo totalInstances. Running every instanceID in
// [0, totalInstances) covers seq exactly once with no overlap.
func Shard[T any](seq iter.Seq[T], instanceID, totalInstances int) iter.Seq[T] {
	if totalInstances <= 1 {
		return seq
	}
	return func(yield func(T) bool) {
		pos := 0
		for v := range seq {
			if pos%totalInstances == instanceID {
				if !yield(v) {
					return
				}
			}
			pos++
		}
	}
}

// Take stops seq after n elements. n <= 0 means no limit.
func Take[T any](seq iter.Seq[T], n int) iter.Seq[T] {
	if n <= 0 {
		return seq
	}
	return func(yield func(T) bool) {
		taken := 0
		for v := range seq {
			if !yield(v) {
				return
			}
			taken++
			if taken >= n {
				return
			}
		}
	}
}

// Concat yields every element of each sequence in turn
func Concat[T any](seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, seq := range seqs {
			for v := range seq {
				if !yield(v) {
					return
				}
			}
		}
	}
}
