// ABOUTME: Ordered fallback over lazily produced candidates
// ABOUTME: Returns the first success or the first failure seen
package output

import "iter"

// firstSuccess tries candidates in order and stops at the first success.
// When every candidate fails the first error is returned; when there are no
// candidates at all, none is returned.
func firstSuccess[C, T any](candidates iter.Seq[C], try func(C) (T, error), none error) (T, error) {
	var first error
	for c := range candidates {
		v, err := try(c)
		if err == nil {
			return v, nil
		}
		if first == nil {
			first = err
		}
	}

	var zero T
	if first == nil {
		first = none
	}
	return zero, first
}
