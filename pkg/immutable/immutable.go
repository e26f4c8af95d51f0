// Package immutable contains helpers for updating slices and records without copying
// anything that did not change. Callers can compare results by identity to learn
// whether an update was a no-op.
package immutable

// SameSlice reports whether a and b are the same slice: same length and, for non-empty
// slices, the same backing array start. Empty slices are the same when both or neither are nil.
func SameSlice[T any, S ~[]T](a, b S) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return (a == nil) == (b == nil)
	}
	return &a[0] == &b[0]
}

// MapUnlessUnchanged applies f to every element of list.
// If f returns every element unchanged, list itself is returned.
// Otherwise the result is a fresh slice where only the changed positions differ.
func MapUnlessUnchanged[T comparable, S ~[]T](list S, f func(T) T) S {
	var res S
	for i, item := range list {
		updated := f(item)
		if updated == item {
			if res != nil {
				res[i] = item
			}
			continue
		}

		if res == nil {
			res = make(S, len(list))
			copy(res, list[:i])
		}
		res[i] = updated
	}

	if res == nil {
		return list
	}
	return res
}

// ReuseIfEqual returns prev when next holds exactly the same elements (by identity) in the same order.
func ReuseIfEqual[T comparable, S ~[]T](prev, next S) S {
	if len(prev) != len(next) {
		return next
	}
	for i := range prev {
		if prev[i] != next[i] {
			return next
		}
	}
	if prev == nil {
		return next
	}
	return prev
}

// Append returns a new slice with items added to the end of list.
// The backing array of list is never written to.
func Append[T any, S ~[]T](list S, items ...T) S {
	if len(items) == 0 {
		return list
	}
	res := make(S, 0, len(list)+len(items))
	res = append(res, list...)
	return append(res, items...)
}

// RemoveFunc returns list without the elements for which remove returns true.
// If nothing is removed, list itself is returned.
func RemoveFunc[T any, S ~[]T](list S, remove func(T) bool) S {
	var res S
	removed := false
	for i, item := range list {
		if remove(item) {
			if !removed {
				removed = true
				res = make(S, i, len(list)-1)
				copy(res, list[:i])
			}
			continue
		}
		if removed {
			res = append(res, item)
		}
	}

	if !removed {
		return list
	}
	return res
}

// A Reducer computes the new value of one field of a record of type R.
// It returns nil when the field is unchanged, otherwise a setter that writes the new value into a copy of the record.
type Reducer[R any] func(rec *R) func(copy *R)

// Field returns a Reducer for a comparable field addressed by ptr.
// The field counts as changed when reduce returns a value that is not == to the current one.
func Field[R any, V comparable](ptr func(*R) *V, reduce func(V) V) Reducer[R] {
	return func(rec *R) func(*R) {
		current := *ptr(rec)
		updated := reduce(current)
		if updated == current {
			return nil
		}
		return func(c *R) { *ptr(c) = updated }
	}
}

// SliceField returns a Reducer for a slice field addressed by ptr.
// The field counts as changed when reduce returns a slice that is not the same slice (see SameSlice).
func SliceField[R any, T any, S ~[]T](ptr func(*R) *S, reduce func(S) S) Reducer[R] {
	return func(rec *R) func(*R) {
		current := *ptr(rec)
		updated := reduce(current)
		if SameSlice(current, updated) {
			return nil
		}
		return func(c *R) { *ptr(c) = updated }
	}
}

// MergeFieldsUnlessUnchanged runs every reducer against rec.
// If no field changed, rec is returned. Otherwise a shallow copy of rec with all changed fields applied is returned.
// Every reducer observes the original record, never a partially updated copy.
func MergeFieldsUnlessUnchanged[R any](rec *R, reducers ...Reducer[R]) *R {
	var setters []func(*R)
	for _, reduce := range reducers {
		if set := reduce(rec); set != nil {
			setters = append(setters, set)
		}
	}

	if len(setters) == 0 {
		return rec
	}

	updated := *rec
	for _, set := range setters {
		set(&updated)
	}
	return &updated
}
