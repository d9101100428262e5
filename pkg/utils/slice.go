package utils

// map each element in sli.
//
// args:
//   - sli : slice of `T`s
//   - mapper : mapping function from T to R
//
// return:
//
//	slice of `R`s. each element indexed `N` is given with `mapper(sli[N])` .
func Map[T any, R any](sli []T, mapper func(v T) R) []R {
	ret := make([]R, len(sli))
	for nth, v := range sli {
		ret[nth] = mapper(v)
	}
	return ret
}

// find the first element matching with predicator.
//
// args:
//   - sli: slice to be searched
//   - pred: predicator
//
// return:
//
//	the first matching element and true, or zero-value and false if none match.
func First[T any](sli []T, pred func(v T) bool) (T, bool) {
	for _, v := range sli {
		if pred(v) {
			return v, true
		}
	}
	return *new(T), false
}

// apply all options to value, left to right.
func ApplyAll[T any](v T, options ...func(T) T) T {
	for _, opt := range options {
		v = opt(v)
	}
	return v
}
