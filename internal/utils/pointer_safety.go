// Package utils holds small generic helpers shared across packages.
package utils

// Value dereferences v, returning the zero value when v is nil. Provider
// payloads carry many optional pointer fields; Value keeps their readers
// free of nil checks.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

// Ptr returns a pointer to v. Used to build the optional fields of request
// bodies from literals.
func Ptr[T any](v T) *T {
	return &v
}
