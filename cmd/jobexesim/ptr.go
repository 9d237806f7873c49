package main

// ptr returns a pointer to a value, for creating pointer to const and untyped values
// which cannot take their address directly.
func ptr[T any](v T) *T {
	return &v
}
