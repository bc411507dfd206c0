// Package pointer has helpers for optional record fields.
package pointer

// To returns a pointer to a copy of value
func To[T any](value T) *T {
	return &value
}

// Copy returns a pointer to a copy of the pointed-to value, or nil
func Copy[T any](value *T) *T {
	if value == nil {
		return nil
	}
	return To(*value)
}

// IfValid returns a pointer to value when valid is set, otherwise nil
func IfValid[T any](valid bool, value T) *T {
	if !valid {
		return nil
	}
	return &value
}

// ValueOr dereferences value, falling back to fallback when it's nil
func ValueOr[T any](value *T, fallback T) T {
	if value == nil {
		return fallback
	}
	return *value
}
