package types

// Float64Ptr returns a pointer to the given float64.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Int64Ptr returns a pointer to the given int64.
func Int64Ptr(v int64) *int64 {
	return &v
}
