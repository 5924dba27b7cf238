package must

// Must panics if err is non-nil. Meant for package-level initialization of
// values that can only fail on programmer error.
func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
