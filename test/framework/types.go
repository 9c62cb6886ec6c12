package framework

// TestingT is the subset of *testing.T the framework needs, so helpers
// stay usable from benchmarks.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Logf(format string, args ...any)
	Cleanup(func())
	TempDir() string
}
