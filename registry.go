package impmock

import "github.com/toejough/impmock/internal/core"

// GetOrCreateSession returns the Session for the given test, creating one if needed.
// Multiple calls with the same TestReporter return the same Session instance.
// The Session is finished automatically when the test completes.
func GetOrCreateSession(t TestReporter, opts ...Option) *Session {
	return core.GetOrCreateSession(t, opts...)
}

// Finish verifies and reports the Session registered under t now, instead of at cleanup.
func Finish(t TestReporter) {
	t.Helper()
	core.Finish(t)
}
