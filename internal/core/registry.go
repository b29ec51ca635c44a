package core

import (
	"log/slog"
	"os"
	"sync"

	"github.com/toejough/impmock/internal/policy"
)

// Finish finishes the Session registered for t, if any.
func Finish(t TestReporter) {
	registryMu.Lock()

	session, ok := registry[t]

	registryMu.Unlock()

	if !ok {
		return
	}

	t.Helper()
	session.Finish()
}

// GetOrCreateSession returns the Session for the given test, creating one if needed.
// Multiple calls with the same TestReporter return the same Session, so hand-written
// mocks and the test body share expectations.
//
// A new Session follows the policy file named by the IMPMOCK_POLICY environment variable.
// If the TestReporter supports Cleanup (like *testing.T), the Session is finished and
// removed from the registry when the test completes.
func GetOrCreateSession(t TestReporter, opts ...Option) *Session {
	registryMu.Lock()
	defer registryMu.Unlock()

	if session, ok := registry[t]; ok {
		return session
	}

	pol, err := envPolicy()
	if err != nil {
		t.Helper()
		t.Fatalf("impmock: %v", err)
	}

	session := NewSession(t, append([]Option{WithPolicy(pol)}, opts...)...)
	registry[t] = session

	if cr, ok := t.(cleanupRegistrar); ok {
		cr.Cleanup(func() {
			registryMu.Lock()
			delete(registry, t)
			registryMu.Unlock()

			session.Finish()
		})
	}

	return session
}

// WithPolicy applies a suite policy: the unmatched policy and, when Trace is set, a debug
// logger on stderr unless a logger was already given.
func WithPolicy(pol policy.Policy) Option {
	return func(s *Session) {
		switch pol.Unmatched {
		case policy.UnmatchedDefault:
			s.policy = UnmatchedDefault
		default:
			s.policy = UnmatchedFail
		}

		if pol.Trace && s.logger == nil {
			s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Package-level registry is intentional for test coordination
	registry = make(map[TestReporter]*Session)
	//nolint:gochecknoglobals // Mutex for registry
	registryMu sync.Mutex
	//nolint:gochecknoglobals // the policy file is read once per process
	envPolicy = sync.OnceValues(func() (policy.Policy, error) {
		pol, _, err := policy.FromEnv()

		return pol, err
	})
)

// cleanupRegistrar is the interface needed for registering cleanup functions.
// This is satisfied by *testing.T and *testing.B.
type cleanupRegistrar interface {
	Cleanup(cleanupFunc func())
}
