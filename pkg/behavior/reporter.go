package behavior

import (
	stderrors "errors"
	"sync"
)

// Failure describes one behavior that failed during a pass.
type Failure struct {
	// Behavior is the registered name. Empty for pass-level failures such
	// as an unknown detach reason.
	Behavior string

	// Phase is attach or detach.
	Phase Phase

	// Reason is set for detach failures.
	Reason Reason

	// Err is the coded error (E102, E110, E111 or E112).
	Err error
}

// Reporter receives behavior failures. It is the external diagnostics
// collaborator; implementations must not panic.
type Reporter interface {
	Report(f Failure)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(Failure)

// Report implements Reporter.
func (f ReporterFunc) Report(failure Failure) { f(failure) }

// ErrorCollector is a Reporter that keeps every failure in memory.
type ErrorCollector struct {
	mu       sync.Mutex
	failures []Failure
}

// Report implements Reporter.
func (c *ErrorCollector) Report(f Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, f)
}

// Failures returns a copy of the collected failures.
func (c *ErrorCollector) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Failure, len(c.failures))
	copy(out, c.failures)
	return out
}

// Len returns the number of collected failures.
func (c *ErrorCollector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.failures)
}

// Err joins every collected error, or returns nil.
func (c *ErrorCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs := make([]error, len(c.failures))
	for i, f := range c.failures {
		errs[i] = f.Err
	}
	return stderrors.Join(errs...)
}

// Reset drops all collected failures.
func (c *ErrorCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
}
