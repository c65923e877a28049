package page

import "sync"

// Navigator is the page-navigation collaborator. Behaviors ask it for a
// reload instead of reloading the page themselves.
type Navigator interface {
	Reload(reason string)
}

// RecordingNavigator remembers reload requests. It is the default
// Navigator; hosts inspect it after a pass.
type RecordingNavigator struct {
	mu      sync.Mutex
	reloads []string
}

// Reload implements Navigator.
func (n *RecordingNavigator) Reload(reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reloads = append(n.reloads, reason)
}

// Reloads returns the recorded reload reasons.
func (n *RecordingNavigator) Reloads() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.reloads...)
}

// Cookies is the read-only cookie jar visible to behaviors.
type Cookies map[string]string

// Get returns the cookie value, or "".
func (c Cookies) Get(name string) string {
	return c[name]
}
