// Package inflight refuses a second concurrent run of the same keyed operation.
package inflight

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrInFlight is returned when the key is already held.
var ErrInFlight = errors.New("operation already in flight")

// Guard tracks which keys are running.
type Guard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// New creates an empty guard.
func New() *Guard {
	return &Guard{keys: make(map[string]struct{})}
}

// Key joins operation and subject parts, e.g. Key("stake", "0xabc").
func Key(parts ...string) string {
	return strings.ToLower(strings.Join(parts, ":"))
}

// Acquire claims key. The returned release func must be called exactly once.
func (g *Guard) Acquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.keys[key]; busy {
		return nil, errors.Wrapf(ErrInFlight, "key %s", key)
	}
	g.keys[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.keys, key)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key is currently held.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.keys[key]
	return busy
}
