// Package registry implements the process-wide map from a forwarding
// server's listen address to its ServerState: a close-signal sender plus
// the latest throughput sample. It is the Go rendering of the original's
// lazily-initialized, mutex-guarded global server table.
package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nprx/netproxy/internal/serverrt"
)

// State is one registry entry: the close-signal sender plus the latest
// observed throughput.
type State struct {
	Addr      string
	ctl       chan<- serverrt.Control
	mu        sync.RWMutex
	velocity  uint32
	timestamp string
}

func (s *State) snapshot() (velocity uint32, timestamp string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.velocity, s.timestamp
}

func (s *State) update(sample serverrt.StateSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.velocity = sample.Velocity
	s.timestamp = sample.Timestamp
}

func (s *State) line() string {
	v, ts := s.snapshot()
	return fmt.Sprintf("%s,velocity:%d [%s]", s.Addr, v, ts)
}

// Registry is a process-wide mapping from listen address to State,
// guarded by a mutex. At most one State exists per address, matching the
// original's registry invariant.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*State
}

// Default is the process-wide singleton used by the control-plane
// dispatcher.
var Default = New()

// New returns an empty Registry. Exported for tests; production code
// uses Default.
func New() *Registry {
	return &Registry{entries: make(map[string]*State)}
}

// Hold inserts a new State for addr and spawns a goroutine that drains
// samples, updating the entry until the channel closes. The spawned
// goroutine ends exactly when samples is closed, matching the draining
// task invariant from spec.md §4.6.
func (r *Registry) Hold(addr string, ctl chan<- serverrt.Control, samples <-chan serverrt.StateSample) {
	state := &State{Addr: addr, ctl: ctl}

	r.mu.Lock()
	r.entries[addr] = state
	r.mu.Unlock()

	go func() {
		for sample := range samples {
			state.update(sample)
		}
	}()
}

// List returns every entry formatted as
// "ok <addr1>,velocity:<v1> [<ts1>] <addr2>,velocity:<v2> [<ts2>] ...".
// Entry order is unspecified.
func (r *Registry) List() string {
	r.mu.Lock()
	lines := make([]string, 0, len(r.entries))
	for _, state := range r.entries {
		lines = append(lines, state.line())
	}
	r.mu.Unlock()

	if len(lines) == 0 {
		return "ok "
	}
	return "ok " + strings.Join(lines, " ")
}

// StateOf returns the same format as List for a single address, or
// "ok " with an empty body when addr is absent.
func (r *Registry) StateOf(addr string) string {
	r.mu.Lock()
	state, ok := r.entries[addr]
	r.mu.Unlock()

	if !ok {
		return "ok "
	}
	return "ok " + state.line()
}

// Shutdown removes addr's entry and tries to send Close on its
// close-channel. It returns true iff the entry was present and the
// close-signal was sent.
func (r *Registry) Shutdown(addr string) bool {
	r.mu.Lock()
	state, ok := r.entries[addr]
	if ok {
		delete(r.entries, addr)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}

	select {
	case state.ctl <- serverrt.CtlClose():
		return true
	default:
		return false
	}
}

// Hold delegates to Default.
func Hold(addr string, ctl chan<- serverrt.Control, samples <-chan serverrt.StateSample) {
	Default.Hold(addr, ctl, samples)
}

// List delegates to Default.
func List() string { return Default.List() }

// StateOf delegates to Default.
func StateOf(addr string) string { return Default.StateOf(addr) }

// Shutdown delegates to Default.
func Shutdown(addr string) bool { return Default.Shutdown(addr) }
