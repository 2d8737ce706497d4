package transport

import "sync/atomic"

// Hook is the data-hook contract from spec.md §4.1: it observes (and may
// mutate in place) the bytes read in one direction of one connection.
// Hooks carry only small per-direction state — no shared references — and
// a fresh value is used for each direction of each connection.
type Hook interface {
	// Data is called once per non-empty read, before the bytes are
	// forwarded to the opposite stream.
	Data(buf []byte)
	// EndData is called exactly once per direction, at read-close, even
	// with an empty buffer.
	EndData(buf []byte)
}

// CounterHook is the identity hook spec.md §4.1 describes: it only
// accumulates sum += len(buf) and never mutates the buffer.
type CounterHook struct {
	sum int64
}

// Data accumulates len(buf) into the running total.
func (h *CounterHook) Data(buf []byte) {
	atomic.AddInt64(&h.sum, int64(len(buf)))
}

// EndData accumulates any trailing bytes (normally none) into the total.
func (h *CounterHook) EndData(buf []byte) {
	atomic.AddInt64(&h.sum, int64(len(buf)))
}

// Sum returns the bytes observed so far.
func (h *CounterHook) Sum() int64 {
	return atomic.LoadInt64(&h.sum)
}

// NopHook discards every observation; used where no accounting is needed.
type NopHook struct{}

func (NopHook) Data(buf []byte)    {}
func (NopHook) EndData(buf []byte) {}
