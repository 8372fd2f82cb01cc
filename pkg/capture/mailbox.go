package capture

import "sync"

// Mailbox is a single-slot, latest-wins buffer between the receiver and the
// processing loop. The stream runs faster than registration, so publishing
// over an unconsumed frame closes the stale frame and counts a drop rather
// than queueing it.
type Mailbox struct {
	mu        sync.Mutex
	slot      *Frame
	published uint64
	drops     uint64

	ready chan struct{}
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Publish stores f as the pending frame, replacing and closing any frame
// that was not yet consumed. Never blocks.
func (m *Mailbox) Publish(f *Frame) {
	m.mu.Lock()
	if m.slot != nil {
		m.slot.Close()
		m.drops++
	}
	m.slot = f
	m.published++
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// TryTake removes and returns the pending frame, or nil when none is
// waiting. The caller owns the returned frame and must Close it.
func (m *Mailbox) TryTake() *Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.slot
	m.slot = nil
	return f
}

// Ready signals when a frame has been published. The channel has a single
// token, so coalesced publishes wake the consumer once; the latest frame is
// what TryTake returns.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Published returns how many frames have been accepted.
func (m *Mailbox) Published() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.published
}

// Drops returns how many frames were overwritten before being consumed.
func (m *Mailbox) Drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drops
}

// Close releases any unconsumed frame.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot != nil {
		m.slot.Close()
		m.slot = nil
	}
}
