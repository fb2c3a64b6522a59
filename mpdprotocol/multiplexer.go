package mpdprotocol

import "time"

// Interest is a set of readiness events.
type Interest uint8

const (
	// Readable means a read will not block.
	Readable Interest = 1 << iota
	// Writable means a write will not block.
	Writable
)

// String returns a short label for logging.
func (i Interest) String() string {
	switch i {
	case 0:
		return "none"
	case Readable:
		return "r"
	case Writable:
		return "w"
	case Readable | Writable:
		return "rw"
	default:
		return "?"
	}
}

// poller is the readiness primitive the multiplexer waits on.
type poller interface {
	pollReady(interest Interest, timeout time.Duration) (Interest, error)
}

// multiplexer watches a single registration. Each poll call waits once
// and dispatches at most one callback; the caller decides the cadence.
type multiplexer struct {
	source   poller
	interest Interest
	handler  func(ready Interest)
}

// register installs the watched source, its interest set, and the callback.
func (m *multiplexer) register(source poller, interest Interest, handler func(ready Interest)) {
	m.source = source
	m.interest = interest
	m.handler = handler
}

// modify replaces the interest set.
func (m *multiplexer) modify(interest Interest) {
	m.interest = interest
}

// unregister drops the registration; later polls return ErrClosed.
func (m *multiplexer) unregister() {
	m.source = nil
	m.handler = nil
}

// poll waits up to timeout and invokes the callback if anything is ready.
// A timeout with nothing ready returns 0 without calling back.
func (m *multiplexer) poll(timeout time.Duration) (Interest, error) {
	if m.source == nil {
		return 0, ErrClosed
	}
	ready, err := m.source.pollReady(m.interest, timeout)
	if err != nil {
		return 0, err
	}
	if ready != 0 && m.handler != nil {
		m.handler(ready)
	}
	return ready, nil
}
