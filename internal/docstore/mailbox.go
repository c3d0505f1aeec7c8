package docstore

import (
	"sync"

	"github.com/and161185/recipebook/internal/model"
)

// Mailbox delivers queued snapshots to one subscriber callback on its own goroutine, in push order.
// Push never blocks the publisher.
type Mailbox struct {
	fn SnapshotFunc

	mu      sync.Mutex
	pending []model.Snapshot
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewMailbox returns a mailbox for fn. Call Run in a goroutine.
func NewMailbox(fn SnapshotFunc) *Mailbox {
	return &Mailbox{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Push queues snap for delivery.
func (m *Mailbox) Push(snap model.Snapshot) {
	m.mu.Lock()
	m.pending = append(m.pending, snap)
	m.mu.Unlock()
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Stop ends delivery; queued snapshots are dropped. Safe to call repeatedly.
func (m *Mailbox) Stop() { m.once.Do(func() { close(m.done) }) }

func (m *Mailbox) stopped() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Run delivers until Stop is called.
func (m *Mailbox) Run() {
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}
		for {
			m.mu.Lock()
			if len(m.pending) == 0 {
				m.mu.Unlock()
				break
			}
			next := m.pending[0]
			m.pending = m.pending[1:]
			m.mu.Unlock()
			if m.stopped() {
				return
			}
			m.fn(next)
		}
	}
}
