package audio

import (
	"errors"
	"sync"
	"time"
)

// MockPlayer simulates the clocked playback engine without hardware output.
// Tests drive section completion explicitly with FinishCurrent, and can emit
// intermediate TimeUpdate events with AdvanceTo.
type MockPlayer struct {
	mu      sync.Mutex
	active  bool
	current *Buffer
	played  []*Buffer
	paused  bool
	closed  bool

	events chan Event
}

// NewMockPlayer creates a mock playback engine.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{events: make(chan Event, 64)}
}

// Events returns the outgoing lifecycle event stream.
func (m *MockPlayer) Events() <-chan Event {
	return m.events
}

// Play records the buffer, marks the source active, and emits EventStarted.
func (m *MockPlayer) Play(buf *Buffer) error {
	if buf == nil || len(buf.Data) == 0 {
		return errors.New("nothing to play")
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("player is closed")
	}
	m.active = true
	m.current = buf
	m.played = append(m.played, buf)
	dur := buf.Duration
	m.mu.Unlock()

	m.events <- Event{Kind: EventStarted, Duration: dur}
	return nil
}

// FinishCurrent completes the active source naturally, emitting EventEnded.
func (m *MockPlayer) FinishCurrent() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	dur := m.current.Duration
	m.active = false
	m.current = nil
	m.mu.Unlock()

	m.events <- Event{Kind: EventEnded, Elapsed: dur, Duration: dur}
}

// AdvanceTo emits a TimeUpdate at the given elapsed time.
func (m *MockPlayer) AdvanceTo(elapsed time.Duration) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	dur := m.current.Duration
	m.mu.Unlock()

	if elapsed > dur {
		elapsed = dur
	}
	m.events <- Event{Kind: EventTimeUpdate, Elapsed: elapsed, Duration: dur}
}

// Stop halts the active source without an Ended event.
func (m *MockPlayer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
	m.current = nil
}

// Pause marks the output clock suspended.
func (m *MockPlayer) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	return nil
}

// Resume restarts the output clock.
func (m *MockPlayer) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	return nil
}

// IsActive reports whether a source is attached.
func (m *MockPlayer) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Close releases the event stream.
func (m *MockPlayer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.events)
	return nil
}

// Played returns the buffers handed to Play, in order.
func (m *MockPlayer) Played() []*Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Buffer, len(m.played))
	copy(out, m.played)
	return out
}
