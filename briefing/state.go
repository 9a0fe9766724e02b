package briefing

// PipelineState is the orchestrator's mutable core. It is owned exclusively
// by the pipeline's event loop and mutated only through the named transition
// methods below, so the state machine is testable in isolation. No locking:
// all access happens on the loop goroutine.
type PipelineState struct {
	currentIndex int // index of the playing (or last played) section, -1 before start
	lastPrepared int // highest index a prepare was issued for, -1 initially
	voiceActive  bool
	pending      *PreparedSection
	stopped      bool
}

// NewPipelineState creates the state for one pipeline run.
func NewPipelineState() *PipelineState {
	return &PipelineState{currentIndex: -1, lastPrepared: -1}
}

// BeginSection records that the given section is about to play. The index
// must strictly advance for the lifetime of the run.
func (s *PipelineState) BeginSection(index int) error {
	if s.stopped {
		return ErrPipelineStopped
	}
	if index <= s.currentIndex {
		return ErrIndexRegression
	}
	s.currentIndex = index
	return nil
}

// CurrentIndex returns the playing (or last played) section index.
func (s *PipelineState) CurrentIndex() int {
	return s.currentIndex
}

// VoiceStarted marks the playback engine's source active.
func (s *PipelineState) VoiceStarted() {
	s.voiceActive = true
}

// VoiceEnded marks the playback engine's source inactive.
func (s *PipelineState) VoiceEnded() {
	s.voiceActive = false
}

// VoiceActive reports whether the playback engine has an active source. It
// gates whether a freshly prepared section is parked or played immediately.
func (s *PipelineState) VoiceActive() bool {
	return s.voiceActive
}

// ShouldPrepare reports whether a prepare may be issued for the index.
// Re-issuing for an index already prepared is a no-op (idempotent prefetch).
func (s *PipelineState) ShouldPrepare(index int) bool {
	return !s.stopped && s.lastPrepared != index
}

// MarkPreparing records that a prepare was issued for the index.
func (s *PipelineState) MarkPreparing(index int) {
	if index > s.lastPrepared {
		s.lastPrepared = index
	}
}

// Park stores a prepared section that finished while the voice was still
// active. The slot holds exactly one section; a second write before the
// slot is consumed is a defect.
func (s *PipelineState) Park(sec *PreparedSection) error {
	if s.stopped {
		return ErrPipelineStopped
	}
	if s.pending != nil {
		return ErrPendingSlotOccupied
	}
	s.pending = sec
	return nil
}

// TakePending consumes the pending section if it matches the wanted index,
// clearing the slot. Returns nil when the slot is empty or holds a
// different index.
func (s *PipelineState) TakePending(index int) *PreparedSection {
	if s.pending == nil || s.pending.Index != index {
		return nil
	}
	sec := s.pending
	s.pending = nil
	return sec
}

// HasPending reports whether the slot is occupied.
func (s *PipelineState) HasPending() bool {
	return s.pending != nil
}

// Stop moves the state to its terminal form. No transition may start new
// work afterwards.
func (s *PipelineState) Stop() {
	s.stopped = true
	s.pending = nil
	s.voiceActive = false
}

// Stopped reports whether the run is terminal.
func (s *PipelineState) Stopped() bool {
	return s.stopped
}
