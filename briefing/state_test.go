package briefing

import (
	"errors"
	"testing"
)

func TestStateMonotonicAdvance(t *testing.T) {
	s := NewPipelineState()

	if err := s.BeginSection(0); err != nil {
		t.Fatalf("BeginSection(0) failed: %v", err)
	}
	if err := s.BeginSection(1); err != nil {
		t.Fatalf("BeginSection(1) failed: %v", err)
	}

	// Replaying or regressing the index is rejected.
	if err := s.BeginSection(1); !errors.Is(err, ErrIndexRegression) {
		t.Errorf("BeginSection(1) again = %v, want ErrIndexRegression", err)
	}
	if err := s.BeginSection(0); !errors.Is(err, ErrIndexRegression) {
		t.Errorf("BeginSection(0) after 1 = %v, want ErrIndexRegression", err)
	}

	// Jumping forward (dropped dynamic sections) is allowed.
	if err := s.BeginSection(4); err != nil {
		t.Errorf("BeginSection(4) failed: %v", err)
	}
	if s.CurrentIndex() != 4 {
		t.Errorf("CurrentIndex = %d, want 4", s.CurrentIndex())
	}
}

func TestStateIdempotentPrefetch(t *testing.T) {
	s := NewPipelineState()

	if !s.ShouldPrepare(1) {
		t.Fatal("first ShouldPrepare(1) = false, want true")
	}
	s.MarkPreparing(1)
	if s.ShouldPrepare(1) {
		t.Error("second ShouldPrepare(1) = true, want false")
	}
	if !s.ShouldPrepare(2) {
		t.Error("ShouldPrepare(2) = false, want true")
	}
}

func TestStatePendingSlotExclusivity(t *testing.T) {
	s := NewPipelineState()

	first := &PreparedSection{Index: 1}
	if err := s.Park(first); err != nil {
		t.Fatalf("Park failed: %v", err)
	}

	// The slot holds exactly one section; a second write is a defect.
	if err := s.Park(&PreparedSection{Index: 2}); !errors.Is(err, ErrPendingSlotOccupied) {
		t.Fatalf("second Park = %v, want ErrPendingSlotOccupied", err)
	}

	// Consuming requires a matching index and clears the slot.
	if got := s.TakePending(2); got != nil {
		t.Error("TakePending(2) returned a section for the wrong index")
	}
	if got := s.TakePending(1); got != first {
		t.Error("TakePending(1) did not return the parked section")
	}
	if s.HasPending() {
		t.Error("slot still occupied after TakePending")
	}

	// The next population is independent.
	if err := s.Park(&PreparedSection{Index: 2}); err != nil {
		t.Errorf("Park after consume failed: %v", err)
	}
}

func TestStateTerminalStop(t *testing.T) {
	s := NewPipelineState()
	s.VoiceStarted()
	if err := s.Park(&PreparedSection{Index: 1}); err != nil {
		t.Fatalf("Park failed: %v", err)
	}

	s.Stop()

	if !s.Stopped() {
		t.Fatal("Stopped() = false after Stop")
	}
	if s.VoiceActive() {
		t.Error("voice still active after Stop")
	}
	if s.HasPending() {
		t.Error("pending slot not discarded on Stop")
	}
	if s.ShouldPrepare(2) {
		t.Error("ShouldPrepare allowed after Stop")
	}
	if err := s.BeginSection(5); !errors.Is(err, ErrPipelineStopped) {
		t.Errorf("BeginSection after Stop = %v, want ErrPipelineStopped", err)
	}
	if err := s.Park(&PreparedSection{Index: 3}); !errors.Is(err, ErrPipelineStopped) {
		t.Errorf("Park after Stop = %v, want ErrPipelineStopped", err)
	}
}

func TestStateVoiceGate(t *testing.T) {
	s := NewPipelineState()
	if s.VoiceActive() {
		t.Fatal("voice active before any playback")
	}
	s.VoiceStarted()
	if !s.VoiceActive() {
		t.Fatal("voice inactive after VoiceStarted")
	}
	s.VoiceEnded()
	if s.VoiceActive() {
		t.Fatal("voice active after VoiceEnded")
	}
}
