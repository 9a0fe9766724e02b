package audio

import (
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// fakeAmbient records the volume ramp applied to it.
type fakeAmbient struct {
	mu      sync.Mutex
	volumes []float64
	playing bool
	closed  bool
}

func (f *fakeAmbient) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
}

func (f *fakeAmbient) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeAmbient) SetVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, v)
}

func (f *fakeAmbient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAmbient) lastVolume() (float64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.volumes) == 0 {
		return 0, false
	}
	return f.volumes[len(f.volumes)-1], true
}

func (f *fakeAmbient) isPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeAmbient) volumeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.volumes)
}

func newTestInterlude() (*Interlude, *fakeAmbient) {
	fake := &fakeAmbient{}
	return &Interlude{logger: log.Default(), player: fake}, fake
}

func TestInterludeFadeInReachesReference(t *testing.T) {
	i, fake := newTestInterlude()

	i.FadeIn()
	if !fake.isPlaying() {
		t.Fatal("FadeIn did not start the loop")
	}

	time.Sleep(fadeWindow + 200*time.Millisecond)
	got, ok := fake.lastVolume()
	if !ok || got != ReferenceVolume {
		t.Errorf("volume after fade-in = %v, want %v", got, ReferenceVolume)
	}
}

func TestInterludeOpposingFadeWins(t *testing.T) {
	i, fake := newTestInterlude()

	i.FadeIn()
	time.Sleep(2 * fadeStep) // let a few upward steps land
	i.FadeOut()

	time.Sleep(fadeWindow + 200*time.Millisecond)

	// The cancelled fade-in must not have applied a step after the
	// fade-out took over: the ramp ends at silence, paused.
	got, ok := fake.lastVolume()
	if !ok || got != 0 {
		t.Errorf("volume after opposing fade = %v, want 0", got)
	}
	if fake.isPlaying() {
		t.Error("loop still playing after fade-out completed")
	}
}

func TestInterludeStopHaltsFade(t *testing.T) {
	i, fake := newTestInterlude()

	i.FadeIn()
	time.Sleep(2 * fadeStep)
	i.Stop()

	if !fake.closed {
		t.Fatal("Stop did not close the player")
	}

	// No further volume steps may land after Stop.
	n := fake.volumeCount()
	time.Sleep(4 * fadeStep)
	if got := fake.volumeCount(); got != n {
		t.Errorf("volume steps applied after Stop: %d -> %d", n, got)
	}

	// Terminal: a later fade is ignored.
	i.FadeIn()
	if fake.isPlaying() {
		t.Error("FadeIn restarted a stopped interlude")
	}
}
