package audio

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

// fakeStream stands in for the hardware output. With drain set it consumes
// its source on Play, simulating instant playback to a natural end.
type fakeStream struct {
	mu       sync.Mutex
	reader   *bytes.Reader
	playing  bool
	unplayed int64
	closed   bool
	drain    bool
}

func (f *fakeStream) Play() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = true
	if f.drain {
		io.Copy(io.Discard, f.reader) //nolint:errcheck
		f.playing = false
	}
}

func (f *fakeStream) IsPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeStream) UnplayedBufferSize() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unplayed
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.playing = false
	return nil
}

func (f *fakeStream) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestPlayer(drain bool) (*Player, *[]*fakeStream) {
	created := &[]*fakeStream{}
	p := &Player{
		newStream: func(r *bytes.Reader) pcmStream {
			f := &fakeStream{reader: r, drain: drain}
			*created = append(*created, f)
			return f
		},
		logger: log.Default(),
		events: make(chan Event, 64),
	}
	return p, created
}

// engineBuffer builds a silent buffer of the given duration in the engine
// output format.
func engineBuffer(d time.Duration) *Buffer {
	frames := int(d * SampleRate / time.Second)
	return &Buffer{Data: make([]byte, frames*BytesPerSample), Duration: d}
}

// nextEvent waits for the next lifecycle event, skipping TimeUpdate.
func nextEvent(t *testing.T, p *Player) Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-p.events:
			if ev.Kind == EventTimeUpdate {
				continue
			}
			return ev
		case <-deadline:
			t.Fatal("timed out waiting for a lifecycle event")
			return Event{}
		}
	}
}

func TestPlayEmitsStartedThenEnded(t *testing.T) {
	p, _ := newTestPlayer(true)

	buf := engineBuffer(100 * time.Millisecond)
	if err := p.Play(buf); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if ev := nextEvent(t, p); ev.Kind != EventStarted || ev.Duration != buf.Duration {
		t.Fatalf("first event = %+v, want Started with duration %v", ev, buf.Duration)
	}
	ev := nextEvent(t, p)
	if ev.Kind != EventEnded {
		t.Fatalf("second event = %+v, want Ended", ev)
	}
	if ev.Elapsed != buf.Duration {
		t.Errorf("Ended elapsed = %v, want %v", ev.Elapsed, buf.Duration)
	}
	if p.IsActive() {
		t.Error("IsActive after natural end")
	}
}

func TestPlayReplacesActiveSource(t *testing.T) {
	p, created := newTestPlayer(false)

	if err := p.Play(engineBuffer(time.Second)); err != nil {
		t.Fatalf("first Play failed: %v", err)
	}
	if err := p.Play(engineBuffer(time.Second)); err != nil {
		t.Fatalf("second Play failed: %v", err)
	}

	if len(*created) != 2 {
		t.Fatalf("created %d streams, want 2", len(*created))
	}
	if !(*created)[0].isClosed() {
		t.Error("first stream not closed by the second Play")
	}
	if (*created)[1].isClosed() {
		t.Error("second stream closed while it should be active")
	}
	if !p.IsActive() {
		t.Error("IsActive false with a source attached")
	}

	// Exactly two Started events, and no Ended from the replaced stream.
	for i := 0; i < 2; i++ {
		if ev := nextEvent(t, p); ev.Kind != EventStarted {
			t.Fatalf("event %d = %+v, want Started", i, ev)
		}
	}
	select {
	case ev := <-p.events:
		if ev.Kind == EventEnded {
			t.Error("replaced stream emitted Ended")
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopSuppressesEnded(t *testing.T) {
	p, created := newTestPlayer(false)

	if err := p.Play(engineBuffer(time.Second)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if ev := nextEvent(t, p); ev.Kind != EventStarted {
		t.Fatalf("event = %+v, want Started", ev)
	}

	p.Stop()

	if p.IsActive() {
		t.Error("IsActive after Stop")
	}
	if !(*created)[0].isClosed() {
		t.Error("stream not closed by Stop")
	}

	// The monitor must exit without a terminal event.
	select {
	case ev := <-p.events:
		if ev.Kind == EventEnded {
			t.Error("manual stop emitted Ended")
		}
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCloseReleasesEventStream(t *testing.T) {
	p, _ := newTestPlayer(false)
	if err := p.Play(engineBuffer(time.Second)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Play(engineBuffer(time.Second)); err == nil {
		t.Error("Play succeeded on a closed player")
	}

	// The stream drains and then reports closed.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-p.events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event stream not closed")
		}
	}
}

func TestElapsedClamping(t *testing.T) {
	data := make([]byte, SampleRate*BytesPerSample) // one second
	fake := &fakeStream{}

	s := &voiceStream{
		reader:   bytes.NewReader(data),
		player:   fake,
		size:     int64(len(data)),
		duration: time.Second,
	}

	// Nothing consumed yet: position is zero.
	if got := s.elapsed(); got != 0 {
		t.Errorf("elapsed before reading = %v, want 0", got)
	}

	// Half consumed with an empty device buffer: half a second.
	io.CopyN(io.Discard, s.reader, int64(len(data)/2)) //nolint:errcheck
	if got := s.elapsed(); got != 500*time.Millisecond {
		t.Errorf("elapsed at half = %v, want 500ms", got)
	}

	// The device holding more than was consumed must not go negative.
	fake.unplayed = int64(len(data))
	if got := s.elapsed(); got != 0 {
		t.Errorf("elapsed with large unplayed = %v, want 0", got)
	}

	// Fully consumed never reads past the nominal duration.
	fake.unplayed = 0
	io.Copy(io.Discard, s.reader) //nolint:errcheck
	s.duration = 900 * time.Millisecond
	if got := s.elapsed(); got != 900*time.Millisecond {
		t.Errorf("elapsed past end = %v, want clamp to 900ms", got)
	}
}
