package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// EventKind identifies a playback lifecycle event.
type EventKind int

const (
	// EventStarted fires when a buffer begins playing.
	EventStarted EventKind = iota
	// EventTimeUpdate fires on a fixed polling cadence while playing.
	EventTimeUpdate
	// EventEnded fires when a buffer plays to its natural end. It does not
	// fire on manual stop.
	EventEnded
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventTimeUpdate:
		return "time_update"
	case EventEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Event is one playback lifecycle notification. Elapsed is clamped to
// [0, Duration].
type Event struct {
	Kind     EventKind
	Elapsed  time.Duration
	Duration time.Duration
}

// timeUpdateInterval bounds the TimeUpdate cadence to roughly a display
// refresh.
const timeUpdateInterval = 33 * time.Millisecond

// pcmStream is the subset of *oto.Player the engine drives. It exists so the
// monitor and position logic are testable without hardware output.
type pcmStream interface {
	Play()
	IsPlaying() bool
	UnplayedBufferSize() int64
	Close() error
}

// Player is the clocked playback engine. It owns at most one active source
// at any time; starting a new buffer synchronously terminates the previous
// one. Lifecycle events are delivered on a single outgoing channel.
type Player struct {
	ctx       *Context
	newStream func(*bytes.Reader) pcmStream
	logger    *log.Logger

	mu      sync.Mutex
	current *voiceStream
	paused  bool
	closed  bool

	events chan Event
}

// voiceStream is one active source: a PCM stream over an in-memory buffer.
type voiceStream struct {
	reader    *bytes.Reader
	player    pcmStream
	size      int64
	duration  time.Duration
	stopCh    chan struct{}
	done      sync.WaitGroup
	closeOnce sync.Once
}

func (s *voiceStream) close() {
	s.closeOnce.Do(func() {
		s.player.Close()
	})
}

// NewPlayer creates a playback engine on the shared audio context.
func NewPlayer(logger *log.Logger) (*Player, error) {
	ctx, err := GetContext()
	if err != nil {
		return nil, fmt.Errorf("playback engine unavailable: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Player{
		ctx:       ctx,
		newStream: func(r *bytes.Reader) pcmStream { return ctx.NewPlayer(r) },
		logger:    logger,
		events:    make(chan Event, 64),
	}, nil
}

// Events returns the outgoing lifecycle event stream.
func (p *Player) Events() <-chan Event {
	return p.events
}

// Play stops any active source and starts the given buffer. EventStarted is
// emitted before Play returns; EventEnded follows on natural completion.
func (p *Player) Play(buf *Buffer) error {
	if buf == nil || len(buf.Data) == 0 {
		return errors.New("nothing to play")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player is closed")
	}

	// Single active source: terminate the previous stream before starting.
	p.stopCurrentLocked()

	reader := bytes.NewReader(buf.Data)
	stream := &voiceStream{
		reader:   reader,
		player:   p.newStream(reader),
		size:     int64(len(buf.Data)),
		duration: buf.Duration,
		stopCh:   make(chan struct{}),
	}
	p.current = stream

	stream.player.Play()
	p.emit(Event{Kind: EventStarted, Duration: stream.duration})
	p.logger.Debug("voice playback started", "duration", stream.duration)

	stream.done.Add(1)
	go p.monitor(stream)
	return nil
}

// Stop halts the active source without emitting EventEnded.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCurrentLocked()
}

// Pause suspends the entire output clock. Any looping interlude sharing the
// context stops with it.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return nil
	}
	if err := p.ctx.Suspend(); err != nil {
		return err
	}
	p.paused = true
	return nil
}

// Resume restarts the output clock after Pause.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return nil
	}
	if err := p.ctx.Resume(); err != nil {
		return err
	}
	p.paused = false
	return nil
}

// IsActive reports whether a source is currently attached.
func (p *Player) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Close stops playback and releases the event stream.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.stopCurrentLocked()
	p.closed = true
	close(p.events)
	return nil
}

// stopCurrentLocked tears down the active stream and waits for its monitor
// to exit, so no events from the old stream can interleave with the next.
func (p *Player) stopCurrentLocked() {
	if p.current == nil {
		return
	}
	stream := p.current
	p.current = nil
	close(stream.stopCh)
	p.mu.Unlock()
	stream.done.Wait()
	p.mu.Lock()
	stream.close()
}

// monitor polls the stream, emitting TimeUpdate on a fixed cadence and Ended
// exactly once when the source drains naturally.
func (p *Player) monitor(stream *voiceStream) {
	defer stream.done.Done()

	ticker := time.NewTicker(timeUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.stopCh:
			return
		case <-ticker.C:
			elapsed := stream.elapsed()
			if stream.finished() {
				// A manual stop racing the final tick must not produce
				// an Ended event.
				select {
				case <-stream.stopCh:
					return
				default:
				}
				p.mu.Lock()
				if p.current == stream {
					p.current = nil
					stream.close()
				}
				p.mu.Unlock()
				p.emit(Event{Kind: EventEnded, Elapsed: stream.duration, Duration: stream.duration})
				return
			}
			p.emit(Event{Kind: EventTimeUpdate, Elapsed: elapsed, Duration: stream.duration})
		}
	}
}

// elapsed derives playback position from bytes consumed minus what oto still
// holds unplayed, clamped to [0, duration].
func (s *voiceStream) elapsed() time.Duration {
	consumed := s.size - int64(s.reader.Len())
	audible := consumed - s.player.UnplayedBufferSize()
	if audible < 0 {
		audible = 0
	}
	elapsed := time.Duration(audible/BytesPerSample) * time.Second / time.Duration(SampleRate)
	if elapsed > s.duration {
		elapsed = s.duration
	}
	return elapsed
}

func (s *voiceStream) finished() bool {
	return s.reader.Len() == 0 && !s.player.IsPlaying()
}

// emit delivers an event, dropping TimeUpdate when the consumer lags.
// Started and Ended are never dropped.
func (p *Player) emit(ev Event) {
	if ev.Kind == EventTimeUpdate {
		select {
		case p.events <- ev:
		default:
		}
		return
	}
	p.events <- ev
}
