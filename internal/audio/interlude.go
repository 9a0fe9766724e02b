package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// ReferenceVolume is the fixed low level the interlude plays at under
	// a spoken section's preparation window.
	ReferenceVolume = 0.18

	fadeWindow = 800 * time.Millisecond
	fadeStep   = 50 * time.Millisecond
)

// ambientPlayer is the subset of *oto.Player the interlude drives. It exists
// so the fade logic is testable without hardware output.
type ambientPlayer interface {
	Play()
	Pause()
	SetVolume(float64)
	Close() error
}

// Interlude loops an ambient track on the shared output context to mask
// generation latency between spoken sections. Fades ramp the volume over a
// fixed window; a new fade cancels an in-progress one in the opposite
// direction.
type Interlude struct {
	logger *log.Logger

	mu      sync.Mutex
	player  ambientPlayer
	playing bool
	volume  float64
	fadeCh  chan struct{} // closed to cancel the active fade
	stopped bool
}

// loopReader replays its data from the start whenever it runs out, so the
// ambient track loops seamlessly.
type loopReader struct {
	data []byte
	pos  int
}

func (r *loopReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, errors.New("empty loop data")
	}
	n := 0
	for n < len(p) {
		if r.pos >= len(r.data) {
			r.pos = 0
		}
		c := copy(p[n:], r.data[r.pos:])
		n += c
		r.pos += c
	}
	return n, nil
}

// NewInterlude creates the looping ambient controller from a decoded buffer.
// The track starts paused at zero volume; FadeIn brings it up.
func NewInterlude(buf *Buffer, logger *log.Logger) (*Interlude, error) {
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("empty interlude buffer")
	}
	ctx, err := GetContext()
	if err != nil {
		return nil, fmt.Errorf("interlude unavailable: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	player := ctx.NewPlayer(&loopReader{data: buf.Data})
	player.SetVolume(0)
	return &Interlude{
		logger: logger,
		player: player,
	}, nil
}

// FadeIn ramps from the current volume up to the reference volume, starting
// the loop if it is paused. Cancels a concurrent fade-out.
func (i *Interlude) FadeIn() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return
	}
	i.cancelFadeLocked()
	if !i.playing {
		i.player.Play()
		i.playing = true
	}
	i.startFadeLocked(ReferenceVolume, false)
}

// FadeOut ramps the volume down to zero, then pauses the loop. Cancels a
// concurrent fade-in.
func (i *Interlude) FadeOut() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped || !i.playing {
		return
	}
	i.cancelFadeLocked()
	i.startFadeLocked(0, true)
}

// Stop halts the loop immediately and releases the player.
func (i *Interlude) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return
	}
	i.cancelFadeLocked()
	i.stopped = true
	i.playing = false
	i.player.Close()
}

func (i *Interlude) cancelFadeLocked() {
	if i.fadeCh != nil {
		close(i.fadeCh)
		i.fadeCh = nil
	}
}

// startFadeLocked launches the ramp goroutine toward the target volume,
// pausing the player afterwards when pauseAtEnd is set.
func (i *Interlude) startFadeLocked(target float64, pauseAtEnd bool) {
	cancel := make(chan struct{})
	i.fadeCh = cancel

	from := i.volume
	steps := int(fadeWindow / fadeStep)
	if steps < 1 {
		steps = 1
	}
	delta := (target - from) / float64(steps)

	go func() {
		ticker := time.NewTicker(fadeStep)
		defer ticker.Stop()
		vol := from
		for step := 0; step < steps; step++ {
			select {
			case <-cancel:
				return
			case <-ticker.C:
				// The tick and the cancel can be ready together; a
				// cancelled fade must not apply another step against
				// its successor.
				select {
				case <-cancel:
					return
				default:
				}
				vol += delta
				i.setVolume(vol)
			}
		}
		select {
		case <-cancel:
			return
		default:
		}
		i.setVolume(target)
		if pauseAtEnd {
			i.mu.Lock()
			// Only pause if this fade is still the active one.
			if i.fadeCh == cancel && !i.stopped {
				i.player.Pause()
				i.playing = false
				i.fadeCh = nil
			}
			i.mu.Unlock()
		}
	}()
}

func (i *Interlude) setVolume(v float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	i.volume = v
	i.player.SetVolume(v)
}
