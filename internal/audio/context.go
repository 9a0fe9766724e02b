// Package audio owns the hardware audio output for briefing playback: a
// single shared output context, the clocked voice player, and the looping
// interlude controller that masks generation latency.
package audio

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Engine output format. Every decoded payload is converted to this format
// before playback so voice and interlude can share one output context.
const (
	SampleRate     = 44100
	Channels       = 2
	BytesPerSample = 2 * Channels // 16-bit signed little-endian
	Format         = oto.FormatSignedInt16LE
)

// Context wraps the process-wide oto context. oto permits only one context
// per process, so voice and interlude players are both created from here.
// Suspending the context pauses the entire output clock.
type Context struct {
	ctx   *oto.Context
	mu    sync.Mutex
	ready bool
}

var (
	globalContext *Context
	contextOnce   sync.Once
)

// GetContext returns the shared audio context, initializing it on first use.
func GetContext() (*Context, error) {
	var initErr error
	contextOnce.Do(func() {
		globalContext = &Context{}
		initErr = globalContext.initialize()
	})
	if initErr != nil {
		return nil, initErr
	}
	if globalContext == nil || !globalContext.ready {
		return nil, errors.New("audio context not initialized")
	}
	return globalContext, nil
}

func (c *Context) initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	options := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       Format,
	}

	switch runtime.GOOS {
	case "darwin":
		options.BufferSize = 100 * time.Millisecond
	default:
		options.BufferSize = 50 * time.Millisecond
	}

	ctx, readyChan, err := oto.NewContext(options)
	if err != nil {
		return fmt.Errorf("failed to create audio context: %w", err)
	}
	<-readyChan

	c.ctx = ctx
	c.ready = true
	return nil
}

// NewPlayer creates an oto player reading from r.
func (c *Context) NewPlayer(r io.Reader) *oto.Player {
	return c.ctx.NewPlayer(r)
}

// Suspend pauses the whole output clock, including any looping interlude.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return errors.New("audio context not initialized")
	}
	return c.ctx.Suspend()
}

// Resume restarts the output clock after Suspend.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ready {
		return errors.New("audio context not initialized")
	}
	return c.ctx.Resume()
}
