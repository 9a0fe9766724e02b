package briefing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dltmdgh0611/ownbrief/briefing/timeline"
	"github.com/dltmdgh0611/ownbrief/internal/audio"
)

// Pipeline walks the fixed section list, generating each section's script
// and speech just in time while the previous section plays, with a lookahead
// depth of exactly one. All coordination happens on a single event loop; the
// loop is the only writer of PipelineState.
type Pipeline struct {
	cfg      Config
	sections []SectionDescriptor
	scripts  ScriptSource
	speech   Synthesizer
	player   VoicePlayer
	ambient  Ambient
	logger   *log.Logger
	now      func() time.Time

	state *PipelineState

	// next is the index scheduled to play after the current section. It
	// normally advances by one; a SECTION_COMPLETE response retargets it
	// at the closing section.
	next int

	events chan Event
	prepCh chan prepResult
	stopCh chan struct{}
	done   chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	errMu  sync.Mutex
	runErr error
}

// prepResult is the outcome of one background prepare task.
type prepResult struct {
	index int
	sec   *PreparedSection
	err   error
}

// Deps are the pipeline's collaborators. Ambient may be nil; it defaults to
// the no-op controller.
type Deps struct {
	Scripts ScriptSource
	Speech  Synthesizer
	Player  VoicePlayer
	Ambient Ambient
	Logger  *log.Logger
}

// New creates a pipeline over the given section list. The list is fixed for
// the lifetime of the run.
func New(cfg Config, sections []SectionDescriptor, deps Deps) (*Pipeline, error) {
	if len(sections) == 0 {
		return nil, errors.New("section list is empty")
	}
	if deps.Scripts == nil || deps.Speech == nil || deps.Player == nil {
		return nil, errors.New("scripts, speech and player are required")
	}
	ambient := deps.Ambient
	if ambient == nil {
		ambient = NopAmbient{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Pipeline{
		cfg:      cfg,
		sections: sections,
		scripts:  deps.Scripts,
		speech:   deps.Speech,
		player:   deps.Player,
		ambient:  ambient,
		logger:   logger,
		now:      time.Now,
		state:    NewPipelineState(),
		events:   make(chan Event, 256),
		prepCh:   make(chan prepResult, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Events returns the pipeline's outgoing event stream. It is closed when the
// run ends.
func (p *Pipeline) Events() <-chan Event {
	return p.events
}

// Done is closed when the run reaches Completed, Stopped, or Failed.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Err returns the fatal error of a failed run, nil otherwise.
func (p *Pipeline) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.runErr
}

// Start prepares and plays section 0 synchronously, then runs the event
// loop in the background. A failure to produce the first section is fatal:
// the pipeline transitions to Stopped and the error is returned.
func (p *Pipeline) Start(ctx context.Context) error {
	var startErr error
	didStart := false
	p.startOnce.Do(func() {
		didStart = true

		// A Stop that raced ahead of Start wins: the run never begins.
		select {
		case <-p.stopCh:
			p.state.Stop()
			p.emit(Event{Kind: EventStopped})
			close(p.done)
			close(p.events)
			startErr = ErrPipelineStopped
			return
		default:
		}

		first, err := p.prepare(ctx, p.sections[0])
		if err != nil {
			p.state.Stop()
			p.setErr(err)
			p.emit(Event{Kind: EventFailed, Err: err})
			close(p.done)
			close(p.events)
			startErr = err
			return
		}
		if err := p.playNow(first); err != nil {
			p.state.Stop()
			p.setErr(err)
			p.emit(Event{Kind: EventFailed, Err: err})
			close(p.done)
			close(p.events)
			startErr = err
			return
		}
		go p.run(ctx)
	})
	if !didStart {
		return ErrAlreadyStarted
	}
	return startErr
}

// Pause suspends the output clock, freezing voice and interlude together.
func (p *Pipeline) Pause() error {
	return p.player.Pause()
}

// Resume restarts the output clock after Pause.
func (p *Pipeline) Resume() error {
	return p.player.Resume()
}

// Stop halts the run from any state, including before Start. In-flight
// generation requests are allowed to finish but their results are discarded;
// playback stops immediately.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(func() {
		// Halt the engine right away; state transitions happen on the
		// loop.
		p.player.Stop()
		close(p.stopCh)
	})
}

// run is the pipeline event loop: a reducer over player lifecycle events,
// prepare-task results, and the stop signal.
func (p *Pipeline) run(ctx context.Context) {
	defer close(p.events)

	for {
		select {
		case <-ctx.Done():
			p.terminate(EventStopped, ctx.Err())
			return

		case <-p.stopCh:
			p.terminate(EventStopped, nil)
			return

		case ev, ok := <-p.player.Events():
			if !ok {
				p.terminate(EventStopped, errors.New("playback engine closed"))
				return
			}
			if !p.handlePlayerEvent(ctx, ev) {
				return
			}

		case res := <-p.prepCh:
			if !p.handlePrepared(ctx, res) {
				return
			}
		}
	}
}

// handlePlayerEvent reduces one playback engine event. Returns false when
// the loop must exit.
func (p *Pipeline) handlePlayerEvent(ctx context.Context, ev audio.Event) bool {
	i := p.state.CurrentIndex()
	switch ev.Kind {
	case audio.EventStarted:
		p.state.VoiceStarted()
		p.ambient.FadeOut()
		p.maybePrepare(ctx, p.next)
		return true

	case audio.EventTimeUpdate:
		p.emit(Event{
			Kind:     EventTimeUpdate,
			Index:    i,
			Elapsed:  ev.Elapsed,
			Duration: ev.Duration,
		})
		return true

	case audio.EventEnded:
		p.state.VoiceEnded()
		p.emit(Event{
			Kind:     EventSectionEnded,
			Index:    i,
			Name:     p.sections[i].Name,
			Title:    p.sections[i].Title,
			Duration: ev.Duration,
		})

		if p.next >= len(p.sections) {
			p.logger.Info("episode complete", "sections", i+1)
			p.ambient.Stop()
			p.emit(Event{Kind: EventCompleted, Index: i})
			close(p.done)
			return false
		}

		if sec := p.state.TakePending(p.next); sec != nil {
			// The lookahead won the race: start with zero gap.
			if err := p.playNow(sec); err != nil {
				p.terminate(EventFailed, err)
				return false
			}
			return true
		}

		// Next section is still generating. Idle under the interlude
		// until the in-flight prepare resolves and plays directly.
		p.logger.Debug("idling for next section", "next", p.next)
		p.ambient.FadeIn()
		p.emit(Event{
			Kind:  EventPreparing,
			Index: p.next,
			Name:  p.sections[p.next].Name,
			Title: p.sections[p.next].Title,
		})
		return true

	default:
		return true
	}
}

// handlePrepared reduces one prepare-task result. Returns false when the
// loop must exit.
func (p *Pipeline) handlePrepared(ctx context.Context, res prepResult) bool {
	if p.state.Stopped() {
		// Cooperative stop: the result of an in-flight task is
		// discarded without any state mutation.
		return true
	}

	if res.err != nil {
		if errors.Is(res.err, ErrSectionComplete) {
			return p.handleSectionComplete(ctx, res.index)
		}
		p.terminate(EventFailed, res.err)
		return false
	}

	if p.state.VoiceActive() {
		// The current section is still playing: park the result in
		// the single-slot lookahead buffer.
		if err := p.state.Park(res.sec); err != nil {
			p.terminate(EventFailed, err)
			return false
		}
		p.logger.Debug("section parked in pending slot",
			"index", res.sec.Index, "duration", res.sec.Duration)
		return true
	}

	// The voice already ended: play immediately, bypassing the slot.
	if err := p.playNow(res.sec); err != nil {
		p.terminate(EventFailed, err)
		return false
	}
	return true
}

// handleSectionComplete reacts to the script service's natural-end signal:
// the remaining dynamic sections are dropped and preparation retargets the
// closing static section, so the episode still ends with the outro.
func (p *Pipeline) handleSectionComplete(ctx context.Context, index int) bool {
	closing := p.closingIndex()
	p.logger.Info("dynamic sections complete", "at", index, "closing", closing)

	if closing <= index || closing >= len(p.sections) {
		// No static closing section remains: the episode ends after
		// the current section.
		p.next = len(p.sections)
		if !p.state.VoiceActive() {
			p.ambient.Stop()
			p.emit(Event{Kind: EventCompleted, Index: p.state.CurrentIndex()})
			close(p.done)
			return false
		}
		return true
	}

	p.next = closing
	if !p.state.VoiceActive() && !p.state.HasPending() {
		// Already idling: the retargeted prepare will direct-play.
		p.emit(Event{
			Kind:  EventPreparing,
			Index: closing,
			Name:  p.sections[closing].Name,
			Title: p.sections[closing].Title,
		})
	}
	p.maybePrepare(ctx, closing)
	return true
}

// closingIndex returns the final section's index when it is static, or
// len(sections) when the layout has no static closer.
func (p *Pipeline) closingIndex() int {
	last := len(p.sections) - 1
	if p.sections[last].Static {
		return last
	}
	return len(p.sections)
}

// maybePrepare launches the background prepare task for the index, exactly
// once per index.
func (p *Pipeline) maybePrepare(ctx context.Context, index int) {
	if index >= len(p.sections) {
		return
	}
	if !p.state.ShouldPrepare(index) {
		return
	}
	p.state.MarkPreparing(index)

	section := p.sections[index]
	go func() {
		sec, err := p.prepare(ctx, section)
		select {
		case p.prepCh <- prepResult{index: index, sec: sec, err: err}:
		case <-p.done:
			// Run already ended; discard.
		}
	}()
}

// prepare produces one PreparedSection: script (local or fetched), then
// synthesis, then decode. Every network call carries the generation
// deadline.
func (p *Pipeline) prepare(ctx context.Context, d SectionDescriptor) (*PreparedSection, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	var text string
	if d.Static {
		text = StaticScript(d, p.cfg.UserName, p.now())
	} else {
		script, err := p.scripts.Script(ctx, d, p.cfg.ToneOfVoice)
		if err != nil {
			if errors.Is(err, ErrSectionComplete) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: section %q: %v", ErrScriptGeneration, d.Name, err)
		}
		text = script.Text
	}

	buf, err := p.speech.Synthesize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: section %q: %v", ErrSynthesis, d.Name, err)
	}

	p.logger.Debug("section prepared",
		"index", d.Index, "name", d.Name, "chars", len(text), "duration", buf.Duration)

	return &PreparedSection{
		Index:    d.Index,
		Name:     d.Name,
		Script:   text,
		Buffer:   buf,
		Duration: buf.Duration,
	}, nil
}

// playNow transfers a prepared section to the playback engine and emits the
// SectionStarted event with its caption timeline.
func (p *Pipeline) playNow(sec *PreparedSection) error {
	if err := p.state.BeginSection(sec.Index); err != nil {
		return err
	}
	p.next = sec.Index + 1

	tl := timeline.Build(sec.Script, sec.Duration)
	d := p.sections[sec.Index]
	p.emit(Event{
		Kind:     EventSectionStarted,
		Index:    sec.Index,
		Name:     d.Name,
		Title:    d.Title,
		Script:   sec.Script,
		Timeline: tl,
		Duration: sec.Duration,
	})

	if err := p.player.Play(sec.Buffer); err != nil {
		return fmt.Errorf("%w: section %q: %v", ErrPlayback, d.Name, err)
	}
	return nil
}

// terminate moves the run to a terminal state, halting playback and the
// interlude, and emits exactly one terminal event.
func (p *Pipeline) terminate(kind EventKind, err error) {
	p.state.Stop()
	p.player.Stop()
	p.ambient.Stop()
	if err != nil && kind == EventFailed {
		p.setErr(err)
		p.logger.Error("briefing aborted", "error", err)
	}
	p.emit(Event{Kind: kind, Index: p.state.CurrentIndex(), Err: err})
	close(p.done)
}

func (p *Pipeline) setErr(err error) {
	p.errMu.Lock()
	p.runErr = err
	p.errMu.Unlock()
}

// emit delivers an event to the consumer, dropping TimeUpdate when the
// consumer lags. Lifecycle events are never dropped.
func (p *Pipeline) emit(ev Event) {
	if ev.Kind == EventTimeUpdate {
		select {
		case p.events <- ev:
		default:
		}
		return
	}
	p.events <- ev
}
