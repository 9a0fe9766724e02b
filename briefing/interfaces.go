package briefing

import (
	"context"

	"github.com/dltmdgh0611/ownbrief/internal/audio"
)

// ScriptSource produces the spoken text for a non-static section. A source
// returns ErrSectionComplete (possibly wrapped) when the dynamic section
// list has no more content; any other error is fatal for the run.
type ScriptSource interface {
	Script(ctx context.Context, section SectionDescriptor, toneOfVoice string) (Script, error)
}

// Synthesizer turns text into a decoded, playable buffer with its measured
// duration.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*audio.Buffer, error)
}

// VoicePlayer is the clocked playback engine: a single active source, a
// lifecycle event stream, and pause/resume of the whole output clock.
type VoicePlayer interface {
	Play(buf *audio.Buffer) error
	Stop()
	Pause() error
	Resume() error
	Events() <-chan audio.Event
	Close() error
}

// Ambient is the interlude controller. When the interlude source is absent
// or failing it degrades to NopAmbient; its absence never aborts the run.
type Ambient interface {
	FadeIn()
	FadeOut()
	Stop()
}

// NopAmbient is the no-op interlude used when no ambient track is available.
type NopAmbient struct{}

// FadeIn implements Ambient.
func (NopAmbient) FadeIn() {}

// FadeOut implements Ambient.
func (NopAmbient) FadeOut() {}

// Stop implements Ambient.
func (NopAmbient) Stop() {}
