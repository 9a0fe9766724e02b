package briefing

import (
	"time"

	"github.com/dltmdgh0611/ownbrief/briefing/timeline"
)

// EventKind identifies a pipeline event.
type EventKind int

const (
	// EventSectionStarted fires when a section's audio begins playing.
	// It carries the script text and caption timeline for that section.
	EventSectionStarted EventKind = iota
	// EventTimeUpdate carries the playback clock for caption sync.
	EventTimeUpdate
	// EventSectionEnded fires when a section plays to its natural end.
	EventSectionEnded
	// EventPreparing fires when playback idles because the next section
	// is still being generated; the interlude masks the gap.
	EventPreparing
	// EventCompleted fires once after the final section ends.
	EventCompleted
	// EventStopped fires once after an explicit Stop.
	EventStopped
	// EventFailed fires once with the fatal error that aborted the run.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventSectionStarted:
		return "section_started"
	case EventTimeUpdate:
		return "time_update"
	case EventSectionEnded:
		return "section_ended"
	case EventPreparing:
		return "preparing"
	case EventCompleted:
		return "completed"
	case EventStopped:
		return "stopped"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one pipeline notification. The populated fields depend on Kind.
// The script text on EventSectionStarted is the surrounding application's
// hook for appending to a durable transcript; the pipeline itself persists
// nothing.
type Event struct {
	Kind     EventKind
	Index    int
	Name     string
	Title    string
	Script   string
	Timeline timeline.Timeline
	Elapsed  time.Duration
	Duration time.Duration
	Err      error
}
