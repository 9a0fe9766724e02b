// Package briefing implements the spoken-episode playback pipeline: a fixed
// ordered list of sections whose scripts and speech are generated just in
// time, played gaplessly through a single voice channel with a one-section
// lookahead.
package briefing

import (
	"fmt"
	"time"

	"github.com/dltmdgh0611/ownbrief/internal/audio"
)

// Section names used by the default episode layout.
const (
	SectionIntro    = "intro"
	SectionCalendar = "calendar"
	SectionMail     = "mail"
	SectionWork     = "work"
	SectionTrend    = "trend"
	SectionOutro    = "outro"
)

// SectionDescriptor describes one episode section. The descriptor list is
// fixed at pipeline construction and never mutated. Static sections produce
// their script locally; all others require the script service.
type SectionDescriptor struct {
	Index  int
	Name   string
	Title  string
	Static bool
}

// PreparedSection is a section whose script and audio are ready to play.
// Ownership transfers from the preparing stage to the pending slot or the
// player; it is consumed exactly once.
type PreparedSection struct {
	Index    int
	Name     string
	Script   string
	Buffer   *audio.Buffer
	Duration time.Duration
}

// Script is the generated spoken text for a section plus optional structured
// side-data from the script service.
type Script struct {
	Text string
	Data map[string]any
}

// DefaultSections builds the standard episode layout: intro, calendar, mail,
// work, trendCount trend topics, outro.
func DefaultSections(trendCount int) []SectionDescriptor {
	if trendCount < 0 {
		trendCount = 0
	}
	sections := []SectionDescriptor{
		{Name: SectionIntro, Title: "Welcome", Static: true},
		{Name: SectionCalendar, Title: "Your calendar"},
		{Name: SectionMail, Title: "Inbox highlights"},
		{Name: SectionWork, Title: "Work updates"},
	}
	for i := 0; i < trendCount; i++ {
		sections = append(sections, SectionDescriptor{
			Name:  SectionTrend,
			Title: fmt.Sprintf("Trending topic %d", i+1),
		})
	}
	sections = append(sections, SectionDescriptor{
		Name: SectionOutro, Title: "Wrapping up", Static: true,
	})

	for i := range sections {
		sections[i].Index = i
	}
	return sections
}

// StaticScript produces the locally-generated text for a static section.
func StaticScript(d SectionDescriptor, userName string, now time.Time) string {
	name := userName
	if name == "" {
		name = "there"
	}
	switch d.Name {
	case SectionIntro:
		return fmt.Sprintf(
			"%s, %s. Here is your briefing for %s. Let's get you up to speed.",
			greeting(now), name, now.Format("Monday, January 2"),
		)
	case SectionOutro:
		return fmt.Sprintf(
			"That's everything for now, %s. Have a great %s.",
			name, dayPart(now),
		)
	default:
		return ""
	}
}

func greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 5:
		return "Hello"
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

func dayPart(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
