package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/dltmdgh0611/ownbrief/briefing/timeline"
)

func TestRenderCaptionShowsActiveParagraph(t *testing.T) {
	text := "First thought here. Second thought here.\n\nAnother paragraph entirely."
	tl := timeline.Build(text, 30*time.Second)

	early := RenderCaption(tl, time.Second, 80)
	if !strings.Contains(early, "First thought here.") {
		t.Errorf("early caption missing first paragraph: %q", early)
	}
	if strings.Contains(early, "Another paragraph") {
		t.Errorf("early caption leaked the next paragraph: %q", early)
	}

	late := RenderCaption(tl, 29*time.Second, 80)
	if !strings.Contains(late, "Another paragraph entirely.") {
		t.Errorf("late caption missing last paragraph: %q", late)
	}
}

func TestRenderCaptionWraps(t *testing.T) {
	text := "This is a deliberately long sentence that should certainly wrap at a narrow width."
	tl := timeline.Build(text, 10*time.Second)

	out := RenderCaption(tl, time.Second, 24)
	if !strings.Contains(out, "\n") {
		t.Errorf("caption did not wrap at width 24: %q", out)
	}
}

func TestRenderCaptionEmptyTimeline(t *testing.T) {
	tl := timeline.Build("", 5*time.Second)
	if out := RenderCaption(tl, time.Second, 40); strings.TrimSpace(out) != "" {
		t.Errorf("empty text rendered caption %q", out)
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{61 * time.Second, "1:01"},
		{10 * time.Minute, "10:00"},
		{-time.Second, "0:00"},
	}
	for _, tc := range cases {
		if got := formatClock(tc.d); got != tc.want {
			t.Errorf("formatClock(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
