// Package timeline maps generated section text onto the measured duration of
// its synthesized audio, producing per-paragraph and per-sentence time windows
// for synchronized caption highlighting.
package timeline

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Sentence is a single spoken sentence with its playback time window.
type Sentence struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Paragraph groups the sentences of one text paragraph. Its window spans from
// the first sentence's start to the last sentence's end.
type Paragraph struct {
	Text      string
	Sentences []Sentence
	Start     time.Duration
	End       time.Duration
}

// Timeline is the derived caption table for one section. It is built once,
// after the real audio duration is known, and never recomputed.
type Timeline struct {
	Paragraphs []Paragraph
	Sentences  []Sentence
	Duration   time.Duration
}

var paragraphSplitRegex = regexp.MustCompile(`\n[ \t]*\n`)

// Build splits text into paragraphs and sentences and allocates the total
// duration across sentences proportionally to their character length.
// Sentence boundaries are terminal punctuation (. ? !) followed by
// whitespace, with the punctuation re-attached to its sentence.
func Build(text string, total time.Duration) Timeline {
	if total < 0 {
		total = 0
	}

	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return Timeline{
			Paragraphs: []Paragraph{{
				Text:  strings.TrimSpace(text),
				Start: 0,
				End:   total,
			}},
			Duration: total,
		}
	}

	type paraSentences struct {
		text      string
		sentences []string
	}
	split := make([]paraSentences, 0, len(paras))
	totalChars := 0
	for _, p := range paras {
		ss := splitSentences(p)
		for _, s := range ss {
			totalChars += len([]rune(s))
		}
		split = append(split, paraSentences{text: p, sentences: ss})
	}

	if totalChars == 0 {
		return Timeline{
			Paragraphs: []Paragraph{{
				Text:  strings.TrimSpace(text),
				Start: 0,
				End:   total,
			}},
			Duration: total,
		}
	}

	tl := Timeline{Duration: total}
	elapsed := time.Duration(0)
	for pi, p := range split {
		para := Paragraph{Text: p.text}
		for _, s := range p.sentences {
			share := float64(len([]rune(s))) / float64(totalChars)
			d := time.Duration(share * float64(total))
			sent := Sentence{Text: s, Start: elapsed, End: elapsed + d}
			elapsed += d
			para.Sentences = append(para.Sentences, sent)
			tl.Sentences = append(tl.Sentences, sent)
		}
		if len(para.Sentences) > 0 {
			para.Start = para.Sentences[0].Start
			para.End = para.Sentences[len(para.Sentences)-1].End
		}
		// The final paragraph absorbs rounding drift.
		if pi == len(split)-1 {
			para.End = total
			if n := len(tl.Sentences); n > 0 {
				tl.Sentences[n-1].End = total
				para.Sentences[len(para.Sentences)-1].End = total
			}
		}
		tl.Paragraphs = append(tl.Paragraphs, para)
	}
	return tl
}

// SentenceAt returns the index of the sentence covering the given elapsed
// time, or -1 when the timeline has no sentences. Times past the end clamp
// to the last sentence.
func (t Timeline) SentenceAt(elapsed time.Duration) int {
	if len(t.Sentences) == 0 {
		return -1
	}
	for i, s := range t.Sentences {
		if elapsed < s.End {
			return i
		}
	}
	return len(t.Sentences) - 1
}

// ParagraphAt returns the index of the paragraph covering the given elapsed
// time. A timeline always has at least one paragraph.
func (t Timeline) ParagraphAt(elapsed time.Duration) int {
	for i, p := range t.Paragraphs {
		if elapsed < p.End {
			return i
		}
	}
	return len(t.Paragraphs) - 1
}

func splitParagraphs(text string) []string {
	parts := paragraphSplitRegex.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences cuts a paragraph at terminal punctuation followed by
// whitespace. A trailing fragment without terminal punctuation is kept as a
// sentence of its own.
func splitSentences(paragraph string) []string {
	var sentences []string
	runes := []rune(paragraph)
	start := 0
	i := 0
	for i < len(runes) {
		if isTerminal(runes[i]) {
			// Consume a run of terminal punctuation (e.g. "?!").
			for i < len(runes) && isTerminal(runes[i]) {
				i++
			}
			if i >= len(runes) || unicode.IsSpace(runes[i]) {
				s := strings.TrimSpace(string(runes[start:i]))
				if s != "" {
					sentences = append(sentences, s)
				}
				for i < len(runes) && unicode.IsSpace(runes[i]) {
					i++
				}
				start = i
				continue
			}
		}
		i++
	}
	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
