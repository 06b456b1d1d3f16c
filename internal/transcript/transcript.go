// Package transcript parses WebVTT transcripts and answers time-range
// queries over their cues. Transcripts come in as sidecar .vtt files next
// to a video; the index feeds the suggestion prompt with the speech around
// an annotated range.
package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Cue is one timed caption line.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Parse reads a WebVTT document into its cues. Cue identifiers and NOTE
// blocks are skipped; styling tags are kept verbatim in the cue text.
// A malformed timing line fails the whole parse: a transcript with broken
// timestamps is worse than no transcript.
func Parse(r io.Reader) ([]Cue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	nextLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		lineNo++
		return strings.TrimPrefix(scanner.Text(), "\ufeff"), true
	}

	header, ok := nextLine()
	if !ok {
		return nil, fmt.Errorf("empty transcript")
	}
	if !strings.HasPrefix(header, "WEBVTT") {
		return nil, fmt.Errorf("line 1: missing WEBVTT header")
	}

	var cues []Cue
	for {
		line, ok := nextLine()
		if !ok {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// NOTE blocks run until the next blank line.
		if line == "NOTE" || strings.HasPrefix(line, "NOTE ") {
			for {
				l, ok := nextLine()
				if !ok || strings.TrimSpace(l) == "" {
					break
				}
			}
			continue
		}

		// A cue is an optional identifier line followed by the timing line.
		if !strings.Contains(line, "-->") {
			timing, ok := nextLine()
			if !ok {
				return nil, fmt.Errorf("line %d: cue %q has no timing line", lineNo, line)
			}
			line = strings.TrimSpace(timing)
		}

		start, end, err := parseTiming(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		var text []string
		for {
			l, ok := nextLine()
			if !ok || strings.TrimSpace(l) == "" {
				break
			}
			text = append(text, strings.TrimSpace(l))
		}
		cues = append(cues, Cue{Start: start, End: end, Text: strings.Join(text, " ")})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return cues, nil
}

// parseTiming splits "HH:MM:SS.mmm --> HH:MM:SS.mmm" (cue settings after the
// end timestamp are ignored).
func parseTiming(line string) (float64, float64, error) {
	left, right, found := strings.Cut(line, "-->")
	if !found {
		return 0, 0, fmt.Errorf("malformed timing line %q", line)
	}
	right = strings.TrimSpace(right)
	if i := strings.IndexByte(right, ' '); i >= 0 {
		right = right[:i]
	}

	start, err := parseTimestamp(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(right)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %q", line)
	}
	return start, end, nil
}

// parseTimestamp converts "HH:MM:SS.mmm" (or the short "MM:SS.mmm" form
// WebVTT allows) to seconds.
func parseTimestamp(ts string) (float64, error) {
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}

	var hours float64
	if len(parts) == 3 {
		h, err := strconv.ParseFloat(parts[0], 64)
		if err != nil || h < 0 {
			return 0, fmt.Errorf("malformed timestamp %q", ts)
		}
		hours = h
		parts = parts[1:]
	}
	minutes, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("malformed timestamp %q", ts)
	}
	return hours*3600 + minutes*60 + seconds, nil
}

// Index answers text queries over a parsed transcript. Cues keep the order
// they had in the file.
type Index struct {
	cues []Cue
}

func NewIndex(cues []Cue) *Index {
	return &Index{cues: cues}
}

// FullText joins every cue into one paragraph.
func (ix *Index) FullText() string {
	parts := make([]string, 0, len(ix.cues))
	for _, c := range ix.cues {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// TextIn joins the cues overlapping [start, end]. A cue counts as soon as
// any part of it falls inside the range.
func (ix *Index) TextIn(start, end float64) string {
	var parts []string
	for _, c := range ix.cues {
		if c.End < start || c.Start > end {
			continue
		}
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, " ")
}

// CueAt returns the cue covering t, or false when t falls in a gap.
func (ix *Index) CueAt(t float64) (Cue, bool) {
	for _, c := range ix.cues {
		if t >= c.Start && t <= c.End {
			return c, true
		}
	}
	return Cue{}, false
}

// Cues exposes the parsed cues in file order.
func (ix *Index) Cues() []Cue {
	return ix.cues
}
