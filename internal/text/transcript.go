package text

import (
	"regexp"
	"strings"
)

// Meeting transcripts carry per-line noise that is useless in a search
// index: timestamps (1:02:33 or 12:05) and leading speaker labels.
var (
	timestampRe = regexp.MustCompile(`\d+:\d+:\d+|\d+:\d+`)
	speakerRe   = regexp.MustCompile(`(?m)^[A-Za-z][A-Za-z0-9\s]*:`)
	spaceRunsRe = regexp.MustCompile(`\s+`)
)

// CleanTranscript strips timestamps and speaker labels from a raw meeting
// transcript and collapses whitespace runs to single spaces.
func CleanTranscript(raw string) string {
	cleaned := timestampRe.ReplaceAllString(raw, "")
	cleaned = speakerRe.ReplaceAllString(cleaned, "")
	cleaned = spaceRunsRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// NormalizeSpace collapses all internal whitespace (tabs, newlines, runs of
// spaces) to single spaces and trims the ends. Equivalent to joining the
// fields of the string with single spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
