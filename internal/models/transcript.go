package models

import (
	"fmt"
	"strings"
	"time"
)

// TranscriptEntry is one completed utterance from either side of the call.
type TranscriptEntry struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Line renders the entry in the flattened form stored alongside the JSON
// transcript and fed to the summarizer.
func (e TranscriptEntry) Line() string {
	return fmt.Sprintf("[%s] %s: %s", e.Timestamp.UTC().Format(time.RFC3339), e.Speaker, e.Text)
}

type Transcript struct {
	SessionID string            `json:"session_id"`
	Entries   []TranscriptEntry `json:"entries"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Flatten joins all entries into the plain-text rendition, one line per
// utterance.
func (t Transcript) Flatten() string {
	lines := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		lines = append(lines, e.Line())
	}
	return strings.Join(lines, "\n")
}
