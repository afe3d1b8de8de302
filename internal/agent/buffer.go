package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dos-platform/tutor-api/internal/models"
)

// PersistFunc writes a full transcript snapshot.
type PersistFunc func(ctx context.Context, sessionID string, entries []models.TranscriptEntry) error

// TranscriptBuffer accumulates completed utterances in temporal order and
// persists a full snapshot after every append. The lock covers the
// append-and-snapshot pair so concurrent utterance events from both speakers
// cannot interleave into a corrupted persisted transcript.
type TranscriptBuffer struct {
	mu        sync.Mutex
	sessionID string
	entries   []models.TranscriptEntry
	persist   PersistFunc
	logger    *zap.Logger
}

// NewTranscriptBuffer constructs a buffer for one session.
func NewTranscriptBuffer(sessionID string, persist PersistFunc, logger *zap.Logger) *TranscriptBuffer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TranscriptBuffer{sessionID: sessionID, persist: persist, logger: logger}
}

// Append records one utterance and persists the updated snapshot. A persist
// failure is logged and the in-memory entry kept; the next append or the
// final flush will retry the full snapshot.
func (b *TranscriptBuffer) Append(ctx context.Context, speaker, text string, at time.Time) models.TranscriptEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := models.TranscriptEntry{Speaker: speaker, Text: text, Timestamp: at}
	b.entries = append(b.entries, entry)

	if b.persist != nil {
		snapshot := make([]models.TranscriptEntry, len(b.entries))
		copy(snapshot, b.entries)
		if err := b.persist(ctx, b.sessionID, snapshot); err != nil {
			b.logger.Warn("transcript snapshot persist failed",
				zap.String("session_id", b.sessionID),
				zap.Error(err))
		}
	}
	return entry
}

// Entries returns a copy of the buffered transcript.
func (b *TranscriptBuffer) Entries() []models.TranscriptEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]models.TranscriptEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Flush persists the final snapshot. Called once on session teardown.
func (b *TranscriptBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.persist == nil {
		return nil
	}
	snapshot := make([]models.TranscriptEntry, len(b.entries))
	copy(snapshot, b.entries)
	return b.persist(ctx, b.sessionID, snapshot)
}
