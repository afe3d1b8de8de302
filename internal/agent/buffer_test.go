package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dos-platform/tutor-api/internal/models"
)

func TestTranscriptBufferAppendPersistsSnapshot(t *testing.T) {
	var persisted [][]models.TranscriptEntry
	persist := func(_ context.Context, sessionID string, entries []models.TranscriptEntry) error {
		require.Equal(t, "sess-1", sessionID)
		persisted = append(persisted, entries)
		return nil
	}

	buffer := NewTranscriptBuffer("sess-1", persist, nil)
	now := time.Now()
	buffer.Append(context.Background(), "Student", "hello", now)
	buffer.Append(context.Background(), "TutorBot", "hi there", now.Add(time.Second))

	require.Len(t, persisted, 2)
	require.Len(t, persisted[0], 1)
	require.Len(t, persisted[1], 2)
	require.Equal(t, "hello", persisted[1][0].Text)
	require.Equal(t, "hi there", persisted[1][1].Text)
}

func TestTranscriptBufferConcurrentAppends(t *testing.T) {
	var mu sync.Mutex
	var last []models.TranscriptEntry
	persist := func(_ context.Context, _ string, entries []models.TranscriptEntry) error {
		mu.Lock()
		defer mu.Unlock()
		// Every snapshot must extend the previous one; a shorter or equal
		// snapshot would mean a lost write.
		if len(entries) <= len(last) {
			return errors.New("snapshot regressed")
		}
		last = entries
		return nil
	}

	buffer := NewTranscriptBuffer("sess-1", persist, nil)

	const perSpeaker = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < perSpeaker; i++ {
			buffer.Append(context.Background(), "Student", "s", time.Now())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < perSpeaker; i++ {
			buffer.Append(context.Background(), "TutorBot", "t", time.Now())
		}
	}()
	wg.Wait()

	entries := buffer.Entries()
	require.Len(t, entries, 2*perSpeaker)
	mu.Lock()
	require.Len(t, last, 2*perSpeaker)
	mu.Unlock()
}

func TestTranscriptBufferKeepsEntriesOnPersistFailure(t *testing.T) {
	calls := 0
	persist := func(_ context.Context, _ string, entries []models.TranscriptEntry) error {
		calls++
		if calls == 1 {
			return errors.New("database unavailable")
		}
		return nil
	}

	buffer := NewTranscriptBuffer("sess-1", persist, nil)
	buffer.Append(context.Background(), "Student", "hello", time.Now())
	require.Len(t, buffer.Entries(), 1)

	require.NoError(t, buffer.Flush(context.Background()))
	require.Equal(t, 2, calls)
}
