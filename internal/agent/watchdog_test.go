package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSilenceWatchdogFiresOnceThenDisarms(t *testing.T) {
	nudges := 0
	w := NewSilenceWatchdog(20*time.Second, time.Second, func(context.Context) { nudges++ })

	current := time.Unix(1000, 0)
	w.now = func() time.Time { return current }

	// Disarmed until the tutor speaks.
	w.check(context.Background())
	require.Zero(t, nudges)

	w.OnTutorSpeech()
	current = current.Add(10 * time.Second)
	w.check(context.Background())
	require.Zero(t, nudges)

	current = current.Add(15 * time.Second)
	w.check(context.Background())
	require.Equal(t, 1, nudges)

	// Stays disarmed no matter how long the silence continues.
	current = current.Add(time.Minute)
	w.check(context.Background())
	w.check(context.Background())
	require.Equal(t, 1, nudges)

	// Tutor speaking rearms it.
	w.OnTutorSpeech()
	current = current.Add(30 * time.Second)
	w.check(context.Background())
	require.Equal(t, 2, nudges)
}

func TestSilenceWatchdogStudentSpeechSuppressesNudge(t *testing.T) {
	nudges := 0
	w := NewSilenceWatchdog(20*time.Second, time.Second, func(context.Context) { nudges++ })

	current := time.Unix(1000, 0)
	w.now = func() time.Time { return current }

	w.OnTutorSpeech()
	current = current.Add(10 * time.Second)
	w.OnStudentSpeech()
	current = current.Add(time.Minute)
	w.check(context.Background())
	require.Zero(t, nudges)
}
