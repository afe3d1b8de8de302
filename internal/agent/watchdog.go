package agent

import (
	"context"
	"sync"
	"time"
)

// NudgeFunc delivers a re-engagement prompt to the room.
type NudgeFunc func(ctx context.Context)

// SilenceWatchdog nudges a quiet student. It polls on a fixed interval; when
// the tutor's last utterance is older than the threshold and no student
// utterance has followed it, it fires exactly one nudge and disarms until
// the tutor speaks again.
type SilenceWatchdog struct {
	mu           sync.Mutex
	threshold    time.Duration
	interval     time.Duration
	nudge        NudgeFunc
	lastTutor    time.Time
	studentSpoke bool
	armed        bool
	now          func() time.Time
}

// NewSilenceWatchdog constructs a watchdog. It stays disarmed until the
// tutor first speaks.
func NewSilenceWatchdog(threshold, interval time.Duration, nudge NudgeFunc) *SilenceWatchdog {
	return &SilenceWatchdog{
		threshold: threshold,
		interval:  interval,
		nudge:     nudge,
		now:       time.Now,
	}
}

// OnTutorSpeech rearms the watchdog and restarts the silence clock.
func (w *SilenceWatchdog) OnTutorSpeech() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastTutor = w.now()
	w.studentSpoke = false
	w.armed = true
}

// OnStudentSpeech marks the silence as broken.
func (w *SilenceWatchdog) OnStudentSpeech() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.studentSpoke = true
}

// Run polls until the context is cancelled.
func (w *SilenceWatchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *SilenceWatchdog) check(ctx context.Context) {
	w.mu.Lock()
	fire := w.armed && !w.studentSpoke && !w.lastTutor.IsZero() &&
		w.now().Sub(w.lastTutor) > w.threshold
	if fire {
		w.armed = false
	}
	w.mu.Unlock()

	if fire && w.nudge != nil {
		w.nudge(ctx)
	}
}
