package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dos-platform/tutor-api/internal/models"
	"github.com/dos-platform/tutor-api/pkg/realtime"
)

type retrievalEngine interface {
	Retrieve(ctx context.Context, query string, courseID, topicID int64, k int) ([]models.RetrievedChunk, error)
}

// SessionContext is everything the runner needs to drive one live session.
type SessionContext struct {
	SessionID        string
	RoomName         string
	AgentToken       string
	CourseID         int64
	TopicID          int64
	CourseName       string
	TopicName        string
	Persona          models.ResolvedPersona
	RepeatConcepts   []string
	RecommendedFocus []string
}

// Config tunes the runner's timing behaviour.
type Config struct {
	SilenceNudgeAfter time.Duration
	WatchdogInterval  time.Duration
}

// Runner drives the conversational turn pipeline for live sessions: it joins
// the room, keeps the tutor's instructions grounded in the latest student
// utterance, records the transcript and nudges silent students. One Run call
// per session; sessions share nothing but the database.
type Runner struct {
	rooms     realtime.Client
	retrieval retrievalEngine
	persist   PersistFunc
	cfg       Config
	logger    *zap.Logger
}

// NewRunner constructs a Runner.
func NewRunner(rooms realtime.Client, retrieval retrievalEngine, persist PersistFunc, cfg Config, logger *zap.Logger) *Runner {
	if cfg.SilenceNudgeAfter <= 0 {
		cfg.SilenceNudgeAfter = 25 * time.Second
	}
	if cfg.WatchdogInterval <= 0 {
		cfg.WatchdogInterval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{rooms: rooms, retrieval: retrieval, persist: persist, cfg: cfg, logger: logger}
}

// Run joins the room and processes events until the student leaves or the
// context is cancelled. The final transcript snapshot is flushed on the way
// out regardless of how the session ends.
func (r *Runner) Run(ctx context.Context, sc SessionContext) error {
	logger := r.logger.With(zap.String("session_id", sc.SessionID), zap.String("room", sc.RoomName))

	conn, err := r.rooms.Dial(ctx, sc.RoomName, sc.AgentToken)
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	defer conn.Close() //nolint:errcheck

	buffer := NewTranscriptBuffer(sc.SessionID, r.persist, logger)
	chatCtx := NewChatContext()
	chatCtx.SetSystem(BuildSystemPrompt(PromptInput{
		CourseName:       sc.CourseName,
		TopicName:        sc.TopicName,
		References:       NoMatchesFallback,
		Persona:          sc.Persona,
		RepeatConcepts:   sc.RepeatConcepts,
		RecommendedFocus: sc.RecommendedFocus,
	}))

	watchdog := NewSilenceWatchdog(r.cfg.SilenceNudgeAfter, r.cfg.WatchdogInterval, func(ctx context.Context) {
		if err := conn.Say(ctx, "Still with me? Take your time, or tell me what feels tricky and we'll work through it together."); err != nil {
			logger.Warn("silence nudge failed", zap.Error(err))
		}
	})
	watchdogCtx, cancelWatchdog := context.WithCancel(ctx)
	defer cancelWatchdog()
	go watchdog.Run(watchdogCtx)

	greeting := fmt.Sprintf("Hi! I'm your Director of Studies tutor for %s, topic %s. What would you like to focus on first?", sc.CourseName, sc.TopicName)
	if err := conn.Say(ctx, greeting); err != nil {
		logger.Warn("greeting failed", zap.Error(err))
	}

	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := buffer.Flush(flushCtx); err != nil {
			logger.Error("final transcript flush failed", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-conn.Events():
			if !ok {
				logger.Info("room event stream closed")
				return nil
			}
			switch ev.Type {
			case realtime.EventUtterance:
				r.handleUtterance(ctx, conn, chatCtx, buffer, watchdog, sc, ev, logger)
			case realtime.EventParticipantLeft:
				logger.Info("participant left, ending agent session")
				return nil
			}
		}
	}
}

func (r *Runner) handleUtterance(ctx context.Context, conn realtime.RoomConn, chatCtx *ChatContext, buffer *TranscriptBuffer, watchdog *SilenceWatchdog, sc SessionContext, ev realtime.Event, logger *zap.Logger) {
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now().UTC()
	}
	entry := buffer.Append(ctx, ev.Speaker, ev.Text, at)

	if payload, err := json.Marshal(entry); err == nil {
		if err := conn.PublishData(ctx, payload); err != nil {
			logger.Warn("utterance broadcast failed", zap.Error(err))
		}
	}

	if ev.Speaker != realtime.SpeakerStudent {
		chatCtx.Append(RoleAssistant, ev.Text)
		watchdog.OnTutorSpeech()
		return
	}

	chatCtx.Append(RoleUser, ev.Text)
	watchdog.OnStudentSpeech()

	chunks, err := r.retrieval.Retrieve(ctx, ev.Text, sc.CourseID, sc.TopicID, 0)
	if err != nil {
		logger.Warn("turn retrieval failed, using fallback references", zap.Error(err))
		chunks = nil
	}
	chatCtx.SetSystem(BuildSystemPrompt(PromptInput{
		CourseName:       sc.CourseName,
		TopicName:        sc.TopicName,
		References:       FormatReferences(chunks),
		Persona:          sc.Persona,
		RepeatConcepts:   sc.RepeatConcepts,
		RecommendedFocus: sc.RecommendedFocus,
	}))

	// The voice pipeline generates the actual tutor turn; it only needs the
	// refreshed instruction content.
	update := struct {
		Type     string    `json:"type"`
		Messages []Message `json:"messages"`
	}{Type: "instructions_updated", Messages: chatCtx.Messages()[:1]}
	if payload, err := json.Marshal(update); err == nil {
		if err := conn.PublishData(ctx, payload); err != nil {
			logger.Warn("instruction update publish failed", zap.Error(err))
		}
	}
}
