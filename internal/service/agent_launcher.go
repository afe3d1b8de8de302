package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dos-platform/tutor-api/internal/agent"
	"github.com/dos-platform/tutor-api/pkg/jobs"
)

type agentSessionRunner interface {
	Run(ctx context.Context, sc agent.SessionContext) error
}

// AgentLauncher dispatches live agent sessions onto the background worker
// queue. Agent jobs are fire-and-forget: the room closes when the student
// leaves, so a failed session is logged rather than replayed.
type AgentLauncher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewAgentLauncher constructs the launcher and its backing queue. Call Start
// before accepting traffic and Stop on shutdown.
func NewAgentLauncher(runner agentSessionRunner, workers int, logger *zap.Logger) *AgentLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		sc, ok := job.Payload.(agent.SessionContext)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return runner.Run(ctx, sc)
	}

	queue := jobs.NewQueue("agent-sessions", handler, jobs.QueueConfig{
		Workers: workers,
		Logger:  logger,
	})
	return &AgentLauncher{queue: queue, logger: logger}
}

// Start begins consuming agent jobs.
func (l *AgentLauncher) Start(ctx context.Context) {
	l.queue.Start(ctx)
}

// Stop drains the workers.
func (l *AgentLauncher) Stop() {
	l.queue.Stop()
}

// Launch enqueues one agent session.
func (l *AgentLauncher) Launch(sc agent.SessionContext) error {
	return l.queue.Enqueue(jobs.Job{
		ID:      sc.SessionID,
		Type:    "agent_session",
		Payload: sc,
		NoRetry: true,
	})
}
