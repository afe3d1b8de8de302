package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dos-platform/tutor-api/internal/agent"
	"github.com/dos-platform/tutor-api/internal/models"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
	"github.com/dos-platform/tutor-api/pkg/poll"
)

type sessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context, studentID string, page, pageSize int) ([]models.SessionListItem, int, error)
	MarkLive(ctx context.Context, id string, at time.Time) (int64, error)
	MarkEnded(ctx context.Context, id string, at time.Time) (int, error)
	MarkSummarized(ctx context.Context, id string) error
	MinutesSince(ctx context.Context, studentID string, cutoff time.Time) (int, error)
}

type courseReader interface {
	FindCourse(ctx context.Context, id int64) (*models.Course, error)
	FindTopic(ctx context.Context, courseID, topicID int64) (*models.Topic, error)
}

type profileReader interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type enrolmentReader interface {
	FindMatching(ctx context.Context, studentID string, subjectID int64, examBoardID *int64) (*models.EnrolmentDetail, error)
}

type restrictionReader interface {
	ListForStudent(ctx context.Context, studentID string) ([]models.Restriction, error)
}

type quotaLedger interface {
	Check(ctx context.Context, studentID string) (*models.QuotaResult, error)
	Consume(ctx context.Context, studentID string, minutes int) error
}

type transcriptReader interface {
	Find(ctx context.Context, sessionID string) (*models.Transcript, error)
	FindText(ctx context.Context, sessionID string) (string, error)
}

type summaryStore interface {
	Upsert(ctx context.Context, summary *models.SessionSummary) error
	Find(ctx context.Context, sessionID string) (*models.SessionSummary, error)
}

type progressStore interface {
	CreateSnapshot(ctx context.Context, snapshot *models.ProgressSnapshot) error
	CreateRepeatFlags(ctx context.Context, flags []models.RepeatFlag) error
	ActiveRepeatFlags(ctx context.Context, studentID string, enrolmentID int64) ([]models.RepeatFlag, error)
	LatestSnapshot(ctx context.Context, studentID string, enrolmentID int64) (*models.ProgressSnapshot, error)
}

type personaReader interface {
	FindConfigured(ctx context.Context, studentID string, enrolmentID int64) (*models.TutorPersona, error)
}

type insightGenerator interface {
	Summarize(ctx context.Context, transcriptText string) *models.SessionSummary
	AnalyzeProgress(ctx context.Context, transcriptText string) *ProgressAnalysis
}

type agentLauncher interface {
	Launch(sc agent.SessionContext) error
}

type roomProvisioner interface {
	EnsureRoom(ctx context.Context, name string) error
	ParticipantToken(room, identity string) (string, error)
	AgentToken(room, identity string) (string, error)
}

// CreateSessionRequest describes session creation.
type CreateSessionRequest struct {
	CourseID int64 `json:"course_id" validate:"required,gt=0"`
	TopicID  int64 `json:"topic_id" validate:"required,gt=0"`
}

// CreateSessionResult is what a successful creation hands back to the client.
type CreateSessionResult struct {
	SessionID        string `json:"session_id"`
	RoomName         string `json:"room_name"`
	ParticipantToken string `json:"participant_token"`
}

// SessionService owns the session lifecycle: gated creation, agent handoff
// and the end-of-session pipeline.
type SessionService struct {
	sessions     sessionRepository
	courses      courseReader
	profiles     profileReader
	students     studentReader
	enrolments   enrolmentReader
	restrictions restrictionReader
	quota        quotaLedger
	transcripts  transcriptReader
	summaries    summaryStore
	progress     progressStore
	personas     personaReader
	insights     insightGenerator
	rooms        roomProvisioner
	launcher     agentLauncher

	transcriptPoll poll.Policy
	validator      *validator.Validate
	logger         *zap.Logger
	now            func() time.Time
}

// SessionServiceDeps bundles the constructor arguments.
type SessionServiceDeps struct {
	Sessions     sessionRepository
	Courses      courseReader
	Profiles     profileReader
	Students     studentReader
	Enrolments   enrolmentReader
	Restrictions restrictionReader
	Quota        quotaLedger
	Transcripts  transcriptReader
	Summaries    summaryStore
	Progress     progressStore
	Personas     personaReader
	Insights     insightGenerator
	Rooms        roomProvisioner
	Launcher     agentLauncher

	TranscriptPoll poll.Policy
	Validator      *validator.Validate
	Logger         *zap.Logger
}

// NewSessionService constructs a SessionService.
func NewSessionService(deps SessionServiceDeps) *SessionService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.TranscriptPoll.MaxAttempts <= 0 {
		deps.TranscriptPoll = poll.DefaultPolicy()
	}
	return &SessionService{
		sessions:       deps.Sessions,
		courses:        deps.Courses,
		profiles:       deps.Profiles,
		students:       deps.Students,
		enrolments:     deps.Enrolments,
		restrictions:   deps.Restrictions,
		quota:          deps.Quota,
		transcripts:    deps.Transcripts,
		summaries:      deps.Summaries,
		progress:       deps.Progress,
		personas:       deps.Personas,
		insights:       deps.Insights,
		rooms:          deps.Rooms,
		launcher:       deps.Launcher,
		transcriptPoll: deps.TranscriptPoll,
		validator:      deps.Validator,
		logger:         deps.Logger,
		now:            time.Now,
	}
}

// Create runs the full gate sequence and inserts a pending session. The
// gates run in a fixed order and the first failure's reason is the one the
// caller sees.
func (s *SessionService) Create(ctx context.Context, studentID string, req CreateSessionRequest) (*CreateSessionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	course, _, err := s.resolveCourseTopic(ctx, req.CourseID, req.TopicID)
	if err != nil {
		return nil, err
	}

	if err := s.checkRestrictions(ctx, studentID); err != nil {
		return nil, err
	}

	quotaRes, err := s.quota.Check(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !quotaRes.Allowed {
		return nil, appErrors.WithDetails(appErrors.ErrQuotaExceeded, quotaRes)
	}

	profile, err := s.profiles.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	if profile.TermsAcceptedAt == nil {
		return nil, appErrors.ErrTermsNotAccepted
	}
	if profile.Deleted() {
		return nil, appErrors.ErrAccountDeleted
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.NeedsConsent(s.now()) {
		return nil, appErrors.ErrConsentRequired
	}

	var enrolmentID *int64
	if course.SubjectID != nil {
		enrolment, err := s.enrolments.FindMatching(ctx, studentID, *course.SubjectID, course.ExamBoardID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.ErrNotEnrolled
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve enrolment")
		}
		enrolmentID = &enrolment.ID
	}

	sessionID := uuid.NewString()
	roomName := "dos-" + uuid.NewString()

	// Room creation happens outside the insert transaction and cannot be
	// rolled back; EnsureRoom is idempotent and verifies presence.
	if err := s.rooms.EnsureRoom(ctx, roomName); err != nil {
		s.logger.Error("room provisioning failed", zap.String("room", roomName), zap.Error(err))
		return nil, appErrors.ErrRoomProvision
	}
	token, err := s.rooms.ParticipantToken(roomName, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRoomProvision.Code, appErrors.ErrRoomProvision.Status, "failed to mint join token")
	}

	session := &models.Session{
		ID:               sessionID,
		StudentID:        studentID,
		EnrolmentID:      enrolmentID,
		CourseID:         req.CourseID,
		TopicID:          req.TopicID,
		RoomName:         roomName,
		ParticipantToken: &token,
		Status:           models.SessionPending,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}

	s.logger.Info("session created",
		zap.String("session_id", sessionID),
		zap.String("student_id", studentID),
		zap.Int64("course_id", req.CourseID),
		zap.Int64("topic_id", req.TopicID))

	return &CreateSessionResult{SessionID: sessionID, RoomName: roomName, ParticipantToken: token}, nil
}

func (s *SessionService) resolveCourseTopic(ctx context.Context, courseID, topicID int64) (*models.Course, *models.Topic, error) {
	course, err := s.courses.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrInvalidCourseTopic
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	topic, err := s.courses.FindTopic(ctx, courseID, topicID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrInvalidCourseTopic
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load topic")
	}
	return course, topic, nil
}

func (s *SessionService) checkRestrictions(ctx context.Context, studentID string) error {
	restrictions, err := s.restrictions.ListForStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load restrictions")
	}
	if len(restrictions) == 0 {
		return nil
	}

	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := now.Add(-7 * 24 * time.Hour)

	daily, err := s.sessions.MinutesSince(ctx, studentID, dayStart)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum daily minutes")
	}
	weekly, err := s.sessions.MinutesSince(ctx, studentID, weekStart)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum weekly minutes")
	}

	for _, restriction := range restrictions {
		if restriction.MaxDailyMinutes != nil && daily >= *restriction.MaxDailyMinutes {
			return appErrors.ErrDailyLimitReached
		}
		if restriction.MaxWeeklyMinutes != nil && weekly >= *restriction.MaxWeeklyMinutes {
			return appErrors.ErrWeeklyLimitReached
		}
		if restriction.BlockedAt(now) {
			return appErrors.ErrTimeBlocked
		}
	}
	return nil
}

// StartAgent resolves the tutor persona and coaching context, hands the
// session to the agent runner asynchronously, and flips the session to live.
func (s *SessionService) StartAgent(ctx context.Context, sessionID, studentID string) error {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return err
	}

	course, topic, err := s.resolveCourseTopic(ctx, session.CourseID, session.TopicID)
	if err != nil {
		return err
	}

	persona := models.DefaultPersona()
	var repeatConcepts, focus []string
	if session.EnrolmentID != nil {
		enrolmentID := *session.EnrolmentID

		if stored, err := s.personas.FindConfigured(ctx, studentID, enrolmentID); err != nil {
			s.logger.Warn("persona lookup failed, using defaults", zap.String("session_id", sessionID), zap.Error(err))
		} else if stored != nil {
			persona = stored.Resolve()
		}

		flags, err := s.progress.ActiveRepeatFlags(ctx, studentID, enrolmentID)
		if err != nil {
			s.logger.Warn("repeat flag lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		for _, flag := range flags {
			repeatConcepts = append(repeatConcepts, flag.Concept)
		}

		snapshot, err := s.progress.LatestSnapshot(ctx, studentID, enrolmentID)
		if err != nil {
			s.logger.Warn("progress snapshot lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		} else if snapshot != nil {
			focus = snapshot.RecommendedFocus
		}
	}

	agentToken, err := s.rooms.AgentToken(session.RoomName, "tutor-agent")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRoomProvision.Code, appErrors.ErrRoomProvision.Status, "failed to mint agent token")
	}

	sc := agent.SessionContext{
		SessionID:        session.ID,
		RoomName:         session.RoomName,
		AgentToken:       agentToken,
		CourseID:         session.CourseID,
		TopicID:          session.TopicID,
		CourseName:       course.Name,
		TopicName:        topic.Name,
		Persona:          persona,
		RepeatConcepts:   repeatConcepts,
		RecommendedFocus: focus,
	}
	if err := s.launcher.Launch(sc); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to launch agent")
	}

	if _, err := s.sessions.MarkLive(ctx, sessionID, s.now()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark session live")
	}
	return nil
}

// End finalizes a session: marks it ended, waits briefly for the transcript,
// generates summary and progress concurrently, persists both, marks it
// summarized and consumes quota. Each side-effect group commits
// independently; a later failure is logged and never rolls back an earlier
// one.
func (s *SessionService) End(ctx context.Context, sessionID, studentID string) error {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return err
	}

	durationSeconds, err := s.sessions.MarkEnded(ctx, sessionID, s.now())
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark session ended")
	}
	if durationSeconds < 0 {
		// Already past live; duration was fixed by the transition that won.
		durationSeconds = session.DurationSeconds
	}

	transcriptText := s.awaitTranscript(ctx, sessionID)

	summary, analysis := s.generateInsights(ctx, transcriptText)
	summary.SessionID = sessionID

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		s.logger.Error("summary upsert failed", zap.String("session_id", sessionID), zap.Error(err))
	} else if err := s.sessions.MarkSummarized(ctx, sessionID); err != nil {
		s.logger.Error("failed to mark session summarized", zap.String("session_id", sessionID), zap.Error(err))
	}

	if session.EnrolmentID != nil {
		s.recordProgress(ctx, session, analysis)
	}

	minutes := (durationSeconds + 59) / 60
	if err := s.quota.Consume(ctx, studentID, minutes); err != nil {
		s.logger.Error("quota consumption failed", zap.String("session_id", sessionID), zap.Int("minutes", minutes), zap.Error(err))
	}

	s.logger.Info("session ended",
		zap.String("session_id", sessionID),
		zap.Int("duration_seconds", durationSeconds),
		zap.Int("minutes_consumed", minutes))
	return nil
}

// awaitTranscript polls for non-empty transcript text within the configured
// attempt budget, then gives up and returns whatever it has. Transcript
// persistence races the end request; an empty transcript is acceptable.
func (s *SessionService) awaitTranscript(ctx context.Context, sessionID string) string {
	var text string
	err := s.transcriptPoll.Until(ctx, func(ctx context.Context) (bool, error) {
		found, err := s.transcripts.FindText(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		if strings.TrimSpace(found) == "" {
			return false, nil
		}
		text = found
		return true, nil
	})
	if err != nil {
		s.logger.Warn("transcript poll failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return text
}

func (s *SessionService) generateInsights(ctx context.Context, transcriptText string) (*models.SessionSummary, *ProgressAnalysis) {
	var (
		wg       sync.WaitGroup
		summary  *models.SessionSummary
		analysis *ProgressAnalysis
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		summary = s.insights.Summarize(ctx, transcriptText)
	}()
	go func() {
		defer wg.Done()
		analysis = s.insights.AnalyzeProgress(ctx, transcriptText)
	}()
	wg.Wait()
	return summary, analysis
}

func (s *SessionService) recordProgress(ctx context.Context, session *models.Session, analysis *ProgressAnalysis) {
	topicID := session.TopicID
	snapshot := &models.ProgressSnapshot{
		StudentID:        session.StudentID,
		EnrolmentID:      *session.EnrolmentID,
		TopicID:          &topicID,
		ConfidenceScore:  models.ClampScore(analysis.ConfidenceScore),
		AreasOfStrength:  analysis.Strengths,
		AreasToImprove:   analysis.Improvements,
		RecommendedFocus: analysis.Focus,
	}
	if err := s.progress.CreateSnapshot(ctx, snapshot); err != nil {
		s.logger.Error("progress snapshot insert failed", zap.String("session_id", session.ID), zap.Error(err))
	}

	flags := make([]models.RepeatFlag, 0, len(analysis.Repeat))
	for _, rec := range analysis.Repeat {
		flags = append(flags, models.RepeatFlag{
			StudentID:   session.StudentID,
			EnrolmentID: *session.EnrolmentID,
			TopicID:     &topicID,
			Concept:     rec.Concept,
			Reason:      rec.Reason,
			Priority:    models.NormalizePriority(rec.Priority),
			Status:      models.FlagActive,
			Source:      models.FlagSourceSessionAnalysis,
		})
	}
	if err := s.progress.CreateRepeatFlags(ctx, flags); err != nil {
		s.logger.Error("repeat flag insert failed", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// List returns the student's session history.
func (s *SessionService) List(ctx context.Context, studentID string, page, pageSize int) ([]models.SessionListItem, *models.Pagination, error) {
	items, total, err := s.sessions.List(ctx, studentID, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return items, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Detail returns a session with its transcript and summary when present.
func (s *SessionService) Detail(ctx context.Context, sessionID, studentID string) (*models.SessionDetail, error) {
	session, err := s.ownedSession(ctx, sessionID, studentID)
	if err != nil {
		return nil, err
	}

	course, topic, err := s.resolveCourseTopic(ctx, session.CourseID, session.TopicID)
	if err != nil {
		return nil, err
	}

	detail := &models.SessionDetail{Session: *session, CourseName: course.Name, TopicName: topic.Name}

	if summary, err := s.summaries.Find(ctx, sessionID); err == nil {
		detail.Summary = summary
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("summary lookup failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if transcript, err := s.transcripts.Find(ctx, sessionID); err == nil {
		detail.Transcript = transcript
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("transcript lookup failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	return detail, nil
}

func (s *SessionService) ownedSession(ctx context.Context, sessionID, studentID string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.StudentID != studentID {
		return nil, appErrors.ErrSessionNotFound
	}
	return session, nil
}
