package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dos-platform/tutor-api/internal/models"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
)

// Code alphabet omits easily confused characters (0/O, 1/I).
const inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	inviteCodeLength = 6
	inviteCodeTTL    = 24 * time.Hour
)

type inviteCodeRepository interface {
	CreateInviteCode(ctx context.Context, studentID, codeHash string, expiresAt time.Time) (*models.ParentInviteCode, error)
	ActiveInviteCodes(ctx context.Context, now time.Time) ([]models.ParentInviteCode, error)
	MarkInviteUsed(ctx context.Context, id int64, at time.Time) (int64, error)
	CreateLink(ctx context.Context, parentID, studentID, relationship string) (*models.ParentStudentLink, error)
}

type consentGranter interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	GrantConsent(ctx context.Context, studentID, parentID string, at time.Time) error
}

// InviteCode is a freshly generated code, shown to the student exactly once.
type InviteCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ParentLinkService issues invite codes and redeems them into parent-student
// links. Codes are stored only as bcrypt hashes, so a generated code can be
// displayed once and never recovered.
type ParentLinkService struct {
	links    inviteCodeRepository
	students consentGranter
	logger   *zap.Logger
	now      func() time.Time
}

// NewParentLinkService constructs a ParentLinkService.
func NewParentLinkService(links inviteCodeRepository, students consentGranter, logger *zap.Logger) *ParentLinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParentLinkService{links: links, students: students, logger: logger, now: time.Now}
}

// GenerateInviteCode mints a single-use code for the student to hand to a
// parent.
func (s *ParentLinkService) GenerateInviteCode(ctx context.Context, studentID string) (*InviteCode, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	code, err := generateInviteCode()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash code")
	}

	expiresAt := s.now().Add(inviteCodeTTL)
	if _, err := s.links.CreateInviteCode(ctx, studentID, string(hash), expiresAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store invite code")
	}
	return &InviteCode{Code: code, ExpiresAt: expiresAt}, nil
}

// RedeemInviteCode links the parent to the code's student, burns the code,
// and grants parental consent when the student is under 13. Returns the
// linked student's id.
func (s *ParentLinkService) RedeemInviteCode(ctx context.Context, parentID, code, relationship string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "invite code is required")
	}
	relationship = strings.TrimSpace(relationship)
	if relationship == "" {
		relationship = "guardian"
	}

	now := s.now()
	candidates, err := s.links.ActiveInviteCodes(ctx, now)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invite codes")
	}

	var matched *models.ParentInviteCode
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].CodeHash), []byte(code)) == nil {
			matched = &candidates[i]
			break
		}
	}
	if matched == nil {
		return "", appErrors.ErrInviteInvalid
	}

	// Burning the code first makes concurrent redemptions race on a single
	// row update; the loser sees zero rows.
	affected, err := s.links.MarkInviteUsed(ctx, matched.ID, now)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to burn invite code")
	}
	if affected == 0 {
		return "", appErrors.ErrInviteInvalid
	}

	if _, err := s.links.CreateLink(ctx, parentID, matched.StudentID, relationship); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create parent link")
	}

	student, err := s.students.FindByID(ctx, matched.StudentID)
	if err != nil {
		s.logger.Warn("consent check skipped, student lookup failed",
			zap.String("student_id", matched.StudentID), zap.Error(err))
		return matched.StudentID, nil
	}
	if student.AgeOn(now) < 13 && student.ConsentGrantedAt == nil {
		if err := s.students.GrantConsent(ctx, matched.StudentID, parentID, now); err != nil {
			s.logger.Error("consent grant failed",
				zap.String("student_id", matched.StudentID), zap.Error(err))
		}
	}

	return matched.StudentID, nil
}

func generateInviteCode() (string, error) {
	out := make([]byte, inviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}
