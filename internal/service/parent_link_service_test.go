package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dos-platform/tutor-api/internal/models"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
)

type fakeInviteRepo struct {
	codes  []models.ParentInviteCode
	links  []models.ParentStudentLink
	nextID int64

	loseBurnRace bool
}

func (f *fakeInviteRepo) CreateInviteCode(_ context.Context, studentID, codeHash string, expiresAt time.Time) (*models.ParentInviteCode, error) {
	f.nextID++
	code := models.ParentInviteCode{
		ID:        f.nextID,
		StudentID: studentID,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.codes = append(f.codes, code)
	return &code, nil
}

func (f *fakeInviteRepo) ActiveInviteCodes(_ context.Context, now time.Time) ([]models.ParentInviteCode, error) {
	var active []models.ParentInviteCode
	for _, c := range f.codes {
		if c.Usable(now) {
			active = append(active, c)
		}
	}
	return active, nil
}

func (f *fakeInviteRepo) MarkInviteUsed(_ context.Context, id int64, at time.Time) (int64, error) {
	if f.loseBurnRace {
		return 0, nil
	}
	for i := range f.codes {
		if f.codes[i].ID == id && f.codes[i].UsedAt == nil {
			f.codes[i].UsedAt = &at
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeInviteRepo) CreateLink(_ context.Context, parentID, studentID, relationship string) (*models.ParentStudentLink, error) {
	link := models.ParentStudentLink{ParentID: parentID, StudentID: studentID, Relationship: relationship}
	f.links = append(f.links, link)
	return &link, nil
}

type fakeConsentGranter struct {
	students map[string]*models.Student
	granted  []string
}

func (f *fakeConsentGranter) FindByID(_ context.Context, id string) (*models.Student, error) {
	student, ok := f.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return student, nil
}

func (f *fakeConsentGranter) GrantConsent(_ context.Context, studentID, parentID string, at time.Time) error {
	f.granted = append(f.granted, studentID)
	if s, ok := f.students[studentID]; ok {
		s.ConsentGrantedAt = &at
		s.ConsentGrantedBy = &parentID
	}
	return nil
}

func newParentLinkFixture(dob time.Time) (*ParentLinkService, *fakeInviteRepo, *fakeConsentGranter) {
	repo := &fakeInviteRepo{}
	students := &fakeConsentGranter{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", DateOfBirth: dob},
	}}
	return NewParentLinkService(repo, students, nil), repo, students
}

func TestGenerateInviteCodeShape(t *testing.T) {
	svc, repo, _ := newParentLinkFixture(time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC))

	invite, err := svc.GenerateInviteCode(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, invite.Code, 6)
	for _, r := range invite.Code {
		require.Contains(t, inviteCodeAlphabet, string(r))
	}
	require.WithinDuration(t, time.Now().Add(24*time.Hour), invite.ExpiresAt, time.Minute)

	// Only the hash hits storage, and it matches the returned plaintext.
	require.Len(t, repo.codes, 1)
	require.NotContains(t, repo.codes[0].CodeHash, invite.Code)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.codes[0].CodeHash), []byte(invite.Code)))
}

func TestGenerateInviteCodeUnknownStudent(t *testing.T) {
	svc, _, _ := newParentLinkFixture(time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC))
	_, err := svc.GenerateInviteCode(context.Background(), "nobody")
	requireAppError(t, err, appErrors.ErrNotFound)
}

func TestRedeemInviteCodeRoundtrip(t *testing.T) {
	svc, repo, _ := newParentLinkFixture(time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC))

	invite, err := svc.GenerateInviteCode(context.Background(), "stu-1")
	require.NoError(t, err)

	// Codes are case-insensitive and tolerate surrounding whitespace.
	studentID, err := svc.RedeemInviteCode(context.Background(), "par-1", "  "+strings.ToLower(invite.Code)+" ", "")
	require.NoError(t, err)
	require.Equal(t, "stu-1", studentID)

	require.Len(t, repo.links, 1)
	require.Equal(t, "par-1", repo.links[0].ParentID)
	require.Equal(t, "guardian", repo.links[0].Relationship)
	require.NotNil(t, repo.codes[0].UsedAt)
}

func TestRedeemInviteCodeGrantsConsentUnder13(t *testing.T) {
	svc, _, students := newParentLinkFixture(time.Now().AddDate(-10, 0, 0))

	invite, err := svc.GenerateInviteCode(context.Background(), "stu-1")
	require.NoError(t, err)

	_, err = svc.RedeemInviteCode(context.Background(), "par-1", invite.Code, "mother")
	require.NoError(t, err)
	require.Equal(t, []string{"stu-1"}, students.granted)
	require.NotNil(t, students.students["stu-1"].ConsentGrantedAt)
}

func TestRedeemInviteCodeNoConsentForOlderStudent(t *testing.T) {
	svc, _, students := newParentLinkFixture(time.Now().AddDate(-15, 0, 0))

	invite, err := svc.GenerateInviteCode(context.Background(), "stu-1")
	require.NoError(t, err)

	_, err = svc.RedeemInviteCode(context.Background(), "par-1", invite.Code, "father")
	require.NoError(t, err)
	require.Empty(t, students.granted)
}

func TestRedeemInviteCodeUnknown(t *testing.T) {
	svc, _, _ := newParentLinkFixture(time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC))
	_, err := svc.RedeemInviteCode(context.Background(), "par-1", "AAAAAA", "")
	requireAppError(t, err, appErrors.ErrInviteInvalid)
}

func TestRedeemInviteCodeEmptyInput(t *testing.T) {
	svc, _, _ := newParentLinkFixture(time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC))
	_, err := svc.RedeemInviteCode(context.Background(), "par-1", "   ", "")
	requireAppError(t, err, appErrors.ErrValidation)
}

func TestRedeemInviteCodeSingleUse(t *testing.T) {
	svc, _, _ := newParentLinkFixture(time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC))

	invite, err := svc.GenerateInviteCode(context.Background(), "stu-1")
	require.NoError(t, err)

	_, err = svc.RedeemInviteCode(context.Background(), "par-1", invite.Code, "")
	require.NoError(t, err)

	_, err = svc.RedeemInviteCode(context.Background(), "par-2", invite.Code, "")
	requireAppError(t, err, appErrors.ErrInviteInvalid)
}

func TestRedeemInviteCodeExpired(t *testing.T) {
	svc, _, _ := newParentLinkFixture(time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC))

	invite, err := svc.GenerateInviteCode(context.Background(), "stu-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = svc.RedeemInviteCode(context.Background(), "par-1", invite.Code, "")
	requireAppError(t, err, appErrors.ErrInviteInvalid)
}

// Two parents racing on one code: the second burn attempt updates zero rows
// and the redemption is rejected before any link is written.
func TestRedeemInviteCodeLostBurnRace(t *testing.T) {
	svc, repo, _ := newParentLinkFixture(time.Date(2008, 6, 1, 0, 0, 0, 0, time.UTC))

	invite, err := svc.GenerateInviteCode(context.Background(), "stu-1")
	require.NoError(t, err)

	repo.loseBurnRace = true
	_, err = svc.RedeemInviteCode(context.Background(), "par-1", invite.Code, "")
	requireAppError(t, err, appErrors.ErrInviteInvalid)
	require.Empty(t, repo.links)
}
