package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dos-platform/tutor-api/internal/middleware"
	"github.com/dos-platform/tutor-api/internal/models"
	"github.com/dos-platform/tutor-api/internal/service"
	appErrors "github.com/dos-platform/tutor-api/pkg/errors"
	"github.com/dos-platform/tutor-api/pkg/response"
)

type sessionServiceMock struct {
	createResp *service.CreateSessionResult
	createErr  error
	startErr   error
	endErr     error
	listResp   []models.SessionListItem
	detailResp *models.SessionDetail
	detailErr  error

	lastStudent string
	lastSession string
	lastReq     service.CreateSessionRequest
}

func (m *sessionServiceMock) Create(_ context.Context, studentID string, req service.CreateSessionRequest) (*service.CreateSessionResult, error) {
	m.lastStudent = studentID
	m.lastReq = req
	return m.createResp, m.createErr
}

func (m *sessionServiceMock) StartAgent(_ context.Context, sessionID, studentID string) error {
	m.lastSession = sessionID
	m.lastStudent = studentID
	return m.startErr
}

func (m *sessionServiceMock) End(_ context.Context, sessionID, studentID string) error {
	m.lastSession = sessionID
	m.lastStudent = studentID
	return m.endErr
}

func (m *sessionServiceMock) List(_ context.Context, studentID string, page, pageSize int) ([]models.SessionListItem, *models.Pagination, error) {
	m.lastStudent = studentID
	return m.listResp, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: len(m.listResp)}, nil
}

func (m *sessionServiceMock) Detail(_ context.Context, sessionID, studentID string) (*models.SessionDetail, error) {
	m.lastSession = sessionID
	m.lastStudent = studentID
	return m.detailResp, m.detailErr
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	c.Request = req
	c.Set(middleware.ContextProfileKey, "stu-1")
	return c, w
}

func TestSessionHandlerCreate(t *testing.T) {
	mockSvc := &sessionServiceMock{
		createResp: &service.CreateSessionResult{SessionID: "sess-1", RoomName: "dos-abc", ParticipantToken: "tok"},
	}
	h := NewSessionHandler(mockSvc, nil)

	c, w := testContext(t, http.MethodPost, "/sessions", []byte(`{"course_id":3,"topic_id":7}`))
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", mockSvc.lastStudent)
	assert.Equal(t, int64(3), mockSvc.lastReq.CourseID)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sess-1", data["session_id"])
}

func TestSessionHandlerCreateInvalidBody(t *testing.T) {
	h := NewSessionHandler(&sessionServiceMock{}, nil)
	c, w := testContext(t, http.MethodPost, "/sessions", []byte(`{"course_id":`))
	h.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionHandlerCreateQuotaDenied(t *testing.T) {
	mockSvc := &sessionServiceMock{
		createErr: appErrors.WithDetails(appErrors.ErrQuotaExceeded, &models.QuotaResult{Reason: models.QuotaReasonExhausted}),
	}
	h := NewSessionHandler(mockSvc, nil)

	c, w := testContext(t, http.MethodPost, "/sessions", []byte(`{"course_id":3,"topic_id":7}`))
	h.Create(c)

	require.Equal(t, http.StatusPaymentRequired, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "QUOTA_EXCEEDED", envelope.Error.Code)
	assert.NotNil(t, envelope.Error.Details)
}

func TestSessionHandlerEnd(t *testing.T) {
	mockSvc := &sessionServiceMock{}
	h := NewSessionHandler(mockSvc, nil)

	c, w := testContext(t, http.MethodPost, "/sessions/sess-1/end", nil)
	c.Params = gin.Params{{Key: "id", Value: "sess-1"}}
	h.End(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "sess-1", mockSvc.lastSession)
	assert.Equal(t, "stu-1", mockSvc.lastStudent)
}

func TestSessionHandlerDetailNotFound(t *testing.T) {
	mockSvc := &sessionServiceMock{detailErr: appErrors.ErrSessionNotFound}
	h := NewSessionHandler(mockSvc, nil)

	c, w := testContext(t, http.MethodGet, "/sessions/other", nil)
	c.Params = gin.Params{{Key: "id", Value: "other"}}
	h.Detail(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}
