package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"city-spots/internal/catalog"
	"city-spots/internal/domain"
	"city-spots/internal/service"
)

const testSiteURL = "http://localhost:3000"

type memUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *memUserRepo) Create(_ context.Context, user domain.User) error {
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.usersByID[id], nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.PasswordHash = passwordHash
	user.RecoveryTokenHash = ""
	user.RecoveryExpiresAt = nil
	m.usersByID[id] = user
	return nil
}

func (m *memUserRepo) SetRecoveryToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.RecoveryTokenHash = tokenHash
	user.RecoveryExpiresAt = &expiresAt
	m.usersByID[id] = user
	return nil
}

func (m *memUserRepo) ClearRecoveryToken(_ context.Context, id string) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.RecoveryTokenHash = ""
	user.RecoveryExpiresAt = nil
	m.usersByID[id] = user
	return nil
}

func (m *memUserRepo) SetConfirmToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.ConfirmTokenHash = tokenHash
	user.ConfirmExpiresAt = &expiresAt
	m.usersByID[id] = user
	return nil
}

func (m *memUserRepo) VerifyEmail(_ context.Context, id string, verifiedAt time.Time) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.EmailVerifiedAt = &verifiedAt
	user.ConfirmTokenHash = ""
	user.ConfirmExpiresAt = nil
	m.usersByID[id] = user
	return nil
}

type memAttendanceRepo struct {
	records map[string]domain.AttendanceRecord
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{records: make(map[string]domain.AttendanceRecord)}
}

func (m *memAttendanceRepo) GetByUserID(_ context.Context, userID string) (domain.AttendanceRecord, error) {
	rec, ok := m.records[userID]
	if !ok {
		return domain.AttendanceRecord{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (m *memAttendanceRepo) Upsert(_ context.Context, record domain.AttendanceRecord) error {
	m.records[record.UserID] = record
	return nil
}

type captureSender struct {
	lastConfirmURL string
	lastResetURL   string
}

func (s *captureSender) SendPasswordReset(_ context.Context, _ string, resetURL string) error {
	s.lastResetURL = resetURL
	return nil
}

func (s *captureSender) SendEmailConfirmation(_ context.Context, _ string, confirmURL string) error {
	s.lastConfirmURL = confirmURL
	return nil
}

const testCatalogJSON = `[
	{"id": "loc-1", "name": "Point State Park", "category": "Park", "region": "Downtown",
	 "neighborhood": "Downtown", "coordinates": {"lat": 40.4417, "lng": -80.0088}},
	{"id": "loc-2", "name": "Phipps Conservatory", "category": "Museum", "region": "East End",
	 "neighborhood": "Oakland", "coordinates": {"lat": 40.4394, "lng": -79.948}},
	{"id": "loc-3", "name": "Frick Park", "category": "Park", "region": "East End",
	 "neighborhood": "Squirrel Hill", "coordinates": {"lat": 40.4347, "lng": -79.9024}}
]`

type testEnv struct {
	router *gin.Engine
	sender *captureSender
	users  *memUserRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	users := newMemUserRepo()
	sender := &captureSender{}

	cat, err := catalog.Parse([]byte(testCatalogJSON))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}

	jwtSvc := service.NewJWTService("test-secret", 15*time.Minute, time.Hour)
	userSvc := service.NewUserService(logger, users, sender, service.NewResetRateLimiter(time.Minute, 100), testSiteURL)
	attendanceSvc := service.NewAttendanceService(logger, newMemAttendanceRepo())

	authH := NewAuthHandler(logger, userSvc, jwtSvc, testSiteURL)
	locationH := NewLocationHandler(logger, cat)
	attendanceH := NewAttendanceHandler(logger, attendanceSvc)

	return &testEnv{
		router: NewRouter(logger, jwtSvc, authH, locationH, attendanceH),
		sender: sender,
		users:  users,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) signupAndLogin(t *testing.T, email, password string) domain.Session {
	t.Helper()
	if w := e.do(t, http.MethodPost, "/auth/signup", gin.H{"email": email, "password": password}, nil); w.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	w := e.do(t, http.MethodPost, "/auth/login", gin.H{"email": email, "password": password}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Session domain.Session `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Session
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t)

	session := env.signupAndLogin(t, "user@example.com", "secret1")
	if session.AccessToken == "" || session.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", session)
	}
	if session.User.Email != "user@example.com" {
		t.Fatalf("unexpected session user: %+v", session.User)
	}
	if env.sender.lastConfirmURL == "" {
		t.Fatalf("expected confirmation email link")
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/signup", gin.H{"email": "not-an-email", "password": "secret1"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/auth/signup", gin.H{"email": "user@example.com", "password": "short"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", w.Code)
	}

	env.signupAndLogin(t, "user@example.com", "secret1")
	w = env.do(t, http.MethodPost, "/auth/signup", gin.H{"email": "user@example.com", "password": "secret1"}, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "user@example.com", "secret1")

	w := env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "user@example.com", "password": "wrong"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "missing@example.com", "password": "secret1"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown email, got %d", w.Code)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	env := newTestEnv(t)
	session := env.signupAndLogin(t, "user@example.com", "secret1")

	w := env.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": session.RefreshToken}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Session domain.Session `json:"session"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if resp.Session.RefreshToken == session.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}
	if resp.Session.User.ID != session.User.ID {
		t.Fatalf("expected same user, got %+v", resp.Session.User)
	}

	// El refresh token viejo quedo revocado.
	w = env.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": session.RefreshToken}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on reused refresh token, got %d", w.Code)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	session := env.signupAndLogin(t, "user@example.com", "secret1")

	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodPost, "/auth/logout", gin.H{"refresh_token": session.RefreshToken}, nil)
		if w.Code != http.StatusNoContent {
			t.Fatalf("logout attempt %d: expected 204, got %d", i+1, w.Code)
		}
	}

	w := env.do(t, http.MethodPost, "/auth/logout", gin.H{}, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without token, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/auth/refresh", gin.H{"refresh_token": session.RefreshToken}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.signupAndLogin(t, "user@example.com", "secret1")

	w := env.do(t, http.MethodGet, "/auth/session", nil, bearer(session.AccessToken))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		User domain.SessionUser `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if resp.User.Email != "user@example.com" {
		t.Fatalf("unexpected session user: %+v", resp.User)
	}

	w = env.do(t, http.MethodGet, "/auth/session", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/auth/session", nil, bearer("garbage"))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}
}

func TestResetPasswordAlwaysSucceedsForUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/reset-password", gin.H{"email": "nobody@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown email, got %d: %s", w.Code, w.Body.String())
	}
	if env.sender.lastResetURL != "" {
		t.Fatalf("expected no reset email sent")
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "user@example.com", "secret1")

	w := env.do(t, http.MethodPost, "/auth/reset-password", gin.H{"email": "user@example.com"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset request: expected 200, got %d", w.Code)
	}

	parsed, err := url.Parse(env.sender.lastResetURL)
	if err != nil {
		t.Fatalf("parse reset link: %v", err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		t.Fatalf("expected token in reset link %s", env.sender.lastResetURL)
	}

	w = env.do(t, http.MethodPost, "/auth/update-password", gin.H{
		"token":            token,
		"password":         "newsecret",
		"confirm_password": "newsecret",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("update password: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "user@example.com", "password": "newsecret"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "user@example.com", "password": "secret1"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login with old password: expected 401, got %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/auth/update-password", gin.H{
		"token":            token,
		"password":         "another1",
		"confirm_password": "another1",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("reused token: expected 401, got %d", w.Code)
	}
}

func TestUpdatePasswordMismatch(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "user@example.com", "secret1")
	env.do(t, http.MethodPost, "/auth/reset-password", gin.H{"email": "user@example.com"}, nil)

	parsed, _ := url.Parse(env.sender.lastResetURL)
	token := parsed.Query().Get("token")

	w := env.do(t, http.MethodPost, "/auth/update-password", gin.H{
		"token":            token,
		"password":         "newsecret",
		"confirm_password": "different",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatch, got %d", w.Code)
	}
}

func TestConfirmRedirects(t *testing.T) {
	env := newTestEnv(t)
	env.signupAndLogin(t, "user@example.com", "secret1")

	parsed, err := url.Parse(env.sender.lastConfirmURL)
	if err != nil {
		t.Fatalf("parse confirm link: %v", err)
	}
	token := parsed.Query().Get("token_hash")
	if token == "" {
		t.Fatalf("expected token_hash in confirm link %s", env.sender.lastConfirmURL)
	}

	path := fmt.Sprintf("/auth/confirm?token_hash=%s&type=signup", url.QueryEscape(token))
	w := env.do(t, http.MethodGet, path, nil, nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != testSiteURL+"/" {
		t.Fatalf("expected redirect to site root, got %s", loc)
	}

	id := env.users.usersByEmail["user@example.com"]
	if env.users.usersByID[id].EmailVerifiedAt == nil {
		t.Fatalf("expected email marked verified")
	}

	// El reuso y los enlaces malformados redirigen a la pagina de error.
	for _, bad := range []string{
		path,
		"/auth/confirm?token_hash=garbage&type=signup",
		"/auth/confirm?type=signup",
		fmt.Sprintf("/auth/confirm?token_hash=%s&type=recovery", url.QueryEscape(token)),
	} {
		w = env.do(t, http.MethodGet, bad, nil, nil)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected 303, got %d", bad, w.Code)
		}
		loc := w.Header().Get("Location")
		if !strings.HasPrefix(loc, testSiteURL+"/error?") {
			t.Fatalf("%s: expected error redirect, got %s", bad, loc)
		}
	}
}
