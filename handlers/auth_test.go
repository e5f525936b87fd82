package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campushub/auth-service/internal/auth"
	"github.com/campushub/auth-service/internal/crypto"
	"github.com/campushub/auth-service/internal/models"
	"github.com/campushub/auth-service/internal/oidc"
	"github.com/campushub/auth-service/internal/sessions"
	"github.com/campushub/auth-service/internal/tokens"
	"github.com/campushub/auth-service/internal/users"
	"github.com/campushub/auth-service/pkg/middleware"
)

// countingRepo records directory lookups by email.
type countingRepo struct {
	*users.MemoryRepository
	lookups int32
}

func (r *countingRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	atomic.AddInt32(&r.lookups, 1)
	return r.MemoryRepository.GetByEmail(ctx, email)
}

type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, raw string) (*models.FederatedIdentity, error) {
	switch raw {
	case "tok1":
		return &models.FederatedIdentity{Subject: "g-1", Email: "maria@campus.edu", Name: "Maria"}, nil
	case "noemail":
		return nil, oidc.ErrMissingEmail
	case "down":
		return nil, oidc.ErrProviderUnavailable
	}
	return nil, oidc.ErrInvalidAssertion
}

type envelope struct {
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data"`
	Message       string          `json:"message"`
	Error         string          `json:"error"`
	Details       []FieldError    `json:"details"`
	OriginalError string          `json:"originalError"`
}

type testServer struct {
	router *gin.Engine
	repo   *countingRepo
	issuer *tokens.Issuer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &countingRepo{MemoryRepository: users.NewMemoryRepository()}
	issuer, err := tokens.NewIssuer("handlers-test-secret", "campushub-test", time.Hour)
	require.NoError(t, err)
	svc := auth.NewService(
		users.NewService(repo, bcrypt.MinCost, "https://avatars.test/?name="),
		fakeVerifier{},
		issuer,
		sessions.NewMemoryStore(time.Minute),
	)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.SecureHeaders())
	NewAuthHandler(svc, issuer, false).Register(r.Group("/api"))
	r.NoRoute(NotFound)
	return &testServer{router: r, repo: repo, issuer: issuer}
}

func (s *testServer) seedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := crypto.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Email: email, Username: "ana", PasswordHash: hash,
		Role: models.RoleStudent, Status: models.StatusActive, Active: true,
	}
	require.NoError(t, s.repo.Create(context.Background(), u))
	return u
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decodeResult(t *testing.T, raw json.RawMessage) auth.Result {
	t.Helper()
	var res auth.Result
	require.NoError(t, json.Unmarshal(raw, &res))
	return res
}

func TestLogin_Success(t *testing.T) {
	s := newTestServer(t)
	s.seedUser(t, "ana@campus.edu", "secret123")

	w, env := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@campus.edu", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	require.NotContains(t, w.Body.String(), "password")
	require.Equal(t, "true", w.Header().Get("ngrok-skip-browser-warning"))

	res := decodeResult(t, env.Data)
	require.Equal(t, "ana@campus.edu", res.User.Email)
	p, err := s.issuer.Verify(res.Token)
	require.NoError(t, err)
	require.Equal(t, "ana@campus.edu", p.Email)
}

func TestLogin_ShortPasswordRejectedBeforeLookup(t *testing.T) {
	s := newTestServer(t)

	for _, pw := range []string{"abc", "short"} {
		w, env := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "x@example.com", "password": pw})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.False(t, env.Success)
		require.Equal(t, "invalid request data", env.Error)
		require.Contains(t, env.Details, FieldError{Field: "password", Message: "must be at least 6 characters"})
	}
	require.Equal(t, int32(0), atomic.LoadInt32(&s.repo.lookups))
}

func TestLogin_ValidationDetails(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.ElementsMatch(t, []FieldError{
		{Field: "email", Message: "must be a valid email"},
		{Field: "password", Message: "is required"},
	}, env.Details)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", "{not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Empty(t, env.Details)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)
	u := s.seedUser(t, "ana@campus.edu", "secret123")

	w, env := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@campus.edu", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid credentials", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ghost@campus.edu", "password": "secret123"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid credentials", env.Error)

	require.NoError(t, s.repo.SetStatus(u.ID, models.StatusSuspended, true))
	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@campus.edu", "password": "secret123"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "user inactive or suspended", env.Error)
}

func TestGoogle(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/google", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "federated token required", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/auth/google", "tok1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, env.Data)
	require.Equal(t, "g-1", res.User.GoogleID)
	require.Equal(t, "Maria", res.User.Username)

	w, env = s.do(t, http.MethodPost, "/api/auth/google", "forged", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "invalid federated token", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/auth/google", "noemail", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "federated token has no email", env.Error)

	w, _ = s.do(t, http.MethodPost, "/api/auth/google", "down", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSessionHandoff(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/api/auth/google/poll-session?sessionId=abc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)
	require.Equal(t, "null", string(env.Data))

	w, env = s.do(t, http.MethodPost, "/api/auth/google/store-session", "tok1", gin.H{"sessionId": "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	w, env = s.do(t, http.MethodGet, "/api/auth/google/poll-session?sessionId=abc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeResult(t, env.Data)
	require.Equal(t, "maria@campus.edu", res.User.Email)
	require.NotEmpty(t, res.Token)

	w, env = s.do(t, http.MethodGet, "/api/auth/google/poll-session?sessionId=abc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "null", string(env.Data))
}

func TestSessionHandoff_RejectedAssertionIsConsumed(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/google/store-session", "forged", gin.H{"sessionId": "s1"})
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/auth/google/poll-session?sessionId=s1", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, env.Success)

	w, env = s.do(t, http.MethodGet, "/api/auth/google/poll-session?sessionId=s1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "null", string(env.Data))
}

func TestSessionHandoff_Validation(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/google/store-session", "", gin.H{"sessionId": "abc"})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/auth/google/store-session", "tok1", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, env.Details, FieldError{Field: "sessionId", Message: "is required"})

	w, _ = s.do(t, http.MethodGet, "/api/auth/google/poll-session", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyFirebaseToken(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/api/auth/verify-firebase-token", "tok1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "maria@campus.edu", decodeResult(t, env.Data).User.Email)

	for _, tok := range []string{"forged", "down", "noemail"} {
		w, env = s.do(t, http.MethodPost, "/api/auth/verify-firebase-token", tok, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, tok)
		require.Equal(t, "error verifying federated token", env.Error)
	}
}

func TestProfileAndLogout(t *testing.T) {
	s := newTestServer(t)
	u := s.seedUser(t, "ana@campus.edu", "secret123")

	w, _ := s.do(t, http.MethodGet, "/api/auth/profile", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/auth/profile", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := s.issuer.Issue(tokens.Payload{UserID: u.ID, Email: u.Email, Role: "student"})
	require.NoError(t, err)
	w, env := s.do(t, http.MethodGet, "/api/auth/profile", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.Profile
	require.NoError(t, json.Unmarshal(env.Data, &p))
	require.Equal(t, u.ID, p.ID)
	require.Equal(t, models.StatusActive, p.Status)
	require.False(t, p.RegistrationDate.IsZero())
	require.NotContains(t, string(env.Data), "password")

	ghost, err := s.issuer.Issue(tokens.Payload{UserID: 404, Email: "ghost@campus.edu"})
	require.NoError(t, err)
	w, env = s.do(t, http.MethodGet, "/api/auth/profile", ghost, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "user not found", env.Error)

	w, env = s.do(t, http.MethodPost, "/api/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, env.Success)

	w, _ = s.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/api/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.False(t, env.Success)
}

// brokenService fails every call with an unclassified error.
type brokenService struct{ AuthService }

func (brokenService) LoginWithCredentials(ctx context.Context, email, password string) (*auth.Result, error) {
	return nil, errors.New("boom")
}

func TestInternalErrorDetailOnlyInDevelopment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer, err := tokens.NewIssuer("x", "x", time.Hour)
	require.NoError(t, err)

	for _, dev := range []bool{true, false} {
		r := gin.New()
		NewAuthHandler(brokenService{}, issuer, dev).Register(r.Group("/api"))
		body := bytes.NewBufferString(`{"email":"a@b.co","password":"secret123"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusInternalServerError, w.Code)
		var env envelope
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		require.Equal(t, "internal server error", env.Error)
		if dev {
			assert.Equal(t, "boom", env.OriginalError)
		} else {
			assert.Empty(t, env.OriginalError)
		}
	}
}
