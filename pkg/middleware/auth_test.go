package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/campushub/auth-service/internal/tokens"
)

func newIssuer(t *testing.T) *tokens.Issuer {
	t.Helper()
	iss, err := tokens.NewIssuer("middleware-test-secret", "campushub-test", time.Hour)
	require.NoError(t, err)
	return iss
}

func protectedEngine(ver TokenVerifier) *gin.Engine {
	g := gin.New()
	g.GET("/", RequireAuth(ver), func(c *gin.Context) {
		p, ok := IdentityFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, p)
	})
	return g
}

func TestRequireAuth_NoHeader(t *testing.T) {
	g := protectedEngine(newIssuer(t))
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusUnauthorized, rw.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "authorization token required", body["error"])
}

func TestRequireAuth_InvalidHeader(t *testing.T) {
	g := protectedEngine(newIssuer(t))
	for _, h := range []string{"BadHeader", "Basic dXNlcjpwYXNz", "Bearer ", "Bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", h)
		rw := httptest.NewRecorder()
		g.ServeHTTP(rw, req)
		require.Equal(t, http.StatusUnauthorized, rw.Code, h)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	iss := newIssuer(t)
	tok, err := iss.Issue(tokens.Payload{UserID: 12, Email: "a@campus.edu", Role: "student"})
	require.NoError(t, err)

	g := protectedEngine(iss)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusOK, rw.Code)
	var got tokens.Payload
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &got))
	require.Equal(t, int64(12), got.UserID)
	require.Equal(t, "a@campus.edu", got.Email)
}

func TestRequireAuth_ForeignToken(t *testing.T) {
	other, err := tokens.NewIssuer("someone-elses-secret", "x", time.Hour)
	require.NoError(t, err)
	tok, err := other.Issue(tokens.Payload{UserID: 1, Email: "e@x.io"})
	require.NoError(t, err)

	g := protectedEngine(newIssuer(t))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rw := httptest.NewRecorder()
	g.ServeHTTP(rw, req)

	require.Equal(t, http.StatusUnauthorized, rw.Code)
	require.Contains(t, rw.Body.String(), "invalid token")
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":    "abc",
		"bearer abc":    "abc",
		"Bearer  abc  ": "abc",
		"Token abc":     "",
		"":              "",
	}
	for header, want := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		got, ok := BearerToken(c)
		require.Equal(t, want, got, header)
		require.Equal(t, want != "", ok, header)
	}
}
