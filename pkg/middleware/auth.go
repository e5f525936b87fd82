package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushub/auth-service/internal/tokens"
)

// IdentityKey is the gin context key under which RequireAuth stores the
// verified *tokens.Payload.
const IdentityKey = "identity"

// TokenVerifier is the minimal interface the middleware depends on
type TokenVerifier interface {
	Verify(raw string) (*tokens.Payload, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns false when the header is absent or uses another scheme.
func BearerToken(c *gin.Context) (string, bool) {
	h := c.GetHeader("Authorization")
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAuth returns a Gin middleware that verifies app tokens and stores
// the payload under IdentityKey.
func RequireAuth(ver TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := BearerToken(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "authorization token required")
			return
		}
		p, err := ver.Verify(raw)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, tokens.ErrExpiredToken) {
				msg = "token expired"
			}
			abortJSON(c, http.StatusUnauthorized, msg)
			return
		}
		c.Set(IdentityKey, p)
		c.Next()
	}
}

// IdentityFrom returns the payload stored by RequireAuth.
func IdentityFrom(c *gin.Context) (*tokens.Payload, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*tokens.Payload)
	return p, ok && p != nil
}

func abortJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}
