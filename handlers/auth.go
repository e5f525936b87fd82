package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/auth-service/internal/auth"
	"github.com/campushub/auth-service/internal/models"
	"github.com/campushub/auth-service/pkg/logger"
	"github.com/campushub/auth-service/pkg/middleware"
)

// AuthService is the slice of the authentication service the HTTP layer needs.
type AuthService interface {
	LoginWithCredentials(ctx context.Context, email, password string) (*auth.Result, error)
	AuthenticateWithFederatedIdentity(ctx context.Context, raw string) (*auth.Result, error)
	StoreTokenBySession(sessionID, raw string) error
	PollSession(ctx context.Context, sessionID string) (*auth.Result, error)
	GetUserByID(ctx context.Context, id int64) (*models.Profile, error)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// StoreSessionRequest is the body of POST /auth/google/store-session.
type StoreSessionRequest struct {
	SessionID string `json:"sessionId" binding:"required,max=256"`
}

// PollSessionQuery is the query of GET /auth/google/poll-session.
type PollSessionQuery struct {
	SessionID string `form:"sessionId" binding:"required,max=256"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	svc    AuthService
	tokens middleware.TokenVerifier
	dev    bool
}

func NewAuthHandler(svc AuthService, tv middleware.TokenVerifier, dev bool) *AuthHandler {
	return &AuthHandler{svc: svc, tokens: tv, dev: dev}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/google", h.Google)
	a.POST("/google/store-session", h.StoreSession)
	a.GET("/google/poll-session", h.PollSession)
	a.POST("/verify-firebase-token", h.VerifyFirebaseToken)

	protected := a.Group("", middleware.RequireAuth(h.tokens))
	protected.GET("/profile", h.Profile)
	protected.POST("/logout", h.Logout)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError(err))
		return
	}
	res, err := h.svc.LoginWithCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, res)
}

// Google exchanges a federated assertion from the Authorization header for an app token.
func (h *AuthHandler) Google(c *gin.Context) {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "federated token required"})
		return
	}
	res, err := h.svc.AuthenticateWithFederatedIdentity(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, res)
}

// StoreSession parks the caller's federated assertion for another device to poll.
func (h *AuthHandler) StoreSession(c *gin.Context) {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "federated token required"})
		return
	}
	var req StoreSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, validationError(err))
		return
	}
	if err := h.svc.StoreTokenBySession(req.SessionID, raw); err != nil {
		h.fail(c, err)
		return
	}
	respondMessage(c, "token stored")
}

// PollSession answers data:null until an assertion is stored, then exchanges it once.
func (h *AuthHandler) PollSession(c *gin.Context) {
	var q PollSessionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, validationError(err))
		return
	}
	res, err := h.svc.PollSession(c.Request.Context(), q.SessionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if res == nil {
		respondOK(c, nil)
		return
	}
	respondOK(c, res)
}

// VerifyFirebaseToken behaves like Google but reports every failure as 401.
func (h *AuthHandler) VerifyFirebaseToken(c *gin.Context) {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "federated token required"})
		return
	}
	res, err := h.svc.AuthenticateWithFederatedIdentity(c.Request.Context(), raw)
	if err != nil {
		logger.Warnf("request_id=%s federated token verification failed: %v", middleware.RequestIDFrom(c), err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "error verifying federated token"})
		return
	}
	respondOK(c, res)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "user not authenticated"})
		return
	}
	p, err := h.svc.GetUserByID(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	respondOK(c, p)
}

// Logout is stateless; clients discard their token.
func (h *AuthHandler) Logout(c *gin.Context) {
	respondMessage(c, "logout successful")
}

func (h *AuthHandler) fail(c *gin.Context, err error) {
	respondError(c, err, h.dev)
}
