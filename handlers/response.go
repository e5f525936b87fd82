package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/campushub/auth-service/internal/auth"
	"github.com/campushub/auth-service/internal/oidc"
	"github.com/campushub/auth-service/internal/tokens"
	"github.com/campushub/auth-service/internal/users"
	"github.com/campushub/auth-service/pkg/logger"
	"github.com/campushub/auth-service/pkg/middleware"
)

func init() {
	// report json field names in validation details
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	}
}

// FieldError describes one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errValidation wraps request binding failures.
type errValidation struct {
	err error
}

func (e *errValidation) Error() string { return e.err.Error() }
func (e *errValidation) Unwrap() error { return e.err }

func validationError(err error) error { return &errValidation{err: err} }

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// respondError maps err onto a status code and the failure envelope.
// Unclassified errors are logged and reported as 500; dev adds the cause.
func respondError(c *gin.Context, err error, dev bool) {
	status, msg := classify(err)
	body := gin.H{"success": false, "error": msg}

	var verr *errValidation
	if errors.As(err, &verr) {
		if details := fieldErrors(verr.err); len(details) > 0 {
			body["details"] = details
		}
	}

	if status == http.StatusInternalServerError {
		logger.Errorf("request_id=%s %s %s: %v", middleware.RequestIDFrom(c), c.Request.Method, c.FullPath(), err)
		if dev {
			body["originalError"] = err.Error()
		}
	} else if status == http.StatusServiceUnavailable {
		logger.Warnf("request_id=%s dependency unavailable: %v", middleware.RequestIDFrom(c), err)
	}
	c.AbortWithStatusJSON(status, body)
}

func classify(err error) (int, string) {
	var verr *errValidation
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "invalid request data"
	case errors.Is(err, auth.ErrSessionIDRequired):
		return http.StatusBadRequest, "session id required"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrUserInactive):
		return http.StatusUnauthorized, "user inactive or suspended"
	case errors.Is(err, oidc.ErrMissingEmail):
		return http.StatusUnauthorized, "federated token has no email"
	case errors.Is(err, oidc.ErrInvalidAssertion):
		return http.StatusUnauthorized, "invalid federated token"
	case errors.Is(err, tokens.ErrExpiredToken):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, tokens.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, users.ErrNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, users.ErrEmailTaken):
		return http.StatusConflict, "a user with that email already exists"
	case errors.Is(err, users.ErrUnavailable), errors.Is(err, oidc.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "dependency unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func fieldErrors(err error) []FieldError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return nil
	}
	out := make([]FieldError, 0, len(ves))
	for _, fe := range ves {
		out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// NotFound answers unknown routes with the failure envelope.
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "route not found"})
}
