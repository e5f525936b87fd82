package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/campushub/auth-service/internal/models"
	"github.com/coreos/go-oidc/v3/oidc"
)

var (
	// ErrInvalidAssertion is returned when the provider rejects an assertion
	// (bad signature, wrong audience, expired) or it cannot be decoded.
	ErrInvalidAssertion = errors.New("invalid federated assertion")
	// ErrMissingEmail is returned for otherwise valid assertions without an email claim.
	ErrMissingEmail = errors.New("federated assertion has no email")
	// ErrProviderUnavailable is returned when provider discovery fails.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// IDToken is a minimal interface for token payloads that allows extracting claims
// It is satisfied by *oidc.IDToken and by test fakes.
type IDToken interface {
	Claims(v interface{}) error
}

// assertionClaims are the claims Firebase and Google put in their ID tokens.
type assertionClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// identityFromToken extracts a FederatedIdentity and enforces the email requirement.
func identityFromToken(tok IDToken) (*models.FederatedIdentity, error) {
	var c assertionClaims
	if err := tok.Claims(&c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidAssertion)
	}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	return &models.FederatedIdentity{
		Subject: c.Subject,
		Email:   email,
		Name:    strings.TrimSpace(c.Name),
		Picture: strings.TrimSpace(c.Picture),
	}, nil
}

// Verifier validates ID tokens against an OIDC issuer. Discovery happens on
// first use and is retried on later calls until it succeeds.
type Verifier struct {
	issuer   string
	clientID string

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a verifier for the given issuer and client ID (audience).
func NewVerifier(issuer, clientID string) *Verifier {
	return &Verifier{issuer: issuer, clientID: clientID}
}

// Ready attempts discovery and reports whether the provider is reachable.
func (v *Verifier) Ready(ctx context.Context) bool {
	_, err := v.idTokenVerifier(ctx)
	return err == nil
}

func (v *Verifier) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.verifier != nil {
		return v.verifier, nil
	}
	// the provider keeps ctx for background key refreshes; detach it from the request
	dctx := oidc.ClientContext(context.WithoutCancel(ctx), &http.Client{Timeout: 10 * time.Second})
	provider, err := oidc.NewProvider(dctx, v.issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to discover OIDC provider: %v", ErrProviderUnavailable, err)
	}
	v.verifier = provider.Verifier(&oidc.Config{ClientID: v.clientID})
	return v.verifier, nil
}

// Verify validates raw with the provider's published keys and returns the identity it asserts.
func (v *Verifier) Verify(ctx context.Context, raw string) (*models.FederatedIdentity, error) {
	ver, err := v.idTokenVerifier(ctx)
	if err != nil {
		return nil, err
	}
	idToken, err := ver.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	return identityFromToken(idToken)
}
