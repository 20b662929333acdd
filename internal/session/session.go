// Package session confirms that the ambient backend credentials still
// denote a valid session, and hydrates or clears the store accordingly.
package session

import (
	"context"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fetchcart/internal/logger"
	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

type sessionClient interface {
	VerifySession(ctx context.Context) (*models.User, error)
}

type verifierStore interface {
	SetUser(user *models.User)
	SetAuthStatus(status models.AuthStatus)
	Token() *models.Token
	Epoch() uint64
}

// Verifier performs the one verification call of a mount. It fires exactly
// once per instance, never retries on failure, and blocks concurrent
// callers until the first call resolves.
type Verifier struct {
	client sessionClient
	store  verifierStore
	once   sync.Once
	done   chan struct{}
}

func New(client sessionClient, store verifierStore) *Verifier {
	return &Verifier{
		client: client,
		store:  store,
		done:   make(chan struct{}),
	}
}

// Verify resolves the session status. On success the returned identity
// replaces the stored user and the status becomes authenticated. On any
// failure the status becomes unauthenticated and the stale identity is
// kept in memory (guards key off the status, not the identity).
//
// A result arriving after the store's epoch moved (logout happened while
// the call was in flight) is discarded.
func (v *Verifier) Verify(ctx context.Context) {
	v.once.Do(func() {
		defer close(v.done)

		epoch := v.store.Epoch()

		user, err := v.client.VerifySession(ctx)
		if err != nil {
			logger.Log.Debugln("Error calling the `v.client.VerifySession()`: ", zap.Error(err))
			v.logAdvisoryHint()
			if v.store.Epoch() == epoch {
				v.store.SetAuthStatus(models.AuthStatusUnauthenticated)
			}
			return
		}

		if v.store.Epoch() != epoch {
			logger.Log.Debugln("discarding verification result: store epoch moved while in flight")
			return
		}

		v.store.SetUser(user)
		v.store.SetAuthStatus(models.AuthStatusAuthenticated)
	})

	<-v.done
}

// Resolved reports whether the verification call has completed. Guard
// decisions are only final once this returns true.
func (v *Verifier) Resolved() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// Done exposes the resolution barrier.
func (v *Verifier) Done() <-chan struct{} {
	return v.done
}

func (v *Verifier) logAdvisoryHint() {
	token := v.store.Token()
	if token == nil {
		return
	}

	claims, err := ParseAdvisoryClaims(token.Token)
	if err != nil || claims.ExpiresAt == nil {
		return
	}

	logger.Log.Debugln("advisory session token expiry:", claims.ExpiresAt.Time)
}

// AdvisoryClaims is the claim set of the advisory session token copy. The
// authoritative credential is the backend's HTTP-only cookie; these claims
// are parsed without signature verification and used for log hints only,
// never for authorization.
type AdvisoryClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// ParseAdvisoryClaims decodes the advisory token's claims without
// verifying its signature.
func ParseAdvisoryClaims(tokenString string) (*AdvisoryClaims, error) {
	claims := &AdvisoryClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, err
	}

	return claims, nil
}
