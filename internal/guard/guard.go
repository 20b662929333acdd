// Package guard provides route-level predicates gating access based on the
// tri-state authentication status, plus HTTP middleware variants for the
// local surface.
package guard

import (
	"net/http"
	"net/url"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

// Decision is a guard verdict. An unresolved status never yields Allow or
// Redirect: it defers until the session verifier resolves.
type Decision int

const (
	DecisionDefer Decision = iota
	DecisionAllow
	DecisionRedirect
)

// Protected permits authenticated access, redirects unauthenticated
// visitors, and defers while the status is still unknown. Deferring is
// what prevents the flash-redirect to sign-in on every reload of a valid
// session.
func Protected(status models.AuthStatus) Decision {
	switch status {
	case models.AuthStatusAuthenticated:
		return DecisionAllow
	case models.AuthStatusUnauthenticated:
		return DecisionRedirect
	}

	return DecisionDefer
}

// PublicOnly permits anonymous access and redirects authenticated users to
// the landing route.
func PublicOnly(status models.AuthStatus) Decision {
	switch status {
	case models.AuthStatusAuthenticated:
		return DecisionRedirect
	case models.AuthStatusUnauthenticated:
		return DecisionAllow
	}

	return DecisionDefer
}

type authStatusReader interface {
	AuthStatus() models.AuthStatus
}

// Guard wires the pure predicates to the store and the redirect targets.
type Guard struct {
	store       authStatusReader
	signInPath  string
	landingPath string
}

func New(store authStatusReader, signInPath, landingPath string) *Guard {
	return &Guard{
		store:       store,
		signInPath:  signInPath,
		landingPath: landingPath,
	}
}

// RequireAuthenticated is the HTTP middleware form of Protected. The
// attempted location is captured in the `from` query parameter for an
// optional post-login redirect.
func (g *Guard) RequireAuthenticated(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		switch Protected(g.store.AuthStatus()) {
		case DecisionAllow:
			h.ServeHTTP(response, request)
		case DecisionRedirect:
			target := g.signInPath + "?from=" + url.QueryEscape(request.URL.RequestURI())
			http.Redirect(response, request, target, http.StatusFound)
		default:
			response.Header().Set("Retry-After", "1")
			http.Error(response, "session verification in progress", http.StatusServiceUnavailable)
		}
	}

	return http.HandlerFunc(middleware)
}

// RequireAnonymous is the HTTP middleware form of PublicOnly.
func (g *Guard) RequireAnonymous(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		switch PublicOnly(g.store.AuthStatus()) {
		case DecisionAllow:
			h.ServeHTTP(response, request)
		case DecisionRedirect:
			http.Redirect(response, request, g.landingPath, http.StatusFound)
		default:
			response.Header().Set("Retry-After", "1")
			http.Error(response, "session verification in progress", http.StatusServiceUnavailable)
		}
	}

	return http.HandlerFunc(middleware)
}
