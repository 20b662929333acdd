// Package models defines the domain records exchanged with the FetchCart
// backend and the payloads of the local HTTP surface.
package models

import (
	"errors"
	"time"
)

// AuthStatus is the tri-state authentication flag consulted by the route
// guards. "unknown" means the session verifier has not resolved yet and
// must never be treated as "unauthenticated".
type AuthStatus string

const (
	AuthStatusUnknown         AuthStatus = "unknown"
	AuthStatusAuthenticated   AuthStatus = "authenticated"
	AuthStatusUnauthenticated AuthStatus = "unauthenticated"
)

// Product is a server-produced offer belonging to exactly one search or
// comparison. The client only displays it and never mutates its fields.
type Product struct {
	ID            string  `json:"id"`
	SearchID      string  `json:"searchId,omitempty"`
	CompareID     string  `json:"compareId,omitempty"`
	ProductName   string  `json:"productName,omitempty"`
	Price         string  `json:"price,omitempty"`
	OriginalPrice string  `json:"originalPrice,omitempty"`
	Savings       string  `json:"savings,omitempty"`
	Image         string  `json:"image,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	Reviews       int     `json:"reviews,omitempty"`
	Store         string  `json:"store,omitempty"`
}

// Search is a server-produced search record appended to the user history.
type Search struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Query      string    `json:"query"`
	IsFavorite bool      `json:"isFavorite,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	Products   []Product `json:"products"`
}

// Compare is a server-produced comparison record appended to the user history.
type Compare struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Products  []Product `json:"products"`
}

// User is the identity record owned by the store. It is replaced wholesale
// on login/verify and cleared wholesale on logout.
type User struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Searches    []Search  `json:"searches,omitempty"`
	Comparisons []Compare `json:"comparisons,omitempty"`
}

// Token is the advisory copy of the session credential. The authoritative
// credential is the HTTP-only cookie held by the backend.
type Token struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}

// StateSnapshot is the durable record the store persists between runs. It is
// restored verbatim on process start, before the session verifier runs.
type StateSnapshot struct {
	User       *User      `json:"user"`
	Token      *Token     `json:"token"`
	AuthStatus AuthStatus `json:"isAuthenticated"`
}

// FormField is one input of a dynamically generated refinement form.
type FormField struct {
	Name     string   `json:"name"`
	Label    string   `json:"label,omitempty"`
	Type     string   `json:"type,omitempty"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// FormSchema describes the refinement form the backend generates for a query.
type FormSchema struct {
	Title  string      `json:"title,omitempty"`
	Fields []FormField `json:"fields"`
}

// UserData is the manual registration/login payload. Validation failures
// block submission before any network call is made.
type UserData struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupRequest struct {
	Type string    `json:"type" validate:"required,oneof=manual google"`
	User *UserData `json:"user" validate:"required"`
}

type SearchRequest struct {
	Query   string            `json:"query" validate:"required"`
	Filters map[string]string `json:"filters,omitempty"`
}

type CompareRequest struct {
	Queries []string `json:"queries" validate:"required,min=2,max=4"`
	UserID  string   `json:"userId"`
}

type VerifyResponse struct {
	User *User `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

type FormSchemaResponse struct {
	FormSchema *FormSchema `json:"formSchema"`
}

type SearchResponse struct {
	Search *Search `json:"search"`
}

type CompareResponse struct {
	Compare *Compare `json:"compare"`
}

// SessionResponse is the local surface's view of the current store state.
type SessionResponse struct {
	User       *User      `json:"user"`
	AuthStatus AuthStatus `json:"authStatus"`
}

// HistoryResponse carries the accumulated collections plus the product list
// flattened from the searches. The flattened list is recomputed from
// user.searches on every request, never stored separately.
type HistoryResponse struct {
	Searches    []Search  `json:"searches"`
	Comparisons []Compare `json:"comparisons"`
	Products    []Product `json:"products"`
}

// ErrNoSnapshot is returned by snapshot keepers when no durable record
// exists yet for the configured namespace.
var ErrNoSnapshot = errors.New("no state snapshot stored")
