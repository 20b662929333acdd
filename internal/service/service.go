// Package service orchestrates the storefront flows: authentication,
// search, comparison and history. Validation failures block submission
// before any network call is made; server-produced records are folded into
// the store only after their call resolves.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	validator "github.com/go-playground/validator/v10"
	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

type backendClient interface {
	Login(ctx context.Context, request models.LoginRequest) (*models.MessageResponse, error)
	CreateUser(ctx context.Context, request models.SignupRequest) (*models.MessageResponse, error)
	Logout(ctx context.Context) error
	VerifyEmail(ctx context.Context, userID, token string) (string, error)
	GenerateForm(ctx context.Context, query string) (*models.FormSchema, error)
	CreateSearch(ctx context.Context, request models.SearchRequest) (*models.Search, error)
	CompareProducts(ctx context.Context, request models.CompareRequest) (*models.Compare, error)
}

type sessionStore interface {
	SetUser(user *models.User)
	SetAuthStatus(status models.AuthStatus)
	Logout()
	AddSearchWithProducts(search models.Search)
	AddCompareWithProducts(compare models.Compare)
	User() *models.User
	Epoch() uint64
	Searches() []models.Search
	Comparisons() []models.Compare
	FlatProducts() []models.Product
}

var ErrEmptyQuery = errors.New("search query must not be empty")

var ErrEmptyCompareQuery = errors.New("all product fields must be filled before comparing")

var ErrInvalidProductURL = errors.New("product query contains an invalid URL")

var ErrMissingRequiredFilter = errors.New("required filter is missing")

var ErrNotSignedIn = errors.New("no signed-in user")

var ErrInvalidVerificationLink = errors.New("invalid verification link")

type Service struct {
	api      backendClient
	store    sessionStore
	validate *validator.Validate

	// schemas memoizes generated form schemas per query so search
	// submission can enforce required filters without a second
	// generate-form round trip.
	schemasMu sync.Mutex
	schemas   map[string]*models.FormSchema
}

func New(api backendClient, store sessionStore) *Service {
	return &Service{
		api:      api,
		store:    store,
		validate: validator.New(),
		schemas:  map[string]*models.FormSchema{},
	}
}

// SignIn validates the credentials client-side, performs the login call
// and, when the backend returns an identity, hydrates the store.
func (s *Service) SignIn(ctx context.Context, request models.LoginRequest) (*models.MessageResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	response, err := s.api.Login(ctx, request)
	if err != nil {
		return nil, err
	}

	if response.User != nil {
		s.store.SetUser(response.User)
		s.store.SetAuthStatus(models.AuthStatusAuthenticated)
	}

	return response, nil
}

// SignUp validates the registration payload client-side and performs the
// registration call. The account stays unauthenticated until the email is
// verified, so the store is not touched.
func (s *Service) SignUp(ctx context.Context, request models.SignupRequest) (*models.MessageResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	return s.api.CreateUser(ctx, request)
}

// Logout invalidates the backend session first and resets the store only
// when that call succeeded, so a failed logout leaves the session usable.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.api.Logout(ctx); err != nil {
		return err
	}

	s.store.Logout()

	return nil
}

// VerifyEmail follows an email verification link. The returned message is
// terminal: the caller replaces its whole view with it.
func (s *Service) VerifyEmail(ctx context.Context, userID, token string) (string, error) {
	if userID == "" || token == "" {
		return "", ErrInvalidVerificationLink
	}

	return s.api.VerifyEmail(ctx, userID, token)
}

// GenerateForm obtains the dynamic refinement form for a query and
// memoizes it for later filter validation.
func (s *Service) GenerateForm(ctx context.Context, query string) (*models.FormSchema, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	schema, err := s.api.GenerateForm(ctx, query)
	if err != nil {
		return nil, err
	}

	s.schemasMu.Lock()
	s.schemas[query] = schema
	s.schemasMu.Unlock()

	return schema, nil
}

func (s *Service) schemaFor(query string) *models.FormSchema {
	s.schemasMu.Lock()
	defer s.schemasMu.Unlock()

	return s.schemas[query]
}

func validateFilters(schema *models.FormSchema, filters map[string]string) error {
	for _, field := range schema.Fields {
		if !field.Required {
			continue
		}
		if strings.TrimSpace(filters[field.Name]) == "" {
			return fmt.Errorf("%w: %s", ErrMissingRequiredFilter, field.Name)
		}
	}

	return nil
}

// RunSearch executes a search and appends the produced record to the user
// history. When a form schema was generated for the query, its required
// filters are enforced before the call. A result resolving after logout is
// discarded.
func (s *Service) RunSearch(ctx context.Context, request models.SearchRequest) (*models.Search, error) {
	request.Query = strings.TrimSpace(request.Query)
	if request.Query == "" {
		return nil, ErrEmptyQuery
	}

	if schema := s.schemaFor(request.Query); schema != nil {
		if err := validateFilters(schema, request.Filters); err != nil {
			return nil, err
		}
	}

	epoch := s.store.Epoch()

	search, err := s.api.CreateSearch(ctx, request)
	if err != nil {
		return nil, err
	}

	if s.store.Epoch() == epoch {
		s.store.AddSearchWithProducts(*search)
	}

	return search, nil
}

// RunCompare executes a product comparison over 2 to 4 queries and appends
// the produced record to the user history.
func (s *Service) RunCompare(ctx context.Context, queries []string) (*models.Compare, error) {
	user := s.store.User()
	if user == nil {
		return nil, ErrNotSignedIn
	}

	trimmed := funk.Map(queries, strings.TrimSpace).([]string)
	if funk.ContainsString(trimmed, "") {
		return nil, ErrEmptyCompareQuery
	}

	for i, query := range trimmed {
		if strings.HasPrefix(query, "http") && !isValidURL(query) {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidProductURL, i+1)
		}
	}

	request := models.CompareRequest{
		Queries: trimmed,
		UserID:  user.ID,
	}
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	epoch := s.store.Epoch()

	compare, err := s.api.CompareProducts(ctx, request)
	if err != nil {
		return nil, err
	}

	if s.store.Epoch() == epoch {
		s.store.AddCompareWithProducts(*compare)
	}

	return compare, nil
}

// History returns the accumulated collections. The product list is
// recomputed from the stored searches on every call.
func (s *Service) History() models.HistoryResponse {
	return models.HistoryResponse{
		Searches:    s.store.Searches(),
		Comparisons: s.store.Comparisons(),
		Products:    s.store.FlatProducts(),
	}
}

func isValidURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil &&
		(u.Scheme == "http" || u.Scheme == "https") &&
		u.Host != ""
}
