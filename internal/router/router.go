// Package router wires the storefront flows to the local HTTP surface and
// applies the route guards.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fetchcart/internal/api"
	"github.com/patric-chuzhbe/fetchcart/internal/logger"
	"github.com/patric-chuzhbe/fetchcart/internal/models"
	"github.com/patric-chuzhbe/fetchcart/internal/service"
)

type flowService interface {
	SignIn(ctx context.Context, request models.LoginRequest) (*models.MessageResponse, error)
	SignUp(ctx context.Context, request models.SignupRequest) (*models.MessageResponse, error)
	Logout(ctx context.Context) error
	VerifyEmail(ctx context.Context, userID, token string) (string, error)
	GenerateForm(ctx context.Context, query string) (*models.FormSchema, error)
	RunSearch(ctx context.Context, request models.SearchRequest) (*models.Search, error)
	RunCompare(ctx context.Context, queries []string) (*models.Compare, error)
	History() models.HistoryResponse
}

type sessionReader interface {
	User() *models.User
	AuthStatus() models.AuthStatus
}

type authGuard interface {
	RequireAuthenticated(h http.Handler) http.Handler
	RequireAnonymous(h http.Handler) http.Handler
}

// Router holds the handlers of the local surface.
type Router struct {
	service flowService
	store   sessionReader
}

func writeJSON(response http.ResponseWriter, status int, payload any) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder().Encode()`: ", zap.Error(err))
	}
}

// writeFlowError converts the error taxonomy to a status code and an
// inline user-visible message. Nothing propagates as an unhandled failure
// into the surface.
func writeFlowError(response http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	var requestError *api.RequestError

	switch {
	case errors.As(err, &validationErrors),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrEmptyCompareQuery),
		errors.Is(err, service.ErrInvalidProductURL),
		errors.Is(err, service.ErrMissingRequiredFilter):
		writeJSON(response, http.StatusUnprocessableEntity, models.MessageResponse{Message: err.Error()})
	case errors.Is(err, service.ErrNotSignedIn), errors.Is(err, api.ErrUnauthorized):
		writeJSON(response, http.StatusUnauthorized, models.MessageResponse{Message: err.Error()})
	case errors.Is(err, service.ErrInvalidVerificationLink), errors.Is(err, api.ErrNotFound):
		writeJSON(response, http.StatusNotFound, models.MessageResponse{Message: err.Error()})
	case errors.As(err, &requestError):
		writeJSON(response, requestError.StatusCode, models.MessageResponse{Message: requestError.Message})
	default:
		logger.Log.Debugln("flow error: ", zap.Error(err))
		writeJSON(response, http.StatusBadGateway, models.MessageResponse{Message: "something went wrong, please try again"})
	}
}

func (r *Router) PostAPISignin(response http.ResponseWriter, request *http.Request) {
	payload := models.LoginRequest{}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := r.service.SignIn(request.Context(), payload)
	if err != nil {
		writeFlowError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, result)
}

func (r *Router) PostAPISignup(response http.ResponseWriter, request *http.Request) {
	payload := models.SignupRequest{}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := r.service.SignUp(request.Context(), payload)
	if err != nil {
		writeFlowError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, result)
}

func (r *Router) PostAPILogout(response http.ResponseWriter, request *http.Request) {
	if err := r.service.Logout(request.Context()); err != nil {
		writeFlowError(response, err)
		return
	}

	response.WriteHeader(http.StatusNoContent)
}

// GetAPISession exposes the current store state so a frontend can restore
// its view after the verifier resolved.
func (r *Router) GetAPISession(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusOK, models.SessionResponse{
		User:       r.store.User(),
		AuthStatus: r.store.AuthStatus(),
	})
}

func (r *Router) PostAPISearchForm(response http.ResponseWriter, request *http.Request) {
	payload := models.SearchRequest{}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	schema, err := r.service.GenerateForm(request.Context(), payload.Query)
	if err != nil {
		writeFlowError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.FormSchemaResponse{FormSchema: schema})
}

func (r *Router) PostAPISearch(response http.ResponseWriter, request *http.Request) {
	payload := models.SearchRequest{}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	search, err := r.service.RunSearch(request.Context(), payload)
	if err != nil {
		writeFlowError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.SearchResponse{Search: search})
}

func (r *Router) PostAPICompare(response http.ResponseWriter, request *http.Request) {
	payload := models.CompareRequest{}
	if err := json.NewDecoder(request.Body).Decode(&payload); err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	compare, err := r.service.RunCompare(request.Context(), payload.Queries)
	if err != nil {
		writeFlowError(response, err)
		return
	}

	writeJSON(response, http.StatusCreated, models.CompareResponse{Compare: compare})
}

func (r *Router) GetAPIHistory(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusOK, r.service.History())
}

// GetVerifyEmail follows an email verification link. Success and failure
// both replace the whole view with a terminal message.
func (r *Router) GetVerifyEmail(response http.ResponseWriter, request *http.Request) {
	message, err := r.service.VerifyEmail(
		request.Context(),
		chi.URLParam(request, "userID"),
		chi.URLParam(request, "token"),
	)
	if err != nil {
		writeFlowError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.MessageResponse{Message: message})
}

// New assembles the chi router: logging middleware everywhere, public-only
// guard on the sign-in/sign-up flows, protected guard on everything that
// reads or grows the user history.
func New(
	theService flowService,
	theStore sessionReader,
	theGuard authGuard,
) *chi.Mux {
	myRouter := &Router{
		service: theService,
		store:   theStore,
	}

	router := chi.NewRouter()
	router.Use(logger.WithLoggingHTTPMiddleware)

	router.With(theGuard.RequireAnonymous).Post(`/api/signin`, myRouter.PostAPISignin)
	router.With(theGuard.RequireAnonymous).Post(`/api/signup`, myRouter.PostAPISignup)

	router.With(theGuard.RequireAuthenticated).Post(`/api/logout`, myRouter.PostAPILogout)
	router.With(theGuard.RequireAuthenticated).Post(`/api/search/form`, myRouter.PostAPISearchForm)
	router.With(theGuard.RequireAuthenticated).Post(`/api/search`, myRouter.PostAPISearch)
	router.With(theGuard.RequireAuthenticated).Post(`/api/compare`, myRouter.PostAPICompare)
	router.With(theGuard.RequireAuthenticated).Get(`/api/history`, myRouter.GetAPIHistory)

	router.Get(`/api/session`, myRouter.GetAPISession)
	router.Get(`/verify/{userID}/{token}`, myRouter.GetVerifyEmail)

	return router
}
