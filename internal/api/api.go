// Package api implements the HTTP+JSON client of the remote FetchCart
// backend. Session identity travels in an HTTP-only cookie, so every call
// goes through one resty client sharing a cookie jar.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

// ErrUnauthorized is returned when the backend rejects the ambient
// credentials (expired or invalid session).
var ErrUnauthorized = errors.New("session is not authorized")

// ErrNotFound is returned for unknown resources, e.g. a bad email
// verification link.
var ErrNotFound = errors.New("resource not found")

// RequestError carries the backend's status code and user-facing message
// for failures that are not part of the sentinel taxonomy.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend request failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend request failed (%d)", e.StatusCode)
}

// Client talks to the remote backend. Safe for concurrent use.
type Client struct {
	http *resty.Client
}

// New creates a Client for the given backend base URL. Every request is
// bounded by the timeout and carries the shared cookie jar.
func New(baseURL string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: httpClient}
}

func (c *Client) checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("backend is unreachable: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	message := ""
	if errBody, ok := resp.Error().(*models.MessageResponse); ok && errBody != nil {
		message = errBody.Message
	}

	switch resp.StatusCode() {
	case 401, 403:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, message)
		}
		return ErrUnauthorized
	case 404:
		if message != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, message)
		}
		return ErrNotFound
	}

	return &RequestError{StatusCode: resp.StatusCode(), Message: message}
}

// VerifySession asks the backend whether the ambient cookie still denotes
// a valid session and returns the authenticated identity.
func (c *Client) VerifySession(ctx context.Context) (*models.User, error) {
	result := models.VerifyResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(struct{}{}).
		SetResult(&result).
		SetError(&models.MessageResponse{}).
		Post("/auth/verify")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}
	if result.User == nil {
		return nil, fmt.Errorf("malformed verification payload: missing user")
	}

	return result.User, nil
}

// Login performs a manual login. The returned payload carries a
// user-facing message and, on success, the identity record.
func (c *Client) Login(ctx context.Context, request models.LoginRequest) (*models.MessageResponse, error) {
	result := models.MessageResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		SetError(&models.MessageResponse{}).
		Post("/user/login")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, request models.SignupRequest) (*models.MessageResponse, error) {
	result := models.MessageResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		SetError(&models.MessageResponse{}).
		Post("/user/create")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &result, nil
}

// Logout invalidates the backend session behind the cookie.
func (c *Client) Logout(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(struct{}{}).
		SetError(&models.MessageResponse{}).
		Post("/user/logout")

	return c.checkResponse(resp, err)
}

// VerifyEmail follows an email verification link and returns the terminal
// user-facing message.
func (c *Client) VerifyEmail(ctx context.Context, userID, token string) (string, error) {
	result := models.MessageResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&models.MessageResponse{}).
		Get(fmt.Sprintf("/user/%s/verify/%s", userID, token))
	if err := c.checkResponse(resp, err); err != nil {
		return "", err
	}

	return result.Message, nil
}

// GenerateForm obtains a dynamic refinement form schema for a query.
func (c *Client) GenerateForm(ctx context.Context, query string) (*models.FormSchema, error) {
	result := models.FormSchemaResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"query": query}).
		SetResult(&result).
		SetError(&models.MessageResponse{}).
		Post("/search/generate-form")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}
	if result.FormSchema == nil {
		return nil, fmt.Errorf("malformed form schema payload")
	}

	return result.FormSchema, nil
}

// CreateSearch executes a search; results are persisted server-side and
// the produced record is returned for client-side history accumulation.
func (c *Client) CreateSearch(ctx context.Context, request models.SearchRequest) (*models.Search, error) {
	result := models.SearchResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		SetError(&models.MessageResponse{}).
		Post("/search/create")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}
	if result.Search == nil {
		return nil, fmt.Errorf("malformed search payload")
	}

	return result.Search, nil
}

// CompareProducts executes a product comparison.
func (c *Client) CompareProducts(ctx context.Context, request models.CompareRequest) (*models.Compare, error) {
	result := models.CompareResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		SetError(&models.MessageResponse{}).
		Post("/compare/product")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}
	if result.Compare == nil {
		return nil, fmt.Errorf("malformed comparison payload")
	}

	return result.Compare, nil
}
