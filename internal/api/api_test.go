package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

func newBackendStub(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return New(server.URL, 5*time.Second)
}

func respondJSON(t *testing.T, writer http.ResponseWriter, status int, payload any) {
	t.Helper()

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	err := json.NewEncoder(writer).Encode(payload)
	require.NoError(t, err)
}

func TestVerifySession(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "/auth/verify", request.URL.Path)
		respondJSON(t, writer, http.StatusOK, models.VerifyResponse{
			User: &models.User{ID: "u-1", Email: "casey@example.com"},
		})
	})

	user, err := client.VerifySession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "casey@example.com", user.Email)
}

func TestVerifySessionUnauthorized(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		respondJSON(t, writer, http.StatusUnauthorized, models.MessageResponse{Message: "session expired"})
	})

	_, err := client.VerifySession(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Contains(t, err.Error(), "session expired")
}

func TestVerifySessionMissingUserIsMalformed(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		respondJSON(t, writer, http.StatusOK, models.VerifyResponse{})
	})

	_, err := client.VerifySession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing user")
}

func TestLoginForwardsPayloadAndReturnsIdentity(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/user/login", request.URL.Path)

		var payload models.LoginRequest
		err := json.NewDecoder(request.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "casey@example.com", payload.Email)
		assert.Equal(t, "hunter2hunter2", payload.Password)

		respondJSON(t, writer, http.StatusOK, models.MessageResponse{
			Message: "signed in",
			User:    &models.User{ID: "u-1"},
		})
	})

	result, err := client.Login(context.Background(), models.LoginRequest{
		Email:    "casey@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "signed in", result.Message)
	require.NotNil(t, result.User)
	assert.Equal(t, "u-1", result.User.ID)
}

func TestLoginForbiddenMapsToUnauthorized(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		respondJSON(t, writer, http.StatusForbidden, models.MessageResponse{Message: "wrong password"})
	})

	_, err := client.Login(context.Background(), models.LoginRequest{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestCreateUserReturnsConfirmation(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/user/create", request.URL.Path)

		var payload models.SignupRequest
		err := json.NewDecoder(request.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Equal(t, "manual", payload.Type)

		respondJSON(t, writer, http.StatusCreated, models.MessageResponse{Message: "check your email"})
	})

	result, err := client.CreateUser(context.Background(), models.SignupRequest{
		Type: "manual",
		User: &models.UserData{Name: "Casey", Email: "casey@example.com", Password: "hunter2hunter2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "check your email", result.Message)
	assert.Nil(t, result.User, "registration does not sign the user in")
}

func TestLogout(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/user/logout", request.URL.Path)
		respondJSON(t, writer, http.StatusOK, models.MessageResponse{Message: "bye"})
	})

	err := client.Logout(context.Background())
	assert.NoError(t, err)
}

func TestVerifyEmailBuildsPathFromLinkParts(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodGet, request.Method)
		assert.Equal(t, "/user/u-1/verify/tok-1", request.URL.Path)
		respondJSON(t, writer, http.StatusOK, models.MessageResponse{Message: "email verified"})
	})

	message, err := client.VerifyEmail(context.Background(), "u-1", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "email verified", message)
}

func TestVerifyEmailUnknownLinkMapsToNotFound(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		respondJSON(t, writer, http.StatusNotFound, models.MessageResponse{Message: "no such token"})
	})

	_, err := client.VerifyEmail(context.Background(), "u-1", "tok-stale")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateForm(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/search/generate-form", request.URL.Path)
		respondJSON(t, writer, http.StatusOK, models.FormSchemaResponse{
			FormSchema: &models.FormSchema{
				Fields: []models.FormField{{Name: "budget", Required: true}},
			},
		})
	})

	schema, err := client.GenerateForm(context.Background(), "wireless headphones")
	require.NoError(t, err)
	require.Len(t, schema.Fields, 1)
	assert.Equal(t, "budget", schema.Fields[0].Name)
	assert.True(t, schema.Fields[0].Required)
}

func TestCreateSearch(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/search/create", request.URL.Path)
		respondJSON(t, writer, http.StatusCreated, models.SearchResponse{
			Search: &models.Search{
				ID:       "s-1",
				Query:    "wireless headphones",
				Products: []models.Product{{ID: "p-1", SearchID: "s-1"}},
			},
		})
	})

	search, err := client.CreateSearch(context.Background(), models.SearchRequest{Query: "wireless headphones"})
	require.NoError(t, err)
	assert.Equal(t, "s-1", search.ID)
	require.Len(t, search.Products, 1)
	assert.Equal(t, "p-1", search.Products[0].ID)
}

func TestCompareProducts(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/compare/product", request.URL.Path)

		var payload models.CompareRequest
		err := json.NewDecoder(request.Body).Decode(&payload)
		require.NoError(t, err)
		assert.Len(t, payload.Queries, 2)

		respondJSON(t, writer, http.StatusCreated, models.CompareResponse{
			Compare: &models.Compare{ID: "c-1", Summary: "both fine"},
		})
	})

	compare, err := client.CompareProducts(context.Background(), models.CompareRequest{
		Queries: []string{"airpods pro", "sony wf-1000xm5"},
		UserID:  "u-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", compare.ID)
}

func TestServerErrorCarriesStatusAndMessage(t *testing.T) {
	client := newBackendStub(t, func(writer http.ResponseWriter, request *http.Request) {
		respondJSON(t, writer, http.StatusBadGateway, models.MessageResponse{Message: "upstream scrape failed"})
	})

	_, err := client.CreateSearch(context.Background(), models.SearchRequest{Query: "anything"})
	require.Error(t, err)

	var requestErr *RequestError
	require.True(t, errors.As(err, &requestErr))
	assert.Equal(t, http.StatusBadGateway, requestErr.StatusCode)
	assert.Equal(t, "upstream scrape failed", requestErr.Message)
}

func TestUnreachableBackend(t *testing.T) {
	client := New("http://127.0.0.1:1", 500*time.Millisecond)

	_, err := client.VerifySession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend is unreachable")
}
