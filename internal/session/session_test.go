package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/fetchcart/internal/logger"
	"github.com/patric-chuzhbe/fetchcart/internal/models"
	"github.com/patric-chuzhbe/fetchcart/internal/statemem"
	"github.com/patric-chuzhbe/fetchcart/internal/store"
)

type fakeClient struct {
	calls   atomic.Int64
	user    *models.User
	err     error
	release chan struct{}
}

func (f *fakeClient) VerifySession(ctx context.Context) (*models.User, error) {
	f.calls.Add(1)
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	err := logger.Init("debug")
	require.NoError(t, err)

	keeper, err := statemem.New()
	require.NoError(t, err)

	theStore, err := store.New(keeper, "session_test")
	require.NoError(t, err)

	return theStore
}

func TestVerifyIsIdempotent(t *testing.T) {
	theStore := newTestStore(t)
	client := &fakeClient{user: &models.User{ID: "u-1", Email: "casey@example.com"}}

	verifier := New(client, theStore)
	verifier.Verify(context.Background())
	verifier.Verify(context.Background())

	assert.Equal(t, int64(1), client.calls.Load(), "one mount issues exactly one verification call")
	require.NotNil(t, theStore.User())
	assert.Equal(t, "u-1", theStore.User().ID)
	assert.Equal(t, models.AuthStatusAuthenticated, theStore.AuthStatus())

	// A fresh mount with an unchanged valid cookie resolves identically.
	second := New(client, theStore)
	second.Verify(context.Background())

	assert.Equal(t, "u-1", theStore.User().ID)
	assert.Equal(t, models.AuthStatusAuthenticated, theStore.AuthStatus())
}

func TestVerifyFiresOnceUnderConcurrency(t *testing.T) {
	theStore := newTestStore(t)
	client := &fakeClient{user: &models.User{ID: "u-1"}}
	verifier := New(client, theStore)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			verifier.Verify(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), client.calls.Load())
	assert.True(t, verifier.Resolved())
}

func TestVerifyFailureLeavesStaleIdentity(t *testing.T) {
	theStore := newTestStore(t)
	theStore.SetUser(&models.User{ID: "u-stale"})
	theStore.SetAuthStatus(models.AuthStatusUnknown)

	client := &fakeClient{err: errors.New("401 unauthorized")}
	verifier := New(client, theStore)
	verifier.Verify(context.Background())

	assert.Equal(t, models.AuthStatusUnauthenticated, theStore.AuthStatus())
	require.NotNil(t, theStore.User(), "a failed verification keeps the stale identity in memory")
	assert.Equal(t, "u-stale", theStore.User().ID)
	assert.Equal(t, int64(1), client.calls.Load(), "no automatic retry on failure")
}

func TestVerifyDiscardsLateResolutionAfterLogout(t *testing.T) {
	theStore := newTestStore(t)
	theStore.SetUser(&models.User{ID: "u-1"})

	client := &fakeClient{
		user:    &models.User{ID: "u-1"},
		release: make(chan struct{}),
	}
	verifier := New(client, theStore)

	go verifier.Verify(context.Background())

	require.Eventually(t, func() bool {
		return client.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	theStore.Logout()
	close(client.release)
	<-verifier.Done()

	assert.Nil(t, theStore.User(), "a result resolving after logout must not resurrect the identity")
	assert.Equal(t, models.AuthStatusUnauthenticated, theStore.AuthStatus())
}

func TestParseAdvisoryClaims(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &AdvisoryClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		UserID: "u-1",
	})
	tokenString, err := token.SignedString([]byte("not-the-backend-secret"))
	require.NoError(t, err)

	claims, err := ParseAdvisoryClaims(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, expiry.Unix(), claims.ExpiresAt.Unix())
}

func TestParseAdvisoryClaimsRejectsGarbage(t *testing.T) {
	_, err := ParseAdvisoryClaims("not-a-jwt")
	assert.Error(t, err)
}
