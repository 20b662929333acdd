// Package store implements the persisted session and collection container:
// the authenticated identity, the advisory token, and the accumulated
// search/comparison history. It is the only mutation surface over that
// state; every operation is a total replace or an append.
package store

import (
	"context"
	"errors"
	"sync"

	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/fetchcart/internal/logger"
	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

type snapshotKeeper interface {
	LoadSnapshot(ctx context.Context, namespace string) (*models.StateSnapshot, error)
	SaveSnapshot(ctx context.Context, namespace string, snapshot *models.StateSnapshot) error
}

type snapshotEnqueuer interface {
	EnqueueSnapshot(snapshot *models.StateSnapshot, epoch uint64)
	Fence(epoch uint64)
}

// Store is the process-wide state container. Safe for concurrent use.
//
// Accessors return live records; callers must treat them as read-only.
type Store struct {
	mu         sync.Mutex
	namespace  string
	keeper     snapshotKeeper
	enqueuer   snapshotEnqueuer
	user       *models.User
	token      *models.Token
	authStatus models.AuthStatus
	epoch      uint64
}

// InitOption customizes a Store.
type InitOption func(*Store)

// WithWriteBehind routes ordinary mutation persistence through the given
// queue instead of writing synchronously. Logout fences the queue and then
// writes through the keeper directly, so neither a reload nor a later
// flush of a stale queued snapshot can resurrect a cleared session.
func WithWriteBehind(enqueuer snapshotEnqueuer) InitOption {
	return func(s *Store) {
		s.enqueuer = enqueuer
	}
}

// New restores the store from the keeper's durable snapshot. A missing
// snapshot yields a fresh store with authStatus "unknown".
func New(keeper snapshotKeeper, namespace string, optionsProto ...InitOption) (*Store, error) {
	theStore := &Store{
		namespace:  namespace,
		keeper:     keeper,
		authStatus: models.AuthStatusUnknown,
	}
	for _, protoOption := range optionsProto {
		protoOption(theStore)
	}

	snapshot, err := keeper.LoadSnapshot(context.Background(), namespace)
	if err != nil {
		if !errors.Is(err, models.ErrNoSnapshot) {
			return nil, err
		}
		return theStore, nil
	}

	theStore.user = snapshot.User
	theStore.token = snapshot.Token
	if snapshot.AuthStatus != "" {
		theStore.authStatus = snapshot.AuthStatus
	}

	return theStore, nil
}

// SetUser replaces the identity wholesale. The incoming record's searches
// and comparisons become the new source of truth; nothing is merged.
func (s *Store) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	s.epoch++
	s.persist()
}

// ClearUser drops the identity without touching the authentication status.
func (s *Store) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.persist()
}

func (s *Store) SetToken(token *models.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	s.persist()
}

func (s *Store) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
	s.persist()
}

// SetAuthStatus records the verifier's verdict. Guards consult this value,
// not the identity payload.
func (s *Store) SetAuthStatus(status models.AuthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authStatus = status
	s.persist()
}

// AddSearchWithProducts appends one server-produced search to the user
// history. It is a no-op when no user is set or when a search with the
// same ID is already present.
func (s *Store) AddSearchWithProducts(search models.Search) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return
	}

	ids := funk.Map(s.user.Searches, func(item models.Search) string {
		return item.ID
	}).([]string)
	if funk.ContainsString(ids, search.ID) {
		return
	}

	s.user.Searches = append(s.user.Searches, search)
	s.persist()
}

// AddCompareWithProducts appends one server-produced comparison to the
// user history, with the same no-op and uniqueness contract as
// AddSearchWithProducts.
func (s *Store) AddCompareWithProducts(compare models.Compare) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return
	}

	ids := funk.Map(s.user.Comparisons, func(item models.Compare) string {
		return item.ID
	}).([]string)
	if funk.ContainsString(ids, compare.ID) {
		return
	}

	s.user.Comparisons = append(s.user.Comparisons, compare)
	s.persist()
}

// Logout atomically resets identity, token and authentication status and
// evicts the durable snapshot. The write-behind queue is fenced first:
// snapshots from before the logout are dropped instead of flushed, so they
// cannot overwrite the cleared state.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = nil
	s.token = nil
	s.authStatus = models.AuthStatusUnauthenticated
	s.epoch++

	if s.enqueuer != nil {
		s.enqueuer.Fence(s.epoch)
	}

	if err := s.keeper.SaveSnapshot(context.Background(), s.namespace, s.snapshot()); err != nil {
		logger.Log.Debugln("Error calling the `s.keeper.SaveSnapshot()`: ", zap.Error(err))
	}
}

func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user
}

func (s *Store) Token() *models.Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

func (s *Store) AuthStatus() models.AuthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authStatus
}

// Epoch is a generation counter bumped by SetUser and Logout. Asynchronous
// flows capture it before awaiting the backend and drop their result when
// it moved, so a late resolution cannot mutate a torn-down session.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.epoch
}

// Searches returns a copy of the accumulated search history.
func (s *Store) Searches() []models.Search {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}

	return append([]models.Search(nil), s.user.Searches...)
}

// Comparisons returns a copy of the accumulated comparison history.
func (s *Store) Comparisons() []models.Compare {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user == nil {
		return nil
	}

	return append([]models.Compare(nil), s.user.Comparisons...)
}

// FlatProducts recomputes the flattened product list from user.searches.
// There is no separately maintained product collection to drift from it.
func (s *Store) FlatProducts() []models.Product {
	searches := s.Searches()

	nested := funk.Map(searches, func(item models.Search) []models.Product {
		return item.Products
	}).([][]models.Product)

	var products []models.Product
	for _, batch := range nested {
		products = append(products, batch...)
	}

	return products
}

// snapshot builds a detached copy of the current state. The collection
// slices are copied because a write-behind keeper may serialize the
// snapshot concurrently with later appends; the records themselves are
// immutable once received.
func (s *Store) snapshot() *models.StateSnapshot {
	result := &models.StateSnapshot{
		Token:      s.token,
		AuthStatus: s.authStatus,
	}
	if s.user != nil {
		userCopy := *s.user
		userCopy.Searches = append([]models.Search(nil), s.user.Searches...)
		userCopy.Comparisons = append([]models.Compare(nil), s.user.Comparisons...)
		result.User = &userCopy
	}

	return result
}

// persist pushes the current snapshot to durable storage, best-effort.
// Persistence failures leave the in-memory state authoritative for the
// session and are logged, never raised.
func (s *Store) persist() {
	snapshot := s.snapshot()

	if s.enqueuer != nil {
		s.enqueuer.EnqueueSnapshot(snapshot, s.epoch)
		return
	}

	if err := s.keeper.SaveSnapshot(context.Background(), s.namespace, snapshot); err != nil {
		logger.Log.Debugln("Error calling the `s.keeper.SaveSnapshot()`: ", zap.Error(err))
	}
}
