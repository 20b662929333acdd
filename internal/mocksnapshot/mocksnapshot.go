// Package mocksnapshot provides a testify-based mock implementation
// of the snapshot keeper interface used by the store package.
// It is used in unit tests to simulate storage behavior, including
// persistence failures.
package mocksnapshot

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

// KeeperMock is a testify mock that implements the snapshot keeper
// interface consumed by the store.
//
// Use it in store tests to simulate keeper behavior.
type KeeperMock struct {
	mock.Mock
}

// LoadSnapshot mocks reading the stored snapshot for a namespace.
func (m *KeeperMock) LoadSnapshot(ctx context.Context, namespace string) (*models.StateSnapshot, error) {
	args := m.Called(ctx, namespace)
	snapshot, _ := args.Get(0).(*models.StateSnapshot)
	return snapshot, args.Error(1)
}

// SaveSnapshot mocks persisting a snapshot for a namespace.
func (m *KeeperMock) SaveSnapshot(ctx context.Context, namespace string, snapshot *models.StateSnapshot) error {
	args := m.Called(ctx, namespace, snapshot)
	return args.Error(0)
}

// Ping mocks a keeper health check.
func (m *KeeperMock) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close mocks releasing the keeper resources.
func (m *KeeperMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
