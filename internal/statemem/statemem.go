// Package statemem keeps state snapshots in process memory only.
// Used when no durable keeper is configured and as a fake in tests;
// state does not survive a restart.
package statemem

import (
	"context"
	"sync"

	"github.com/patric-chuzhbe/fetchcart/internal/models"
)

type MemoryState struct {
	mu        sync.Mutex
	snapshots map[string]*models.StateSnapshot
}

func New() (*MemoryState, error) {
	return &MemoryState{
		snapshots: map[string]*models.StateSnapshot{},
	}, nil
}

func (s *MemoryState) LoadSnapshot(ctx context.Context, namespace string) (*models.StateSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, found := s.snapshots[namespace]
	if !found {
		return nil, models.ErrNoSnapshot
	}

	return snapshot, nil
}

func (s *MemoryState) SaveSnapshot(ctx context.Context, namespace string, snapshot *models.StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[namespace] = snapshot

	return nil
}

func (s *MemoryState) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryState) Close() error {
	return nil
}
