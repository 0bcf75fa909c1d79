package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	"feature-store-service/internal/core/ports/output"
)

// MockOfflineStore is a mock of OfflineStore.
type MockOfflineStore struct {
	mock.Mock
}

func (m *MockOfflineStore) PullRows(ctx context.Context, req ports.PullRequest) ([]domain.FeatureRow, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FeatureRow), args.Error(1)
}

func (m *MockOfflineStore) QueryEntityRows(ctx context.Context, query, timestampColumn string) ([]domain.EntityRow, error) {
	args := m.Called(ctx, query, timestampColumn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.EntityRow), args.Error(1)
}

// MockOnlineStore is a mock of OnlineStore.
type MockOnlineStore struct {
	mock.Mock
}

func (m *MockOnlineStore) Write(ctx context.Context, project, view string, rows []ports.OnlineWrite) (int, error) {
	args := m.Called(ctx, project, view, rows)
	return args.Int(0), args.Error(1)
}

func (m *MockOnlineStore) Read(ctx context.Context, project, view string, entityKeys []string, features []string) ([]domain.OnlineRow, error) {
	args := m.Called(ctx, project, view, entityKeys, features)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OnlineRow), args.Error(1)
}

func (m *MockOnlineStore) Purge(ctx context.Context, project, view string) error {
	args := m.Called(ctx, project, view)
	return args.Error(0)
}

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Save(ctx context.Context, path string, data []byte) (string, error) {
	args := m.Called(ctx, path, data)
	return args.String(0), args.Error(1)
}

func (m *MockArtifactStore) Load(ctx context.Context, uri string) ([]byte, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
