package partition_test

import (
	"context"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/mock"
)

// MockFeatureStore is a mock of FeatureStore
type MockFeatureStore struct {
	mock.Mock
}

func (m *MockFeatureStore) Exists(path string) bool {
	args := m.Called(path)
	return args.Bool(0)
}

func (m *MockFeatureStore) Size(path string) (int64, error) {
	args := m.Called(path)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFeatureStore) ReadCollection(ctx context.Context, path string) (*geojson.FeatureCollection, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*geojson.FeatureCollection), args.Error(1)
}

func (m *MockFeatureStore) ReadRaw(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockFeatureStore) WriteJSON(ctx context.Context, path string, v interface{}) error {
	args := m.Called(ctx, path, v)
	return args.Error(0)
}
