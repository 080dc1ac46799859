package usecase

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockingStore отдает коллекцию только после release
type blockingStore struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
	fc      *geojson.FeatureCollection
}

func (s *blockingStore) Exists(string) bool { return true }

func (s *blockingStore) Size(string) (int64, error) { return 0, nil }

func (s *blockingStore) ReadRaw(context.Context, string) ([]byte, error) { return nil, nil }

func (s *blockingStore) WriteJSON(context.Context, string, interface{}) error { return nil }

func (s *blockingStore) ReadCollection(ctx context.Context, _ string) (*geojson.FeatureCollection, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.fc, nil
}

type loadResult struct {
	fc  *geojson.FeatureCollection
	err error
}

func TestSourceCache_FirstCallerCancelDoesNotFailOthers(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Point{1, 2}))
	store := &blockingStore{started: make(chan struct{}), release: make(chan struct{}), fc: fc}
	cache := newSourceCache(store, time.Minute)

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan loadResult, 1)
	go func() {
		got, err := cache.load(ctx1, "geojson/municipio.json")
		first <- loadResult{got, err}
	}()
	<-store.started

	cancel1()
	res := <-first
	assert.ErrorIs(t, res.err, context.Canceled)

	second := make(chan loadResult, 1)
	go func() {
		got, err := cache.load(context.Background(), "geojson/municipio.json")
		second <- loadResult{got, err}
	}()
	close(store.release)

	select {
	case res = <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not get the collection")
	}
	require.NoError(t, res.err)
	assert.Same(t, fc, res.fc)
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestSourceCache_TimeoutIsRetried(t *testing.T) {
	store := &blockingStore{started: make(chan struct{}), release: make(chan struct{}), fc: geojson.NewFeatureCollection()}
	cache := newSourceCache(store, 20*time.Millisecond)

	_, err := cache.load(context.Background(), "a.json")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(store.release)
	got, err := cache.load(context.Background(), "a.json")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, int32(2), store.calls.Load())
}
