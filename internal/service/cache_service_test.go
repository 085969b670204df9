package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-assignments-api/internal/models"
	appErrors "github.com/noah-isme/sma-assignments-api/pkg/errors"
)

type memoryCacheRepo struct {
	values  map[string]interface{}
	ttls    map[string]time.Duration
	deleted []string
	getErr  error
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string]interface{}{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*models.Assignment)) = v.(models.Assignment)
	return nil
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.values[key] = *(value.(*models.Assignment))
	m.ttls[key] = ttl
	return nil
}

func (m *memoryCacheRepo) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	m.deleted = append(m.deleted, keys...)
	return nil
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newMemoryCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var dest models.Assignment
	hit, err := svc.Get(ctx, "assignments:id:1", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, "assignments:id:1", &models.Assignment{ID: "1", SubjectName: "Math"}, 0))
	assert.Equal(t, time.Minute, repo.ttls["assignments:id:1"])

	hit, err = svc.Get(ctx, "assignments:id:1", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Math", dest.SubjectName)

	require.NoError(t, svc.Invalidate(ctx, "assignments:id:1"))
	assert.Equal(t, []string{"assignments:id:1"}, repo.deleted)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))
}

func TestCacheServiceDisabledAndErrors(t *testing.T) {
	ctx := context.Background()
	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	hit, err := nilSvc.Get(ctx, "k", &models.Assignment{})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, nilSvc.Set(ctx, "k", &models.Assignment{}, time.Second))
	assert.NoError(t, nilSvc.Invalidate(ctx, "k"))

	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("connection reset")
	svc := NewCacheService(repo, nil, time.Second, nil, true)
	hit, err = svc.Get(ctx, "k", &models.Assignment{})
	assert.Error(t, err)
	assert.False(t, hit)
}
