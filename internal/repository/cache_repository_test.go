package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-assignments-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	require.ErrorIs(t, repo.Get(ctx, "assignments:id:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "assignments:id:1", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "assignments:id:1"))
	assert.Error(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}
