package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/teacher-stats-api/pkg/errors"
)

type cachedPayload struct {
	Total float64 `json:"total"`
}

func TestMemoryCacheRoundTripAndMiss(t *testing.T) {
	repo := NewMemoryCacheRepository(1)
	ctx := context.Background()

	var out cachedPayload
	assert.ErrorIs(t, repo.Get(ctx, "stats:a:1_2025", &out), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "stats:a:1_2025", cachedPayload{Total: 8.5}, time.Minute))
	require.NoError(t, repo.Get(ctx, "stats:a:1_2025", &out))
	assert.Equal(t, 8.5, out.Total)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	repo := NewMemoryCacheRepository(1)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "stats:a:1_2025", cachedPayload{}, time.Minute))
	require.NoError(t, repo.Set(ctx, "stats:a:2_2025", cachedPayload{}, time.Minute))
	require.NoError(t, repo.Set(ctx, "stats:b:1_2025", cachedPayload{}, time.Minute))

	require.NoError(t, repo.DeleteByPattern(ctx, "stats:a:*"))

	var out cachedPayload
	assert.ErrorIs(t, repo.Get(ctx, "stats:a:1_2025", &out), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "stats:a:2_2025", &out), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Get(ctx, "stats:b:1_2025", &out))
	assert.Equal(t, int64(1), repo.EntryCount())

	assert.Error(t, repo.DeleteByPattern(ctx, "stats:["))
}
