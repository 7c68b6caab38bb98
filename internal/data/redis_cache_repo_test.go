package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hydrosim/internal/testutil"
)

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := testutil.SetupTestRedis(t)
	defer client.Close()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		key := "hydrosim:test:1"
		value := []byte(`[{"result_type":"daily"}]`)
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, key, value, ttl))

		result, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, key).Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl)
	})

	t.Run("get non-existent key", func(t *testing.T) {
		result, err := repo.Get(ctx, "hydrosim:test:missing")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete counts existing keys", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "hydrosim:test:a", []byte("a"), time.Minute))
		require.NoError(t, repo.Set(ctx, "hydrosim:test:b", []byte("b"), time.Minute))

		deleted, err := repo.Delete(ctx, "hydrosim:test:a", "hydrosim:test:b", "hydrosim:test:none")
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		result, err := repo.Get(ctx, "hydrosim:test:a")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete nothing", func(t *testing.T) {
		deleted, err := repo.Delete(ctx)
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		assert.Error(t, repo.Set(ctx, "", []byte("x"), time.Minute))
		_, err := repo.Get(ctx, "")
		assert.Error(t, err)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}
