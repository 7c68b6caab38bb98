package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/hydrosim/internal/core"
	"github.com/target/hydrosim/internal/domain/model"
	"github.com/target/hydrosim/internal/mocks"
)

func sampleSets() []*model.ResultSet {
	return []*model.ResultSet{{
		ID:           "r1",
		SimulationID: "sim-1",
		ResultType:   model.ResultTypeAnnual,
		Data:         json.RawMessage(`{"total_runoff":12.5}`),
	}}
}

func TestResultCache_NilIsNoop(t *testing.T) {
	var c *core.ResultCache
	ctx := context.Background()

	sets, ok := c.Get(ctx, "sim-1", model.ResultTypeAnnual)
	assert.False(t, ok)
	assert.Nil(t, sets)
	c.Put(ctx, "sim-1", model.ResultTypeAnnual, sampleSets())
	c.Invalidate(ctx, "sim-1")

	disabled := core.NewResultCache(core.ResultCacheOptions{})
	_, ok = disabled.Get(ctx, "sim-1", "")
	assert.False(t, ok)
}

func TestResultCache_PutGet(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockCacheRepository(ctrl)
	c := core.NewResultCache(core.ResultCacheOptions{
		Cache:  repo,
		Config: core.ResultCacheConfig{TTL: time.Minute},
	})
	ctx := context.Background()

	var stored []byte
	repo.EXPECT().
		Set(ctx, "hydrosim:results:sim-1:annual", gomock.Any(), time.Minute).
		DoAndReturn(func(_ context.Context, _ string, value []byte, _ time.Duration) error {
			stored = value
			return nil
		})
	c.Put(ctx, "sim-1", model.ResultTypeAnnual, sampleSets())
	require.NotEmpty(t, stored)

	repo.EXPECT().Get(ctx, "hydrosim:results:sim-1:annual").Return(stored, nil)
	sets, ok := c.Get(ctx, "sim-1", model.ResultTypeAnnual)
	require.True(t, ok)
	require.Len(t, sets, 1)
	assert.JSONEq(t, `{"total_runoff":12.5}`, string(sets[0].Data))
}

func TestResultCache_GetMissAndErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockCacheRepository(ctrl)
	c := core.NewResultCache(core.ResultCacheOptions{Cache: repo})
	ctx := context.Background()

	gomock.InOrder(
		repo.EXPECT().Get(ctx, "hydrosim:results:sim-1:all").Return(nil, nil),
		repo.EXPECT().Get(ctx, "hydrosim:results:sim-1:all").Return(nil, errors.New("connection refused")),
		repo.EXPECT().Get(ctx, "hydrosim:results:sim-1:all").Return([]byte("{not json"), nil),
	)

	for range 3 {
		_, ok := c.Get(ctx, "sim-1", "")
		assert.False(t, ok)
	}
}

func TestResultCache_Invalidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockCacheRepository(ctrl)
	c := core.NewResultCache(core.ResultCacheOptions{Cache: repo})
	ctx := context.Background()

	repo.EXPECT().
		Delete(ctx,
			"hydrosim:results:sim-1:all",
			"hydrosim:results:sim-1:daily",
			"hydrosim:results:sim-1:monthly",
			"hydrosim:results:sim-1:annual",
			"hydrosim:results:sim-1:indicators",
		).
		Return(int64(2), nil)
	c.Invalidate(ctx, "sim-1")

	repo.EXPECT().Delete(ctx, gomock.Any()).Return(int64(0), errors.New("timeout"))
	c.Invalidate(ctx, "sim-1")
}
