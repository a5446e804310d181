package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	var out entry
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)

	require.NoError(t, c.Set(ctx, "k", entry{Name: "a", Count: 2}, time.Minute))
	require.NoError(t, c.Get(ctx, "k", &out))
	assert.Equal(t, entry{Name: "a", Count: 2}, out)

	require.NoError(t, c.Delete(ctx, "k"))
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", entry{Name: "a"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	var out entry
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
}

func TestCacheHelperFillsMiss(t *testing.T) {
	helper := NewCacheHelper[[]entry](NewMemoryCache())
	ctx := context.Background()
	calls := 0
	fill := func(ctx context.Context) ([]entry, error) {
		calls++
		return []entry{{Name: "x", Count: calls}}, nil
	}

	var out []entry
	require.NoError(t, helper.Handle(ctx, "list", &out, fill, time.Minute))
	require.NoError(t, helper.Handle(ctx, "list", &out, fill, time.Minute))
	assert.Equal(t, 1, calls)
	assert.Equal(t, []entry{{Name: "x", Count: 1}}, out)
}

func TestCacheHelperDoesNotStoreErrors(t *testing.T) {
	c := NewMemoryCache()
	helper := NewCacheHelper[entry](c)
	ctx := context.Background()
	boom := errors.New("boom")

	var out entry
	err := helper.Handle(ctx, "k", &out, func(ctx context.Context) (entry, error) {
		return entry{}, boom
	}, time.Minute)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)
}

func TestCacheHelperHandleIfSkipsWrite(t *testing.T) {
	c := NewMemoryCache()
	helper := NewCacheHelper[entry](c)
	ctx := context.Background()
	fill := func(ctx context.Context) (entry, error) {
		return entry{Name: "stale"}, nil
	}

	var out entry
	require.NoError(t, helper.HandleIf(ctx, "k", &out, fill, time.Minute, func() bool { return false }))
	assert.Equal(t, "stale", out.Name)
	assert.ErrorIs(t, c.Get(ctx, "k", &out), ErrMiss)

	require.NoError(t, helper.HandleIf(ctx, "k", &out, fill, time.Minute, func() bool { return true }))
	var stored entry
	require.NoError(t, c.Get(ctx, "k", &stored))
	assert.Equal(t, "stale", stored.Name)
}
