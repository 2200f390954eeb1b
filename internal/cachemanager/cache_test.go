package cachemanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type country struct {
	Code string
	Name string
}

func TestCache_SetGet(t *testing.T) {
	c := New[country]("countries", DefaultExpiration, DefaultCleanupInterval)
	c.Set("FR", country{Code: "FR", Name: "France"})

	got, ok := c.Get("FR")

	require.True(t, ok)
	require.Equal(t, country{Code: "FR", Name: "France"}, got)
	require.Equal(t, 1, c.Len())
}

func TestCache_Miss(t *testing.T) {
	c := New[string]("test", DefaultExpiration, DefaultCleanupInterval)

	got, ok := c.Get("missing")

	require.False(t, ok)
	require.Empty(t, got)
}

func TestCache_WrongTypeIsAMiss(t *testing.T) {
	c := New[string]("test", DefaultExpiration, DefaultCleanupInterval)
	c.cache.Set("k", 123, DefaultExpiration)

	_, ok := c.Get("k")

	require.False(t, ok)
}

func TestCache_Expiry(t *testing.T) {
	c := New[string]("test", 20*time.Millisecond, time.Minute)
	c.Set("k", "v")

	time.Sleep(40 * time.Millisecond)

	_, ok := c.Get("k")
	require.False(t, ok)
}

func TestCache_GetWithRefreshExtendsLife(t *testing.T) {
	c := New[string]("test", 60*time.Millisecond, time.Minute)
	c.Set("k", "v")

	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		_, ok := c.GetWithRefresh("k")
		require.True(t, ok, "iteration %d", i)
	}
}

func TestCache_DeleteAndFlush(t *testing.T) {
	c := New[int]("test", DefaultExpiration, DefaultCleanupInterval)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Delete("a", "b")
	_, ok := c.Get("a")
	require.False(t, ok)
	require.Equal(t, 1, c.Len())

	c.Flush()
	require.Zero(t, c.Len())
}

func TestCache_GetOrCreate(t *testing.T) {
	c := New[*int]("limiters", DefaultExpiration, DefaultCleanupInterval)
	var created atomic.Int32
	create := func() *int {
		created.Add(1)
		v := 7
		return &v
	}

	var wg sync.WaitGroup
	results := make([]*int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetOrCreate("client", create)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.Same(t, results[0], r, "every caller shares one value")
	}
	require.GreaterOrEqual(t, created.Load(), int32(1))
}

func TestReadThrough_LoadsOnceThenHits(t *testing.T) {
	c := New[[]country]("countries", DefaultExpiration, DefaultCleanupInterval)
	var loads atomic.Int32
	rt := NewReadThrough(c, func(ctx context.Context, key string) ([]country, error) {
		loads.Add(1)
		return []country{{Code: "FR", Name: "France"}}, nil
	}, false)

	for i := 0; i < 3; i++ {
		got, err := rt.Get(context.Background(), "all")
		require.NoError(t, err)
		require.Len(t, got, 1)
	}

	require.Equal(t, int32(1), loads.Load())
}

func TestReadThrough_ErrorsAreNotCached(t *testing.T) {
	c := New[string]("test", DefaultExpiration, DefaultCleanupInterval)
	boom := errors.New("boom")
	fail := true
	rt := NewReadThrough(c, func(ctx context.Context, key string) (string, error) {
		if fail {
			return "", boom
		}
		return "ok", nil
	}, false)

	_, err := rt.Get(context.Background(), "k")
	require.ErrorIs(t, err, boom)

	fail = false
	got, err := rt.Get(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, "ok", got)
}

func TestReadThrough_Invalidate(t *testing.T) {
	c := New[int]("test", DefaultExpiration, DefaultCleanupInterval)
	var n atomic.Int32
	rt := NewReadThrough(c, func(ctx context.Context, key string) (int, error) {
		return int(n.Add(1)), nil
	}, false)

	first, err := rt.Get(context.Background(), "k")
	require.NoError(t, err)
	rt.Invalidate("k")
	second, err := rt.Get(context.Background(), "k")
	require.NoError(t, err)

	require.Equal(t, 1, first)
	require.Equal(t, 2, second)
}

func TestReadThrough_Skip(t *testing.T) {
	c := New[int]("test", DefaultExpiration, DefaultCleanupInterval)
	var n atomic.Int32
	rt := NewReadThrough(c, func(ctx context.Context, key string) (int, error) {
		return int(n.Add(1)), nil
	}, true)

	_, _ = rt.Get(context.Background(), "k")
	_, _ = rt.Get(context.Background(), "k")

	require.Equal(t, int32(2), n.Load())
	require.Zero(t, c.Len())
}

func TestReadThrough_OnHit(t *testing.T) {
	c := New[int]("test", DefaultExpiration, DefaultCleanupInterval)
	var hits []string
	rt := NewReadThrough(c, func(ctx context.Context, key string) (int, error) {
		return 1, nil
	}, false).OnHit(func(key string) { hits = append(hits, key) })

	_, _ = rt.Get(context.Background(), "k")
	_, _ = rt.Get(context.Background(), "k")
	_, _ = rt.Get(context.Background(), "k")

	require.Equal(t, []string{"k", "k"}, hits)
}
