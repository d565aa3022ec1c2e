package dedup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisGuard(t *testing.T, max int) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisGuard(client, "shop1", max), mr
}

func TestRedisGuard_SecondCallIsDuplicate(t *testing.T) {
	g, _ := newRedisGuard(t, 10)
	ctx := context.Background()

	for _, id := range []string{"A1", "order-with spaces", "ü"} {
		first, err := g.CheckAndRecord(ctx, id)
		require.NoError(t, err)
		second, err := g.CheckAndRecord(ctx, id)
		require.NoError(t, err)
		assert.False(t, first, "first call for %q", id)
		assert.True(t, second, "second call for %q", id)
	}
}

func TestRedisGuard_EvictsOldestInserted(t *testing.T) {
	g, mr := newRedisGuard(t, DefaultMaxHistory)
	ctx := context.Background()

	for i := 0; i <= DefaultMaxHistory; i++ {
		dup, err := g.CheckAndRecord(ctx, fmt.Sprintf("o-%d", i))
		require.NoError(t, err)
		require.False(t, dup)
	}
	members, err := mr.Members(g.setKey)
	require.NoError(t, err)
	assert.Len(t, members, DefaultMaxHistory)
	list, err := mr.List(g.listKey)
	require.NoError(t, err)
	require.Len(t, list, DefaultMaxHistory)
	assert.Equal(t, "o-1", list[0])

	for i := 1; i <= DefaultMaxHistory; i++ {
		dup, err := g.CheckAndRecord(ctx, fmt.Sprintf("o-%d", i))
		require.NoError(t, err)
		assert.True(t, dup, "o-%d should still be remembered", i)
	}
	dup, err := g.CheckAndRecord(ctx, "o-0")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestRedisGuard_CheckingDoesNotRefreshPosition(t *testing.T) {
	g, _ := newRedisGuard(t, 2)
	ctx := context.Background()

	_, _ = g.CheckAndRecord(ctx, "a")
	_, _ = g.CheckAndRecord(ctx, "b")
	dup, err := g.CheckAndRecord(ctx, "a")
	require.NoError(t, err)
	require.True(t, dup)
	_, _ = g.CheckAndRecord(ctx, "c") // evicts "a"

	dup, err = g.CheckAndRecord(ctx, "a")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestRedisGuard_ConcurrentSameID(t *testing.T) {
	g, _ := newRedisGuard(t, DefaultMaxHistory)
	var fresh atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dup, err := g.CheckAndRecord(context.Background(), "same")
			if err == nil && !dup {
				fresh.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), fresh.Load())
}

func TestRedisGuard_Forget(t *testing.T) {
	g, mr := newRedisGuard(t, 10)
	ctx := context.Background()

	_, _ = g.CheckAndRecord(ctx, "a")
	_, _ = g.CheckAndRecord(ctx, "b")
	require.NoError(t, g.Forget(ctx, "a"))

	list, err := mr.List(g.listKey)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, list)
	dup, err := g.CheckAndRecord(ctx, "a")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestRedisGuard_ServerDown(t *testing.T) {
	g, mr := newRedisGuard(t, 10)
	mr.Close()

	_, err := g.CheckAndRecord(context.Background(), "a")
	assert.Error(t, err)
	assert.Error(t, g.Forget(context.Background(), "a"))
}
