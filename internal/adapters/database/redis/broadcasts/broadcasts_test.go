package broadcasts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) (*Storage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStorage(client, "test"), mr
}

func TestStorage_ClaimOnce(t *testing.T) {
	s, mr := newStorage(t)
	ctx := context.Background()

	ok, err := s.Claim(ctx, "checkin:1700000000", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Claim(ctx, "checkin:1700000000", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists("test:checkin:1700000000"))
	assert.False(t, mr.Exists("test:checkin:1700600000"))
}

func TestStorage_ConcurrentClaim(t *testing.T) {
	s, _ := newStorage(t)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.Claim(ctx, "checkin:42", time.Hour)
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestStorage_MarkerExpires(t *testing.T) {
	s, mr := newStorage(t)
	ctx := context.Background()

	ok, err := s.Claim(ctx, "checkin:7", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = s.Claim(ctx, "checkin:7", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStorage_Unavailable(t *testing.T) {
	s, mr := newStorage(t)
	mr.Close()

	_, err := s.Claim(context.Background(), "checkin:1", time.Minute)
	assert.Error(t, err)
}
