package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLock(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	l := NewRedis(client, ttl)
	l.retry = 5 * time.Millisecond
	return l, mr
}

func TestRedis_AcquireSetsTokenWithTTL(t *testing.T) {
	l, mr := newRedisLock(t, 30*time.Second)

	unlock, err := l.Lock(context.Background(), "oee:1:2026-03-10")
	require.NoError(t, err)

	token, err := mr.Get("oee:lock:oee:1:2026-03-10")
	require.NoError(t, err)
	assert.Len(t, token, 36)
	assert.Equal(t, 30*time.Second, mr.TTL("oee:lock:oee:1:2026-03-10"))

	unlock()
	assert.False(t, mr.Exists("oee:lock:oee:1:2026-03-10"))
}

func TestRedis_SecondHolderWaitsForRelease(t *testing.T) {
	l, _ := newRedisLock(t, 30*time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	acquired := make(chan func(), 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		second, err := l.Lock(ctx, "k")
		if assert.NoError(t, err) {
			acquired <- second
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case second := <-acquired:
		second()
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the released lock")
	}
}

func TestRedis_ContextCancelledWhileWaiting(t *testing.T) {
	l, _ := newRedisLock(t, 30*time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedis_ExpiredHolderDoesNotReleaseNewHolder(t *testing.T) {
	l, mr := newRedisLock(t, time.Second)

	unlockFirst, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlockSecond, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	secondToken, err := mr.Get("oee:lock:k")
	require.NoError(t, err)

	unlockFirst()

	token, err := mr.Get("oee:lock:k")
	require.NoError(t, err)
	assert.Equal(t, secondToken, token)

	unlockSecond()
	assert.False(t, mr.Exists("oee:lock:k"))
}

func TestRedis_ServerError(t *testing.T) {
	l, mr := newRedisLock(t, time.Second)
	mr.SetError("LOADING")

	_, err := l.Lock(context.Background(), "k")
	assert.Error(t, err)
}
