package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := New(mr.Addr(), "", 0)
	t.Cleanup(func() { rc.Close() })
	return rc
}

func TestUnreadCounter(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	n, err := rc.GetUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = rc.IncrUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = rc.IncrUnread(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, rc.DecrUnread(ctx, "u1"))
	n, err = rc.GetUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, rc.ResetUnread(ctx, "u1"))
	n, err = rc.GetUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestDecrUnreadClampsAtZero(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, rc.DecrUnread(ctx, "u1"))
	n, err := rc.GetUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestTokenRevocation(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	revoked, err := rc.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, rc.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err = rc.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestJSONValueRoundTrip(t *testing.T) {
	rc := newTestCache(t)
	ctx := context.Background()

	type entry struct {
		ID    string `json:"id"`
		Score int64  `json:"score"`
	}

	hit, err := rc.Get(ctx, "trending", &[]entry{})
	require.NoError(t, err)
	assert.False(t, hit)

	in := []entry{{ID: "p1", Score: 7}, {ID: "p2", Score: 3}}
	require.NoError(t, rc.Set(ctx, "trending", in, time.Minute))

	var out []entry
	hit, err = rc.Get(ctx, "trending", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, in, out)
}

func TestPublishSubscribe(t *testing.T) {
	rc := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, closeSub := rc.Subscribe(ctx, NotificationsChannel)
	defer closeSub()

	// Subscription setup races with publish; retry until delivered.
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			require.NoError(t, rc.Publish(ctx, NotificationsChannel, []byte(`{"hello":"world"}`)))
		case msg := <-out:
			assert.JSONEq(t, `{"hello":"world"}`, string(msg))
			return
		case <-deadline:
			t.Fatal("pub/sub message not delivered")
		}
	}
}
