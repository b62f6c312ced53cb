package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/secretoheladeria/heladeria-backend/pkg/config"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{cmd: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
	require.EqualValues(t, 1, count)
	require.Equal(t, time.Minute, mock.ttl["hd:rate_limit:login:ip:1.2.3.4"])

	allowed, count, err = client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)
	require.EqualValues(t, 2, count)

	allowed, _, err = client.FixedWindowAllow(ctx, "login:ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)

	require.Equal(t, 3, mock.expireNXCalls, "expiry is asserted on every hit")
	require.Equal(t, 1, mock.expireNXApplied, "but only the first one sets it")
}

func TestIncrWindowPropagatesErrors(t *testing.T) {
	mock := newMockCmdable()
	mock.fail = errors.New("connection reset")
	client := &Client{cmd: mock}

	_, _, err := client.FixedWindowAllow(context.Background(), "x", 1, time.Second)
	require.ErrorIs(t, err, mock.fail)
}

func TestCartBlobLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{cmd: mock}

	key := client.CartKey("user-1")
	require.NoError(t, client.Set(ctx, key, `{"entries":[]}`, time.Hour))

	blob, err := client.GetTouch(ctx, key, 2*time.Hour)
	require.NoError(t, err)
	require.Equal(t, `{"entries":[]}`, blob)
	require.Equal(t, 2*time.Hour, mock.ttl[key])

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	require.ErrorIs(t, err, redis.Nil)
}

func TestGetTouchWithoutTTLKeepsExpiry(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{cmd: mock}

	require.NoError(t, client.Set(ctx, "hd:cart:x", "blob", time.Hour))
	_, err := client.GetTouch(ctx, "hd:cart:x", 0)
	require.NoError(t, err)
	require.Equal(t, time.Hour, mock.ttl["hd:cart:x"])
	require.Zero(t, mock.getExCalls)
}

func TestUninitializedClient(t *testing.T) {
	var client *Client
	require.ErrorIs(t, client.Ping(context.Background()), errNotConnected)
	_, err := (&Client{}).Get(context.Background(), "k")
	require.ErrorIs(t, err, errNotConnected)
	require.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "hd:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	require.Equal(t, "hd:rate_limit:scope", client.RateLimitKey("scope"))
	require.Equal(t, "hd:session:access:jti", client.AccessSessionKey("jti"))
	require.Equal(t, "hd:cart:user", client.CartKey("user"))
	require.Equal(t, "hd:idempotency:id", client.IdempotencyKey(" ", "id"), "blank parts are skipped")
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://:pw@cache:6380/3", PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, "cache:6380", opts.Addr)
	require.Equal(t, 3, opts.DB)
	require.Equal(t, "pw", opts.Password)
	require.Equal(t, 7, opts.PoolSize)
	require.Equal(t, time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "localhost:6379", DB: 2})
	require.NoError(t, err)
	require.Equal(t, "localhost:6379", opts.Addr)
	require.Equal(t, 2, opts.DB)

	_, err = optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

type mockCmdable struct {
	data            map[string]string
	ttl             map[string]time.Duration
	counters        map[string]int64
	expireNXCalls   int
	expireNXApplied int
	getExCalls      int
	fail            error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data:     map[string]string{},
		ttl:      map[string]time.Duration{},
		counters: map[string]int64{},
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.fail)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", m.fail)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) GetEx(_ context.Context, key string, expiration time.Duration) *redis.StringCmd {
	m.getExCalls++
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	m.ttl[key] = expiration
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	if m.fail != nil {
		return redis.NewIntResult(0, m.fail)
	}
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *mockCmdable) ExpireNX(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireNXCalls++
	if _, has := m.ttl[key]; has {
		return redis.NewBoolResult(false, nil)
	}
	m.ttl[key] = expiration
	m.expireNXApplied++
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttl, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
