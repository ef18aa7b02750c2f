package client_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalApril/starlight/internal/client"
	"github.com/eternalApril/starlight/internal/config"
	"github.com/eternalApril/starlight/internal/resp"
	"github.com/eternalApril/starlight/internal/server"
	"github.com/eternalApril/starlight/internal/storage"
)

// sandbox starts an in-process server on an ephemeral port and returns its address
func sandbox(t *testing.T) string {
	t.Helper()

	engine := server.NewEngine(storage.NewMapStorage(), config.GCConfig{}, nil)
	srv := server.New("127.0.0.1:0", engine, nil)

	signal := make(chan error, 1)
	go srv.ListenServeAndSignal(signal) //nolint:errcheck
	require.NoError(t, <-signal)

	t.Cleanup(func() {
		srv.Close() //nolint:errcheck
		engine.Shutdown()
	})

	return srv.Addr().String()
}

func connect(t *testing.T, addr string) *client.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := client.Connect(ctx, addr, client.Options{DialTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() }) //nolint:errcheck

	return c
}

func TestClient_Sandbox(t *testing.T) {
	c := connect(t, sandbox(t))
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "foo", []byte("bar")))

	val, found, err := c.Get(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("bar"), val)

	_, found, err = c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	n, err := c.LPush(ctx, "list", "a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	items, err := c.LRange(ctx, "list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("c"), []byte("b"), []byte("a")}, items)

	_, _, err = c.Get(ctx, "list")
	var srvErr *client.ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, "WRONGTYPE", srvErr.Kind)
	assert.Equal(t, client.StateReady, c.Conn().State())

	ttl, err := c.TTL(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), ttl)

	ok, err := c.Expire(ctx, "foo", 100)
	require.NoError(t, err)
	assert.True(t, ok)

	written, err := c.SetWithOptions(ctx, "foo", []byte("baz"), client.SetOptions{Condition: client.SetIfNotExists})
	require.NoError(t, err)
	assert.False(t, written)

	count, err := c.Incr(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	popped, err := c.RPopCount(ctx, "list", 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, popped)
}

func TestClient_SandboxNegotiation(t *testing.T) {
	c := connect(t, sandbox(t))
	ctx := context.Background()

	v, err := c.Do(ctx, "DEBUG", "PROTOCOL", "map")
	require.NoError(t, err)
	assert.Equal(t, resp.TypeArray, v.Type, "RESP2 flattens maps")
	assert.Len(t, v.Array, 6)

	hello, err := c.Hello(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, resp.TypeMap, hello.Type)
	assert.Equal(t, 3, c.Conn().Protocol())

	v, err = c.Do(ctx, "DEBUG", "PROTOCOL", "map")
	require.NoError(t, err)
	require.Equal(t, resp.TypeMap, v.Type)
	assert.True(t, v.Map[1].Value.Equal(resp.MakeBoolean(true)))

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found, "RESP3 null")

	_, err = c.Hello(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Conn().Protocol())

	v, err = c.Do(ctx, "DEBUG", "PROTOCOL", "true")
	require.NoError(t, err)
	assert.True(t, v.Equal(resp.MakeInteger(1)))

	_, err = c.Do(ctx, "HELLO", "4")
	var srvErr *client.ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, "NOPROTO", srvErr.Kind)
}

func TestClient_SandboxConcurrentCallers(t *testing.T) {
	c := connect(t, sandbox(t))
	ctx := context.Background()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			var err error
			for j := 0; j < 50 && err == nil; j++ {
				_, err = c.Incr(ctx, "counter")
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}

	val, _, err := c.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, "400", string(val))
}

// TestClient_LiveRedis runs against a real server when STARLIGHT_REDIS_ADDR is set
func TestClient_LiveRedis(t *testing.T) {
	addr := os.Getenv("STARLIGHT_REDIS_ADDR")
	if addr == "" {
		t.Skip("STARLIGHT_REDIS_ADDR not set")
	}
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: addr, DisableIdentity: true})
	defer rdb.Close()

	key := "starlight:test:" + time.Now().Format("150405.000000")
	require.NoError(t, rdb.RPush(ctx, key, "x", "y", "z").Err())
	defer rdb.Del(ctx, key)

	c := connect(t, addr)

	items, err := c.LRange(ctx, key, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y"), []byte("z")}, items)

	_, err = c.Hello(ctx, 3)
	require.NoError(t, err)

	popped, err := c.LPopCount(ctx, key, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("x"), []byte("y")}, popped)
}
