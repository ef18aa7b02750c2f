package storage

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStorage_Concurrency(t *testing.T) {
	s := NewMapStorage()
	const workers = 50
	const opsPerWorker = 20000

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for j := 0; j < opsPerWorker; j++ {
				key := fmt.Sprintf("key-%d", r.Intn(50))
				val := fmt.Sprintf("val-%d", j)

				switch r.Intn(5) {
				case 0:
					s.Set(key, val, SetOptions{})
				case 1:
					s.Get(key) //nolint:errcheck
				case 2:
					s.Delete(key)
				case 3:
					s.Push("list-"+key, []string{val}, r.Intn(2) == 0) //nolint:errcheck
				case 4:
					s.Pop("list-"+key, 1, r.Intn(2) == 0) //nolint:errcheck
				}
			}
		}(i)
	}

	wg.Wait()
}

func FuzzMapStorage(f *testing.F) {
	s := NewMapStorage()

	f.Add("key1", "val1")
	f.Add("special", "!@#$%^&*()")

	f.Fuzz(func(t *testing.T, key string, val string) {
		s.Set(key, val, SetOptions{})

		v, ok, err := s.Get(key)
		if err != nil || !ok || v != val {
			t.Errorf("Get failed after Set: key=%q, val=%q", key, val)
		}
	})
}

func TestMapStorage_Expiry(t *testing.T) {
	s := NewMapStorage()

	_, status := s.Expiry("missing")
	assert.Equal(t, ExpNotFound, status)

	s.Set("k", "v", SetOptions{})
	_, status = s.Expiry("k")
	assert.Equal(t, ExpNoTimeout, status)

	require.True(t, s.Expire("k", time.Minute))
	ttl, status := s.Expiry("k")
	assert.Equal(t, ExpActive, status)
	assert.InDelta(t, time.Minute, ttl, float64(time.Second))

	assert.Equal(t, int64(1), s.Persist("k"))
	assert.Equal(t, int64(0), s.Persist("k"))

	require.True(t, s.Expire("k", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, s.Exists("k"))
	assert.False(t, s.Expire("k", time.Minute))

	s.Set("gone", "v", SetOptions{})
	assert.True(t, s.Expire("gone", 0), "non-positive ttl deletes")
	assert.False(t, s.Exists("gone"))
}

func TestMapStorage_IncrBy(t *testing.T) {
	s := NewMapStorage()

	n, err := s.IncrBy("counter", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.IncrBy("counter", -3)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), n)

	s.Set("text", "abc", SetOptions{})
	_, err = s.IncrBy("text", 1)
	assert.ErrorIs(t, err, ErrNotInteger)

	s.Set("max", fmt.Sprint(int64(math.MaxInt64)), SetOptions{})
	_, err = s.IncrBy("max", 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = s.Push("list", []string{"a"}, true)
	require.NoError(t, err)
	_, err = s.IncrBy("list", 1)
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestMapStorage_IncrByKeepsTTL(t *testing.T) {
	s := NewMapStorage()

	s.Set("counter", "1", SetOptions{TTL: time.Minute})
	_, err := s.IncrBy("counter", 1)
	require.NoError(t, err)

	_, status := s.Expiry("counter")
	assert.Equal(t, ExpActive, status)
}

func TestMapStorage_Lists(t *testing.T) {
	s := NewMapStorage()

	n, err := s.Push("l", []string{"a", "b"}, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Push("l", []string{"c"}, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err := s.Range("l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, items)

	tests := []struct {
		name        string
		start, stop int
		want        []string
	}{
		{"tail only", -1, -1, []string{"c"}},
		{"clamped stop", 1, 100, []string{"a", "c"}},
		{"clamped start", -100, 0, []string{"b"}},
		{"start past end", 5, 10, []string{}},
		{"inverted", 2, 1, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Range("l", tt.start, tt.stop)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	popped, found, err := s.Pop("l", 2, false)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"c", "a"}, popped)

	popped, found, err = s.Pop("l", 5, true)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"b"}, popped)

	assert.False(t, s.Exists("l"), "empty list is removed")

	_, found, err = s.Pop("l", 1, true)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMapStorage_WrongType(t *testing.T) {
	s := NewMapStorage()
	s.Set("str", "v", SetOptions{})

	_, err := s.Push("str", []string{"a"}, true)
	assert.ErrorIs(t, err, ErrWrongType)

	_, _, err = s.Pop("str", 1, true)
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = s.Range("str", 0, -1)
	assert.ErrorIs(t, err, ErrWrongType)

	_, err = s.Push("list", []string{"a"}, true)
	require.NoError(t, err)
	_, _, err = s.Get("list")
	assert.ErrorIs(t, err, ErrWrongType)

	assert.True(t, s.Set("list", "now a string", SetOptions{}), "SET overwrites any type")
}

func TestMapStorage_DeleteExpired(t *testing.T) {
	s := NewMapStorage()

	for i := 0; i < 10; i++ {
		s.Set(fmt.Sprintf("k%d", i), "v", SetOptions{TTL: time.Millisecond})
	}
	s.Set("keep", "v", SetOptions{TTL: time.Hour})

	time.Sleep(5 * time.Millisecond)

	ratio := s.DeleteExpired(100)
	assert.InDelta(t, 10.0/11.0, ratio, 1e-9)
	assert.True(t, s.Exists("keep"))
	assert.Equal(t, 0.0, NewMapStorage().DeleteExpired(10))
}

func TestShardedMapStorage(t *testing.T) {
	_, err := NewShardedMapStorage(3)
	assert.Error(t, err)

	_, err = NewShardedMapStorage(128)
	assert.Error(t, err)

	s, err := NewShardedMapStorage(8)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i)
		s.Set(key, key, SetOptions{TTL: time.Millisecond})
	}
	_, err = s.Push("list", []string{"x"}, false)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	assert.Greater(t, s.DeleteExpired(100), 0.0)

	items, err := s.Range("list", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, items)
}
