package storage

import (
	"errors"
	"hash/fnv"
	"math/bits"
	"sync"
	"time"
)

// ShardedMapStorage is a thread-safe key-value storage,
// divided into segments (shards) to reduce contention for locking
type ShardedMapStorage struct {
	shards    []*MapStorage
	shardMask uint32
}

// NewShardedMapStorage creates a new instance of ShardedMapStorage.
// The requestedShards parameter must be a power of two for efficient allocation.
// The maximum allowed number of shards is 64.
func NewShardedMapStorage(requestedShards uint) (*ShardedMapStorage, error) {
	if bits.OnesCount(requestedShards) != 1 {
		return nil, errors.New("requested shards must be a power of 2")
	}

	if requestedShards > 64 {
		return nil, errors.New("requested shards must be less or equal than 64")
	}

	s := &ShardedMapStorage{
		shards:    make([]*MapStorage, requestedShards),
		shardMask: uint32(requestedShards - 1),
	}

	var i uint
	for i = 0; i < requestedShards; i++ {
		s.shards[i] = NewMapStorage()
	}

	return s, nil
}

// shard returns the shard owning key
func (s *ShardedMapStorage) shard(key string) *MapStorage {
	hash := fnv.New32a()
	hash.Write([]byte(key)) //nolint:errcheck

	return s.shards[hash.Sum32()&s.shardMask]
}

// Get returns the value and true if the key is found. Otherwise, "", false.
func (s *ShardedMapStorage) Get(key string) (string, bool, error) {
	return s.shard(key).Get(key)
}

// Set writes the value based on the options. Returns true if recording has been performed.
func (s *ShardedMapStorage) Set(key, value string, options SetOptions) bool {
	return s.shard(key).Set(key, value, options)
}

// Delete deletes the key. Returns true if the key existed and was deleted.
func (s *ShardedMapStorage) Delete(key string) bool {
	return s.shard(key).Delete(key)
}

func (s *ShardedMapStorage) Exists(key string) bool {
	return s.shard(key).Exists(key)
}

// Expiry returns the remaining lifetime and status as ExpiryStatus
func (s *ShardedMapStorage) Expiry(key string) (time.Duration, ExpiryStatus) {
	return s.shard(key).Expiry(key)
}

func (s *ShardedMapStorage) Expire(key string, ttl time.Duration) bool {
	return s.shard(key).Expire(key, ttl)
}

// Persist removes the expiration date of the key, making it eternal.
// Returns 1 if successful, 0 if the key was not found or had no TTL
func (s *ShardedMapStorage) Persist(key string) int64 {
	return s.shard(key).Persist(key)
}

func (s *ShardedMapStorage) IncrBy(key string, delta int64) (int64, error) {
	return s.shard(key).IncrBy(key, delta)
}

func (s *ShardedMapStorage) Push(key string, values []string, left bool) (int, error) {
	return s.shard(key).Push(key, values, left)
}

func (s *ShardedMapStorage) Pop(key string, count int, left bool) ([]string, bool, error) {
	return s.shard(key).Pop(key, count, left)
}

func (s *ShardedMapStorage) Range(key string, start, stop int) ([]string, error) {
	return s.shard(key).Range(key, start, stop)
}

// DeleteExpired randomly selects a limit of keys from each shard and delete if his TTL has expired
func (s *ShardedMapStorage) DeleteExpired(limit int) float64 {
	var wg sync.WaitGroup
	var totalRatio float64
	var mu sync.Mutex // protects totalRatio

	shardCount := len(s.shards)
	wg.Add(shardCount)

	for _, shard := range s.shards {
		go func(m *MapStorage) {
			ratio := m.DeleteExpired(limit)

			mu.Lock()
			totalRatio += ratio
			mu.Unlock()

			wg.Done()
		}(shard)
	}

	wg.Wait()

	return totalRatio / float64(shardCount)
}
