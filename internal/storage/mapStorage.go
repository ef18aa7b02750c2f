package storage

import (
	"math"
	"strconv"
	"sync"
	"time"
)

// MapStorage is a thread-safe key-value storage.
type MapStorage struct {
	data    map[string]*Entity // key - value
	expires map[string]int64   // key - expires time nanoseconds
	mu      sync.RWMutex
}

// NewMapStorage creates a new instance of MapStorage.
func NewMapStorage() *MapStorage {
	return &MapStorage{
		data:    make(map[string]*Entity),
		expires: make(map[string]int64),
		mu:      sync.RWMutex{},
	}
}

// entity returns the live entity stored at key, dropping it first if it has expired.
// m.mu must be held for writing
func (m *MapStorage) entity(key string) (*Entity, bool) {
	if exp, hasExp := m.expires[key]; hasExp && time.Now().UnixNano() > exp {
		delete(m.data, key)
		delete(m.expires, key)
		return nil, false
	}

	e, ok := m.data[key]
	return e, ok
}

// list returns the list stored at key. m.mu must be held for writing
func (m *MapStorage) list(key string) ([]string, bool, error) {
	e, ok := m.entity(key)
	if !ok {
		return nil, false, nil
	}
	if e.Type != TypeList {
		return nil, false, ErrWrongType
	}
	return e.Value.([]string), true, nil
}

// Get returns the value and true if the key is found. Otherwise, "", false
func (m *MapStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	exp, hasExp := m.expires[key]
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok {
		return "", false, nil
	}

	if hasExp && time.Now().UnixNano() > exp {
		m.mu.Lock()
		defer m.mu.Unlock()

		// checking again, can be changed while waiting for the lock
		if e, ok = m.entity(key); !ok {
			return "", false, nil
		}
	}

	if e.Type != TypeString {
		return "", false, ErrWrongType
	}

	return e.Value.(string), true, nil
}

// Set writes the value based on the options. Returns true if recording has been performed
func (m *MapStorage) Set(key, value string, options SetOptions) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	// an expired key is cleaned up now so logic below treats it as new
	_, exists := m.entity(key)

	if options.NX && exists {
		return false
	}

	if options.XX && !exists {
		return false
	}

	m.data[key] = newString(value)

	if options.KeepTTL {
		// if KEEPTTL is set, we do nothing to m.expires (retain existing)
		// however, if the key is new (freshly created), KEEPTTL behaves like no TTL
		if !exists {
			delete(m.expires, key)
		}
	} else {
		if options.TTL == 0 {
			// no TTL provided (and not KEEPTTL), so we remove any existing expiration (persist)
			delete(m.expires, key)
		} else {
			m.expires[key] = time.Now().Add(options.TTL).UnixNano()
		}
	}

	return true
}

// Delete deletes the key. Returns true if the key existed and was deleted
func (m *MapStorage) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entity(key); ok {
		delete(m.data, key)
		delete(m.expires, key)
		return true
	}
	return false
}

// Exists reports whether the key holds a live value
func (m *MapStorage) Exists(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entity(key)
	return ok
}

// Expiry returns the remaining lifetime and status as expiryStatus
func (m *MapStorage) Expiry(key string) (time.Duration, ExpiryStatus) {
	m.mu.RLock()

	_, ok := m.data[key]
	exp, hasExp := m.expires[key]

	m.mu.RUnlock()

	// key does not exist
	if !ok {
		return 0, ExpNotFound
	}

	// key without TTL
	if !hasExp {
		return 0, ExpNoTimeout
	}

	now := time.Now().UnixNano()

	if now > exp {
		m.mu.Lock()
		defer m.mu.Unlock()

		if _, ok = m.entity(key); !ok {
			return 0, ExpNotFound
		}

		exp, hasExp = m.expires[key]
		if !hasExp {
			return 0, ExpNoTimeout
		}

		return time.Duration(exp - time.Now().UnixNano()), ExpActive
	}

	return time.Duration(exp - now), ExpActive
}

// Expire sets the lifetime of an existing key, a non-positive ttl deletes it
func (m *MapStorage) Expire(key string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entity(key); !ok {
		return false
	}

	if ttl <= 0 {
		delete(m.data, key)
		delete(m.expires, key)
		return true
	}

	m.expires[key] = time.Now().Add(ttl).UnixNano()
	return true
}

// Persist removes the expiration date of the key, making it eternal.
// Returns 1 if successful, 0 if the key was not found or had no TTL
func (m *MapStorage) Persist(key string) int64 {
	m.mu.RLock()

	_, ok := m.data[key]
	_, hasExp := m.expires[key]

	m.mu.RUnlock()

	if !ok || !hasExp {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok = m.entity(key); !ok {
		return 0
	}
	if _, hasExp = m.expires[key]; !hasExp {
		return 0
	}

	delete(m.expires, key)

	return 1
}

// IncrBy adds delta to the integer stored at key. The TTL of the key is kept
func (m *MapStorage) IncrBy(key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64

	if e, ok := m.entity(key); ok {
		if e.Type != TypeString {
			return 0, ErrWrongType
		}

		n, err := strconv.ParseInt(e.Value.(string), 10, 64)
		if err != nil {
			return 0, ErrNotInteger
		}
		current = n
	}

	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return 0, ErrOverflow
	}

	current += delta
	m.data[key] = newString(strconv.FormatInt(current, 10))

	return current, nil
}

// Push adds values to the head (left) or tail of the list and returns its new length.
// With left each value is prepended in turn, so the last one ends up first
func (m *MapStorage) Push(key string, values []string, left bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, _, err := m.list(key)
	if err != nil {
		return 0, err
	}

	if left {
		head := make([]string, 0, len(values)+len(items))
		for i := len(values) - 1; i >= 0; i-- {
			head = append(head, values[i])
		}
		items = append(head, items...)
	} else {
		items = append(items, values...)
	}

	m.data[key] = &Entity{Type: TypeList, Value: items}

	return len(items), nil
}

// Pop removes up to count elements from the head (left) or tail.
// The key is deleted once its list is empty
func (m *MapStorage) Pop(key string, count int, left bool) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, ok, err := m.list(key)
	if err != nil || !ok {
		return nil, false, err
	}

	count = min(count, len(items))
	out := make([]string, count)

	if left {
		copy(out, items[:count])
		items = items[count:]
	} else {
		for i := 0; i < count; i++ {
			out[i] = items[len(items)-1-i]
		}
		items = items[:len(items)-count]
	}

	if len(items) == 0 {
		delete(m.data, key)
		delete(m.expires, key)
	} else {
		m.data[key].Value = items
	}

	return out, true, nil
}

// Range returns list elements between start and stop inclusive, negative indexes count from the tail
func (m *MapStorage) Range(key string, start, stop int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items, _, err := m.list(key)
	if err != nil {
		return nil, err
	}

	n := len(items)
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	stop = min(stop, n-1)

	if start > stop || start >= n {
		return []string{}, nil
	}

	out := make([]string, stop-start+1)
	copy(out, items[start:stop+1])

	return out, nil
}

// DeleteExpired randomly selects a limit of keys from each shard and delete if his TTL has expired
func (m *MapStorage) DeleteExpired(limit int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.expires) == 0 {
		return 0.0
	}

	checked := 0
	expired := 0
	now := time.Now().UnixNano()

	// go map iteration is randomized by design
	for key, expTime := range m.expires {
		checked++
		if now > expTime {
			delete(m.data, key)
			delete(m.expires, key)
			expired++
		}

		if checked >= limit {
			break
		}
	}

	return float64(expired) / float64(checked)
}
