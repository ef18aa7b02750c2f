package storage

import (
	"errors"
	"time"
)

type ExpiryStatus int

const (
	// ExpNotFound means that the key does not exist
	ExpNotFound ExpiryStatus = -2
	// ExpNoTimeout means that the key exists, but it does not have a TTL
	ExpNoTimeout ExpiryStatus = -1
	// ExpActive means that the key has an active lifetime
	ExpActive ExpiryStatus = 1
)

// Errors carry the reply line a server sends for them
var (
	ErrWrongType  = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")
	ErrNotInteger = errors.New("ERR value is not an integer or out of range")
	ErrOverflow   = errors.New("ERR increment or decrement would overflow")
)

type SetOptions struct {
	TTL     time.Duration // key lifetime
	KeepTTL bool          // if true, retain the existing TTL (ignore TTL field)
	NX      bool          // only set if the key does not exist
	XX      bool          // only set if the key already exists
}

// Storage is a common interface for working with key-value storages
type Storage interface {
	// Get returns the value and true if the key is found. Otherwise, "", false
	Get(key string) (string, bool, error)

	// Set writes the value based on the options. Returns true if recording has been performed
	Set(key, value string, options SetOptions) bool

	// Delete deletes the key. Returns true if the key existed and was deleted
	Delete(key string) bool

	// Exists reports whether the key holds a live value
	Exists(key string) bool

	// Expiry returns the remaining lifetime and status as ExpiryStatus
	Expiry(key string) (time.Duration, ExpiryStatus)

	// Expire sets the lifetime of an existing key, a non-positive ttl deletes it.
	// Returns false if the key was not found
	Expire(key string, ttl time.Duration) bool

	// Persist removes the expiration date of the key, making it eternal.
	// Returns 1 if successful, 0 if the key was not found or had no TTL
	Persist(key string) int64

	// IncrBy adds delta to the integer stored at key, a missing key counts as 0
	IncrBy(key string, delta int64) (int64, error)

	// Push adds values to the head (left) or tail of the list and returns its new length
	Push(key string, values []string, left bool) (int, error)

	// Pop removes up to count elements from the head (left) or tail.
	// found is false when the key does not exist
	Pop(key string, count int, left bool) (values []string, found bool, err error)

	// Range returns list elements between start and stop inclusive, negative indexes count from the tail
	Range(key string, start, stop int) ([]string, error)

	// DeleteExpired randomly selects a limit of keys from each shard and delete if his TTL has expired
	DeleteExpired(limit int) float64
}
