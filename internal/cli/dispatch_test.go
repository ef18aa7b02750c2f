package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalApril/starlight/internal/client"
)

func TestParseSetOptions(t *testing.T) {
	tests := []struct {
		words []string
		want  client.SetOptions
		ok    bool
	}{
		{[]string{"nx"}, client.SetOptions{Condition: client.SetIfNotExists}, true},
		{[]string{"XX", "EX", "10"}, client.SetOptions{Condition: client.SetIfExists, TTL: 10 * time.Second}, true},
		{[]string{"px", "1500"}, client.SetOptions{TTL: 1500 * time.Millisecond}, true},
		{[]string{"KEEPTTL"}, client.SetOptions{KeepTTL: true}, true},
		{[]string{"EX"}, client.SetOptions{}, false},
		{[]string{"EX", "0"}, client.SetOptions{}, false},
		{[]string{"EX", "ten"}, client.SetOptions{}, false},
		{[]string{"EX", "1", "PX", "1"}, client.SetOptions{}, false},
		{[]string{"EX", "1", "KEEPTTL"}, client.SetOptions{}, false},
		{[]string{"EXAT", "1700000000"}, client.SetOptions{}, false},
		{[]string{"GET"}, client.SetOptions{}, false},
	}

	for _, tt := range tests {
		got, ok := parseSetOptions(tt.words)
		assert.Equal(t, tt.ok, ok, "%v", tt.words)
		if tt.ok {
			assert.Equal(t, tt.want, got, "%v", tt.words)
		}
	}
}

func TestParseExpiry(t *testing.T) {
	e, ok, err := parseExpiry(nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, client.Expiry{}, e)

	e, ok, err = parseExpiry([]string{"persist"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, e.Persist)

	e, ok, err = parseExpiry([]string{"PX", "250"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, e.TTL)

	e, ok, err = parseExpiry([]string{"exat", "1700000000"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Unix(1700000000, 0), e.At)

	_, _, err = parseExpiry([]string{"EX", "soon"})
	assert.Equal(t, errNotInteger, err)

	// left for the server to reject with its own wording
	_, ok, err = parseExpiry([]string{"EX", "-1"})
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = parseExpiry([]string{"EX"})
	assert.False(t, ok)
}

func TestArityOK(t *testing.T) {
	assert.True(t, arityOK(2, 2))
	assert.False(t, arityOK(2, 3))
	assert.True(t, arityOK(-2, 2))
	assert.True(t, arityOK(-2, 5))
	assert.False(t, arityOK(-2, 1))
}

func TestWrongArity(t *testing.T) {
	assert.EqualError(t, wrongArity("LPUSH"), "ERR wrong number of arguments for 'lpush' command")
}

func TestCommandTable(t *testing.T) {
	info, ok := lookupCommand("expire")
	require.True(t, ok)
	assert.Equal(t, -3, info.arity)
	assert.True(t, arityOK(info.arity, len([]string{"EXPIRE", "k", "10", "NX"})))

	_, ok = lookupCommand("FLUSHALL")
	assert.False(t, ok, "unknown commands are left to the server")

	names := commandNames()
	assert.Len(t, names, len(commandTable))
	assert.IsIncreasing(t, names)
	for _, name := range names {
		assert.NotEmpty(t, commandTable[name].summary, name)
		assert.NotZero(t, commandTable[name].arity, name)
	}
}
