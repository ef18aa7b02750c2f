package client

import (
	"context"
	"strconv"
	"time"

	"github.com/eternalApril/starlight/internal/resp"
)

// SetCondition restricts when SET writes
type SetCondition int

const (
	SetAlways      SetCondition = iota
	SetIfNotExists              // NX
	SetIfExists                 // XX
)

// SetOptions are the optional modifiers of SET
type SetOptions struct {
	TTL       time.Duration // EX for whole seconds, PX otherwise; 0 means none
	KeepTTL   bool          // KEEPTTL, exclusive with TTL
	Condition SetCondition
}

func (o SetOptions) args() ([]string, error) {
	var out []string

	switch {
	case o.TTL < 0, o.TTL > 0 && o.KeepTTL:
		return nil, ErrInvalidArgument
	case o.TTL > 0:
		out = append(out, durationArgs("EX", "PX", o.TTL)...)
	case o.KeepTTL:
		out = append(out, "KEEPTTL")
	}

	switch o.Condition {
	case SetAlways:
	case SetIfNotExists:
		out = append(out, "NX")
	case SetIfExists:
		out = append(out, "XX")
	default:
		return nil, ErrInvalidArgument
	}

	return out, nil
}

// Expiry selects how GETEX changes the expiration of a key. The zero value leaves it untouched.
type Expiry struct {
	TTL     time.Duration // EX or PX
	At      time.Time     // EXAT or PXAT
	Persist bool          // PERSIST
}

func (e Expiry) args() ([]string, error) {
	set := 0
	if e.TTL != 0 {
		set++
	}
	if !e.At.IsZero() {
		set++
	}
	if e.Persist {
		set++
	}
	if set > 1 || e.TTL < 0 {
		return nil, ErrInvalidArgument
	}

	switch {
	case e.TTL > 0:
		return durationArgs("EX", "PX", e.TTL), nil
	case !e.At.IsZero():
		ms := e.At.UnixMilli()
		if ms%1000 == 0 {
			return []string{"EXAT", strconv.FormatInt(ms/1000, 10)}, nil
		}
		return []string{"PXAT", strconv.FormatInt(ms, 10)}, nil
	case e.Persist:
		return []string{"PERSIST"}, nil
	}
	return nil, nil
}

func durationArgs(seconds, millis string, d time.Duration) []string {
	if d%time.Second == 0 {
		return []string{seconds, strconv.FormatInt(int64(d/time.Second), 10)}
	}
	return []string{millis, strconv.FormatInt(d.Milliseconds(), 10)}
}

// Ping sends PING, with msg as its argument when not nil
func (c *Client) Ping(ctx context.Context, msg []byte) (string, error) {
	a := command("PING")
	if msg != nil {
		a = append(a, msg)
	}
	return call(ctx, c, textReply, a...)
}

// Get returns the value of key and whether it exists. A missing key and a
// null reply of either protocol generation are indistinguishable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := call(ctx, c, bulkReply, command("GET", key)...)
	return b.data, b.found, err
}

// Set stores value under key
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	_, err := call(ctx, c, okReply, [][]byte{[]byte("SET"), []byte(key), value}...)
	return err
}

// SetWithOptions stores value under key with expiration and condition
// modifiers. It reports false when a condition prevented the write.
func (c *Client) SetWithOptions(ctx context.Context, key string, value []byte, opts SetOptions) (bool, error) {
	extra, err := opts.args()
	if err != nil {
		return false, err
	}

	a := [][]byte{[]byte("SET"), []byte(key), value}
	for _, e := range extra {
		a = append(a, []byte(e))
	}
	return call(ctx, c, okOrNullReply, a...)
}

// GetEx returns the value of key and optionally changes its expiration
func (c *Client) GetEx(ctx context.Context, key string, expiry Expiry) ([]byte, bool, error) {
	extra, err := expiry.args()
	if err != nil {
		return nil, false, err
	}

	b, err := call(ctx, c, bulkReply, command("GETEX", append([]string{key}, extra...)...)...)
	return b.data, b.found, err
}

// Del removes keys and returns how many existed
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, ErrInvalidArgument
	}
	return call(ctx, c, integerReply, command("DEL", keys...)...)
}

// Exists returns how many of keys exist, counting repeats
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, ErrInvalidArgument
	}
	return call(ctx, c, integerReply, command("EXISTS", keys...)...)
}

// Expire sets a timeout on key. Non-positive seconds are sent as is; the
// server deletes the key in that case.
func (c *Client) Expire(ctx context.Context, key string, seconds int64) (bool, error) {
	return call(ctx, c, boolReply, command("EXPIRE", key, strconv.FormatInt(seconds, 10))...)
}

// TTL returns the remaining time to live in seconds, -2 for a missing key and -1 without expiry
func (c *Client) TTL(ctx context.Context, key string) (int64, error) {
	return call(ctx, c, integerReply, command("TTL", key)...)
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return call(ctx, c, integerReply, command("INCR", key)...)
}

func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	return call(ctx, c, integerReply, command("DECR", key)...)
}

// LPush prepends values to the list at key and returns its new length
func (c *Client) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	return c.push(ctx, "LPUSH", key, values)
}

// RPush appends values to the list at key and returns its new length
func (c *Client) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	return c.push(ctx, "RPUSH", key, values)
}

func (c *Client) push(ctx context.Context, name, key string, values []string) (int64, error) {
	if len(values) == 0 {
		return 0, ErrInvalidArgument
	}
	return call(ctx, c, integerReply, command(name, append([]string{key}, values...)...)...)
}

// LPop removes and returns the first element of the list at key
func (c *Client) LPop(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := call(ctx, c, bulkReply, command("LPOP", key)...)
	return b.data, b.found, err
}

// RPop removes and returns the last element of the list at key
func (c *Client) RPop(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := call(ctx, c, bulkReply, command("RPOP", key)...)
	return b.data, b.found, err
}

// LPopCount removes up to count elements from the head. A missing key yields nil.
func (c *Client) LPopCount(ctx context.Context, key string, count int64) ([][]byte, error) {
	return c.popCount(ctx, "LPOP", key, count)
}

// RPopCount removes up to count elements from the tail. A missing key yields nil.
func (c *Client) RPopCount(ctx context.Context, key string, count int64) ([][]byte, error) {
	return c.popCount(ctx, "RPOP", key, count)
}

func (c *Client) popCount(ctx context.Context, name, key string, count int64) ([][]byte, error) {
	if count <= 0 {
		return nil, ErrInvalidArgument
	}
	return call(ctx, c, bulkListReply, command(name, key, strconv.FormatInt(count, 10))...)
}

// LRange returns the elements between start and stop inclusive; negative indexes count from the tail
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	return call(ctx, c, bulkListReply, command("LRANGE", key, strconv.FormatInt(start, 10), strconv.FormatInt(stop, 10))...)
}

// Hello switches the protocol version when proto is 2 or 3, or only queries
// the server when proto is 0
func (c *Client) Hello(ctx context.Context, proto int) (resp.Value, error) {
	if proto == 0 {
		return call(ctx, c, helloReply, command("HELLO")...)
	}

	return c.conn.Negotiate(ctx, proto)
}

// Do sends an arbitrary command and returns its reply unchanged, except that
// error replies become a *ServerError
func (c *Client) Do(ctx context.Context, a ...string) (resp.Value, error) {
	if len(a) == 0 {
		return resp.Value{}, ErrInvalidArgument
	}
	return call(ctx, c, rawReply, command(a[0], a[1:]...)...)
}
