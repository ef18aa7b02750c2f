package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eternalApril/starlight/internal/client"
	"github.com/eternalApril/starlight/internal/resp"
)

// usageError is a command rejected before it was sent
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func wrongArity(name string) error {
	return &usageError{msg: fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name))}
}

var errNotInteger = &usageError{msg: "ERR value is not an integer or out of range"}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	return n, nil
}

// dispatch runs one command line. Commands with a typed method go through it
// and their result is turned back into a reply for rendering; everything else
// is sent unchanged
func dispatch(ctx context.Context, c *client.Client, args []string) (resp.Value, error) {
	name := strings.ToUpper(args[0])
	rest := args[1:]

	if info, ok := lookupCommand(name); ok && !arityOK(info.arity, len(args)) {
		return resp.Value{}, wrongArity(name)
	}

	switch name {
	case "PING":
		if len(rest) > 1 {
			return resp.Value{}, wrongArity(name)
		}
		if len(rest) == 1 {
			s, err := c.Ping(ctx, []byte(rest[0]))
			return resp.MakeBulkString(s), err
		}
		s, err := c.Ping(ctx, nil)
		return resp.MakeSimpleString(s), err

	case "GET":
		return bulkValue(c.Get(ctx, rest[0]))

	case "SET":
		if len(rest) == 2 {
			err := c.Set(ctx, rest[0], []byte(rest[1]))
			return resp.MakeSimpleString("OK"), err
		}
		opts, ok := parseSetOptions(rest[2:])
		if !ok {
			return c.Do(ctx, args...)
		}
		written, err := c.SetWithOptions(ctx, rest[0], []byte(rest[1]), opts)
		if err != nil || !written {
			return resp.MakeNull(), err
		}
		return resp.MakeSimpleString("OK"), nil

	case "GETEX":
		expiry, ok, err := parseExpiry(rest[1:])
		if err != nil {
			return resp.Value{}, err
		}
		if !ok {
			return c.Do(ctx, args...)
		}
		return bulkValue(c.GetEx(ctx, rest[0], expiry))

	case "DEL":
		return integerValue(c.Del(ctx, rest...))

	case "EXISTS":
		return integerValue(c.Exists(ctx, rest...))

	case "EXPIRE":
		if len(rest) > 2 {
			// NX, XX, GT and LT are the server's to validate
			return c.Do(ctx, args...)
		}
		seconds, err := parseInt(rest[1])
		if err != nil {
			return resp.Value{}, err
		}
		ok, err := c.Expire(ctx, rest[0], seconds)
		if ok {
			return resp.MakeInteger(1), err
		}
		return resp.MakeInteger(0), err

	case "TTL":
		return integerValue(c.TTL(ctx, rest[0]))

	case "INCR":
		return integerValue(c.Incr(ctx, rest[0]))

	case "DECR":
		return integerValue(c.Decr(ctx, rest[0]))

	case "LPUSH":
		return integerValue(c.LPush(ctx, rest[0], rest[1:]...))

	case "RPUSH":
		return integerValue(c.RPush(ctx, rest[0], rest[1:]...))

	case "LPOP", "RPOP":
		return pop(ctx, c, name, rest)

	case "LRANGE":
		start, err := parseInt(rest[1])
		if err != nil {
			return resp.Value{}, err
		}
		stop, err := parseInt(rest[2])
		if err != nil {
			return resp.Value{}, err
		}
		return listValue(c.LRange(ctx, rest[0], start, stop))

	case "HELLO":
		proto := 0
		if len(rest) > 0 {
			if len(rest) > 1 {
				// AUTH and SETNAME are passed through, the protocol stays ours to track
				return c.Do(ctx, args...)
			}
			n, err := parseInt(rest[0])
			if err != nil {
				return resp.Value{}, &usageError{msg: "NOPROTO unsupported protocol version"}
			}
			proto = int(n)
		}
		return c.Hello(ctx, proto)
	}

	return c.Do(ctx, args...)
}

func arityOK(arity, n int) bool {
	if arity >= 0 {
		return n == arity
	}
	return n >= -arity
}

func pop(ctx context.Context, c *client.Client, name string, rest []string) (resp.Value, error) {
	left := name == "LPOP"

	switch len(rest) {
	case 1:
		if left {
			return bulkValue(c.LPop(ctx, rest[0]))
		}
		return bulkValue(c.RPop(ctx, rest[0]))
	case 2:
		count, err := parseInt(rest[1])
		if err != nil {
			return resp.Value{}, err
		}
		if count <= 0 {
			// the server decides what zero and negative counts mean
			return c.Do(ctx, name, rest[0], rest[1])
		}
		if left {
			return nullableListValue(c.LPopCount(ctx, rest[0], count))
		}
		return nullableListValue(c.RPopCount(ctx, rest[0], count))
	}
	return resp.Value{}, wrongArity(name)
}

// parseSetOptions reads the SET modifiers the typed method supports.
// Anything else is left for the server to judge
func parseSetOptions(words []string) (client.SetOptions, bool) {
	var opts client.SetOptions

	for i := 0; i < len(words); i++ {
		switch strings.ToUpper(words[i]) {
		case "NX":
			opts.Condition = client.SetIfNotExists
		case "XX":
			opts.Condition = client.SetIfExists
		case "KEEPTTL":
			opts.KeepTTL = true
		case "EX", "PX":
			if i+1 >= len(words) || opts.TTL != 0 {
				return opts, false
			}
			n, err := strconv.ParseInt(words[i+1], 10, 64)
			if err != nil || n <= 0 {
				return opts, false
			}
			unit := time.Second
			if strings.ToUpper(words[i]) == "PX" {
				unit = time.Millisecond
			}
			opts.TTL = time.Duration(n) * unit
			i++
		default:
			return opts, false
		}
	}

	if opts.TTL != 0 && opts.KeepTTL {
		return opts, false
	}
	return opts, true
}

// parseExpiry reads the GETEX modifiers. ok is false for shapes left to the server
func parseExpiry(words []string) (client.Expiry, bool, error) {
	switch len(words) {
	case 0:
		return client.Expiry{}, true, nil
	case 1:
		if strings.ToUpper(words[0]) == "PERSIST" {
			return client.Expiry{Persist: true}, true, nil
		}
		return client.Expiry{}, false, nil
	case 2:
		n, err := parseInt(words[1])
		if err != nil {
			return client.Expiry{}, false, err
		}
		if n <= 0 {
			return client.Expiry{}, false, nil
		}
		switch strings.ToUpper(words[0]) {
		case "EX":
			return client.Expiry{TTL: time.Duration(n) * time.Second}, true, nil
		case "PX":
			return client.Expiry{TTL: time.Duration(n) * time.Millisecond}, true, nil
		case "EXAT":
			return client.Expiry{At: time.Unix(n, 0)}, true, nil
		case "PXAT":
			return client.Expiry{At: time.UnixMilli(n)}, true, nil
		}
	}
	return client.Expiry{}, false, nil
}

func bulkValue(data []byte, found bool, err error) (resp.Value, error) {
	if !found {
		return resp.MakeNull(), err
	}
	return resp.MakeBulkBytes(data), err
}

func integerValue(n int64, err error) (resp.Value, error) {
	return resp.MakeInteger(n), err
}

func listValue(items [][]byte, err error) (resp.Value, error) {
	vals := make([]resp.Value, len(items))
	for i, it := range items {
		vals[i] = resp.MakeBulkBytes(it)
	}
	return resp.MakeArray(vals), err
}

func nullableListValue(items [][]byte, err error) (resp.Value, error) {
	if items == nil {
		return resp.MakeNull(), err
	}
	return listValue(items, err)
}
