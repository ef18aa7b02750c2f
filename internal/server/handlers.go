package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eternalApril/starlight/internal/resp"
	"github.com/eternalApril/starlight/internal/storage"
)

var (
	replyOK          = resp.MakeSimpleString("OK")
	errSyntax        = resp.MakeError("ERR", "syntax error")
	errNotInteger    = resp.MakeError("ERR", "value is not an integer or out of range")
	errNotPositive   = resp.MakeError("ERR", "value is out of range, must be positive")
	errUnknownSubcmd = "unknown subcommand '%s'. Try %s HELP."
)

// storageError converts a storage failure into the reply a server sends for it
func storageError(err error) resp.Value {
	return resp.ParseErrorLine(err.Error())
}

func argInt(v resp.Value) (int64, bool) {
	n, err := strconv.ParseInt(v.Text(), 10, 64)
	return n, err == nil
}

func keys(args []resp.Value) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = a.Text()
	}
	return out
}

func bulkList(items []string) resp.Value {
	return resp.MakeBulkArray(items...)
}

// parseExpiry converts an EX/PX/EXAT/PXAT argument into a lifetime.
// A timestamp in the past yields the smallest positive lifetime, so the key expires at once
func parseExpiry(cmd, unit string, arg resp.Value) (time.Duration, resp.Value, bool) {
	n, ok := argInt(arg)
	if !ok {
		return 0, errNotInteger, false
	}
	if n <= 0 {
		return 0, resp.MakeError("ERR", fmt.Sprintf("invalid expire time in '%s' command", strings.ToLower(cmd))), false
	}

	var ttl time.Duration
	switch unit {
	case "EX":
		ttl = time.Duration(n) * time.Second
	case "PX":
		ttl = time.Duration(n) * time.Millisecond
	case "EXAT":
		ttl = time.Until(time.Unix(n, 0))
	case "PXAT":
		ttl = time.Until(time.UnixMilli(n))
	}

	return max(ttl, time.Nanosecond), resp.Value{}, true
}

// ping returns PONG, or a copy of the argument
func ping(ctx *context) resp.Value {
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkBytes(ctx.args[0].String)
	}
	return resp.MakeErrorWrongNumberOfArguments("PING")
}

func echo(ctx *context) resp.Value {
	return resp.MakeBulkBytes(ctx.args[0].String)
}

func get(ctx *context) resp.Value {
	val, ok, err := ctx.storage.Get(ctx.args[0].Text())
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNull()
	}
	return resp.MakeBulkString(val)
}

// set SET key value [NX | XX] [EX seconds | PX milliseconds | EXAT unix-time-seconds | PXAT unix-time-milliseconds | KEEPTTL]
func set(ctx *context) resp.Value {
	var opts storage.SetOptions
	ttlSet := false

	for i := 2; i < len(ctx.args); i++ {
		opt := strings.ToUpper(ctx.args[i].Text())

		switch opt {
		case "NX":
			if opts.XX {
				return errSyntax
			}
			opts.NX = true
		case "XX":
			if opts.NX {
				return errSyntax
			}
			opts.XX = true
		case "KEEPTTL":
			if ttlSet {
				return errSyntax
			}
			opts.KeepTTL = true
			ttlSet = true
		case "EX", "PX", "EXAT", "PXAT":
			if ttlSet || i+1 >= len(ctx.args) {
				return errSyntax
			}
			ttl, errReply, ok := parseExpiry("SET", opt, ctx.args[i+1])
			if !ok {
				return errReply
			}
			opts.TTL = ttl
			ttlSet = true
			i++
		default:
			return errSyntax
		}
	}

	if !ctx.storage.Set(ctx.args[0].Text(), ctx.args[1].Text(), opts) {
		return resp.MakeNull()
	}
	return replyOK
}

// setnx SETNX key value
func setnx(ctx *context) resp.Value {
	if ctx.storage.Set(ctx.args[0].Text(), ctx.args[1].Text(), storage.SetOptions{NX: true}) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

// getex GETEX key [EX seconds | PX milliseconds | EXAT unix-time-seconds | PXAT unix-time-milliseconds | PERSIST]
func getex(ctx *context) resp.Value {
	key := ctx.args[0].Text()

	var (
		ttl     time.Duration
		persist bool
	)

	switch len(ctx.args) {
	case 1:
	case 2:
		if strings.ToUpper(ctx.args[1].Text()) != "PERSIST" {
			return errSyntax
		}
		persist = true
	case 3:
		unit := strings.ToUpper(ctx.args[1].Text())
		switch unit {
		case "EX", "PX", "EXAT", "PXAT":
		default:
			return errSyntax
		}
		var (
			errReply resp.Value
			ok       bool
		)
		if ttl, errReply, ok = parseExpiry("GETEX", unit, ctx.args[2]); !ok {
			return errReply
		}
	default:
		return errSyntax
	}

	val, ok, err := ctx.storage.Get(key)
	if err != nil {
		return storageError(err)
	}
	if !ok {
		return resp.MakeNull()
	}

	switch {
	case persist:
		ctx.storage.Persist(key)
	case ttl > 0:
		ctx.storage.Expire(key, ttl)
	}

	return resp.MakeBulkString(val)
}

func del(ctx *context) resp.Value {
	var n int64
	for _, key := range keys(ctx.args) {
		if ctx.storage.Delete(key) {
			n++
		}
	}
	return resp.MakeInteger(n)
}

func exists(ctx *context) resp.Value {
	var n int64
	for _, key := range keys(ctx.args) {
		if ctx.storage.Exists(key) {
			n++
		}
	}
	return resp.MakeInteger(n)
}

// expire sets a TTL in seconds, a non-positive value deletes the key
func expire(ctx *context) resp.Value {
	seconds, ok := argInt(ctx.args[1])
	if !ok {
		return errNotInteger
	}

	var nx, xx, gt, lt bool
	for _, arg := range ctx.args[2:] {
		switch opt := strings.ToUpper(arg.Text()); opt {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		default:
			return resp.MakeError("ERR", "Unsupported option "+arg.Text())
		}
	}
	if nx && (xx || gt || lt) {
		return resp.MakeError("ERR", "NX and XX, GT or LT options at the same time are not compatible")
	}
	if gt && lt {
		return resp.MakeError("ERR", "GT and LT options at the same time are not compatible")
	}

	key := ctx.args[0].Text()
	ttl := time.Duration(seconds) * time.Second

	if nx || xx || gt || lt {
		left, status := ctx.storage.Expiry(key)
		if status == storage.ExpNotFound {
			return resp.MakeInteger(0)
		}
		persistent := status == storage.ExpNoTimeout
		switch {
		case nx && !persistent,
			xx && persistent,
			gt && (persistent || ttl <= left),
			lt && !persistent && ttl >= left:
			return resp.MakeInteger(0)
		}
	}

	if ctx.storage.Expire(key, ttl) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func ttl(ctx *context) resp.Value {
	left, status := ctx.storage.Expiry(ctx.args[0].Text())
	if status != storage.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	return resp.MakeInteger((left.Milliseconds() + 500) / 1000)
}

func pttl(ctx *context) resp.Value {
	left, status := ctx.storage.Expiry(ctx.args[0].Text())
	if status != storage.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	return resp.MakeInteger(left.Milliseconds())
}

func persist(ctx *context) resp.Value {
	return resp.MakeInteger(ctx.storage.Persist(ctx.args[0].Text()))
}

func incrBy(delta int64) commandFunc {
	return func(ctx *context) resp.Value {
		n, err := ctx.storage.IncrBy(ctx.args[0].Text(), delta)
		if err != nil {
			return storageError(err)
		}
		return resp.MakeInteger(n)
	}
}

func push(left bool) commandFunc {
	return func(ctx *context) resp.Value {
		n, err := ctx.storage.Push(ctx.args[0].Text(), keys(ctx.args[1:]), left)
		if err != nil {
			return storageError(err)
		}
		return resp.MakeInteger(int64(n))
	}
}

// pop LPOP/RPOP key [count]. Without count the reply is a single element
func pop(left bool) commandFunc {
	return func(ctx *context) resp.Value {
		if len(ctx.args) > 2 {
			name := "RPOP"
			if left {
				name = "LPOP"
			}
			return resp.MakeErrorWrongNumberOfArguments(name)
		}

		count := int64(1)
		if len(ctx.args) == 2 {
			n, ok := argInt(ctx.args[1])
			if !ok || n < 0 {
				return errNotPositive
			}
			count = n
		}

		items, found, err := ctx.storage.Pop(ctx.args[0].Text(), int(count), left)
		if err != nil {
			return storageError(err)
		}
		if !found {
			return resp.MakeNull()
		}

		if len(ctx.args) == 1 {
			return resp.MakeBulkString(items[0])
		}
		return bulkList(items)
	}
}

func lrange(ctx *context) resp.Value {
	start, ok := argInt(ctx.args[1])
	if !ok {
		return errNotInteger
	}
	stop, ok := argInt(ctx.args[2])
	if !ok {
		return errNotInteger
	}

	items, err := ctx.storage.Range(ctx.args[0].Text(), int(start), int(stop))
	if err != nil {
		return storageError(err)
	}
	return bulkList(items)
}

// hello HELLO [protover [AUTH username password] [SETNAME clientname]]
// switches the session protocol before the reply is encoded
func hello(ctx *context) resp.Value {
	proto := ctx.session.protocol

	if len(ctx.args) > 0 {
		n, ok := argInt(ctx.args[0])
		if !ok {
			return resp.MakeError("ERR", "Protocol version is not an integer or out of range")
		}
		if n != 2 && n != 3 {
			return resp.MakeError("NOPROTO", "unsupported protocol version")
		}
		proto = int(n)
	}

	for i := 1; i < len(ctx.args); i++ {
		switch strings.ToUpper(ctx.args[i].Text()) {
		case "AUTH":
			if i+2 >= len(ctx.args) {
				return errSyntax
			}
			i += 2
		case "SETNAME":
			if i+1 >= len(ctx.args) {
				return errSyntax
			}
			ctx.session.name = ctx.args[i+1].Text()
			i++
		default:
			return errSyntax
		}
	}

	ctx.session.setProtocol(proto)

	return resp.MakeMap(
		resp.Pair{Key: resp.MakeBulkString("server"), Value: resp.MakeBulkString("starlight")},
		resp.Pair{Key: resp.MakeBulkString("version"), Value: resp.MakeBulkString(Version)},
		resp.Pair{Key: resp.MakeBulkString("proto"), Value: resp.MakeInteger(int64(proto))},
		resp.Pair{Key: resp.MakeBulkString("id"), Value: resp.MakeInteger(ctx.session.id)},
		resp.Pair{Key: resp.MakeBulkString("mode"), Value: resp.MakeBulkString("standalone")},
		resp.Pair{Key: resp.MakeBulkString("role"), Value: resp.MakeBulkString("master")},
		resp.Pair{Key: resp.MakeBulkString("modules"), Value: resp.MakeArray([]resp.Value{})},
	)
}

// client accepts the CLIENT subcommands libraries send on connect
func client(ctx *context) resp.Value {
	sub := strings.ToUpper(ctx.args[0].Text())

	switch sub {
	case "ID":
		return resp.MakeInteger(ctx.session.id)
	case "SETNAME":
		if len(ctx.args) != 2 {
			return resp.MakeErrorWrongNumberOfArguments("CLIENT|SETNAME")
		}
		ctx.session.name = ctx.args[1].Text()
		return replyOK
	case "GETNAME":
		if ctx.session.name == "" {
			return resp.MakeNull()
		}
		return resp.MakeBulkString(ctx.session.name)
	}

	return replyOK
}

func debug(ctx *context) resp.Value {
	sub := strings.ToUpper(ctx.args[0].Text())
	if sub != "PROTOCOL" {
		return resp.MakeError("ERR", fmt.Sprintf(errUnknownSubcmd, strings.ToLower(sub), "DEBUG"))
	}
	if len(ctx.args) != 2 {
		return resp.MakeErrorWrongNumberOfArguments("DEBUG|PROTOCOL")
	}

	v, ok := debugProtocol(ctx.args[1].Text())
	if !ok {
		return resp.MakeError("ERR", "Wrong protocol type name. Please use one of the following: "+strings.Join(debugProtocolTypes, "|"))
	}
	return v
}

func cmd(ctx *context) resp.Value {
	if len(ctx.args) == 0 {
		return getAllCommands()
	}

	switch sub := strings.ToUpper(ctx.args[0].Text()); sub {
	case "DOCS":
		return getCommandsDocs(ctx.args[1:])
	case "COUNT":
		return resp.MakeInteger(int64(len(commandRegistry)))
	default:
		return resp.MakeError("ERR", fmt.Sprintf(errUnknownSubcmd, strings.ToLower(sub), "COMMAND"))
	}
}
