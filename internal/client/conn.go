package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eternalApril/starlight/internal/resp"
)

const readBufferSize = 16 * 1024

// State is the lifecycle state of a connection
type State int32

const (
	StateConnecting State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Options configures a connection
type Options struct {
	DialTimeout time.Duration // 0 means no limit besides the context
	Logger      *zap.Logger   // nil disables logging
}

// Conn is a single RESP connection with at most one outstanding command.
// Concurrent callers are serialized; a cancelled or failed call closes it.
type Conn struct {
	mu sync.Mutex // held for the whole request/reply exchange

	nc       net.Conn
	dec      *resp.Decoder
	protocol int
	rbuf     []byte
	wbuf     []byte

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error

	log *zap.Logger
}

// Dial opens a TCP connection to addr. The connection speaks RESP2 until Negotiate succeeds.
func Dial(ctx context.Context, addr string, opts Options) (*Conn, error) {
	if opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
	}

	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}

	return NewConn(nc, opts), nil
}

// NewConn wraps an established transport
func NewConn(nc net.Conn, opts Options) *Conn {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Conn{
		nc:       nc,
		dec:      resp.NewDecoder(),
		protocol: 2,
		rbuf:     make([]byte, readBufferSize),
		log:      log.With(zap.String("addr", nc.RemoteAddr().String())),
	}
	c.state.Store(int32(StateReady))

	return c
}

// Addr returns the remote address
func (c *Conn) Addr() string {
	return c.nc.RemoteAddr().String()
}

// State returns the current lifecycle state
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Protocol returns the negotiated protocol version, 2 or 3
func (c *Conn) Protocol() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protocol
}

// Close releases the transport. It is safe to call more than once.
func (c *Conn) Close() error {
	c.state.Store(int32(StateClosed))
	c.closeOnce.Do(func() {
		c.closeErr = c.nc.Close()
	})
	return c.closeErr
}

// Execute sends one command and waits for its reply.
//
// Server error replies are returned as values, not as errors. When push
// messages arrive ahead of the reply, the reply is still returned together
// with a *PushError carrying both.
func (c *Conn) Execute(ctx context.Context, args ...[]byte) (resp.Value, error) {
	if len(args) == 0 {
		return resp.Value{}, ErrInvalidArgument
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.execute(ctx, args)
}

// Negotiate switches the connection to the given protocol version with HELLO
// and returns the server's HELLO reply. On failure the version is unchanged.
func (c *Conn) Negotiate(ctx context.Context, version int) (resp.Value, error) {
	if version != 2 && version != 3 {
		return resp.Value{}, &NegotiationError{Version: version, Err: ErrUnsupportedVersion}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// the server answers HELLO in the new version already
	c.dec.SetProtocol(version)

	reply, err := c.execute(ctx, [][]byte{[]byte("HELLO"), []byte(strconv.Itoa(version))})
	var pushErr *PushError
	if err != nil && !errors.As(err, &pushErr) {
		c.dec.SetProtocol(c.protocol)
		return reply, err
	}

	if reply.IsError() {
		c.dec.SetProtocol(c.protocol)
		return reply, &NegotiationError{Version: version, Err: serverError(reply)}
	}

	if proto, ok := helloProto(reply); !ok || proto != int64(version) {
		c.dec.SetProtocol(c.protocol)
		return reply, &NegotiationError{Version: version, Err: ErrBadHello}
	}

	c.protocol = version
	c.log.Debug("protocol negotiated", zap.Int("proto", version))

	if pushErr != nil {
		return reply, pushErr
	}
	return reply, nil
}

// execute runs one exchange with c.mu held. A context that is already done
// fails the call without touching the connection.
func (c *Conn) execute(ctx context.Context, args [][]byte) (resp.Value, error) {
	if c.State() != StateReady {
		return resp.Value{}, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return resp.Value{}, err
	}

	deadline, _ := ctx.Deadline()
	if err := c.nc.SetDeadline(deadline); err != nil {
		return resp.Value{}, c.fail(&TransportError{Op: "write", Err: err})
	}

	// unblock pending I/O as soon as the caller gives up
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		c.nc.SetDeadline(time.Unix(1, 0)) //nolint:errcheck
		close(fired)
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	if c.log.Core().Enabled(zap.DebugLevel) {
		c.log.Debug("command", zap.ByteString("name", args[0]), zap.Int("args", len(args)-1))
	}

	c.wbuf = resp.AppendCommand(c.wbuf[:0], args)
	if _, err := c.nc.Write(c.wbuf); err != nil {
		return resp.Value{}, c.fail(&TransportError{Op: "write", Err: ioError(ctx, err)})
	}

	var (
		reply    resp.Value
		hasReply bool
		pushes   []resp.Value
	)

	for !hasReply {
		n, err := c.nc.Read(c.rbuf)
		if n > 0 {
			before := c.dec.Mismatched()
			values, derr := c.dec.Feed(c.rbuf[:n])
			if derr != nil {
				return resp.Value{}, c.fail(&ParseError{Err: derr})
			}
			if after := c.dec.Mismatched(); after != before {
				c.log.Warn("reply uses tags of the other protocol generation",
					zap.Int("proto", c.dec.Protocol()),
					zap.Int("count", after-before))
			}

			for _, v := range values {
				if v.Type == resp.TypePush {
					pushes = append(pushes, v)
					continue
				}
				if hasReply {
					return resp.Value{}, c.fail(&ParseError{Err: ErrUnsolicitedReply})
				}
				reply, hasReply = v, true
			}
		}

		if hasReply {
			break
		}

		if err != nil {
			if ctx.Err() == nil && errors.Is(err, io.EOF) && c.dec.InProgress() {
				return resp.Value{}, c.fail(&ParseError{Err: resp.ErrTruncated})
			}
			return resp.Value{}, c.fail(&TransportError{Op: "read", Err: ioError(ctx, err)})
		}
	}

	if c.log.Core().Enabled(zap.DebugLevel) {
		c.log.Debug("reply", zap.Stringer("type", reply.Type), zap.Int("pushes", len(pushes)))
	}

	if len(pushes) > 0 {
		return reply, &PushError{Pushes: pushes, Reply: reply}
	}

	return reply, nil
}

// fail closes the connection after an unrecoverable error and returns err
func (c *Conn) fail(err error) error {
	c.log.Debug("connection closed after error", zap.Error(err))
	c.Close() //nolint:errcheck
	return err
}

// ioError prefers the context's error when the caller cancelled the call
func ioError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// helloProto extracts the proto field from a HELLO reply, a Map under RESP3
// or a flat key/value Array under RESP2
func helloProto(v resp.Value) (int64, bool) {
	switch v.Type {
	case resp.TypeMap:
		for _, p := range v.Map {
			if p.Key.Text() == "proto" && p.Value.Type == resp.TypeInteger {
				return p.Value.Integer, true
			}
		}
	case resp.TypeArray:
		if len(v.Array)%2 != 0 {
			return 0, false
		}
		for i := 0; i < len(v.Array); i += 2 {
			if v.Array[i].Text() == "proto" && v.Array[i+1].Type == resp.TypeInteger {
				return v.Array[i+1].Integer, true
			}
		}
	}
	return 0, false
}
