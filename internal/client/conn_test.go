package client

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalApril/starlight/internal/resp"
)

// step is what the scripted peer does after reading one command
type step struct {
	chunks []string // written one Write at a time
	close  bool     // close the transport afterwards
	hang   bool     // never answer, wait for the client to go away
}

func respond(chunks ...string) step {
	return step{chunks: chunks}
}

// scriptedConn wires a Conn to a peer that plays steps in order and then
// closes. Commands the peer received are sent on the returned channel.
func scriptedConn(t *testing.T, steps ...step) (*Conn, <-chan resp.Value) {
	t.Helper()

	local, remote := net.Pipe()
	received := make(chan resp.Value, 16)

	go func() {
		defer remote.Close()
		defer close(received)

		dec := resp.NewDecoder()
		buf := make([]byte, 4096)
		var pending []resp.Value

		for _, s := range steps {
			for len(pending) == 0 {
				n, err := remote.Read(buf)
				if err != nil {
					return
				}
				vals, err := dec.Feed(buf[:n])
				if err != nil {
					return
				}
				pending = append(pending, vals...)
			}
			received <- pending[0]
			pending = pending[1:]

			if s.hang {
				io.Copy(io.Discard, remote) //nolint:errcheck
				return
			}
			for _, chunk := range s.chunks {
				if _, err := remote.Write([]byte(chunk)); err != nil {
					return
				}
			}
			if s.close {
				return
			}
		}
	}()

	c := NewConn(local, Options{})
	t.Cleanup(func() { c.Close() }) //nolint:errcheck

	return c, received
}

func TestConn_Execute(t *testing.T) {
	c, received := scriptedConn(t, respond("+PONG\r\n"))

	v, err := c.Execute(context.Background(), []byte("PING"))
	require.NoError(t, err)
	assert.True(t, v.Equal(resp.MakeSimpleString("PONG")))
	assert.Equal(t, StateReady, c.State())

	cmd := <-received
	assert.True(t, cmd.Equal(resp.MakeBulkArray("PING")))
}

func TestConn_FragmentedReply(t *testing.T) {
	c, _ := scriptedConn(t, respond("*2\r\n$5\r\nhel", "lo\r\n", ":4", "2\r\n"))

	v, err := c.Execute(context.Background(), resp.Args("LRANGE", "k", "0", "-1")...)
	require.NoError(t, err)

	want := resp.MakeArray([]resp.Value{resp.MakeBulkString("hello"), resp.MakeInteger(42)})
	assert.True(t, v.Equal(want), "got %#v", v)
}

func TestConn_ServerErrorIsValue(t *testing.T) {
	c, _ := scriptedConn(t, respond("-WRONGTYPE Operation against a key\r\n"), respond("+OK\r\n"))

	v, err := c.Execute(context.Background(), resp.Args("GET", "l")...)
	require.NoError(t, err)
	assert.Equal(t, "WRONGTYPE", v.Kind)

	_, err = c.Execute(context.Background(), resp.Args("SET", "k", "v")...)
	assert.NoError(t, err, "connection stays usable after an error reply")
}

func TestConn_TruncatedReply(t *testing.T) {
	c, _ := scriptedConn(t, step{chunks: []string{"$5\r\nab"}, close: true})

	_, err := c.Execute(context.Background(), resp.Args("GET", "k")...)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, resp.ErrTruncated)
	assert.Equal(t, StateClosed, c.State())

	_, err = c.Execute(context.Background(), resp.Args("PING")...)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConn_PeerClosed(t *testing.T) {
	c, _ := scriptedConn(t, step{close: true})

	_, err := c.Execute(context.Background(), resp.Args("PING")...)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "read", transportErr.Op)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, StateClosed, c.State())
}

func TestConn_MalformedReply(t *testing.T) {
	c, _ := scriptedConn(t, respond("?what\r\n"))

	_, err := c.Execute(context.Background(), resp.Args("PING")...)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, resp.ErrProtocol)
	assert.Equal(t, StateClosed, c.State())
}

func TestConn_PushBeforeReply(t *testing.T) {
	c, _ := scriptedConn(t,
		respond(">3\r\n$7\r\nmessage\r\n$2\r\nch\r\n$2\r\nhi\r\n", "+OK\r\n"),
		respond("+PONG\r\n"),
	)

	v, err := c.Execute(context.Background(), resp.Args("SET", "k", "v")...)

	var pushErr *PushError
	require.ErrorAs(t, err, &pushErr)
	require.Len(t, pushErr.Pushes, 1)
	assert.Equal(t, "message", pushErr.Pushes[0].Array[0].Text())
	assert.True(t, v.Equal(resp.MakeSimpleString("OK")))
	assert.True(t, pushErr.Reply.Equal(v))
	assert.Equal(t, StateReady, c.State())

	v, err = c.Execute(context.Background(), resp.Args("PING")...)
	require.NoError(t, err)
	assert.Equal(t, "PONG", v.Text(), "replies stay aligned after a push")
}

func TestConn_UnsolicitedReply(t *testing.T) {
	c, _ := scriptedConn(t, respond("+OK\r\n+OK\r\n"))

	_, err := c.Execute(context.Background(), resp.Args("PING")...)
	assert.ErrorIs(t, err, ErrUnsolicitedReply)
	assert.Equal(t, StateClosed, c.State())
}

func TestConn_Cancellation(t *testing.T) {
	c, _ := scriptedConn(t, step{hang: true})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Execute(ctx, resp.Args("GET", "k")...)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, StateClosed, c.State())
}

func TestConn_CancelWithoutDeadline(t *testing.T) {
	c, _ := scriptedConn(t, step{hang: true})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Execute(ctx, resp.Args("GET", "k")...)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, c.State())
}

func TestConn_AlreadyCancelled(t *testing.T) {
	c, _ := scriptedConn(t, respond("+PONG\r\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, resp.Args("PING")...)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateReady, c.State(), "nothing was sent, the connection is intact")

	v, err := c.Execute(context.Background(), resp.Args("PING")...)
	require.NoError(t, err)
	assert.Equal(t, "PONG", v.Text())
}

func TestConn_InvalidArgument(t *testing.T) {
	c, _ := scriptedConn(t)

	_, err := c.Execute(context.Background())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestConn_Negotiate(t *testing.T) {
	c, received := scriptedConn(t,
		respond("%2\r\n$6\r\nserver\r\n$5\r\nredis\r\n$5\r\nproto\r\n:3\r\n"),
		respond("*4\r\n$6\r\nserver\r\n$5\r\nredis\r\n$5\r\nproto\r\n:2\r\n"),
	)

	v, err := c.Negotiate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, resp.TypeMap, v.Type)
	assert.Equal(t, 3, c.Protocol())
	assert.True(t, (<-received).Equal(resp.MakeBulkArray("HELLO", "3")))

	_, err = c.Negotiate(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Protocol())
}

func TestConn_NegotiateRejected(t *testing.T) {
	c, _ := scriptedConn(t,
		respond("-NOPROTO unsupported protocol version\r\n"),
		respond("+OK\r\n"),
		respond("+PONG\r\n"),
	)

	_, err := c.Negotiate(context.Background(), 3)

	var negErr *NegotiationError
	require.ErrorAs(t, err, &negErr)
	assert.Equal(t, 3, negErr.Version)

	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, "NOPROTO", srvErr.Kind)
	assert.Equal(t, 2, c.Protocol())
	assert.Equal(t, StateReady, c.State())

	_, err = c.Negotiate(context.Background(), 3)
	assert.ErrorIs(t, err, ErrBadHello)
	assert.Equal(t, 2, c.Protocol())

	v, err := c.Execute(context.Background(), resp.Args("PING")...)
	require.NoError(t, err)
	assert.Equal(t, "PONG", v.Text())
}

func TestConn_NegotiateUnsupported(t *testing.T) {
	c, _ := scriptedConn(t)

	_, err := c.Negotiate(context.Background(), 4)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	var negErr *NegotiationError
	assert.True(t, errors.As(err, &negErr))
	assert.Equal(t, StateReady, c.State())
}

func TestConn_CloseIdempotent(t *testing.T) {
	c, _ := scriptedConn(t)

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())

	_, err := c.Execute(context.Background(), resp.Args("PING")...)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestDial_Refused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Dial(context.Background(), addr, Options{DialTimeout: time.Second})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "dial", transportErr.Op)
}
