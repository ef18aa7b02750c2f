package client

import (
	"context"
	"errors"
	"strings"

	"github.com/eternalApril/starlight/internal/resp"
)

// Client exposes typed commands over a single Conn.
//
// Every method returns a *ServerError for error replies and a *MismatchError
// for replies of the wrong shape; both leave the connection usable. When push
// messages arrived ahead of the reply, the narrowed result is returned along
// with a *PushError.
type Client struct {
	conn *Conn
}

// Connect dials addr and wraps the connection in a Client
func Connect(ctx context.Context, addr string, opts Options) (*Client, error) {
	conn, err := Dial(ctx, addr, opts)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New wraps an existing connection
func New(conn *Conn) *Client {
	return &Client{conn: conn}
}

// Conn returns the underlying connection
func (c *Client) Conn() *Conn {
	return c.conn
}

// Close closes the underlying connection
func (c *Client) Close() error {
	return c.conn.Close()
}

// call executes a command and narrows its reply
func call[T any](ctx context.Context, c *Client, narrow func(string, resp.Value) (T, error), args ...[]byte) (T, error) {
	var zero T

	reply, err := c.conn.Execute(ctx, args...)
	var pushErr *PushError
	if err != nil && !errors.As(err, &pushErr) {
		return zero, err
	}

	name := strings.ToUpper(string(args[0]))
	if reply.IsError() {
		return zero, serverError(reply)
	}

	out, nerr := narrow(name, reply)
	if nerr != nil {
		return zero, nerr
	}
	if pushErr != nil {
		return out, pushErr
	}
	return out, nil
}

// command builds the argument list of a command from text arguments
func command(name string, rest ...string) [][]byte {
	out := make([][]byte, 0, 1+len(rest))
	out = append(out, []byte(name))
	for _, a := range rest {
		out = append(out, []byte(a))
	}
	return out
}
