package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eternalApril/starlight/internal/resp"
)

var (
	// ErrClosed is returned by every call on a connection after Close or after a fatal error
	ErrClosed = errors.New("starlight: connection closed")

	// ErrInvalidArgument reports a command rejected locally before anything was sent
	ErrInvalidArgument = errors.New("starlight: invalid argument")

	// ErrUnsolicitedReply means the server sent more replies than commands were issued
	ErrUnsolicitedReply = errors.New("starlight: unsolicited reply")

	// ErrBadHello means the HELLO confirmation did not carry the requested protocol version
	ErrBadHello = errors.New("starlight: malformed HELLO reply")

	// ErrUnsupportedVersion rejects protocol versions other than 2 and 3
	ErrUnsupportedVersion = errors.New("starlight: unsupported protocol version")
)

// TransportError wraps a failure of the underlying network connection.
// The connection is closed afterwards.
type TransportError struct {
	Op  string // dial, write, read
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("starlight: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError wraps malformed or truncated reply data. The connection is closed afterwards.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("starlight: parse reply: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ServerError is an error reply sent by the server, e.g. WRONGTYPE
type ServerError struct {
	Kind    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return e.Kind
	}
	return e.Kind + " " + e.Message
}

// MismatchError reports a well-formed reply whose shape does not fit the command.
// The connection stays usable.
type MismatchError struct {
	Command string
	Want    string
	Got     resp.Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("starlight: unexpected reply to %s: want %s, got %s", e.Command, e.Want, e.Got)
}

// NegotiationError reports a failed protocol switch. The previous version stays active.
type NegotiationError struct {
	Version int
	Err     error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("starlight: negotiate RESP%d: %v", e.Version, e.Err)
}

func (e *NegotiationError) Unwrap() error {
	return e.Err
}

// PushError is returned when out-of-band push messages arrived while a reply
// was awaited. Reply holds the actual reply of the command; the connection
// stays usable and aligned.
type PushError struct {
	Pushes []resp.Value
	Reply  resp.Value
}

func (e *PushError) Error() string {
	kinds := make([]string, 0, len(e.Pushes))
	for _, p := range e.Pushes {
		if len(p.Array) > 0 {
			kinds = append(kinds, p.Array[0].Text())
		}
	}
	return fmt.Sprintf("starlight: %d unexpected push message(s) before reply [%s]", len(e.Pushes), strings.Join(kinds, " "))
}

// serverError converts an Error value into a *ServerError
func serverError(v resp.Value) *ServerError {
	return &ServerError{Kind: v.Kind, Message: v.Text()}
}
