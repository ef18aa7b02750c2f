package server

import (
	"bytes"

	"github.com/eternalApril/starlight/internal/resp"
)

// Session represents a connected client.
// It holds the negotiated protocol and encodes replies in that protocol
type Session struct {
	id       int64
	name     string
	protocol int
	buf      bytes.Buffer
	writer   *resp.Encoder
}

// NewSession initializes a session that speaks RESP2 until HELLO switches it
func NewSession(id int64) *Session {
	s := &Session{
		id:       id,
		protocol: 2,
	}
	s.writer = resp.NewEncoderProtocol(&s.buf, s.protocol)
	return s
}

// ID returns the connection id reported by HELLO and CLIENT ID
func (s *Session) ID() int64 {
	return s.id
}

// Protocol returns the protocol version replies are encoded in
func (s *Session) Protocol() int {
	return s.protocol
}

func (s *Session) setProtocol(protocol int) {
	s.protocol = protocol
	s.writer.SetProtocol(protocol)
}

// Encode serializes a reply for this session. The returned slice is valid until the next call
func (s *Session) Encode(v resp.Value) ([]byte, error) {
	s.buf.Reset()

	if err := s.writer.Write(v); err != nil {
		// drop whatever part of the reply is still buffered
		s.writer = resp.NewEncoderProtocol(&s.buf, s.protocol)
		return nil, err
	}
	if err := s.writer.Flush(); err != nil {
		return nil, err
	}

	return s.buf.Bytes(), nil
}
