package resp

import (
	"bufio"
	"io"
	"math"
	"strconv"
)

// Encoder handles the serialization of RESP Value objects into an output stream.
// A RESP2 encoder downgrades RESP3-only values to the shapes a RESP2 server
// would send for the same reply.
type Encoder struct {
	writer   *bufio.Writer
	protocol int
}

// NewEncoder initializes a RESP3 Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return NewEncoderProtocol(w, 3)
}

// NewEncoderProtocol initializes an Encoder for the given protocol version
func NewEncoderProtocol(w io.Writer, protocol int) *Encoder {
	return &Encoder{
		writer:   bufio.NewWriter(w),
		protocol: protocol,
	}
}

// SetProtocol switches the protocol version used for subsequent writes
func (e *Encoder) SetProtocol(protocol int) {
	e.protocol = protocol
}

// Protocol returns the protocol version the encoder writes
func (e *Encoder) Protocol() int {
	return e.protocol
}

// Write serializes a RESP Value into the buffer. Call Flush to send it
func (e *Encoder) Write(v Value) error {
	switch v.Type {
	case TypeInteger:
		return e.writeHeader(':', v.Integer)

	case TypeSimpleString:
		return e.writeRaw('+', v.String)

	case TypeError:
		line := v.Kind
		if len(v.String) > 0 {
			line += " " + string(v.String)
		}
		return e.writeRaw('-', []byte(line))

	case TypeBulkString:
		return e.writeBulk('$', v.String)

	case TypeNull:
		if e.protocol == 2 {
			_, err := e.writer.WriteString("$-1\r\n")
			return err
		}
		_, err := e.writer.WriteString("_\r\n")
		return err

	case TypeBoolean:
		if e.protocol == 2 {
			var n int64
			if v.Bool {
				n = 1
			}
			return e.writeHeader(':', n)
		}
		if v.Bool {
			_, err := e.writer.WriteString("#t\r\n")
			return err
		}
		_, err := e.writer.WriteString("#f\r\n")
		return err

	case TypeDouble:
		text := []byte(formatDouble(v.Double))
		if e.protocol == 2 {
			return e.writeBulk('$', text)
		}
		return e.writeRaw(',', text)

	case TypeBigNumber:
		if e.protocol == 2 {
			return e.writeBulk('$', v.String)
		}
		return e.writeRaw('(', v.String)

	case TypeVerbatimString:
		if e.protocol == 2 {
			return e.writeBulk('$', v.String)
		}
		payload := make([]byte, 0, 4+len(v.String))
		payload = append(payload, v.Format...)
		payload = append(payload, ':')
		payload = append(payload, v.String...)
		return e.writeBulk('=', payload)

	case TypeArray:
		return e.writeAggregate('*', v.Array)

	case TypeSet:
		if e.protocol == 2 {
			return e.writeAggregate('*', v.Array)
		}
		return e.writeAggregate('~', v.Array)

	case TypePush:
		if e.protocol == 2 {
			return e.writeAggregate('*', v.Array)
		}
		return e.writeAggregate('>', v.Array)

	case TypeMap:
		prefix := byte('%')
		n := int64(len(v.Map))
		if e.protocol == 2 {
			prefix = '*'
			n *= 2
		}
		if err := e.writeHeader(prefix, n); err != nil {
			return err
		}
		for _, p := range v.Map {
			if err := e.Write(p.Key); err != nil {
				return err
			}
			if err := e.Write(p.Value); err != nil {
				return err
			}
		}
		return nil
	}

	return ErrUnknownType
}

// Flush sends all buffered data to the underlying writer
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}

func (e *Encoder) writeAggregate(prefix byte, items []Value) error {
	if err := e.writeHeader(prefix, int64(len(items))); err != nil {
		return err
	}
	for _, el := range items {
		if err := e.Write(el); err != nil {
			return err
		}
	}
	return nil
}

func (e *Encoder) writeBulk(prefix byte, b []byte) error {
	if err := e.writeHeader(prefix, int64(len(b))); err != nil {
		return err
	}
	if _, err := e.writer.Write(b); err != nil {
		return err
	}
	_, err := e.writer.WriteString("\r\n")
	return err
}

// writeHeader writes the type prefix, numeric value, and CRLF
func (e *Encoder) writeHeader(prefix byte, n int64) error {
	if err := e.writer.WriteByte(prefix); err != nil {
		return err
	}
	e.appendInt(n)
	_, err := e.writer.WriteString("\r\n")
	return err
}

// writeRaw writes the type prefix, raw bytes, and CRLF (for SimpleString and Error)
func (e *Encoder) writeRaw(prefix byte, b []byte) error {
	if err := e.writer.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := e.writer.Write(b); err != nil {
		return err
	}
	_, err := e.writer.WriteString("\r\n")
	return err
}

// appendInt converts an integer to a string and writes it to the buffer
func (e *Encoder) appendInt(n int64) {
	b := e.writer.AvailableBuffer()
	b = strconv.AppendInt(b, n, 10)
	e.writer.Write(b) //nolint:errcheck
}

func formatDouble(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
