package resp

import (
	"bytes"
	"strconv"
)

// maxLineLength bounds header and simple-string lines that are still waiting for their terminator
const maxLineLength = 64 * 1024

type step int

const (
	stepIncomplete step = iota // more bytes are needed
	stepValue                  // a complete value was decoded
	stepOpen                   // an aggregate header was consumed and pushed on the stack
)

// frame is a pending aggregate waiting for its children
type frame struct {
	typ       Type
	remaining int
	items     []Value
}

func (f *frame) finish() Value {
	switch f.typ {
	case TypeMap:
		pairs := make([]Pair, len(f.items)/2)
		for i := range pairs {
			pairs[i] = Pair{Key: f.items[2*i], Value: f.items[2*i+1]}
		}
		return MakeMap(pairs...)
	default:
		return Value{Type: f.typ, Array: f.items}
	}
}

// Decoder incrementally decodes RESP2 and RESP3 replies from a byte stream
// that arrives in arbitrary chunks. It never blocks and never recurses:
// nested aggregates are tracked on an explicit stack, so a frame split across
// any number of Feed calls decodes to the same Value as a frame fed at once.
type Decoder struct {
	buf      []byte
	pos      int   // cursor into buf
	consumed int64 // bytes dropped from the front of buf by compaction
	need     int   // bytes required past pos before the next attempt can succeed

	stack []frame

	protocol   int
	mismatched int

	err error
}

// NewDecoder creates a decoder that expects RESP2 until SetProtocol is called
func NewDecoder() *Decoder {
	return &Decoder{protocol: 2}
}

// SetProtocol sets the negotiated protocol version used for mismatch accounting
func (d *Decoder) SetProtocol(version int) {
	d.protocol = version
}

// Protocol returns the negotiated protocol version
func (d *Decoder) Protocol() int {
	return d.protocol
}

// Mismatched returns how many tags decoded so far belong only to the other
// protocol generation than the configured one
func (d *Decoder) Mismatched() int {
	return d.mismatched
}

// InProgress reports whether a partially received frame is buffered
func (d *Decoder) InProgress() bool {
	return len(d.stack) > 0 || d.pos < len(d.buf)
}

// Buffered returns the number of received bytes not yet consumed by a complete value
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.pos
}

// Reset discards all buffered and partial state, including a previous error
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.pos = 0
	d.consumed = 0
	d.need = 0
	d.stack = d.stack[:0]
	d.mismatched = 0
	d.err = nil
}

// Feed appends p to the buffered input and returns every value completed by it.
// Bytes of an unfinished frame stay buffered for the next call. After an error
// the decoder is unusable and returns the same error until Reset.
func (d *Decoder) Feed(p []byte) ([]Value, error) {
	if d.err != nil {
		return nil, d.err
	}

	d.compact()
	d.buf = append(d.buf, p...)

	var out []Value
	for d.pos < len(d.buf) {
		if d.need > 0 && len(d.buf)-d.pos < d.need {
			break
		}

		start := d.pos
		tag := Type(d.buf[start])
		v, st, err := d.next()
		if err != nil {
			d.err = &SyntaxError{Offset: d.consumed + int64(start), Err: err}
			return out, d.err
		}
		if st == stepIncomplete {
			return out, nil
		}

		if d.protocol == 2 && tag.RESP3Only() {
			d.mismatched++
		}

		switch st {
		case stepOpen:
			d.need = 0
			continue
		}

		d.need = 0
		if top, done := d.attach(v); done {
			out = append(out, top)
		}
	}

	return out, nil
}

// compact drops consumed bytes from the front of the buffer
func (d *Decoder) compact() {
	if d.pos == 0 {
		return
	}
	if d.pos < len(d.buf) && d.pos < cap(d.buf)/2 {
		return
	}

	n := copy(d.buf, d.buf[d.pos:])
	d.buf = d.buf[:n]
	d.consumed += int64(d.pos)
	d.pos = 0
}

// attach hands a completed value to the innermost pending aggregate, closing
// every aggregate it completes. It reports the top-level value once one is done.
func (d *Decoder) attach(v Value) (Value, bool) {
	for len(d.stack) > 0 {
		top := &d.stack[len(d.stack)-1]
		top.items = append(top.items, v)
		top.remaining--
		if top.remaining > 0 {
			return Value{}, false
		}

		v = top.finish()
		d.stack = d.stack[:len(d.stack)-1]
	}
	return v, true
}

// next decodes one scalar or one aggregate header at the cursor
func (d *Decoder) next() (Value, step, error) {
	buf := d.buf[d.pos:]
	tag := Type(buf[0])

	line, lineLen, err := readLine(buf[1:])
	if err != nil {
		return Value{}, stepIncomplete, err
	}
	if lineLen < 0 {
		if len(buf) > maxLineLength {
			return Value{}, stepIncomplete, ErrTooLarge
		}
		d.need = len(buf) + 1
		return Value{}, stepIncomplete, nil
	}
	header := 1 + lineLen

	switch tag {
	case TypeSimpleString:
		d.pos += header
		return Value{Type: TypeSimpleString, String: clone(line)}, stepValue, nil

	case TypeError:
		d.pos += header
		return ParseErrorLine(string(line)), stepValue, nil

	case TypeInteger:
		n, err := strconv.ParseInt(string(line), 10, 64)
		if err != nil {
			return Value{}, stepIncomplete, ErrInvalidPayload
		}
		d.pos += header
		return MakeInteger(n), stepValue, nil

	case TypeNull:
		if len(line) != 0 {
			return Value{}, stepIncomplete, ErrInvalidPayload
		}
		d.pos += header
		return MakeNull(), stepValue, nil

	case TypeBoolean:
		if len(line) != 1 || (line[0] != 't' && line[0] != 'f') {
			return Value{}, stepIncomplete, ErrInvalidPayload
		}
		d.pos += header
		return MakeBoolean(line[0] == 't'), stepValue, nil

	case TypeDouble:
		f, err := strconv.ParseFloat(string(line), 64)
		if err != nil {
			return Value{}, stepIncomplete, ErrInvalidPayload
		}
		d.pos += header
		return MakeDouble(f), stepValue, nil

	case TypeBigNumber:
		if !isDecimal(line) {
			return Value{}, stepIncomplete, ErrInvalidPayload
		}
		d.pos += header
		return Value{Type: TypeBigNumber, String: clone(line)}, stepValue, nil

	case TypeBulkString, TypeVerbatimString, TypeBlobError:
		return d.blob(tag, line, header)

	case TypeArray, TypeSet, TypePush, TypeMap:
		return d.aggregate(tag, line, header)
	}

	return Value{}, stepIncomplete, ErrUnknownType
}

// blob decodes a length-prefixed payload: bulk strings, verbatim strings and blob errors
func (d *Decoder) blob(tag Type, line []byte, header int) (Value, step, error) {
	n, err := parseLength(line)
	if err != nil {
		return Value{}, stepIncomplete, err
	}

	if n < 0 {
		if tag != TypeBulkString {
			return Value{}, stepIncomplete, ErrInvalidLength
		}
		if d.protocol == 3 {
			d.mismatched++
		}
		d.pos += header
		return MakeNull(), stepValue, nil
	}

	total := header + n + 2
	buf := d.buf[d.pos:]
	if len(buf) < total {
		d.need = total
		return Value{}, stepIncomplete, nil
	}
	if buf[header+n] != '\r' || buf[header+n+1] != '\n' {
		return Value{}, stepIncomplete, ErrInvalidEnding
	}
	payload := buf[header : header+n]

	var v Value
	switch tag {
	case TypeBulkString:
		v = Value{Type: TypeBulkString, String: clone(payload)}
	case TypeBlobError:
		v = ParseErrorLine(string(payload))
	case TypeVerbatimString:
		if len(payload) < 4 || payload[3] != ':' {
			return Value{}, stepIncomplete, ErrInvalidPayload
		}
		v = Value{Type: TypeVerbatimString, Format: string(payload[:3]), String: clone(payload[4:])}
	}

	d.pos += total
	return v, stepValue, nil
}

// aggregate consumes an aggregate header and opens a frame for its children
func (d *Decoder) aggregate(tag Type, line []byte, header int) (Value, step, error) {
	n, err := parseLength(line)
	if err != nil {
		return Value{}, stepIncomplete, err
	}

	if n < 0 {
		if tag != TypeArray {
			return Value{}, stepIncomplete, ErrInvalidLength
		}
		if d.protocol == 3 {
			d.mismatched++
		}
		d.pos += header
		return MakeNull(), stepValue, nil
	}

	d.pos += header

	children := n
	if tag == TypeMap {
		children = 2 * n
	}
	if children == 0 {
		f := frame{typ: tag, items: []Value{}}
		return f.finish(), stepValue, nil
	}

	d.stack = append(d.stack, frame{
		typ:       tag,
		remaining: children,
		items:     make([]Value, 0, min(children, 1024)),
	})
	return Value{}, stepOpen, nil
}

// readLine returns the line up to CR LF and the number of bytes it spans
// including the terminator. lineLen is -1 when the terminator has not arrived.
func readLine(b []byte) (line []byte, lineLen int, err error) {
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return nil, -1, nil
	}
	if idx == 0 || b[idx-1] != '\r' {
		return nil, -1, ErrInvalidEnding
	}
	return b[:idx-1], idx + 1, nil
}

func parseLength(line []byte) (int, error) {
	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, ErrInvalidLength
	}
	if n > MaxBulkLength {
		return 0, ErrTooLarge
	}
	return int(n), nil
}

func isDecimal(b []byte) bool {
	if len(b) > 0 && (b[0] == '-' || b[0] == '+') {
		b = b[1:]
	}
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
