package resp

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Type is the wire tag byte of a RESP value
type Type byte

const (
	TypeSimpleString Type = '+'
	TypeError        Type = '-'
	TypeInteger      Type = ':'
	TypeBulkString   Type = '$'
	TypeArray        Type = '*'

	// RESP3 only
	TypeNull           Type = '_'
	TypeBoolean        Type = '#'
	TypeDouble         Type = ','
	TypeBigNumber      Type = '('
	TypeMap            Type = '%'
	TypeSet            Type = '~'
	TypePush           Type = '>'
	TypeVerbatimString Type = '='
	TypeBlobError      Type = '!'
)

var typeNames = map[Type]string{
	TypeSimpleString:   "SimpleString",
	TypeError:          "Error",
	TypeInteger:        "Integer",
	TypeBulkString:     "BulkString",
	TypeArray:          "Array",
	TypeNull:           "Null",
	TypeBoolean:        "Boolean",
	TypeDouble:         "Double",
	TypeBigNumber:      "BigNumber",
	TypeMap:            "Map",
	TypeSet:            "Set",
	TypePush:           "Push",
	TypeVerbatimString: "VerbatimString",
	TypeBlobError:      "Error",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Type(" + strconv.Quote(string(t)) + ")"
}

// RESP3Only reports whether the tag is only sent by a RESP3 peer
func (t Type) RESP3Only() bool {
	switch t {
	case TypeSimpleString, TypeError, TypeInteger, TypeBulkString, TypeArray:
		return false
	}
	return true
}

// Value is a single protocol value of either generation.
//
// Nulls are normalized: the RESP2 null bulk string ($-1) and null array (*-1)
// both decode to a Value of TypeNull, the same as the RESP3 null (_). Callers
// cannot tell which wire shape produced a null.
type Value struct {
	Type    Type
	String  []byte  // SimpleString, BulkString, BigNumber, VerbatimString text, Error message
	Kind    string  // Error kind (first word of the error line)
	Format  string  // VerbatimString format tag, e.g. "txt"
	Integer int64   // Integer
	Double  float64 // Double
	Bool    bool    // Boolean
	Array   []Value // Array, Set, Push
	Map     []Pair  // Map, in wire order
}

// Pair is a single key/value entry of a Map
type Pair struct {
	Key   Value
	Value Value
}

// IsNull reports whether v is the unified null
func (v Value) IsNull() bool {
	return v.Type == TypeNull
}

// IsError reports whether v is a server error reply
func (v Value) IsError() bool {
	return v.Type == TypeError
}

// Text returns the string payload of string-like values
func (v Value) Text() string {
	return string(v.String)
}

// IsRESP3Only reports whether v, or any value nested inside it, uses a variant
// that a RESP2 peer never produces. Null is shared by both generations.
func (v Value) IsRESP3Only() bool {
	if v.Type != TypeNull && v.Type.RESP3Only() {
		return true
	}
	for _, el := range v.Array {
		if el.IsRESP3Only() {
			return true
		}
	}
	for _, p := range v.Map {
		if p.Key.IsRESP3Only() || p.Value.IsRESP3Only() {
			return true
		}
	}
	return false
}

// Equal compares two values structurally. NaN doubles are equal to each other
// and nil aggregates are equal to empty ones.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}

	switch v.Type {
	case TypeSimpleString, TypeBulkString, TypeBigNumber:
		return bytes.Equal(v.String, o.String)
	case TypeError:
		return v.Kind == o.Kind && bytes.Equal(v.String, o.String)
	case TypeVerbatimString:
		return v.Format == o.Format && bytes.Equal(v.String, o.String)
	case TypeInteger:
		return v.Integer == o.Integer
	case TypeDouble:
		if math.IsNaN(v.Double) {
			return math.IsNaN(o.Double)
		}
		return v.Double == o.Double
	case TypeBoolean:
		return v.Bool == o.Bool
	case TypeNull:
		return true
	case TypeArray, TypeSet, TypePush:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	case TypeMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for i := range v.Map {
			if !v.Map[i].Key.Equal(o.Map[i].Key) || !v.Map[i].Value.Equal(o.Map[i].Value) {
				return false
			}
		}
		return true
	}

	return false
}

// GoString renders a debug form of the value, e.g. Array([BulkString("a"), Integer(1)])
func (v Value) GoString() string {
	var sb strings.Builder
	v.debug(&sb)
	return sb.String()
}

func (v Value) debug(sb *strings.Builder) {
	sb.WriteString(v.Type.String())
	sb.WriteByte('(')

	switch v.Type {
	case TypeSimpleString, TypeBulkString, TypeBigNumber:
		sb.WriteString(strconv.Quote(string(v.String)))
	case TypeError:
		sb.WriteString(strconv.Quote(v.Kind))
		sb.WriteString(", ")
		sb.WriteString(strconv.Quote(string(v.String)))
	case TypeVerbatimString:
		sb.WriteString(strconv.Quote(v.Format))
		sb.WriteString(", ")
		sb.WriteString(strconv.Quote(string(v.String)))
	case TypeInteger:
		sb.WriteString(strconv.FormatInt(v.Integer, 10))
	case TypeDouble:
		sb.WriteString(strconv.FormatFloat(v.Double, 'g', -1, 64))
	case TypeBoolean:
		sb.WriteString(strconv.FormatBool(v.Bool))
	case TypeArray, TypeSet, TypePush:
		sb.WriteByte('[')
		for i, el := range v.Array {
			if i > 0 {
				sb.WriteString(", ")
			}
			el.debug(sb)
		}
		sb.WriteByte(']')
	case TypeMap:
		sb.WriteByte('{')
		for i, p := range v.Map {
			if i > 0 {
				sb.WriteString(", ")
			}
			p.Key.debug(sb)
			sb.WriteString(": ")
			p.Value.debug(sb)
		}
		sb.WriteByte('}')
	}

	sb.WriteByte(')')
}
