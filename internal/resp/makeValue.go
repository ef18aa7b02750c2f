package resp

import (
	"fmt"
	"strings"
)

// MakeSimpleString construct SimpleString Value from string
func MakeSimpleString(s string) Value {
	return Value{
		Type:   TypeSimpleString,
		String: []byte(s),
	}
}

// MakeError construct Error Value from a kind token and a message
func MakeError(kind, message string) Value {
	return Value{
		Type:   TypeError,
		Kind:   kind,
		String: []byte(message),
	}
}

// ParseErrorLine splits a raw error line into its kind and message, "WRONGTYPE Operation..." -> ("WRONGTYPE", "Operation...")
func ParseErrorLine(line string) Value {
	kind, message, _ := strings.Cut(line, " ")
	return MakeError(kind, message)
}

// MakeErrorWrongNumberOfArguments construct Error Value that command had wrong number of arguments for command
func MakeErrorWrongNumberOfArguments(cmd string) Value {
	return MakeError("ERR", fmt.Sprintf("wrong number of arguments for '%s' command", strings.ToLower(cmd)))
}

// MakeBulkString construct BulkString Value from string
func MakeBulkString(s string) Value {
	return Value{
		Type:   TypeBulkString,
		String: []byte(s),
	}
}

// MakeBulkBytes construct BulkString Value from raw bytes without copying
func MakeBulkBytes(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{
		Type:   TypeBulkString,
		String: b,
	}
}

// MakeNull construct the unified null Value
func MakeNull() Value {
	return Value{Type: TypeNull}
}

// MakeInteger construct Integer Value from int64
func MakeInteger(n int64) Value {
	return Value{
		Type:    TypeInteger,
		Integer: n,
	}
}

// MakeArray creates a standard RESP array containing the provided elements
func MakeArray(values []Value) Value {
	return Value{
		Type:  TypeArray,
		Array: values,
	}
}

// MakeBulkArray creates an array of bulk strings
func MakeBulkArray(items ...string) Value {
	values := make([]Value, len(items))
	for i, item := range items {
		values[i] = MakeBulkString(item)
	}
	return MakeArray(values)
}

func MakeBoolean(b bool) Value {
	return Value{
		Type: TypeBoolean,
		Bool: b,
	}
}

func MakeDouble(f float64) Value {
	return Value{
		Type:   TypeDouble,
		Double: f,
	}
}

// MakeBigNumber construct BigNumber Value from its decimal text
func MakeBigNumber(decimal string) Value {
	return Value{
		Type:   TypeBigNumber,
		String: []byte(decimal),
	}
}

func MakeMap(pairs ...Pair) Value {
	return Value{
		Type: TypeMap,
		Map:  pairs,
	}
}

func MakeSet(values []Value) Value {
	return Value{
		Type:  TypeSet,
		Array: values,
	}
}

func MakePush(values []Value) Value {
	return Value{
		Type:  TypePush,
		Array: values,
	}
}

// MakeVerbatimString construct VerbatimString Value. format must be exactly three bytes
func MakeVerbatimString(format, text string) Value {
	return Value{
		Type:   TypeVerbatimString,
		Format: format,
		String: []byte(text),
	}
}
