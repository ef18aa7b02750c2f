package client

import (
	"bytes"

	"github.com/eternalApril/starlight/internal/resp"
)

// bulk is a bulk string reply that may be null
type bulk struct {
	data  []byte
	found bool
}

func okReply(cmd string, v resp.Value) (struct{}, error) {
	if v.Type != resp.TypeSimpleString || !bytes.Equal(v.String, []byte("OK")) {
		return struct{}{}, &MismatchError{Command: cmd, Want: "OK", Got: v.Type}
	}
	return struct{}{}, nil
}

// okOrNullReply is the reply of a conditional SET: OK when written, null when skipped
func okOrNullReply(cmd string, v resp.Value) (bool, error) {
	if v.IsNull() {
		return false, nil
	}
	if _, err := okReply(cmd, v); err != nil {
		return false, err
	}
	return true, nil
}

func textReply(cmd string, v resp.Value) (string, error) {
	switch v.Type {
	case resp.TypeSimpleString, resp.TypeBulkString, resp.TypeVerbatimString:
		return v.Text(), nil
	}
	return "", &MismatchError{Command: cmd, Want: "string", Got: v.Type}
}

func bulkReply(cmd string, v resp.Value) (bulk, error) {
	switch v.Type {
	case resp.TypeBulkString:
		return bulk{data: v.String, found: true}, nil
	case resp.TypeNull:
		return bulk{}, nil
	}
	return bulk{}, &MismatchError{Command: cmd, Want: "bulk string or null", Got: v.Type}
}

func integerReply(cmd string, v resp.Value) (int64, error) {
	if v.Type != resp.TypeInteger {
		return 0, &MismatchError{Command: cmd, Want: "integer", Got: v.Type}
	}
	return v.Integer, nil
}

// boolReply accepts the 0/1 integers servers use for flags, and RESP3 booleans
func boolReply(cmd string, v resp.Value) (bool, error) {
	switch v.Type {
	case resp.TypeInteger:
		return v.Integer == 1, nil
	case resp.TypeBoolean:
		return v.Bool, nil
	}
	return false, &MismatchError{Command: cmd, Want: "integer", Got: v.Type}
}

// bulkListReply narrows an array of bulk strings. A null reply yields nil.
func bulkListReply(cmd string, v resp.Value) ([][]byte, error) {
	switch v.Type {
	case resp.TypeNull:
		return nil, nil
	case resp.TypeArray, resp.TypeSet:
	default:
		return nil, &MismatchError{Command: cmd, Want: "array", Got: v.Type}
	}

	out := make([][]byte, len(v.Array))
	for i, el := range v.Array {
		if el.Type != resp.TypeBulkString {
			return nil, &MismatchError{Command: cmd, Want: "array of bulk strings", Got: el.Type}
		}
		out[i] = el.String
	}
	return out, nil
}

// helloReply accepts the Map or flat Array a server sends for HELLO
func helloReply(cmd string, v resp.Value) (resp.Value, error) {
	if _, ok := helloProto(v); !ok {
		return resp.Value{}, &MismatchError{Command: cmd, Want: "map", Got: v.Type}
	}
	return v, nil
}

func rawReply(_ string, v resp.Value) (resp.Value, error) {
	return v, nil
}
