package server

import (
	"strings"

	"github.com/eternalApril/starlight/internal/resp"
)

// debugProtocolTypes lists the names DEBUG PROTOCOL accepts
var debugProtocolTypes = []string{
	"string", "integer", "double", "bignum", "null", "array", "set", "map",
	"verbatim", "true", "false",
}

// debugProtocol returns a sample reply of the named type. The session
// encoder downgrades RESP3 variants when the client speaks RESP2
func debugProtocol(name string) (resp.Value, bool) {
	switch strings.ToLower(name) {
	case "string":
		return resp.MakeBulkString("Hello World"), true
	case "integer":
		return resp.MakeInteger(12345), true
	case "double":
		return resp.MakeDouble(3.141), true
	case "bignum":
		return resp.MakeBigNumber("1234567999999999999999999999999999999"), true
	case "null":
		return resp.MakeNull(), true
	case "array":
		return resp.MakeArray([]resp.Value{resp.MakeInteger(0), resp.MakeInteger(1), resp.MakeInteger(2)}), true
	case "set":
		return resp.MakeSet([]resp.Value{resp.MakeInteger(0), resp.MakeInteger(1), resp.MakeInteger(2)}), true
	case "map":
		return resp.MakeMap(
			resp.Pair{Key: resp.MakeInteger(0), Value: resp.MakeBoolean(false)},
			resp.Pair{Key: resp.MakeInteger(1), Value: resp.MakeBoolean(true)},
			resp.Pair{Key: resp.MakeInteger(2), Value: resp.MakeBoolean(false)},
		), true
	case "verbatim":
		return resp.MakeVerbatimString("txt", "This is a verbatim\nstring"), true
	case "true":
		return resp.MakeBoolean(true), true
	case "false":
		return resp.MakeBoolean(false), true
	}
	return resp.Value{}, false
}
