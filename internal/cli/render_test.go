package cli

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eternalApril/starlight/internal/client"
	"github.com/eternalApril/starlight/internal/resp"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   resp.Value
		want string
	}{
		{"simple", resp.MakeSimpleString("OK"), "OK\n"},
		{"bulk", resp.MakeBulkString("hello world"), "\"hello world\"\n"},
		{"bulk escapes", resp.MakeBulkString("a\"b\n"), "\"a\\\"b\\n\"\n"},
		{"null", resp.MakeNull(), "(nil)\n"},
		{"integer", resp.MakeInteger(-7), "(integer) -7\n"},
		{"true", resp.MakeBoolean(true), "(true)\n"},
		{"false", resp.MakeBoolean(false), "(false)\n"},
		{"double", resp.MakeDouble(3.5), "(double) 3.5\n"},
		{"inf", resp.MakeDouble(math.Inf(-1)), "(double) -inf\n"},
		{"big number", resp.MakeBigNumber("12345678901234567890"), "(big number) 12345678901234567890\n"},
		{"verbatim", resp.MakeVerbatimString("txt", "raw text"), "raw text\n"},
		{"error", resp.MakeError("WRONGTYPE", "Operation against a key"), "(error) WRONGTYPE Operation against a key\n"},
		{"empty array", resp.MakeArray(nil), "(empty array)\n"},
		{"empty set", resp.MakeSet(nil), "(empty set)\n"},
		{"array", resp.MakeBulkArray("a", "b"), "1) \"a\"\n2) \"b\"\n"},
		{
			"nested",
			resp.MakeArray([]resp.Value{
				resp.MakeInteger(1),
				resp.MakeArray([]resp.Value{resp.MakeBulkString("x"), resp.MakeNull()}),
			}),
			"1) (integer) 1\n2) 1) \"x\"\n   2) (nil)\n",
		},
		{
			"wide index",
			resp.MakeBulkArray("1", "2", "3", "4", "5", "6", "7", "8", "9", "10"),
			" 1) \"1\"\n 2) \"2\"\n 3) \"3\"\n 4) \"4\"\n 5) \"5\"\n 6) \"6\"\n 7) \"7\"\n 8) \"8\"\n 9) \"9\"\n10) \"10\"\n",
		},
		{
			"map",
			resp.MakeMap(
				resp.Pair{Key: resp.MakeBulkString("server"), Value: resp.MakeBulkString("starlight")},
				resp.Pair{Key: resp.MakeBulkString("proto"), Value: resp.MakeInteger(3)},
			),
			"1# \"server\" => \"starlight\"\n2# \"proto\" => (integer) 3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.in))
		})
	}
}

func TestRenderError(t *testing.T) {
	assert.Equal(t, "(error) ERR syntax error\n", RenderError(&client.ServerError{Kind: "ERR", Message: "syntax error"}))
	assert.Equal(t, "(error) ERR value is not an integer or out of range\n", RenderError(errNotInteger))
	assert.Equal(t, "(error) boom\n", RenderError(errors.New("boom")))
}
