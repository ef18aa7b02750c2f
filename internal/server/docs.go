package server

import (
	"slices"
	"strings"

	"github.com/eternalApril/starlight/internal/resp"
)

type commandMetadata struct {
	arity    int      // Arity includes the command name itself
	flags    []string // read, write, fast, denyoom, etc
	firstKey int      // 1-based index of the first key
	lastKey  int      // 1-based index of the last key
	step     int      // Step count for finding keys
}

var (
	commandRegistry = map[string]commandMetadata{
		"PING":    {-1, []string{"fast", "stale"}, 0, 0, 0},
		"ECHO":    {2, []string{"fast"}, 0, 0, 0},
		"GET":     {2, []string{"readonly", "fast"}, 1, 1, 1},
		"SET":     {-3, []string{"write", "denyoom"}, 1, 1, 1},
		"SETNX":   {3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"GETEX":   {-2, []string{"write", "fast"}, 1, 1, 1},
		"DEL":     {-2, []string{"write"}, 1, -1, 1},
		"EXISTS":  {-2, []string{"readonly", "fast"}, 1, -1, 1},
		"EXPIRE":  {-3, []string{"write", "fast"}, 1, 1, 1},
		"TTL":     {2, []string{"readonly", "fast"}, 1, 1, 1},
		"PTTL":    {2, []string{"readonly", "fast"}, 1, 1, 1},
		"PERSIST": {2, []string{"write", "fast"}, 1, 1, 1},
		"INCR":    {2, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"DECR":    {2, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"LPUSH":   {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"RPUSH":   {-3, []string{"write", "denyoom", "fast"}, 1, 1, 1},
		"LPOP":    {-2, []string{"write", "fast"}, 1, 1, 1},
		"RPOP":    {-2, []string{"write", "fast"}, 1, 1, 1},
		"LRANGE":  {4, []string{"readonly"}, 1, 1, 1},
		"HELLO":   {-1, []string{"fast", "stale", "noscript"}, 0, 0, 0},
		"CLIENT":  {-2, []string{"admin", "noscript"}, 0, 0, 0},
		"DEBUG":   {-2, []string{"admin", "noscript"}, 0, 0, 0},
		"COMMAND": {-1, []string{"random", "loading", "stale"}, 0, 0, 0},
	}
)

// commandDoc stores a description for the command
type commandDoc struct {
	summary    string
	arguments  string
	complexity string
	group      string
	since      string
}

// commandDocsRegistry documentation registry
var commandDocsRegistry = map[string]commandDoc{
	"PING": {
		summary:    "Ping the server.",
		arguments:  "[message]",
		complexity: "O(1)",
		group:      "connection",
		since:      "1.0.0",
	},
	"ECHO": {
		summary:    "Return the given string.",
		arguments:  "message",
		complexity: "O(1)",
		group:      "connection",
		since:      "1.0.0",
	},
	"GET": {
		summary:    "Get the value of a key.",
		arguments:  "key",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"SET": {
		summary:    "Set the string value of a key.",
		arguments:  "key value [NX | XX] [EX seconds | PX milliseconds | EXAT unix-time-seconds | PXAT unix-time-milliseconds | KEEPTTL]",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"SETNX": {
		summary:    "Set the string value of a key only when the key doesn't exist.",
		arguments:  "key value",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"GETEX": {
		summary:    "Get the value of a key and optionally set its expiration.",
		arguments:  "key [EX seconds | PX milliseconds | EXAT unix-time-seconds | PXAT unix-time-milliseconds | PERSIST]",
		complexity: "O(1)",
		group:      "string",
		since:      "6.2.0",
	},
	"DEL": {
		summary:    "Delete a key.",
		arguments:  "key [key ...]",
		complexity: "O(N) where N is the number of keys that will be removed.",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXISTS": {
		summary:    "Determine if a key exists.",
		arguments:  "key [key ...]",
		complexity: "O(N) where N is the number of keys to check.",
		group:      "generic",
		since:      "1.0.0",
	},
	"EXPIRE": {
		summary:    "Set a key's time to live in seconds.",
		arguments:  "key seconds [NX | XX | GT | LT]",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"TTL": {
		summary:    "Get the time to live for a key in seconds.",
		arguments:  "key",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PTTL": {
		summary:    "Get the time to live for a key in milliseconds.",
		arguments:  "key",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"PERSIST": {
		summary:    "Remove the expiration from a key.",
		arguments:  "key",
		complexity: "O(1)",
		group:      "generic",
		since:      "1.0.0",
	},
	"INCR": {
		summary:    "Increment the integer value of a key by one.",
		arguments:  "key",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"DECR": {
		summary:    "Decrement the integer value of a key by one.",
		arguments:  "key",
		complexity: "O(1)",
		group:      "string",
		since:      "1.0.0",
	},
	"LPUSH": {
		summary:    "Prepend one or multiple elements to a list.",
		arguments:  "key element [element ...]",
		complexity: "O(1) for each element added.",
		group:      "list",
		since:      "1.0.0",
	},
	"RPUSH": {
		summary:    "Append one or multiple elements to a list.",
		arguments:  "key element [element ...]",
		complexity: "O(1) for each element added.",
		group:      "list",
		since:      "1.0.0",
	},
	"LPOP": {
		summary:    "Remove and get the first elements in a list.",
		arguments:  "key [count]",
		complexity: "O(N) where N is the number of elements returned.",
		group:      "list",
		since:      "1.0.0",
	},
	"RPOP": {
		summary:    "Remove and get the last elements in a list.",
		arguments:  "key [count]",
		complexity: "O(N) where N is the number of elements returned.",
		group:      "list",
		since:      "1.0.0",
	},
	"LRANGE": {
		summary:    "Get a range of elements from a list.",
		arguments:  "key start stop",
		complexity: "O(S+N) where S is the distance of start offset from HEAD and N is the number of elements in the range.",
		group:      "list",
		since:      "1.0.0",
	},
	"HELLO": {
		summary:    "Handshake with the server and switch the protocol version.",
		arguments:  "[protover [SETNAME clientname]]",
		complexity: "O(1)",
		group:      "connection",
		since:      "6.0.0",
	},
	"CLIENT": {
		summary:    "Manage the client connection.",
		arguments:  "subcommand [argument ...]",
		complexity: "O(1)",
		group:      "connection",
		since:      "2.4.0",
	},
	"DEBUG": {
		summary:    "Debugging helpers, DEBUG PROTOCOL returns a sample reply of the given type.",
		arguments:  "PROTOCOL type",
		complexity: "O(1)",
		group:      "server",
		since:      "1.0.0",
	},
	"COMMAND": {
		summary:    "Get array of command details.",
		arguments:  "[DOCS [command-name ...]]",
		complexity: "O(N) where N is the number of commands to look up.",
		group:      "server",
		since:      "1.0.0",
	},
}

// checkArity reports whether n words, the command name included, fit the arity
func checkArity(arity, n int) bool {
	if arity >= 0 {
		return n == arity
	}
	return n >= -arity
}

func makeFlagsArray(flags []string) resp.Value {
	vals := make([]resp.Value, len(flags))
	for i, f := range flags {
		vals[i] = resp.MakeSimpleString(f)
	}
	return resp.MakeSet(vals)
}

func makeInfoCmdArray(name string) []resp.Value {
	return []resp.Value{
		resp.MakeBulkString(strings.ToLower(name)),
		resp.MakeInteger(int64(commandRegistry[name].arity)),
		makeFlagsArray(commandRegistry[name].flags),
		resp.MakeInteger(int64(commandRegistry[name].firstKey)),
		resp.MakeInteger(int64(commandRegistry[name].lastKey)),
		resp.MakeInteger(int64(commandRegistry[name].step)),
	}
}

func getAllCommands() resp.Value {
	cmdArray := make([]resp.Value, 0, len(commandRegistry))
	for name := range commandRegistry {
		details := makeInfoCmdArray(name)
		cmdArray = append(cmdArray, resp.MakeArray(details))
	}
	return resp.MakeArray(cmdArray)
}

// getCommandsDocs returns documentation for specified commands or all commands
// Format: {name => {summary => val, since => val...}, ...}
func getCommandsDocs(args []resp.Value) resp.Value {
	var targets []string

	if len(args) == 0 {
		targets = make([]string, 0, len(commandDocsRegistry))
		for name := range commandDocsRegistry {
			targets = append(targets, name)
		}
		slices.Sort(targets)
	} else {
		targets = make([]string, 0, len(args))
		for _, arg := range args {
			targets = append(targets, strings.ToUpper(arg.Text()))
		}
	}

	result := make([]resp.Pair, 0, len(targets))

	for _, name := range targets {
		doc, ok := commandDocsRegistry[name]
		if !ok {
			continue
		}

		props := resp.MakeMap(
			resp.Pair{Key: resp.MakeBulkString("summary"), Value: resp.MakeBulkString(doc.summary)},
			resp.Pair{Key: resp.MakeBulkString("since"), Value: resp.MakeBulkString(doc.since)},
			resp.Pair{Key: resp.MakeBulkString("group"), Value: resp.MakeBulkString(doc.group)},
			resp.Pair{Key: resp.MakeBulkString("complexity"), Value: resp.MakeBulkString(doc.complexity)},
		)

		result = append(result, resp.Pair{Key: resp.MakeBulkString(strings.ToLower(name)), Value: props})
	}

	return resp.MakeMap(result...)
}
