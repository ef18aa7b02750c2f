package cli

import (
	"slices"
	"strings"
)

// commandInfo describes a command the client knows how to validate and explain.
// Arity follows the server convention: it counts the command name, and a
// negative value means at least -arity words
type commandInfo struct {
	arity     int
	arguments string
	summary   string
	group     string
}

var commandTable = map[string]commandInfo{
	"PING":    {-1, "[message]", "Ping the server.", "connection"},
	"ECHO":    {2, "message", "Return the given string.", "connection"},
	"HELLO":   {-1, "[protover [AUTH username password] [SETNAME clientname]]", "Handshake with the server, optionally switching protocol.", "connection"},
	"CLIENT":  {-2, "subcommand [arg ...]", "Connection management commands.", "connection"},
	"GET":     {2, "key", "Get the value of a key.", "string"},
	"SET":     {-3, "key value [NX | XX] [GET] [EX seconds | PX milliseconds | EXAT unix-time-seconds | PXAT unix-time-milliseconds | KEEPTTL]", "Set the string value of a key.", "string"},
	"SETNX":   {3, "key value", "Set the string value of a key only when the key doesn't exist.", "string"},
	"GETEX":   {-2, "key [EX seconds | PX milliseconds | EXAT unix-time-seconds | PXAT unix-time-milliseconds | PERSIST]", "Get the value of a key and optionally set its expiration.", "string"},
	"INCR":    {2, "key", "Increment the integer value of a key by one.", "string"},
	"DECR":    {2, "key", "Decrement the integer value of a key by one.", "string"},
	"DEL":     {-2, "key [key ...]", "Delete one or more keys.", "generic"},
	"EXISTS":  {-2, "key [key ...]", "Determine how many of the given keys exist.", "generic"},
	"EXPIRE":  {-3, "key seconds [NX | XX | GT | LT]", "Set a key's time to live in seconds.", "generic"},
	"TTL":     {2, "key", "Get the time to live for a key in seconds.", "generic"},
	"PTTL":    {2, "key", "Get the time to live for a key in milliseconds.", "generic"},
	"PERSIST": {2, "key", "Remove the expiration from a key.", "generic"},
	"LPUSH":   {-3, "key element [element ...]", "Prepend one or more elements to a list.", "list"},
	"RPUSH":   {-3, "key element [element ...]", "Append one or more elements to a list.", "list"},
	"LPOP":    {-2, "key [count]", "Remove and get the first elements in a list.", "list"},
	"RPOP":    {-2, "key [count]", "Remove and get the last elements in a list.", "list"},
	"LRANGE":  {4, "key start stop", "Get a range of elements from a list.", "list"},
	"DEBUG":   {-2, "subcommand [arg ...]", "Debugging commands.", "server"},
	"COMMAND": {-1, "[subcommand [arg ...]]", "Get details about server commands.", "server"},
}

func lookupCommand(name string) (commandInfo, bool) {
	info, ok := commandTable[strings.ToUpper(name)]
	return info, ok
}

// commandNames returns the table keys sorted
func commandNames() []string {
	names := make([]string, 0, len(commandTable))
	for name := range commandTable {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
