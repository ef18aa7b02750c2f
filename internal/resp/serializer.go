package resp

import "strconv"

// EncodeCommand serializes command arguments as an array of bulk strings.
// Both protocol generations accept this form, so it does not depend on the
// negotiated version.
func EncodeCommand(args [][]byte) []byte {
	size := 16
	for _, arg := range args {
		size += len(arg) + 16
	}
	return AppendCommand(make([]byte, 0, size), args)
}

// AppendCommand appends the wire form of a command to dst
func AppendCommand(dst []byte, args [][]byte) []byte {
	dst = append(dst, '*')
	dst = strconv.AppendInt(dst, int64(len(args)), 10)
	dst = append(dst, '\r', '\n')

	for _, arg := range args {
		dst = append(dst, '$')
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, '\r', '\n')
		dst = append(dst, arg...)
		dst = append(dst, '\r', '\n')
	}

	return dst
}

// Args converts string arguments to the byte form EncodeCommand takes
func Args(args ...string) [][]byte {
	out := make([][]byte, len(args))
	for i, arg := range args {
		out[i] = []byte(arg)
	}
	return out
}
