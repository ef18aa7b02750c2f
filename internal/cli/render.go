package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/eternalApril/starlight/internal/client"
	"github.com/eternalApril/starlight/internal/resp"
)

// Render formats a reply the way redis-cli prints it, ending with a newline
func Render(v resp.Value) string {
	var sb strings.Builder
	render(&sb, v, 0)
	return sb.String()
}

// RenderError formats a failed call. Server errors look like error replies
func RenderError(err error) string {
	var srvErr *client.ServerError
	if errors.As(err, &srvErr) {
		return "(error) " + srvErr.Error() + "\n"
	}

	var usage *usageError
	if errors.As(err, &usage) {
		return "(error) " + usage.Error() + "\n"
	}

	return "(error) " + err.Error() + "\n"
}

// render writes v followed by a newline. indent is the column nested lines start at
func render(sb *strings.Builder, v resp.Value, indent int) {
	switch v.Type {
	case resp.TypeArray, resp.TypePush:
		renderList(sb, v.Array, indent, "(empty array)")
	case resp.TypeSet:
		renderList(sb, v.Array, indent, "(empty set)")
	case resp.TypeMap:
		renderMap(sb, v.Map, indent)
	default:
		sb.WriteString(scalar(v))
		sb.WriteByte('\n')
	}
}

func scalar(v resp.Value) string {
	switch v.Type {
	case resp.TypeSimpleString:
		return v.Text()
	case resp.TypeError:
		if len(v.String) == 0 {
			return "(error) " + v.Kind
		}
		return "(error) " + v.Kind + " " + v.Text()
	case resp.TypeInteger:
		return "(integer) " + strconv.FormatInt(v.Integer, 10)
	case resp.TypeBulkString:
		return strconv.Quote(v.Text())
	case resp.TypeNull:
		return "(nil)"
	case resp.TypeBoolean:
		if v.Bool {
			return "(true)"
		}
		return "(false)"
	case resp.TypeDouble:
		return "(double) " + formatDouble(v.Double)
	case resp.TypeBigNumber:
		return "(big number) " + v.Text()
	case resp.TypeVerbatimString:
		return v.Text()
	}
	return fmt.Sprintf("(unknown %s)", v.Type)
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

func renderList(sb *strings.Builder, items []resp.Value, indent int, empty string) {
	if len(items) == 0 {
		sb.WriteString(empty)
		sb.WriteByte('\n')
		return
	}

	width := len(strconv.Itoa(len(items)))
	for i, el := range items {
		if i > 0 {
			sb.WriteString(strings.Repeat(" ", indent))
		}
		prefix := fmt.Sprintf("%*d) ", width, i+1)
		sb.WriteString(prefix)
		render(sb, el, indent+len(prefix))
	}
}

func renderMap(sb *strings.Builder, pairs []resp.Pair, indent int) {
	if len(pairs) == 0 {
		sb.WriteString("(empty hash)\n")
		return
	}

	width := len(strconv.Itoa(len(pairs)))
	for i, p := range pairs {
		if i > 0 {
			sb.WriteString(strings.Repeat(" ", indent))
		}
		line := fmt.Sprintf("%*d# %s => ", width, i+1, strings.TrimSuffix(Render(p.Key), "\n"))
		sb.WriteString(line)
		render(sb, p.Value, indent+len(line))
	}
}
