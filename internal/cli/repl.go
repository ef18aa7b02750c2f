package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/eternalApril/starlight/internal/client"
)

// session runs commands against one connection and prints their replies
type session struct {
	client  *client.Client
	timeout time.Duration
	out     io.Writer
}

// run executes one command and prints the reply. The returned error is
// the failure of the call, already printed to errOut
func (s *session) run(ctx context.Context, args []string, errOut io.Writer) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	v, err := dispatch(ctx, s.client, args)

	var pushErr *client.PushError
	if errors.As(err, &pushErr) {
		fmt.Fprintf(errOut, "(%d push message(s) dropped)\n", len(pushErr.Pushes))
		err = nil
	}
	if err != nil {
		fmt.Fprint(errOut, RenderError(err))
		return err
	}

	fmt.Fprint(s.out, Render(v))
	return nil
}

// repl reads command lines until exit, quit or end of input. It stops early
// only when the connection is gone
func (s *session) repl(ctx context.Context, in io.Reader, prompt string) error {
	scanner := bufio.NewScanner(in)
	parser := shellwords.NewParser()

	for {
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		words, err := parser.Parse(line)
		if err != nil {
			fmt.Fprintln(s.out, "Invalid argument(s)")
			continue
		}
		if len(words) == 0 {
			continue
		}

		switch strings.ToLower(words[0]) {
		case "exit", "quit":
			return nil
		case "help":
			printHelp(s.out, words[1:])
			continue
		case "clear":
			fmt.Fprint(s.out, "\x1b[2J\x1b[1;1H")
			continue
		}

		if err := s.run(ctx, words, s.out); err != nil && s.client.Conn().State() == client.StateClosed {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func printHelp(w io.Writer, topics []string) {
	if len(topics) == 0 {
		for _, name := range commandNames() {
			fmt.Fprintf(w, "%-8s %s\n", name, commandTable[name].summary)
		}
		fmt.Fprintln(w, "Type \"help <command>\" for details, \"exit\" to quit.")
		return
	}

	for _, topic := range topics {
		info, ok := lookupCommand(topic)
		if !ok {
			fmt.Fprintf(w, "No help for %q\n", topic)
			continue
		}
		fmt.Fprintf(w, "\n  %s %s\n  summary: %s\n  group: %s\n\n", strings.ToUpper(topic), info.arguments, info.summary, info.group)
	}
}
