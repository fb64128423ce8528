// Package console reads diagnostic commands from an interactive terminal.
//
// Lines are read on their own goroutine and handed to the caller through a
// channel, so a blocked terminal never holds up the control loop.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Command is a parsed console line.
type Command int

const (
	// CmdNone is an empty line.
	CmdNone Command = iota
	// CmdMenu prints the status menu.
	CmdMenu
	// CmdReset forces the output low and clears the latch.
	CmdReset
	// CmdUnknown is anything else.
	CmdUnknown
)

// Hint is printed for unrecognised input.
const Hint = "Commands: m or ? to show the menu, reset to force D1 low"

// Parse maps a console line to a Command.
func Parse(line string) Command {
	input := strings.TrimSpace(line)
	switch {
	case input == "":
		return CmdNone
	case input == "m" || input == "M" || input == "?":
		return CmdMenu
	case strings.EqualFold(input, "reset"):
		return CmdReset
	default:
		return CmdUnknown
	}
}

// Console wraps a readline instance.
type Console struct {
	rl    *readline.Instance
	lines chan string
}

// New creates a Console with the given prompt.
func New(prompt string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline: %w", err)
	}
	return &Console{rl: rl, lines: make(chan string)}, nil
}

// Lines returns the channel of entered lines. It is closed when input ends.
func (c *Console) Lines() <-chan string {
	return c.lines
}

// Stdout returns a writer that coordinates with the prompt. Logs and menus
// should go through it.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run reads lines until ctx is cancelled or input ends.
func (c *Console) Run(ctx context.Context) {
	pump(ctx, c.rl.Readline, c.lines)
}

// Close releases the terminal. A pending Readline returns with an error.
func (c *Console) Close() error {
	return c.rl.Close()
}

// pump forwards lines from next to out until ctx is done or next fails with
// anything but an interrupt. It closes out on return.
func pump(ctx context.Context, next func() (string, error), out chan<- string) {
	defer close(out)
	for {
		if ctx.Err() != nil {
			return
		}
		line, err := next()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return
		}
		select {
		case out <- line:
		case <-ctx.Done():
			return
		}
	}
}
