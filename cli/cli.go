// Package cli provides terminal I/O, narration, board rendering and
// meta-command dispatch for hot-seat battles.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// CLI is the plain line-mode client.
type CLI struct {
	Console   *Console
	In        io.Reader
	Out       io.Writer
	EchoInput bool // echo each input line after the prompt (for script playback)
}

// New creates a CLI over console reading stdin and writing stdout.
func New(console *Console) *CLI {
	return &CLI{
		Console: console,
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Run shows the intro, then loops: prompt, input, step, output. It
// returns when input ends or the player quits.
func (c *CLI) Run(ctx context.Context) {
	c.printLines(c.Console.Intro())

	scanner := bufio.NewScanner(c.In)
	for {
		c.print(c.Console.Prompt())
		if !scanner.Scan() {
			c.printLine("")
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		result := c.Console.Step(ctx, input)
		c.printLines(result.Lines)
		if result.Quit {
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *CLI) printLines(lines []Line) {
	for _, l := range lines {
		switch l.Kind {
		case LineSystem:
			c.printSystem(l.Text)
		case LineError:
			c.printLine("! " + l.Text)
		case LineTurn:
			c.printLine("== " + l.Text + " ==")
		default:
			c.printLine(l.Text)
		}
	}
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
