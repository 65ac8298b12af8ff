// Package menu runs numbered console menus over an io.Reader/io.Writer pair.
package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Action runs when its option is chosen. Returning io.EOF (or an error
// wrapping it) ends every enclosing menu.
type Action func(ctx context.Context) error

// Option is one numbered entry.
type Option struct {
	Key    string
	Label  string
	Action Action
	Exit   bool // Leaves the menu instead of running Action
}

// Menu is a titled list of options.
type Menu struct {
	Title    string
	Subtitle string
	Options  []Option
	// Once returns after the first successful action instead of
	// prompting again.
	Once bool
	// Goodbye is printed when an Exit option is chosen.
	Goodbye string
}

// Console reads choices line by line and writes menus and messages.
type Console struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewConsole wraps a reader and writer.
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{in: bufio.NewScanner(r), out: w}
}

// Out returns the console's writer for actions that print reports.
func (c *Console) Out() io.Writer {
	return c.out
}

// Printf writes formatted text to the console.
func (c *Console) Printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// ReadLine prompts and returns the next trimmed input line. It returns
// io.EOF once input is exhausted.
func (c *Console) ReadLine(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (m *Menu) keys() []string {
	keys := make([]string, len(m.Options))
	for i, o := range m.Options {
		keys[i] = o.Key
	}
	return keys
}

func (m *Menu) find(key string) (Option, bool) {
	for _, o := range m.Options {
		if o.Key == key {
			return o, true
		}
	}
	return Option{}, false
}

func (c *Console) render(m *Menu) {
	bar := strings.Repeat("=", max(len(m.Title)+8, 40))
	fmt.Fprintf(c.out, "\n%s\n    %s\n%s\n", bar, m.Title, bar)
	if m.Subtitle != "" {
		fmt.Fprintln(c.out, m.Subtitle)
	}
	for _, o := range m.Options {
		fmt.Fprintf(c.out, "%s. %s\n", o.Key, o.Label)
	}
}

// Run shows m and dispatches choices until an Exit option is picked, a
// Once menu completes an action, input ends, or ctx is cancelled.
// Action errors are printed and the menu continues. End of input is
// reported as io.EOF so callers can unwind nested menus.
func (c *Console) Run(ctx context.Context, m *Menu) error {
	c.render(m)
	prompt := fmt.Sprintf("\nSelect an option (%s): ", strings.Join(m.keys(), ", "))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		choice, err := c.ReadLine(prompt)
		if err != nil {
			return err
		}

		opt, ok := m.find(choice)
		if !ok {
			fmt.Fprintf(c.out, "Invalid option %q. Please enter one of: %s.\n", choice, strings.Join(m.keys(), ", "))
			continue
		}

		if opt.Exit {
			if m.Goodbye != "" {
				fmt.Fprintln(c.out, m.Goodbye)
			}
			return nil
		}
		if opt.Action == nil {
			continue
		}

		if err := opt.Action(ctx); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(c.out, "Error: %v\n", err)
			continue
		}
		if m.Once {
			return nil
		}
		c.render(m)
	}
}
