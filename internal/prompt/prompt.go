// Package prompt asks the user questions on the terminal.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
)

// ErrAborted is returned when the user interrupts a prompt or input ends.
var ErrAborted = errors.New("prompt aborted")

// Prompter is the set of questions commands can ask.
type Prompter interface {
	// Input asks for a line of text. An empty answer takes def. When validate
	// is set the question repeats until it returns nil.
	Input(label, def string, validate func(string) error) (string, error)
	// Confirm asks a yes/no question.
	Confirm(label string, def bool) (bool, error)
	// Select asks the user to pick one of options and returns its index.
	Select(label string, options []string, def int) (int, error)
}

// Lines implements Prompter on top of a line reader.
type Lines struct {
	ReadLine func(prompt string) (string, error)
	Out      io.Writer
}

var _ Prompter = (*Lines)(nil)

func (l *Lines) Input(label, def string, validate func(string) error) (string, error) {
	prompt := label + " "
	if def != "" {
		prompt = fmt.Sprintf("%s (%s) ", label, def)
	}
	for {
		line, err := l.ReadLine(prompt)
		if err != nil {
			return "", err
		}
		answer := strings.TrimSpace(line)
		if answer == "" {
			answer = def
		}
		if validate != nil {
			if err := validate(answer); err != nil {
				fmt.Fprintf(l.Out, ">> %v\n", err)
				continue
			}
		}
		return answer, nil
	}
}

func (l *Lines) Confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		line, err := l.ReadLine(fmt.Sprintf("%s (%s) ", label, hint))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(l.Out, ">> Please answer yes or no")
	}
}

func (l *Lines) Select(label string, options []string, def int) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("%s: no options", label)
	}
	if def < 0 || def >= len(options) {
		def = 0
	}

	fmt.Fprintln(l.Out, label)
	for i, o := range options {
		fmt.Fprintf(l.Out, "  %d) %s\n", i+1, o)
	}
	for {
		line, err := l.ReadLine(fmt.Sprintf("Choose 1-%d (%d) ", len(options), def+1))
		if err != nil {
			return 0, err
		}
		s := strings.TrimSpace(line)
		if s == "" {
			return def, nil
		}
		n, err := strconv.Atoi(s)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(l.Out, ">> Enter a number between 1 and %d\n", len(options))
	}
}

// Terminal is a Prompter backed by readline.
type Terminal struct {
	*Lines
	rl *readline.Instance
}

// NewTerminal opens a readline instance on in and out.
func NewTerminal(in io.ReadCloser, out io.Writer) (*Terminal, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:           in,
		Stdout:          out,
		HistoryLimit:    -1,
		InterruptPrompt: "^C",
	})
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}

	t := &Terminal{rl: rl}
	t.Lines = &Lines{Out: out, ReadLine: t.readLine}
	return t, nil
}

func (t *Terminal) readLine(prompt string) (string, error) {
	t.rl.SetPrompt(prompt)
	line, err := t.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", ErrAborted
	}
	return line, err
}

// Close releases the terminal.
func (t *Terminal) Close() error {
	return t.rl.Close()
}

// Defaults answers every question with its default and confirms everything.
// It backs --yes and non-interactive runs.
type Defaults struct{}

var _ Prompter = Defaults{}

func (Defaults) Input(label, def string, validate func(string) error) (string, error) {
	if validate != nil {
		if err := validate(def); err != nil {
			return "", fmt.Errorf("%s: %w", strings.TrimSuffix(label, ":"), err)
		}
	}
	return def, nil
}

func (Defaults) Confirm(string, bool) (bool, error) { return true, nil }

func (Defaults) Select(label string, options []string, def int) (int, error) {
	if def < 0 || def >= len(options) {
		return 0, fmt.Errorf("%s: no default choice, pass it as a flag", strings.TrimSuffix(label, ":"))
	}
	return def, nil
}
