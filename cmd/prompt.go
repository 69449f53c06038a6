package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// errNotTerminal is returned when a confirmation is needed but nobody can
// answer it.
var errNotTerminal = errors.New("input is not a terminal; use --yes or --overwrite=overwrite to replace existing files")

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// prompter asks the user before existing outputs are replaced. One prompter
// serves every conversion of a command and reads answers in order.
type prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	raw io.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), raw: in, out: out}
}

// Confirm lists the existing files and reads a yes/no answer. Anything but
// "s", "sim", "y" or "yes" declines.
func (p *prompter) Confirm(existing []string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if f, ok := p.raw.(*os.File); ok && !isTerminal(f) {
		return false, errNotTerminal
	}

	if len(existing) == 1 {
		fmt.Fprintf(p.out, "%s already exists.\n", existing[0])
	} else {
		fmt.Fprintf(p.out, "%d files already exist:\n", len(existing))
		for _, path := range existing {
			fmt.Fprintf(p.out, "  %s\n", path)
		}
	}
	fmt.Fprint(p.out, "Overwrite? [y/N]: ")

	answer, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && answer != "") {
		fmt.Fprintln(p.out)
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return isYes(answer), nil
}

// isYes accepts English and Portuguese affirmatives.
func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "s", "sim":
		return true
	}
	return false
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
