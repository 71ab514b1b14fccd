package cliui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/peterh/liner"
)

// ErrInputAborted is returned by ReadLine when the user pressed Ctrl+C at
// the prompt.
var ErrInputAborted = errors.New("input aborted")

// LineReader reads one line of user input at a time. io.EOF marks the end
// of input (Ctrl+D or a closed pipe).
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// MaxInputLine bounds a single line read from a non-interactive source.
const MaxInputLine = 16 * 1024 * 1024

// NewLineReader returns a liner backed reader with history and line editing
// when in is an interactive stdin, and a plain scanner otherwise. A non-empty
// historyFile is loaded on open and written back by Close.
func NewLineReader(in io.Reader, out io.Writer, historyFile string) LineReader {
	if f, ok := in.(*os.File); ok && f == os.Stdin && IsTerminal(f) && liner.TerminalSupported() {
		return newLinerReader(historyFile)
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxInputLine)
	return &scannerReader{scanner: scanner, out: out}
}

// scannerReader is used for pipes, files and tests.
type scannerReader struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (s *scannerReader) ReadLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return s.scanner.Text(), nil
}

func (s *scannerReader) Close() error {
	return nil
}

type linerReader struct {
	state       *liner.State
	historyFile string
}

func newLinerReader(historyFile string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)

	r := &linerReader{state: state, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			_, _ = state.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

// ReadLine strips styling from prompt; liner measures prompt width itself and
// miscounts ANSI escapes.
func (r *linerReader) ReadLine(prompt string) (string, error) {
	input, err := r.state.Prompt(ansi.Strip(prompt))
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrInputAborted
		}
		return "", err
	}

	if strings.TrimSpace(input) != "" {
		r.state.AppendHistory(input)
	}
	return input, nil
}

func (r *linerReader) Close() error {
	if r.historyFile != "" {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = r.state.WriteHistory(f)
			f.Close()
		}
	}
	return r.state.Close()
}
