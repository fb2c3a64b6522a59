// =============================================================================
// lineeditor.go - Line Editing for the REPL Front End
// =============================================================================
//
// The REPL reads input one line at a time. When stdin is a terminal the
// editor is backed by readline, which gives arrow-key editing, persistent
// history, and tab completion of protocol and shell command names. When
// stdin is a pipe or file (scripts, tests, Emacs comint) a plain scanner is
// used instead, because readline's raw terminal mode would garble the input.
//
// Output written while a prompt is showing goes through Writer(), so in
// interactive mode readline can redraw the prompt under the new text.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

// historySize is the maximum number of entries kept in the history file.
const historySize = 500

// LineEditor reads lines from the user, with or without readline.
type LineEditor struct {
	interactive bool

	// rl is set in interactive mode.
	rl *readline.Instance

	// scanner and out are used in non-interactive mode.
	scanner *bufio.Scanner
	out     io.Writer

	closeOnce sync.Once
	closed    chan struct{}
}

// newLineEditor picks readline when in is a terminal and the shell is not
// running under Emacs, and a scanner over in otherwise. words seeds tab
// completion.
func newLineEditor(in io.Reader, out io.Writer, historyFile string, words []string) *LineEditor {
	if !isTerminal(in) || os.Getenv("INSIDE_EMACS") != "" {
		return newScannerEditor(in, out)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		Prompt:       "",
		HistoryFile:  historyFile,
		HistoryLimit: historySize,

		// Only non-blank lines are saved, see getInteractiveLine.
		DisableAutoSaveHistory: true,

		AutoComplete: wordCompleter(words),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor(in, out)
	}

	return &LineEditor{
		interactive: true,
		rl:          rl,
		closed:      make(chan struct{}),
	}
}

func newScannerEditor(in io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{
		scanner: bufio.NewScanner(in),
		out:     &syncWriter{w: out},
		closed:  make(chan struct{}),
	}
}

// isTerminal reports whether r is a file attached to a terminal.
func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// GetLine shows prompt and returns the next line without its newline.
// Ctrl-C, Ctrl-D, end of input and Close all end input with io.EOF.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.isClosed() {
		return "", io.EOF
	}
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) || le.isClosed() {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Writer returns where output should be printed while the editor is live.
func (le *LineEditor) Writer() io.Writer {
	if le.interactive {
		return le.rl
	}
	return le.out
}

// Close releases the terminal. A blocked interactive GetLine returns
// io.EOF. Calling Close more than once is harmless.
func (le *LineEditor) Close() {
	le.closeOnce.Do(func() {
		close(le.closed)
		if le.rl != nil {
			le.rl.Close()
		}
	})
}

func (le *LineEditor) isClosed() bool {
	select {
	case <-le.closed:
		return true
	default:
		return false
	}
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}

// GO CONCEPT: Implicit Interface Satisfaction
// -------------------------------------------
// readline.Config.AutoComplete takes a readline.AutoCompleter, an
// interface with a single Do method. wordCompleter never names that
// interface; defining Do with the right signature is enough. Because
// wordCompleter is a named slice type, the word list itself is the
// receiver and no wrapper struct is needed.

// wordCompleter completes the first word of the line from a fixed list.
type wordCompleter []string

// Do implements readline.AutoCompleter. It returns the suffixes that
// complete the word under the cursor and the length of that word.
func (w wordCompleter) Do(line []rune, pos int) ([][]rune, int) {
	head := string(line[:pos])
	if strings.ContainsAny(head, " \t") {
		return nil, 0
	}

	var out [][]rune
	for _, word := range w {
		if strings.HasPrefix(word, head) {
			out = append(out, []rune(word[len(head):]+" "))
		}
	}
	return out, len([]rune(head))
}

// GO CONCEPT: Wrapping an io.Writer
// ---------------------------------
// bytes.Buffer and most io.Writer values are not safe for concurrent
// use. Rather than locking at every call site, syncWriter wraps any
// writer and takes a mutex inside Write. Callers still see a plain
// io.Writer.

// syncWriter serialises writes from the prompt loop and the reply printer.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
