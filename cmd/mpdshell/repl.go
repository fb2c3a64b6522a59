// =============================================================================
// repl.go - Line-Oriented Front End
// =============================================================================
//
// The REPL is the fallback front end for pipes, dumb terminals, and anyone
// who prefers their scrollback to a full-screen UI. It runs two loops:
//
//   - the prompt loop reads a line and hands it to the session's dispatcher
//   - the printer loop wakes every poll interval and prints whatever echo
//     text and replies have been queued since the last pass
//
// Replies are not tied to the line that caused them. Whatever arrives is
// printed in arrival order, which is how the server sees it too.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/SirJson/mpdshell/internal/dispatch"
	"github.com/SirJson/mpdshell/internal/session"
)

const (
	promptText = "❯ "

	// settleTimeout bounds how long the REPL waits for outstanding replies
	// after input ends or close is sent.
	settleTimeout = 2 * time.Second
)

// GO CONCEPT: Optional Interfaces
// -------------------------------
// session.Backend is the minimum a front end needs. Waiting for replies is
// an extra some backends offer, so it lives in its own small interface and
// is discovered at runtime with a type assertion:
//
//   if s, ok := backend.(settler); ok { ... }
//
// The two-value form never panics; ok is false when the dynamic type lacks
// the method. net/http uses the same trick for http.Flusher.

// settler is implemented by backends that can wait for outstanding replies.
type settler interface {
	Settle(timeout time.Duration) bool
}

// runREPL drives backend from editor until input ends, the user sends the
// close command, ctx is cancelled, or the connection is lost. It returns the
// quit reason, empty for a normal exit.
func runREPL(ctx context.Context, backend session.Backend, editor *LineEditor, pollEvery time.Duration) (string, error) {
	out := editor.Writer()
	fmt.Fprintln(out, backend.Banner())
	fmt.Fprintf(out, "Type %shelp for shell commands.\n", dispatch.InternalPrefix)

	if pollEvery <= 0 {
		pollEvery = 50 * time.Millisecond
	}

	show := func(o session.Output) {
		fmt.Fprint(out, o.Format())
	}

	// GO CONCEPT: Select Over Several Channels
	// ----------------------------------------
	// The printer runs beside the prompt loop. A select statement blocks
	// until one of its cases can proceed and then runs that case:
	//
	//   - stop is closed when the prompt loop ends; a closed channel is
	//     always ready to receive, so closing it works as a broadcast
	//   - ctx.Done() is closed when SIGINT or SIGTERM cancels the context
	//   - ticker.C delivers a value every poll interval
	//
	// The sync.WaitGroup lets runREPL wait for the goroutine to return, so
	// nothing is printed after runREPL itself has returned.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(pollEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				backend.Drain(show)
				return
			case <-ctx.Done():
				backend.Drain(show)
				editor.Close()
				return
			case <-ticker.C:
				backend.Drain(show)
				if backend.IsDead() {
					editor.Close()
					return
				}
			}
		}
	}()

	var (
		loopErr    error
		terminated bool
	)
	for {
		line, err := editor.GetLine(promptText)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				loopErr = err
			}
			break
		}
		if backend.IsDead() || ctx.Err() != nil {
			break
		}
		if res := backend.Submit(line); res.Terminate {
			terminated = true
			break
		}
	}

	// Commands typed before the end of input, or before close, are still
	// queued or awaiting replies. Give them a bounded chance to finish.
	if s, ok := backend.(settler); ok && !backend.IsDead() && ctx.Err() == nil {
		s.Settle(settleTimeout)
	}
	close(stop)
	wg.Wait()
	backend.Drain(show)

	if loopErr != nil {
		return "", fmt.Errorf("read input: %w", loopErr)
	}
	if backend.IsDead() && !terminated {
		return session.ResetReason, nil
	}
	return "", nil
}
