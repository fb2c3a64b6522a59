// Package session ties a protocol client to its two timers and the
// command dispatcher, and gives front ends a small surface to drive.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/SirJson/mpdshell/internal/config"
	"github.com/SirJson/mpdshell/internal/dispatch"
	"github.com/SirJson/mpdshell/internal/logger"
	"github.com/SirJson/mpdshell/internal/scheduler"
	"github.com/SirJson/mpdshell/mpdprotocol"
)

// ResetReason is the exit message when the server goes away.
const ResetReason = "Connection reset by peer"

// Backend is what a front end needs from a session.
type Backend interface {
	Banner() string
	Submit(line string) dispatch.Result
	Drain(emit func(Output)) int
	IsDead() bool
	Completions() []string
}

// Session is a connected shell session.
type Session struct {
	cfg        config.Config
	client     *mpdprotocol.Client
	dispatcher *dispatch.Dispatcher
	keepalive  *scheduler.Task
	poller     *scheduler.Task
	now        func() time.Time

	closeOnce sync.Once
}

var _ Backend = (*Session)(nil)

// Open connects to the configured server and starts the poll and
// keep-alive timers.
func Open(ctx context.Context, cfg config.Config) (*Session, error) {
	client, err := mpdprotocol.Connect(ctx, mpdprotocol.Options{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
	s.dispatcher = dispatch.New(client, dispatch.Options{
		ScriptDir: cfg.ScriptDir,
		EchoInput: cfg.Echo,
	})
	s.dispatcher.Register("info", "!info", "Show connection details", s.info)

	wait := cfg.PollInterval / 2
	s.poller = scheduler.New(cfg.PollInterval, func() {
		if err := client.Poll(wait); err != nil && !errors.Is(err, mpdprotocol.ErrClosed) {
			logger.Warning("poll failed", "error", err)
		}
	})
	s.keepalive = scheduler.New(cfg.KeepAlive, client.PingUnchecked)

	if err := s.poller.Start(); err != nil {
		client.Disconnect()
		return nil, fmt.Errorf("start poll timer: %w", err)
	}
	if err := s.keepalive.Start(); err != nil {
		s.poller.Stop()
		client.Disconnect()
		return nil, fmt.Errorf("start keep-alive timer: %w", err)
	}

	logger.Info("session started", "addr", client.Addr(), "poll", cfg.PollInterval, "keepalive", cfg.KeepAlive)
	return s, nil
}

// Client returns the underlying protocol client.
func (s *Session) Client() *mpdprotocol.Client {
	return s.client
}

// Banner returns the header line shown by the front ends.
func (s *Session) Banner() string {
	return fmt.Sprintf("Connected to: %s@%d | %s", s.cfg.Host, s.cfg.Port, s.client.Greeting())
}

// Submit dispatches one line of input.
func (s *Session) Submit(line string) dispatch.Result {
	return s.dispatcher.Dispatch(line)
}

// Drain pops every queued echo, then every queued reply, and passes each
// displayable block to emit. Bare OK replies are skipped. It returns the
// number of blocks emitted.
func (s *Session) Drain(emit func(Output)) int {
	n := 0
	for {
		text, err := s.client.PopEcho()
		if errors.Is(err, mpdprotocol.ErrEmpty) {
			break
		}
		emit(Output{Kind: KindEcho, Text: text, Time: s.now()})
		n++
	}
	for {
		resp, err := s.client.PopMessage()
		if errors.Is(err, mpdprotocol.ErrEmpty) {
			break
		}
		if resp == nil {
			continue
		}
		kind := KindReply
		if resp.IsError() {
			kind = KindError
		}
		emit(Output{Kind: kind, Text: resp.Text, Time: s.now()})
		n++
	}
	return n
}

// Settle waits until every sent command has been written and answered,
// or the connection dies, or timeout passes. It reports whether the
// session went quiet.
func (s *Session) Settle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if s.client.IsDead() {
			return false
		}
		if s.client.PeekOutboundDepth() == 0 && s.client.PendingReplies() == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(s.cfg.PollInterval)
	}
}

// IsDead reports whether the connection has been lost.
func (s *Session) IsDead() bool {
	return s.client.IsDead()
}

// Completions returns every word the input line may start with.
func (s *Session) Completions() []string {
	words := mpdprotocol.KnownCommands()
	for _, name := range s.dispatcher.InternalCommands() {
		words = append(words, dispatch.InternalPrefix+name)
	}
	slices.Sort(words)
	return words
}

// Close stops both timers and disconnects. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.keepalive.Stop()
		s.poller.Stop()
		s.client.Disconnect()
		logger.Info("session closed", "addr", s.client.Addr())
	})
}

func (s *Session) info(c dispatch.Client, _ string) error {
	c.LocalEcho(fmt.Sprintf("%s\nserver: %s\nstate: %s\nawaiting replies: %d\nqueued commands: %d",
		s.Banner(),
		s.client.ServerVersion(),
		s.client.State(),
		s.client.PendingReplies(),
		s.client.PeekOutboundDepth(),
	))
	return nil
}
