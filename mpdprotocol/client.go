package mpdprotocol

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SirJson/mpdshell/internal/logger"
)

// State is the lifecycle state of a connection.
type State int

const (
	// StateConnecting covers dialing and the greeting read.
	StateConnecting State = iota
	// StateOpen means commands may be exchanged.
	StateOpen
	// StateRemoteClosed means the transport failed or the peer went away.
	StateRemoteClosed
	// StateClosed means Disconnect released the connection.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateRemoteClosed:
		return "remote-closed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Options configures Connect.
type Options struct {
	Host string
	Port int

	// Password, when set, is sent as the first command after the greeting.
	Password string

	// Timeout bounds dialing and the greeting read. Zero means ConnectionTimeout.
	Timeout time.Duration

	// ProbeTimeout bounds how long a keep-alive probe may stay unanswered.
	// Zero means ProbeTimeout.
	ProbeTimeout time.Duration
}

// Client is a poll-driven MPD client.
//
// Send, LocalEcho, the Pop methods, the depth queries, IsDead and
// PingUnchecked may be called from any goroutine. Poll is meant to be
// driven by a single timer goroutine; it holds the I/O lock for at most
// its timeout, and Disconnect waits for that lock.
//
// Outbound commands are written in the order they were sent. Inbound
// messages are complete replies, each ending with OK or ACK.
type Client struct {
	addr         string
	greeting     string
	probeTimeout time.Duration

	ioMu       sync.Mutex
	sock       *socket
	mux        multiplexer
	framer     framer
	readBuf    []byte
	headOffset int

	outbound *Queue[string]
	inbound  *Queue[Response]
	echo     *Queue[string]

	stateMu sync.Mutex
	state   State

	dead atomic.Bool

	trackMu sync.Mutex
	track   replyTracker
}

// Dial connects to host:port with default options.
func Dial(host string, port int) (*Client, error) {
	return Connect(context.Background(), Options{Host: host, Port: port})
}

// Connect dials the server and completes the greeting handshake before
// returning. Any failure is a *ConnectError.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = ProbeTimeout
	}
	addr := Address(opts.Host, opts.Port)

	c := &Client{
		addr:         addr,
		probeTimeout: opts.ProbeTimeout,
		readBuf:      make([]byte, RecvBufferSize),
		outbound:     NewQueue[string](),
		inbound:      NewQueue[Response](),
		echo:         NewQueue[string](),
		state:        StateConnecting,
	}

	logger.Debug("connecting", "addr", addr)
	sock, greeting, rest, err := dialSocket(ctx, addr, opts.Timeout)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(greeting, GreetingPrefix) {
		sock.close()
		return nil, newConnectError(addr, "handshake failed", errors.Join(ErrBadGreeting, errors.New(greeting)))
	}

	c.sock = sock
	c.greeting = greeting
	c.mux.register(sock, Readable, c.onReady)
	c.pushResponses(c.framer.feed(rest))
	c.setState(StateOpen)
	logger.Info("connected", "addr", addr, "greeting", greeting)

	if opts.Password != "" {
		c.Send("password " + Quote(opts.Password))
	}
	return c, nil
}

// Addr returns the host:port the client is connected to.
func (c *Client) Addr() string {
	return c.addr
}

// Greeting returns the greeting line received on connect.
func (c *Client) Greeting() string {
	return c.greeting
}

// ServerVersion returns the protocol version announced in the greeting.
func (c *Client) ServerVersion() string {
	return strings.TrimSpace(strings.TrimPrefix(c.greeting, GreetingPrefix))
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.stateMu.Lock()
	prev := c.state
	c.state = s
	c.stateMu.Unlock()
	if prev != s {
		logger.Debug("connection state", "addr", c.addr, "from", prev.String(), "to", s.String())
	}
}

// Send queues text for transmission and returns immediately. A newline is
// appended on the wire. Text containing newlines becomes several protocol
// lines.
func (c *Client) Send(text string) {
	c.outbound.Push(text)
}

// LocalEcho queues display-only text. It never touches the network.
func (c *Client) LocalEcho(text string) {
	c.echo.Push(text)
}

// PopMessage pops one reply. It returns ErrEmpty when nothing is queued,
// and a nil response with a nil error when the reply was a bare OK that
// needs no display.
func (c *Client) PopMessage() (*Response, error) {
	resp, err := c.inbound.Pop()
	if err != nil {
		return nil, err
	}
	if resp.IsBareOK() {
		return nil, nil
	}
	return &resp, nil
}

// PopEcho pops one echo entry, or returns ErrEmpty.
func (c *Client) PopEcho() (string, error) {
	return c.echo.Pop()
}

// PeekMessageDepth returns the number of queued replies.
func (c *Client) PeekMessageDepth() int {
	return c.inbound.Len()
}

// PeekEchoDepth returns the number of queued echo entries.
func (c *Client) PeekEchoDepth() int {
	return c.echo.Len()
}

// PeekOutboundDepth returns the number of commands not yet fully written.
func (c *Client) PeekOutboundDepth() int {
	return c.outbound.Len()
}

// PendingReplies returns the number of written commands still awaiting a reply.
func (c *Client) PendingReplies() int {
	c.trackMu.Lock()
	defer c.trackMu.Unlock()
	return c.track.pending
}

// IsDead reports whether the connection has been found broken. Once true
// it stays true for the life of the client.
func (c *Client) IsDead() bool {
	return c.dead.Load()
}

// Poll runs the multiplexer once, waiting up to timeout for the socket.
// Readable data is framed into replies; when writable, the outbound queue
// is drained. Transport failures mark the client dead instead of being
// returned. ErrClosed is returned when the connection is no longer open.
func (c *Client) Poll(timeout time.Duration) error {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	if c.sock == nil || c.State() != StateOpen {
		return ErrClosed
	}

	interest := Readable
	if c.headOffset > 0 || c.outbound.Len() > 0 {
		interest |= Writable
	}
	c.mux.modify(interest)

	if _, err := c.mux.poll(timeout); err != nil {
		c.fail(err)
	}
	return nil
}

// onReady is the multiplexer callback. It runs with ioMu held.
func (c *Client) onReady(ready Interest) {
	if ready&Readable != 0 {
		n, err := c.sock.readNonBlocking(c.readBuf)
		if n > 0 {
			c.pushResponses(c.framer.feed(c.readBuf[:n]))
		}
		if err != nil {
			c.fail(err)
			return
		}
	}
	if ready&Writable != 0 {
		if err := c.flushOutbound(); err != nil {
			c.fail(err)
		}
	}
}

// flushOutbound writes queued commands until the queue is empty or the
// socket would block. A command leaves the queue only once every byte of
// it has been written; a partial write is resumed from headOffset.
func (c *Client) flushOutbound() error {
	for {
		cmd, err := c.outbound.Peek()
		if errors.Is(err, ErrEmpty) {
			return nil
		}

		line := cmd + LineTerminator
		n, err := c.sock.writeNonBlocking([]byte(line[c.headOffset:]))
		if err != nil {
			return err
		}
		c.headOffset += n
		if c.headOffset < len(line) {
			return nil
		}

		c.headOffset = 0
		if _, err := c.outbound.Pop(); err != nil {
			return nil
		}
		c.trackMu.Lock()
		c.track.sent(cmd)
		c.trackMu.Unlock()
		logger.Debug("sent", "addr", c.addr, "command", commandName(cmd))
	}
}

func (c *Client) pushResponses(responses []Response) {
	if len(responses) == 0 {
		return
	}
	c.trackMu.Lock()
	for range responses {
		c.track.received()
	}
	c.trackMu.Unlock()
	for _, resp := range responses {
		c.inbound.Push(resp)
	}
}

// fail records a transport failure. It runs with ioMu held.
func (c *Client) fail(err error) {
	if c.sock == nil {
		return
	}
	if errors.Is(err, io.EOF) {
		logger.Info("connection closed by server", "addr", c.addr)
	} else {
		logger.Warning("transport error", "addr", c.addr, "error", err)
	}

	if resp, ok := c.framer.flush(); ok {
		c.inbound.Push(resp)
	}
	c.mux.unregister()
	_ = c.sock.close()
	c.sock = nil
	c.markDead()
}

func (c *Client) markDead() {
	c.dead.Store(true)
	c.stateMu.Lock()
	if c.state == StateOpen || c.state == StateConnecting {
		c.state = StateRemoteClosed
	}
	c.stateMu.Unlock()
}

// PingUnchecked sends a keep-alive probe. It never returns an error: a
// connection that is no longer open, or a previous probe left unanswered
// past the probe timeout, marks the client dead. The probe is skipped
// while replies are outstanding or the connection is in idle or
// command-list mode, where an extra command would change the session.
func (c *Client) PingUnchecked() {
	if c.IsDead() {
		return
	}
	if c.State() != StateOpen {
		logger.Debug("keep-alive on closed connection", "addr", c.addr)
		c.markDead()
		return
	}

	now := time.Now()
	c.trackMu.Lock()
	expired := c.track.probeExpired(now, c.probeTimeout)
	quiet := c.track.quiet()
	if quiet && c.outbound.Len() == 0 {
		c.track.probeAt = now
	}
	c.trackMu.Unlock()

	if expired {
		logger.Warning("keep-alive failed", "addr", c.addr, "error", ErrProbeTimeout)
		c.markDead()
		return
	}
	if quiet && c.outbound.Len() == 0 {
		c.Send(PingCommand)
	}
}

// RunScript reads the file at path and sends its contents as one payload.
// Blank lines are dropped. A read failure is returned as *ScriptError.
func (c *Client) RunScript(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ScriptError{Path: path, Cause: err}
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r \t")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil
	}
	logger.Info("running script", "path", path, "lines", len(lines))
	c.Send(strings.Join(lines, "\n"))
	return nil
}

// drainOutbound empties the outbound queue into one buffer, resuming the
// head command at headOffset, and ends it with the close command unless
// the last queued command already is one. It runs with ioMu held.
func (c *Client) drainOutbound() []byte {
	var b strings.Builder
	last := ""
	for first := true; ; first = false {
		cmd, err := c.outbound.Pop()
		if err != nil {
			break
		}
		line := cmd + LineTerminator
		if first {
			line = line[c.headOffset:]
		}
		b.WriteString(line)
		last = cmd
	}
	c.headOffset = 0
	if strings.TrimSpace(last) != CloseCommand {
		b.WriteString(CloseCommand + LineTerminator)
	}
	return []byte(b.String())
}

// Disconnect writes every command still queued, then a best-effort close
// command, then shuts the socket down.
// Transport errors are swallowed. Calling it more than once is harmless.
func (c *Client) Disconnect() {
	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	if c.sock == nil {
		c.setState(StateClosed)
		return
	}

	if c.State() == StateOpen {
		if err := c.sock.writeBlocking(c.drainOutbound(), CloseTimeout); err != nil {
			logger.Debug("close command not delivered", "addr", c.addr, "error", err)
		}
	}

	c.mux.unregister()
	if err := c.sock.close(); err != nil {
		logger.Debug("socket close", "addr", c.addr, "error", err)
	}
	c.sock = nil
	c.headOffset = 0
	c.setState(StateClosed)
	logger.Info("disconnected", "addr", c.addr)
}
