// Package mpdprotocol implements the transport side of the MPD text
// protocol: a non-blocking socket, a single-socket readiness multiplexer,
// the outbound/inbound/echo queues, and a poll-driven Client.
//
// Protocol Format:
//
//	Greeting (Server -> Client):  OK MPD <version>\n
//	Request  (Client -> Server):  <command> [arguments...]\n
//	Success terminator:           OK\n
//	Error terminator:             ACK [<error>@<index>] {<command>} <message>\n
//	Binary payload:               binary: <n>\n<n bytes>\n
//
// Example Session:
//
//	SRV: OK MPD 0.23.5
//	CLI: status
//	SRV: volume: 50
//	SRV: state: stop
//	SRV: OK
//	CLI: bogus
//	SRV: ACK [5@0] {} unknown command "bogus"
package mpdprotocol

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Protocol constants.
const (
	// GreetingPrefix starts the single line the server sends on connect.
	GreetingPrefix = "OK MPD "

	// SuccessToken is the bare line terminating a successful response.
	SuccessToken = "OK"

	// ErrorPrefix starts the line terminating a rejected request.
	ErrorPrefix = "ACK "

	// ListOKToken separates sub-responses inside command_list_ok_begin.
	// It is not a terminator.
	ListOKToken = "list_OK"

	// BinaryPrefix announces a raw payload of the given byte length.
	BinaryPrefix = "binary: "

	// LineTerminator is appended by the client to every command.
	LineTerminator = "\n"

	// PingCommand is the keep-alive probe.
	PingCommand = "ping"

	// CloseCommand asks the server to end the connection. It has no reply.
	CloseCommand = "close"

	// DefaultHost is used when no host is configured.
	DefaultHost = "localhost"

	// DefaultPort is the standard MPD port.
	DefaultPort = 6600

	// RecvBufferSize is the size of a single non-blocking read.
	RecvBufferSize = 4096

	// MaxGreetingLength bounds the handshake line.
	MaxGreetingLength = 1024

	// ConnectionTimeout bounds dialing and the greeting read.
	ConnectionTimeout = 5 * time.Second

	// CloseTimeout bounds the best-effort termination write in Disconnect.
	CloseTimeout = 500 * time.Millisecond

	// ProbeTimeout is how long a keep-alive probe may stay unanswered
	// before the connection is considered dead.
	ProbeTimeout = 10 * time.Second
)

// Address joins host and port the way net.Dial expects.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// commandName returns the first word of a command line.
func commandName(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i]
	}
	return line
}

// Quote wraps an argument in double quotes, escaping backslashes and
// quotes, so it survives MPD's argument tokenizer.
func Quote(arg string) string {
	var b strings.Builder
	b.Grow(len(arg) + 2)
	b.WriteByte('"')
	for _, r := range arg {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}
