package mpdprotocol

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"
)

const mockGreeting = "OK MPD 0.23.5"

// mockServer is a minimal MPD server on a loopback TCP port. Each command
// line is passed to handler, whose return value is written back verbatim.
// An empty return sends nothing. The close command ends the connection.
type mockServer struct {
	listener net.Listener
	greeting string
	handler  func(cmd string) string

	mu          sync.Mutex
	connections []net.Conn
	commands    []string

	wg sync.WaitGroup
}

// startMockServer starts a mock server that is stopped when the test ends.
// A nil handler uses defaultMockHandler.
func startMockServer(t *testing.T, handler func(cmd string) string) *mockServer {
	t.Helper()
	return startMockServerWithGreeting(t, mockGreeting+"\n", handler)
}

func startMockServerWithGreeting(t *testing.T, greeting string, handler func(cmd string) string) *mockServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	if handler == nil {
		handler = defaultMockHandler
	}

	ms := &mockServer{listener: listener, greeting: greeting, handler: handler}
	ms.wg.Add(1)
	go ms.acceptLoop()
	t.Cleanup(ms.stop)
	return ms
}

func (ms *mockServer) host() string {
	return "127.0.0.1"
}

func (ms *mockServer) port() int {
	_, port, _ := net.SplitHostPort(ms.listener.Addr().String())
	n, _ := strconv.Atoi(port)
	return n
}

func (ms *mockServer) addr() string {
	return ms.listener.Addr().String()
}

func (ms *mockServer) acceptLoop() {
	defer ms.wg.Done()
	for {
		conn, err := ms.listener.Accept()
		if err != nil {
			return
		}
		ms.mu.Lock()
		ms.connections = append(ms.connections, conn)
		ms.mu.Unlock()

		ms.wg.Add(1)
		go ms.handleConnection(conn)
	}
}

func (ms *mockServer) handleConnection(conn net.Conn) {
	defer ms.wg.Done()
	defer conn.Close()

	fmt.Fprint(conn, ms.greeting)

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		cmd := scanner.Text()
		ms.mu.Lock()
		ms.commands = append(ms.commands, cmd)
		ms.mu.Unlock()

		if cmd == CloseCommand {
			return
		}
		if resp := ms.handler(cmd); resp != "" {
			fmt.Fprint(conn, resp)
		}
	}
}

// received returns a copy of every command line seen so far.
func (ms *mockServer) received() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]string(nil), ms.commands...)
}

// waitForCommand waits until cmd has been received.
func (ms *mockServer) waitForCommand(t *testing.T, cmd string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, got := range ms.received() {
			if got == cmd {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("command %q not received; got %q", cmd, ms.received())
}

// dropConnections closes every client connection from the server side.
func (ms *mockServer) dropConnections() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, conn := range ms.connections {
		conn.Close()
	}
	ms.connections = nil
}

func (ms *mockServer) stop() {
	ms.listener.Close()
	ms.dropConnections()
	ms.wg.Wait()
}

// defaultMockHandler answers a few commands the way MPD does. idle never
// answers, and anything unknown gets an ACK.
func defaultMockHandler(cmd string) string {
	switch commandName(cmd) {
	case "ping", "play", "stop", "pause", "password":
		return "OK\n"
	case "status":
		return "volume: 50\nrepeat: 0\nstate: stop\nOK\n"
	case "currentsong":
		return "file: music/track.flac\nTitle: Track\nOK\n"
	case "idle":
		return ""
	case "noidle":
		return "OK\n"
	default:
		return fmt.Sprintf("ACK [5@0] {} unknown command %q\n", commandName(cmd))
	}
}
