package session

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockServer speaks just enough MPD for session tests.
type mockServer struct {
	listener net.Listener

	mu       sync.Mutex
	conns    []net.Conn
	commands []string

	wg sync.WaitGroup
}

func startMockServer(t *testing.T) *mockServer {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	ms := &mockServer{listener: l}
	ms.wg.Add(1)
	go ms.acceptLoop()
	t.Cleanup(ms.stop)
	return ms
}

func (ms *mockServer) port() int {
	_, p, _ := net.SplitHostPort(ms.listener.Addr().String())
	n, _ := strconv.Atoi(p)
	return n
}

func (ms *mockServer) acceptLoop() {
	defer ms.wg.Done()
	for {
		conn, err := ms.listener.Accept()
		if err != nil {
			return
		}
		ms.mu.Lock()
		ms.conns = append(ms.conns, conn)
		ms.mu.Unlock()
		ms.wg.Add(1)
		go ms.serve(conn)
	}
}

func (ms *mockServer) serve(conn net.Conn) {
	defer ms.wg.Done()
	defer conn.Close()
	fmt.Fprint(conn, "OK MPD 0.24.0\n")

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		cmd := sc.Text()
		ms.mu.Lock()
		ms.commands = append(ms.commands, cmd)
		ms.mu.Unlock()

		name, _, _ := strings.Cut(cmd, " ")
		switch name {
		case "close":
			return
		case "status":
			fmt.Fprint(conn, "volume: 80\nstate: play\nOK\n")
		case "play", "ping":
			fmt.Fprint(conn, "OK\n")
		default:
			fmt.Fprintf(conn, "ACK [5@0] {%s} unknown command\n", name)
		}
	}
}

func (ms *mockServer) received() []string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]string(nil), ms.commands...)
}

func (ms *mockServer) waitFor(t *testing.T, cmd string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, c := range ms.received() {
			if c == cmd {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server never received %q; got %q", cmd, ms.received())
}

func (ms *mockServer) dropConnections() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, c := range ms.conns {
		c.Close()
	}
	ms.conns = nil
}

func (ms *mockServer) stop() {
	ms.listener.Close()
	ms.dropConnections()
	ms.wg.Wait()
}
