package main

import (
	"bufio"
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Version Tests
// =============================================================================

func TestFullTitle(t *testing.T) {
	got := fullTitle()
	expected := "mpdshell v" + version
	if got != expected {
		t.Errorf("fullTitle() = %q, want %q", got, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, fullTitle()) {
		t.Errorf("version output missing title:\n%s", out)
	}
	if !strings.Contains(out, "protocol commands: ") {
		t.Errorf("version output missing command count:\n%s", out)
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := executeCLI(t, "", "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if strings.TrimSpace(out) != fullTitle() {
		t.Errorf("--version = %q, want %q", out, fullTitle())
	}
}

// =============================================================================
// Config Command Tests
// =============================================================================

func TestConfigCommandTOML(t *testing.T) {
	out, err := executeCLI(t, "", "config", "music.lan", "-p", "6601")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	for _, want := range []string{"music.lan", "port = 6601"} {
		if !strings.Contains(out, want) {
			t.Errorf("config output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommandYAMLMasksPassword(t *testing.T) {
	out, err := executeCLI(t, "", "config", "--format", "yaml", "--password", "hunter2")
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if strings.Contains(out, "hunter2") {
		t.Errorf("password leaked:\n%s", out)
	}
	if !strings.Contains(out, "password: '********'") && !strings.Contains(out, `password: "********"`) {
		t.Errorf("masked password missing:\n%s", out)
	}
	if !strings.Contains(out, "host: localhost") {
		t.Errorf("default host missing:\n%s", out)
	}
}

func TestConfigCommandRejectsUnknownFormat(t *testing.T) {
	if _, err := executeCLI(t, "", "config", "--format", "ini"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTooManyArguments(t *testing.T) {
	if _, err := executeCLI(t, "", "a", "b"); err == nil {
		t.Error("expected error for two host arguments")
	}
}

// =============================================================================
// End-to-End Tests
// =============================================================================

func TestRunREPLAgainstServer(t *testing.T) {
	ms := startMockServer(t)
	port := strconv.Itoa(ms.port())

	out, err := executeCLI(t, "status\n",
		"127.0.0.1", "-p", port,
		"--ui", "repl",
		"--poll-interval", "5ms",
		"--keepalive", "1h",
		"--script-dir", t.TempDir(),
	)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	checks := []string{
		"Connecting to 127.0.0.1@" + port + "...",
		"Connected to: 127.0.0.1@" + port + " | OK MPD 0.24.0",
		"    status",
		"    state: play",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	ms.waitFor(t, "close")
}

func TestCloseFlushesEarlierCommands(t *testing.T) {
	ms := startMockServer(t)
	port := strconv.Itoa(ms.port())

	out, err := executeCLI(t, "status\nplay\nclose\n",
		"127.0.0.1", "-p", port,
		"--ui", "repl",
		"--poll-interval", "20ms",
		"--keepalive", "1h",
		"--script-dir", t.TempDir(),
	)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}

	ms.waitFor(t, "close")
	got := ms.received()
	want := []string{"status", "play", "close"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("server received %q, want %q", got, want)
	}
	if !strings.Contains(out, "    state: play") {
		t.Errorf("reply to status not shown:\n%s", out)
	}
	if strings.Contains(out, "Connection reset by peer") {
		t.Errorf("close reported as a reset:\n%s", out)
	}
}

func TestRunReportsConnectFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
	l.Close()

	_, err = executeCLI(t, "", "127.0.0.1", "-p", port, "--ui", "repl", "--timeout", "1s")
	if err == nil {
		t.Fatal("expected connect error")
	}
	if !strings.Contains(err.Error(), "127.0.0.1:"+port) {
		t.Errorf("error %q does not name the address", err)
	}
}

// =============================================================================
// Helpers
// =============================================================================

// executeCLI runs a fresh command tree with the given stdin and returns
// everything it printed. The user config directory and MPD_* variables are
// isolated from the host.
func executeCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("MPD_HOST", "")
	t.Setenv("MPD_PORT", "")

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

// mockServer answers a handful of commands the way MPD would.
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
	return ms.listener.Addr().(*net.TCPAddr).Port
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
		case "ping":
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

func (ms *mockServer) stop() {
	ms.listener.Close()
	ms.mu.Lock()
	for _, c := range ms.conns {
		c.Close()
	}
	ms.conns = nil
	ms.mu.Unlock()
	ms.wg.Wait()
}
