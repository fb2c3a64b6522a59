package mpdprotocol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// socket owns the TCP connection. After the greeting it is driven only
// through non-blocking reads and writes on the raw descriptor.
type socket struct {
	conn *net.TCPConn
	raw  syscall.RawConn
	addr string
}

// dialSocket connects to addr and performs the blocking greeting read.
// It returns the greeting line and any bytes that followed it in the
// same read.
func dialSocket(ctx context.Context, addr string, timeout time.Duration) (*socket, string, []byte, error) {
	if timeout <= 0 {
		timeout = ConnectionTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, "", nil, newConnectError(addr, "failed to connect", err)
	}

	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return nil, "", nil, newConnectError(addr, "not a TCP connection", nil)
	}

	raw, err := tcp.SyscallConn()
	if err != nil {
		tcp.Close()
		return nil, "", nil, newConnectError(addr, "raw connection unavailable", err)
	}

	if err := tcp.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		tcp.Close()
		return nil, "", nil, newConnectError(addr, "failed to set deadline", err)
	}
	greeting, rest, err := readGreeting(tcp)
	if err != nil {
		tcp.Close()
		return nil, "", nil, newConnectError(addr, "greeting read failed", err)
	}
	if err := tcp.SetReadDeadline(time.Time{}); err != nil {
		tcp.Close()
		return nil, "", nil, newConnectError(addr, "failed to clear deadline", err)
	}

	return &socket{conn: tcp, raw: raw, addr: addr}, greeting, rest, nil
}

// readGreeting reads until the first newline.
func readGreeting(r io.Reader) (string, []byte, error) {
	buf := make([]byte, 0, RecvBufferSize)
	chunk := make([]byte, RecvBufferSize)

	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if i := bytes.IndexByte(buf, '\n'); i >= 0 {
			line := string(bytes.TrimSuffix(buf[:i], []byte("\r")))
			return line, buf[i+1:], nil
		}
		if len(buf) > MaxGreetingLength {
			return "", nil, fmt.Errorf("greeting exceeds %d bytes", MaxGreetingLength)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", nil, io.ErrUnexpectedEOF
			}
			return "", nil, err
		}
	}
}

// readNonBlocking reads whatever is available. It returns 0 and a nil
// error when the read would block, and io.EOF when the peer has closed.
func (s *socket) readNonBlocking(p []byte) (int, error) {
	var n int
	var opErr error
	err := s.raw.Read(func(fd uintptr) bool {
		n, opErr = unix.Read(int(fd), p)
		return true
	})
	if err != nil {
		return 0, err
	}
	if opErr != nil {
		if wouldBlock(opErr) {
			return 0, nil
		}
		return 0, opErr
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// writeNonBlocking writes as much of p as the socket accepts. A partial
// count is normal; 0 with a nil error means the write would block.
func (s *socket) writeNonBlocking(p []byte) (int, error) {
	var n int
	var opErr error
	err := s.raw.Write(func(fd uintptr) bool {
		n, opErr = unix.Write(int(fd), p)
		return true
	})
	if err != nil {
		return 0, err
	}
	if opErr != nil {
		if wouldBlock(opErr) {
			return 0, nil
		}
		return 0, opErr
	}
	return n, nil
}

// writeBlocking writes all of p within timeout. Disconnect uses it for the
// remaining queue and the close command, after multiplexing has stopped.
func (s *socket) writeBlocking(p []byte, timeout time.Duration) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err := s.conn.Write(p)
	return err
}

// pollReady waits up to timeout for any of the interest events.
// A negative timeout waits indefinitely.
func (s *socket) pollReady(interest Interest, timeout time.Duration) (Interest, error) {
	var events int16
	if interest&Readable != 0 {
		events |= unix.POLLIN
	}
	if interest&Writable != 0 {
		events |= unix.POLLOUT
	}

	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}

	var revents int16
	var pollErr error
	err := s.raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
		for {
			_, pollErr = unix.Poll(fds, ms)
			if !errors.Is(pollErr, unix.EINTR) {
				break
			}
		}
		revents = fds[0].Revents
	})
	if err != nil {
		return 0, err
	}
	if pollErr != nil {
		return 0, pollErr
	}
	if revents&unix.POLLNVAL != 0 {
		return 0, ErrClosed
	}

	var ready Interest
	// Hang-ups and errors surface through the next read.
	if revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
		ready |= Readable
	}
	if revents&unix.POLLOUT != 0 {
		ready |= Writable
	}
	return ready & (interest | Readable), nil
}

// close shuts down the write side and releases the descriptor.
func (s *socket) close() error {
	_ = s.conn.CloseWrite()
	return s.conn.Close()
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}
