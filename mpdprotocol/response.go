package mpdprotocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Response is one complete server reply: every line up to and including
// the OK or ACK terminator. The text is opaque to this package.
type Response struct {
	// Text holds the reply lines joined by newlines, with a trailing newline.
	// A binary payload is replaced by a one-line placeholder.
	Text string

	// Binary holds the raw payload of a "binary: <n>" reply, nil otherwise.
	Binary []byte
}

// IsBareOK reports whether the reply is nothing but the success token.
func (r Response) IsBareOK() bool {
	return strings.TrimSpace(r.Text) == SuccessToken
}

// IsError reports whether the reply ended with an ACK line.
func (r Response) IsError() bool {
	return strings.HasPrefix(r.lastLine(), ErrorPrefix)
}

// Lines returns the reply split into lines, without the trailing newline.
func (r Response) Lines() []string {
	text := strings.TrimSuffix(r.Text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func (r Response) lastLine() string {
	lines := r.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// framer accumulates bytes read from the socket and cuts them into complete
// responses. A read may carry a fragment of one reply or several replies;
// only terminated replies are emitted.
type framer struct {
	buf   []byte
	lines []string

	binary      []byte
	binaryLeft  int
	skipNewline bool
}

// isTerminator reports whether a line ends a response.
func isTerminator(line string) bool {
	return line == SuccessToken || strings.HasPrefix(line, ErrorPrefix)
}

// binaryLength parses a "binary: <n>" line.
func binaryLength(line string) (int, bool) {
	if !strings.HasPrefix(line, BinaryPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[len(BinaryPrefix):]))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// feed appends p and returns every response completed by it.
func (f *framer) feed(p []byte) []Response {
	f.buf = append(f.buf, p...)
	var out []Response
	rest := f.buf

	for {
		if f.binaryLeft > 0 {
			if len(rest) == 0 {
				break
			}
			n := min(len(rest), f.binaryLeft)
			f.binary = append(f.binary, rest[:n]...)
			rest = rest[n:]
			f.binaryLeft -= n
			if f.binaryLeft == 0 {
				f.skipNewline = true
			}
			continue
		}

		if f.skipNewline {
			if len(rest) == 0 {
				break
			}
			if rest[0] == '\n' {
				rest = rest[1:]
			}
			f.skipNewline = false
			f.lines = append(f.lines, fmt.Sprintf("<%s of binary data>", humanize.Bytes(uint64(len(f.binary)))))
			continue
		}

		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimSuffix(string(rest[:i]), "\r")
		rest = rest[i+1:]
		f.lines = append(f.lines, line)

		if n, ok := binaryLength(line); ok {
			f.binary = make([]byte, 0, n)
			f.binaryLeft = n
			f.skipNewline = n == 0
			continue
		}

		if isTerminator(line) {
			out = append(out, f.emit())
		}
	}

	f.buf = append(f.buf[:0], rest...)
	return out
}

// flush returns whatever partial reply is buffered, if any. It is used when
// the connection ends mid-reply so the received text is not lost.
func (f *framer) flush() (Response, bool) {
	if len(f.buf) > 0 {
		f.lines = append(f.lines, strings.TrimSuffix(string(f.buf), "\r"))
		f.buf = f.buf[:0]
	}
	if len(f.lines) == 0 {
		return Response{}, false
	}
	return f.emit(), true
}

// pending returns the number of buffered bytes and lines not yet emitted.
func (f *framer) pending() int {
	return len(f.buf) + len(f.lines)
}

func (f *framer) emit() Response {
	resp := Response{
		Text:   strings.Join(f.lines, "\n") + "\n",
		Binary: f.binary,
	}
	f.lines = nil
	f.binary = nil
	f.binaryLeft = 0
	f.skipNewline = false
	return resp
}
