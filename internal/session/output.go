package session

import (
	"strings"
	"time"
)

// Kind classifies a displayed block.
type Kind int

const (
	// KindEcho is local text: echoed input, help, listings, errors.
	KindEcho Kind = iota
	// KindReply is a server reply ending in OK.
	KindReply
	// KindError is a server reply ending in ACK.
	KindError
)

// TimestampLayout is used for block headers.
const TimestampLayout = "2006-01-02T15:04:05"

const indent = "    "

// Output is one block ready for display.
type Output struct {
	Kind Kind
	Text string
	Time time.Time
}

// Format renders the block as a blank line, a bracketed timestamp, and
// the text indented by four spaces.
func (o Output) Format() string {
	var b strings.Builder
	b.WriteString("\n[")
	b.WriteString(o.Time.Format(TimestampLayout))
	b.WriteString("]\n")
	b.WriteString(Indent(o.Text))
	return b.String()
}

// Indent prefixes every line of text with four spaces. The result ends
// with a newline unless text is empty.
func Indent(text string) string {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return ""
	}
	var b strings.Builder
	for line := range strings.SplitSeq(text, "\n") {
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
