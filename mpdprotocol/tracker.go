package mpdprotocol

import (
	"strings"
	"time"
)

// replyTracker follows how many replies the server still owes us, and
// whether the session is in a mode where an unsolicited command would be
// misread (idle, or an open command list).
type replyTracker struct {
	pending int
	idle    bool
	inList  bool
	probeAt time.Time
}

// sent accounts for one fully written payload, which may hold several lines.
func (t *replyTracker) sent(payload string) {
	for _, line := range strings.Split(payload, "\n") {
		name := commandName(line)
		if name == "" {
			continue
		}
		if t.inList {
			if name == "command_list_end" {
				t.inList = false
				t.pending++
			}
			continue
		}
		switch name {
		case "command_list_begin", "command_list_ok_begin":
			t.inList = true
		case "idle":
			t.idle = true
			t.pending++
		case "noidle":
			// Answered by the pending idle reply.
		case CloseCommand:
		default:
			t.pending++
		}
	}
}

// received accounts for one complete reply.
func (t *replyTracker) received() {
	if t.pending > 0 {
		t.pending--
	}
	if t.pending == 0 {
		t.idle = false
	}
	t.probeAt = time.Time{}
}

func (t *replyTracker) quiet() bool {
	return t.pending == 0 && !t.idle && !t.inList
}

func (t *replyTracker) probeExpired(now time.Time, timeout time.Duration) bool {
	return !t.probeAt.IsZero() && now.Sub(t.probeAt) > timeout
}
