package core

import (
	"strings"
	"testing"
	"time"
)

// drain returns every line currently queued for s without waiting. Multi-line
// items are split.
func drain(s *Session) []string {
	var lines []string
	for {
		select {
		case line, ok := <-s.out:
			if !ok {
				return lines
			}
			lines = append(lines, strings.Split(line, "\n")...)
		default:
			return lines
		}
	}
}

// mustLine waits for want on ch, skipping anything else.
func mustLine(t *testing.T, ch <-chan string, want string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case line, ok := <-ch:
			if !ok {
				t.Fatalf("outbound closed while waiting for %q", want)
			}
			if line == want {
				return
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected line %q not received", want)
}

// mustItem waits for an item made of exactly want, skipping anything else.
func mustItem(t *testing.T, ch <-chan string, want ...string) {
	t.Helper()

	mustLine(t, ch, strings.Join(want, "\n"))
}

// mustClose waits until ch is closed, discarding queued lines.
func mustClose(t *testing.T, ch <-chan string) {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("outbound was not closed")
		}
	}
}

// loginNow opens a session on a hub that is not running and logs it in.
func loginNow(t *testing.T, h *Hub, name string) *Session {
	t.Helper()

	s := h.open("test:" + name)
	h.deliver(s, "login "+name)
	if s.State() != StateChatting {
		t.Fatalf("login %q: state %v, queued %q", name, s.State(), drain(s))
	}
	drain(s)
	return s
}

// memberships counts how many rooms list s among their members.
func memberships(s *Session, rooms ...Room) int {
	n := 0
	for _, r := range rooms {
		for _, m := range r.Members() {
			if m == s {
				n++
			}
		}
	}
	return n
}
