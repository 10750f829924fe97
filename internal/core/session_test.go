package core

import "testing"

func TestSessionLifecycle(t *testing.T) {
	h := NewHub()
	s := h.open("test")
	login := s.Room()

	if s.State() != StateLoggingIn {
		t.Fatalf("new session state %v", s.State())
	}
	if memberships(s, login, h.server.MainRoom()) != 1 {
		t.Fatal("new session must belong to exactly one room")
	}

	h.deliver(s, "login alice")
	if s.State() != StateChatting {
		t.Fatalf("after login state %v", s.State())
	}
	if memberships(s, login, h.server.MainRoom()) != 1 || s.Room() != Room(h.server.MainRoom()) {
		t.Fatal("logged in session must belong to the chat room only")
	}

	h.deliver(s, "logout")
	if s.State() != StateLoggingOut {
		t.Fatalf("after logout state %v", s.State())
	}
	logout := s.Room()
	if memberships(s, login, h.server.MainRoom(), logout) != 1 {
		t.Fatal("terminal session must belong to its logout room only")
	}
}

func TestLogoutBeforeLogin(t *testing.T) {
	h := NewHub()
	s := h.open("test")
	drain(s)

	h.deliver(s, "logout")

	if s.State() != StateLoggingOut {
		t.Fatalf("expected logging out, got %v", s.State())
	}
	mustClose(t, s.Outbound())
	if h.server.Len() != 0 {
		t.Fatalf("registry should be empty, has %d", h.server.Len())
	}
}

func TestEnterIsNoOpOnceTerminal(t *testing.T) {
	h := NewHub()
	s := loginNow(t, h, "alice")
	h.terminate(s)
	terminal := s.Room()

	s.enter(h.server.MainRoom())
	s.enter(newLoginRoom(h.server))

	if s.Room() != terminal {
		t.Fatal("terminal session changed rooms")
	}
	if h.server.Registered("alice") {
		t.Fatal("terminal session re-registered")
	}
}

func TestCloseTwiceDeregistersOnce(t *testing.T) {
	var left, closed int
	h := NewHub(WithListener(func(ev Event) {
		switch ev.Kind {
		case EventUserLeft:
			left++
		case EventSessionClosed:
			closed++
		}
	}))
	alice := loginNow(t, h, "alice")

	h.deliver(alice, "logout")
	h.disconnect(alice)
	h.disconnect(alice)
	h.deliver(alice, "say ghost")

	if left != 1 || closed != 1 {
		t.Fatalf("expected one deregistration and one close, got left=%d closed=%d", left, closed)
	}
	if h.server.Registered("alice") {
		t.Fatal("alice still registered")
	}
}

func TestReusedNameSurvivesStaleClose(t *testing.T) {
	h := NewHub()
	first := loginNow(t, h, "alice")
	h.terminate(first)
	second := loginNow(t, h, "alice")

	newLogoutRoom(h.server).Add(first)

	if sess, ok := h.server.Lookup("alice"); !ok || sess != second {
		t.Fatal("closing the stale session released the new owner's name")
	}
}

func TestSlowConsumerIsClosed(t *testing.T) {
	h := NewHub(WithQueueSize(4))
	alice := loginNow(t, h, "alice")
	bob := loginNow(t, h, "bob")
	drain(alice)

	// bob never reads; alice keeps talking.
	for i := 0; i < 8; i++ {
		h.deliver(alice, "say spam")
		drain(alice)
	}

	if bob.State() != StateLoggingOut {
		t.Fatalf("slow consumer should be closed, state %v", bob.State())
	}
	if h.server.Registered("bob") {
		t.Fatal("slow consumer still registered")
	}
	if alice.State() != StateChatting {
		t.Fatalf("fast consumer affected, state %v", alice.State())
	}
}
