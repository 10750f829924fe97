package tcp

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
)

type client struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func startTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *core.Hub) {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	if mutate != nil {
		mutate(&cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	hub := core.NewHub(core.WithQueueSize(cfg.SendQueueSize))
	go hub.Run(ctx)

	srv := NewServer(hub, cfg, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = srv.Serve(ctx) }()

	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	})
	return srv, hub
}

func dial(t *testing.T, srv *Server) *client {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	c := &client{t: t, conn: conn, r: bufio.NewReader(conn)}
	c.expect("Connect Success")
	return c
}

func (c *client) send(line string) {
	c.t.Helper()
	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		c.t.Fatalf("write %q: %v", line, err)
	}
}

func (c *client) expect(want string) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := c.r.ReadString('\n')
	if err != nil {
		c.t.Fatalf("read (want %q): %v", want, err)
	}
	if got = strings.TrimSuffix(got, "\n"); got != want {
		c.t.Fatalf("got %q, want %q", got, want)
	}
}

func (c *client) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	if err == nil {
		c.t.Fatalf("expected close, got line %q", line)
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		c.t.Fatalf("connection still open")
	}
}

func (c *client) login(name string) {
	c.t.Helper()
	c.send("login " + name)
	c.expect("Login Success")
	c.expect(name + " has entered the room.")
}

func TestChatOverTCP(t *testing.T) {
	srv, _ := startTestServer(t, nil)

	alice := dial(t, srv)
	alice.login("alice")

	bob := dial(t, srv)
	bob.login("bob")
	alice.expect("bob has entered the room.")

	alice.send("say hello there")
	alice.expect("alice: hello there")
	bob.expect("alice: hello there")

	bob.send("look")
	bob.expect("Online Users:")
	bob.expect("alice")
	bob.expect("bob")

	bob.send("dance")
	bob.expect("Unknown command dance")

	alice.send("logout")
	alice.expectClosed()
	bob.expect("alice has left the room.")
}

func TestDuplicateNameAndCRLF(t *testing.T) {
	srv, _ := startTestServer(t, nil)

	alice := dial(t, srv)
	alice.login("alice")

	other := dial(t, srv)
	other.send("login alice\r")
	other.expect("UserName Exist")
	other.send("login \r")
	other.expect("UserName Empty")
	other.send("say too early")
	other.expect("Unknown command say")
}

func TestAbruptCloseFreesName(t *testing.T) {
	srv, hub := startTestServer(t, nil)

	first := dial(t, srv)
	first.login("alice")

	watcher := dial(t, srv)
	watcher.login("bob")
	first.expect("bob has entered the room.")

	_ = first.conn.Close()
	watcher.expect("alice has left the room.")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	names, err := hub.OnlineUsers(ctx)
	if err != nil {
		t.Fatalf("online users: %v", err)
	}
	if len(names) != 1 || names[0] != "bob" {
		t.Fatalf("unexpected online users: %v", names)
	}

	again := dial(t, srv)
	again.login("alice")
}

func TestPartialLineIsNotDispatched(t *testing.T) {
	srv, _ := startTestServer(t, nil)

	watcher := dial(t, srv)
	watcher.login("bob")

	c := dial(t, srv)
	c.send("login alice")
	c.expect("Login Success")
	c.expect("alice has entered the room.")
	watcher.expect("alice has entered the room.")

	// The fragment is split across writes and completed by the terminator.
	_, _ = io.WriteString(c.conn, "say hel")
	time.Sleep(20 * time.Millisecond)
	c.send("lo")
	watcher.expect("alice: hello")

	// A fragment without terminator before EOF is discarded.
	_, _ = io.WriteString(c.conn, "say lost")
	_ = c.conn.(*net.TCPConn).CloseWrite()
	watcher.expect("alice has left the room.")
}

func TestOversizeLineClosesConnection(t *testing.T) {
	srv, _ := startTestServer(t, func(cfg *config.Config) {
		cfg.MaxLineBytes = 64
	})

	c := dial(t, srv)
	c.send("say " + strings.Repeat("x", 200))
	c.expectClosed()
}

func TestIdleTimeoutClosesConnection(t *testing.T) {
	srv, _ := startTestServer(t, func(cfg *config.Config) {
		cfg.IdleTimeout = 100 * time.Millisecond
	})

	c := dial(t, srv)
	c.expectClosed()
}

func TestShutdownClosesClients(t *testing.T) {
	srv, _ := startTestServer(t, nil)

	c := dial(t, srv)
	c.login("alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	c.expectClosed()

	if _, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond); err == nil {
		t.Fatalf("expected dial to fail after shutdown")
	}
}

func TestScanTerminated(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		atEOF   bool
		advance int
		token   string
		hasTok  bool
	}{
		{name: "full line", data: "look\nsay", advance: 5, token: "look", hasTok: true},
		{name: "empty line", data: "\n", advance: 1, token: "", hasTok: true},
		{name: "keeps carriage return", data: "look\r\n", advance: 6, token: "look\r", hasTok: true},
		{name: "need more", data: "lo"},
		{name: "fragment at eof", data: "lo", atEOF: true, advance: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advance, token, err := scanTerminated([]byte(tt.data), tt.atEOF)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if advance != tt.advance {
				t.Fatalf("advance = %d, want %d", advance, tt.advance)
			}
			if (token != nil) != tt.hasTok || string(token) != tt.token {
				t.Fatalf("token = %q (nil=%v), want %q", token, token == nil, tt.token)
			}
		})
	}
}

func TestLookLargerThanQueueOverTCP(t *testing.T) {
	srv, _ := startTestServer(t, func(cfg *config.Config) {
		cfg.SendQueueSize = 4
	})

	names := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	var clients []*client
	for _, name := range names {
		c := dial(t, srv)
		c.login(name)
		for _, other := range clients {
			other.expect(name + " has entered the room.")
		}
		clients = append(clients, c)
	}

	asker := clients[0]
	asker.send("look")
	asker.expect("Online Users:")
	for _, name := range names {
		asker.expect(name)
	}

	// The asker is still connected and chatting.
	asker.send("say still here")
	for _, c := range clients {
		c.expect("u0: still here")
	}
}
