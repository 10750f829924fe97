package app

import (
	"bufio"
	"context"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/store/sqlite"
)

func waitForAddr(t *testing.T, a *App) string {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if addr := a.chat.Addr(); addr != nil {
			return addr.String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("chat listener never bound")
	return ""
}

func TestAppRecordsPresenceAndShutsDown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "presence.db")

	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.HTTPAddr = ""
	cfg.DatabasePath = dbPath
	cfg.ShutdownTimeout = 2 * time.Second

	logger := zerolog.Nop()
	a, err := New(cfg, &logger)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	conn, err := net.DialTimeout("tcp", waitForAddr(t, a), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	r := bufio.NewReader(conn)
	var got []string
	read := func() {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		got = append(got, strings.TrimSuffix(line, "\n"))
	}

	read()
	if _, err := conn.Write([]byte("login alice\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	read()
	read()

	want := []string{"Connect Success", "Login Success", "alice has entered the room."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected lines (-want +got):\n%s", diff)
	}

	// Shutdown ends the live session, which logs the name out.
	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("app did not stop")
	}

	if _, err := r.ReadString('\n'); err == nil {
		t.Fatalf("expected the connection to be closed")
	}

	st, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()

	entries, err := st.ListPresence(context.Background(), "alice", 10)
	if err != nil {
		t.Fatalf("list presence: %v", err)
	}
	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, string(e.Kind))
	}
	if diff := cmp.Diff([]string{"login", "logout"}, kinds); diff != "" {
		t.Fatalf("unexpected presence (-want +got):\n%s", diff)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.SendQueueSize = 0

	logger := zerolog.Nop()
	if _, err := New(cfg, &logger); err == nil {
		t.Fatalf("expected validation error")
	}
}
