package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"

	"github.com/vovakirdan/linechat-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "name to log in with")
	text := flag.String("text", "hello from smoke test", "message text to say")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	send := func(line string) error {
		if err := conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
		return nil
	}
	expect := func(want string) error {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read (want %q): %w", want, err)
		}
		fmt.Printf("Received: %s\n", data)
		if string(data) != want {
			return fmt.Errorf("got %q, want %q", data, want)
		}
		return nil
	}

	steps := []struct {
		send   string
		expect []string
	}{
		{expect: []string{proto.ConnectSuccess}},
		{send: proto.VerbLogin + " " + *user, expect: []string{proto.LoginSuccess, proto.Entered(*user)}},
		{send: proto.VerbSay + " " + *text, expect: []string{proto.Said(*user, *text)}},
		{send: proto.VerbLook, expect: []string{proto.OnlineUsersHeader}},
	}

	for _, step := range steps {
		if step.send != "" {
			if err := send(step.send); err != nil {
				return err
			}
		}
		for _, want := range step.expect {
			if err := expect(want); err != nil {
				return err
			}
		}
	}

	// Drain the look listing until the server closes after logout.
	if err := send(proto.VerbLogout); err != nil {
		return err
	}
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				fmt.Println("Smoke test passed")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received: %s\n", data)
	}
}
