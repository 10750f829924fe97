package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
)

// conn is the line transport shared by the TCP and WebSocket clients.
type conn interface {
	ReadLine(ctx context.Context) (string, error)
	WriteLine(ctx context.Context, line string) error
	Close() error
}

func main() {
	if err := run(); err != nil {
		log.Printf("line_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:6666", "TCP address, or a ws:// URL for the WebSocket endpoint")
	user := flag.String("user", "", "log in with this name right after connecting")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	c, err := dial(ctx, *addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer c.Close()

	if *user != "" {
		if err := c.WriteLine(ctx, "login "+*user); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Commands: login <name>, say <text>, look, logout. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, c)
	}()

	writeLoop(ctx, c)
	return nil
}

func dial(ctx context.Context, addr string) (conn, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		ws, _, err := websocket.Dial(ctx, addr, nil)
		if err != nil {
			return nil, err
		}
		return &wsConn{ws: ws}, nil
	}

	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &tcpConn{c: c, r: bufio.NewReader(c)}, nil
}

func readLoop(ctx context.Context, c conn) {
	for {
		line, err := c.ReadLine(ctx)
		if err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				fmt.Println("connection closed")
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				fmt.Println("connection closed")
				return
			}
			log.Printf("read error: %v", err)
			return
		}
		fmt.Println(line)
	}
}

func writeLoop(ctx context.Context, c conn) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := c.WriteLine(ctx, line); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

type tcpConn struct {
	c net.Conn
	r *bufio.Reader
}

func (t *tcpConn) ReadLine(context.Context) (string, error) {
	line, err := t.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func (t *tcpConn) WriteLine(_ context.Context, line string) error {
	_, err := io.WriteString(t.c, line+"\n")
	return err
}

func (t *tcpConn) Close() error { return t.c.Close() }

type wsConn struct {
	ws *websocket.Conn
}

func (w *wsConn) ReadLine(ctx context.Context) (string, error) {
	_, data, err := w.ws.Read(ctx)
	return string(data), err
}

func (w *wsConn) WriteLine(ctx context.Context, line string) error {
	return w.ws.Write(ctx, websocket.MessageText, []byte(line))
}

func (w *wsConn) Close() error { return w.ws.Close(websocket.StatusNormalClosure, "bye") }
