package broker

import (
	"io"
	"log/slog"
	"net"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConnectionSendAndReadFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewConnection(server, 500*time.Millisecond, 500*time.Millisecond, 4096, testLogger())

	go func() {
		_, _ = client.Write([]byte("ping"))
	}()

	frame, err := c.ReadFrame(500 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(frame) != "ping" {
		t.Fatalf("got %q, want %q", frame, "ping")
	}
}

func TestConnectionReadTimeout(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewConnection(server, 50*time.Millisecond, 500*time.Millisecond, 4096, testLogger())

	_, err := c.ReadFrame(50 * time.Millisecond)
	if err == nil || err.Kind != KindTimeout {
		t.Fatalf("got %v, want Timeout", err)
	}
}

func TestConnectionReadDisconnected(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	c := NewConnection(server, 500*time.Millisecond, 500*time.Millisecond, 4096, testLogger())
	client.Close()

	_, err := c.ReadFrame(500 * time.Millisecond)
	if err == nil || err.Kind != KindDisconnected {
		t.Fatalf("got %v, want Disconnected", err)
	}
}

func TestConnectionSendOkPublisherSetsRole(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewConnection(server, 500*time.Millisecond, 500*time.Millisecond, 4096, testLogger())

	done := make(chan struct{})
	go func() {
		_ = c.SendOkPublisher()
		close(done)
	}()

	buf := make([]byte, 64)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-done

	if string(buf[:n]) != "ok publisher" {
		t.Fatalf("got %q, want %q", buf[:n], "ok publisher")
	}
	if c.Role() != RolePublisher {
		t.Fatalf("got role %s, want publisher", c.Role())
	}
}

func TestConnectionCannedResponses(t *testing.T) {
	cases := []struct {
		name string
		send func(*Connection) *Error
		want string
	}{
		{"subscribed", (*Connection).SendOkSubscribed, "ok subscribed"},
		{"message", (*Connection).SendOkMessage, "ok message"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server, client := net.Pipe()
			defer server.Close()
			defer client.Close()

			c := NewConnection(server, 500*time.Millisecond, 500*time.Millisecond, 4096, testLogger())

			go func() { _ = tc.send(c) }()

			buf := make([]byte, 64)
			n, err := client.Read(buf)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(buf[:n]) != tc.want {
				t.Fatalf("got %q, want %q", buf[:n], tc.want)
			}
		})
	}
}
