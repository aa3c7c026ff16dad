package broker

import (
	"net"
	"testing"
	"time"

	"github.com/relaybroker/relay/internal/protocol"
)

// consumerPipe wires a Connection to an in-test peer that can read what
// the group sent and write back an ack.
func consumerPipe(t *testing.T) (*Connection, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { server.Close(); client.Close() })
	c := NewConnection(server, 500*time.Millisecond, 500*time.Millisecond, 4096, testLogger())
	return c, client
}

func TestGroupDispatchSingleConsumerAcks(t *testing.T) {
	g := NewGroup("g1", testLogger(), nil)
	c, peer := consumerPipe(t)
	g.PushConsumer(c)

	payload := []byte("hi")
	declared := protocol.ExpectedMessageLen(len(payload))
	frame := protocol.EncodeMessageFrame(payload, declared)

	done := make(chan struct{})
	go func() {
		g.Dispatch(frame, declared, 500*time.Millisecond)
		close(done)
	}()

	buf := make([]byte, 4096)
	n, err := peer.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != string(frame) {
		t.Fatalf("got %q, want %q", buf[:n], frame)
	}

	ack := protocol.EncodeOkFrame(declared)
	if _, err := peer.Write(ack); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return")
	}

	// With a single consumer the advanced cursor wraps back to 0.
	if g.cursor != 0 {
		t.Fatalf("got cursor %d, want 0", g.cursor)
	}
}

func TestGroupDispatchEvictsOnSendFailure(t *testing.T) {
	g := NewGroup("g1", testLogger(), nil)
	c, peer := consumerPipe(t)
	peer.Close() // force the next send to fail
	g.PushConsumer(c)

	done := make(chan struct{})
	go func() {
		g.Dispatch([]byte("frame"), 5, 500*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return for an empty group")
	}

	if len(g.consumers) != 0 {
		t.Fatalf("got %d consumers, want 0", len(g.consumers))
	}
}

func TestGroupDispatchSkipsOnTimeoutWithoutEviction(t *testing.T) {
	g := NewGroup("g1", testLogger(), nil)
	c1, peer1 := consumerPipe(t)
	c2, peer2 := consumerPipe(t)
	g.PushConsumer(c1)
	g.PushConsumer(c2)

	payload := []byte("hi")
	declared := protocol.ExpectedMessageLen(len(payload))
	frame := protocol.EncodeMessageFrame(payload, declared)

	done := make(chan struct{})
	go func() {
		g.Dispatch(frame, declared, 50*time.Millisecond)
		close(done)
	}()

	// c1 receives the frame but never acks (times out).
	buf := make([]byte, 4096)
	if _, err := peer1.Read(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// c2 receives the frame and acks correctly.
	n, err := peer2.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != string(frame) {
		t.Fatalf("got %q, want %q", buf[:n], frame)
	}
	ack := protocol.EncodeOkFrame(declared)
	if _, err := peer2.Write(ack); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch did not return")
	}

	if len(g.consumers) != 2 {
		t.Fatalf("got %d consumers, want 2 (timeout must not evict)", len(g.consumers))
	}
}

func TestGroupDispatchEmptyReturnsImmediately(t *testing.T) {
	g := NewGroup("empty", testLogger(), nil)
	done := make(chan struct{})
	go func() {
		g.Dispatch([]byte("x"), 1, 500*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Dispatch on an empty group should return immediately")
	}
}
