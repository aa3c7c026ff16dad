package broker

import (
	"testing"
	"time"

	"github.com/relaybroker/relay/internal/protocol"
)

func TestInnerQueueAddListenerSendsOkSubscribed(t *testing.T) {
	q := NewInnerQueue("orders", testLogger(), 500*time.Millisecond, nil)
	c, peer := consumerPipe(t)

	done := make(chan *Error)
	go func() { done <- q.AddListener(c, "workers") }()

	buf := make([]byte, 64)
	n, err := peer.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != "ok subscribed" {
		t.Fatalf("got %q, want %q", buf[:n], "ok subscribed")
	}
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := q.groups["workers"]; !ok {
		t.Fatal("group workers was not registered")
	}
}

func TestInnerQueueProcessMessageDeliversToGroup(t *testing.T) {
	q := NewInnerQueue("orders", testLogger(), 500*time.Millisecond, nil)
	c, peer := consumerPipe(t)

	addDone := make(chan *Error)
	go func() { addDone <- q.AddListener(c, "workers") }()
	buf := make([]byte, 64)
	if _, err := peer.Read(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := <-addDone; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q.PushMessage([]byte("hello"))

	processDone := make(chan struct{})
	go func() {
		q.ProcessMessage()
		close(processDone)
	}()

	frameBuf := make([]byte, 4096)
	n, err := peer.Read(frameBuf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cmds, perr := protocol.ParseString(frameBuf[:n])
	if perr != nil {
		t.Fatalf("unexpected parse error: %v", perr)
	}
	if len(cmds) != 1 || cmds[0].Kind != protocol.CmdMessage || string(cmds[0].Payload) != "hello" {
		t.Fatalf("got %+v", cmds)
	}

	ack := protocol.EncodeOkFrame(cmds[0].DeclaredLen)
	if _, err := peer.Write(ack); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-processDone:
	case <-time.After(time.Second):
		t.Fatal("ProcessMessage did not return")
	}
}

func TestInnerQueueProcessMessageNoopWhenEmpty(t *testing.T) {
	q := NewInnerQueue("orders", testLogger(), 500*time.Millisecond, nil)
	q.ProcessMessage() // must not block or panic on an empty FIFO
}

func TestRegistryLazyCreatesQueues(t *testing.T) {
	r := NewRegistry(testLogger(), 500*time.Millisecond, nil)
	if keys := r.Keys(); len(keys) != 0 {
		t.Fatalf("got %v, want empty", keys)
	}

	r.PushMessage("orders", []byte("x"))

	keys := r.Keys()
	if len(keys) != 1 || keys[0] != "orders" {
		t.Fatalf("got %v, want [orders]", keys)
	}

	q, ok := r.Get("orders")
	if !ok || q == nil {
		t.Fatal("expected orders queue to exist")
	}
}
