package protocol

import "testing"

func TestParsePublisher(t *testing.T) {
	cmds, err := ParseString([]byte(`publisher orders;`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Kind != CmdPublisher {
		t.Fatalf("got kind %s, want Publisher", cmd.Kind)
	}
	if string(cmd.QueueName) != "orders" {
		t.Fatalf("got queue %q, want orders", cmd.QueueName)
	}
}

func TestParseSubscriber(t *testing.T) {
	cmds, err := ParseString([]byte(`subscribe orders with group workers;`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Kind != CmdSubscriber {
		t.Fatalf("got kind %s, want Subscriber", cmd.Kind)
	}
	if string(cmd.QueueName) != "orders" || string(cmd.GroupName) != "workers" {
		t.Fatalf("got queue %q group %q", cmd.QueueName, cmd.GroupName)
	}
}

func TestParseMessage(t *testing.T) {
	payload := "hello"
	declared := ExpectedMessageLen(len(payload))
	input := EncodeMessageFrame([]byte(payload), declared)

	cmds, err := ParseString(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 1 {
		t.Fatalf("got %d commands, want 1", len(cmds))
	}
	cmd := cmds[0]
	if cmd.Kind != CmdMessage {
		t.Fatalf("got kind %s, want Message", cmd.Kind)
	}
	if string(cmd.Payload) != payload {
		t.Fatalf("got payload %q, want %q", cmd.Payload, payload)
	}
	if cmd.DeclaredLen != declared {
		t.Fatalf("got declared len %d, want %d", cmd.DeclaredLen, declared)
	}
}

func TestParseOk(t *testing.T) {
	input := EncodeOkFrame(42)
	cmds, err := ParseString(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Kind != CmdOk {
		t.Fatalf("got %+v, want single Ok command", cmds)
	}
	if cmds[0].DeclaredLen != 42 {
		t.Fatalf("got declared len %d, want 42", cmds[0].DeclaredLen)
	}
}

func TestParseErrorCommand(t *testing.T) {
	cmds, err := ParseString([]byte(`error "queue full";`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Kind != CmdError {
		t.Fatalf("got %+v, want single Error command", cmds)
	}
	if string(cmds[0].Message) != "queue full" {
		t.Fatalf("got message %q, want %q", cmds[0].Message, "queue full")
	}
}

func TestParseMultipleCommands(t *testing.T) {
	input := []byte(`publisher orders;subscribe orders with group workers;`)
	cmds, err := ParseString(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmds) != 2 {
		t.Fatalf("got %d commands, want 2", len(cmds))
	}
	if cmds[0].Kind != CmdPublisher || cmds[1].Kind != CmdSubscriber {
		t.Fatalf("got kinds %s, %s", cmds[0].Kind, cmds[1].Kind)
	}
}

func TestParseRejectsUnknownLeadingToken(t *testing.T) {
	_, err := ParseString([]byte(`frobnicate orders;`))
	if err == nil {
		t.Fatal("expected a parse error, got nil")
	}
}

func TestParseRejectsMissingGroupKeyword(t *testing.T) {
	_, err := ParseString([]byte(`subscribe orders workers;`))
	if err == nil {
		t.Fatal("expected a parse error, got nil")
	}
}

func TestParseRejectsMismatchedLenTail(t *testing.T) {
	_, err := ParseString([]byte(`message +lNaN #"hi"`))
	if err == nil {
		t.Fatal("expected a parse error, got nil")
	}
}
