// Command relay-pub is a sample publisher CLI: it claims a queue and
// streams lines from stdin as messages. The initial dial is retried
// with backoff; a failed write or read after connecting ends the
// process. Grounded on the teacher's cmd/beacon-sim/main.go (flag
// parsing, signal-driven shutdown), domain logic is new.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/relaybroker/relay/internal/clientutil"
	"github.com/relaybroker/relay/internal/protocol"
)

func main() {
	addr := flag.String("addr", "localhost:7656", "relay broker address")
	queue := flag.String("queue", "", "queue name to publish to")
	verbose := flag.Bool("verbose", false, "print raw wire frames")
	flag.Parse()

	if *queue == "" {
		fmt.Fprintln(os.Stderr, "missing required -queue flag")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := clientutil.DialWithBackoff(ctx, *addr, logger)
	if err != nil {
		logger.Error("could not connect", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	handshake := []byte(fmt.Sprintf("publisher %s;", *queue))
	if _, err := conn.Write(handshake); err != nil {
		logger.Error("handshake write failed", "error", err)
		os.Exit(1)
	}
	if *verbose {
		fmt.Fprintln(os.Stderr, clientutil.DebugFrame(handshake))
	}

	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		logger.Error("handshake read failed", "error", err)
		os.Exit(1)
	}
	if string(buf[:n]) != "ok publisher" {
		logger.Error("unexpected handshake reply", "reply", string(buf[:n]))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, clientutil.Status(true, "connected as publisher"))

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload := scanner.Bytes()
		declared := protocol.ExpectedMessageLen(len(payload))
		frame := protocol.EncodeMessageFrame(payload, declared)

		if _, err := conn.Write(frame); err != nil {
			logger.Error("publish failed", "error", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintln(os.Stderr, clientutil.DebugFrame(frame))
		}

		n, err := conn.Read(buf)
		if err != nil {
			logger.Error("publish ack read failed", "error", err)
			os.Exit(1)
		}
		if string(buf[:n]) != "ok message" {
			logger.Warn("publish not acked", "reply", string(buf[:n]))
			continue
		}
		fmt.Fprintln(os.Stderr, clientutil.Status(true, "message acked"))
	}
}
