// Command relay-sub is a sample consumer CLI: it subscribes to a
// queue under a group and acks every delivered message, printing the
// payload to stdout. Grounded on the teacher's cmd/beacon-sim/main.go
// for CLI shape; the ack loop is new.
package main

import (
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
	queue := flag.String("queue", "", "queue name to subscribe to")
	group := flag.String("group", "", "consumer group name")
	verbose := flag.Bool("verbose", false, "print raw wire frames")
	flag.Parse()

	if *queue == "" || *group == "" {
		fmt.Fprintln(os.Stderr, "missing required -queue/-group flags")
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

	handshake := []byte(fmt.Sprintf("subscribe %s with group %s;", *queue, *group))
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
	if string(buf[:n]) != "ok subscribed" {
		logger.Error("unexpected handshake reply", "reply", string(buf[:n]))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, clientutil.Status(true, "subscribed"))

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		n, err := conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("read failed", "error", err)
			os.Exit(1)
		}

		cmds, perr := protocol.ParseString(buf[:n])
		if perr != nil {
			logger.Warn("unparseable frame", "error", perr)
			continue
		}
		for _, cmd := range cmds {
			if cmd.Kind != protocol.CmdMessage {
				logger.Warn("unexpected command", "kind", cmd.Kind)
				continue
			}

			fmt.Println(string(cmd.Payload))

			ack := protocol.EncodeOkFrame(cmd.DeclaredLen)
			if _, err := conn.Write(ack); err != nil {
				logger.Error("ack write failed", "error", err)
				os.Exit(1)
			}
			if *verbose {
				fmt.Fprintln(os.Stderr, clientutil.DebugFrame(ack))
			}
		}
	}
}
