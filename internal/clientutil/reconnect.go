// Package clientutil holds small helpers shared by the sample
// publisher/consumer CLIs (cmd/relay-pub, cmd/relay-sub): reconnect
// backoff, TTY-aware status coloring, and shell-quoted frame tracing.
// These CLIs are external collaborators, not part of the broker core
// (spec.md §1), the same role the teacher's cmd/beacon-sim plays for
// go-mqtt-server.
package clientutil

import (
	"context"
	"log/slog"
	"net"

	"github.com/cenkalti/backoff"
)

// DialWithBackoff retries net.Dial against addr using an exponential
// backoff policy until ctx is cancelled or a connection succeeds,
// playing the role the teacher's beacon-sim fills by hand with a
// ticker loop, upgraded here to the pack's dedicated backoff
// dependency since this is a standalone reconnecting client rather
// than a broker-owned accept loop.
func DialWithBackoff(ctx context.Context, addr string, logger *slog.Logger) (net.Conn, error) {
	var conn net.Conn

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // retry indefinitely; caller controls lifetime via ctx

	operation := func() error {
		var err error
		dialer := net.Dialer{}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			logger.Warn("dial failed, retrying", "addr", addr, "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	logger.Info("connected", "addr", addr)
	return conn, nil
}
