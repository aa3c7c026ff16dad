package broker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/relaybroker/relay/internal/protocol"
)

// Group is an ordered set of consumer connections sharing one name
// under one queue, round-robin dispatched with ack-based flow control.
// Grounded on original_source/src/server/group.rs's Group, with the
// consumer-count and declared-length checks from spec.md §4.4 added
// (the Rust revision in the pack predates declared-length acks).
type Group struct {
	name   string
	logger *slog.Logger

	mu        sync.RWMutex
	consumers []*Connection
	cursor    int

	metrics *Metrics
}

// NewGroup constructs an empty Group. metrics may be nil.
func NewGroup(name string, logger *slog.Logger, metrics *Metrics) *Group {
	return &Group{name: name, logger: logger, metrics: metrics}
}

func (g *Group) Name() string { return g.name }

// PushConsumer appends c to the group's consumer list.
func (g *Group) PushConsumer(c *Connection) {
	g.mu.Lock()
	g.consumers = append(g.consumers, c)
	g.mu.Unlock()
}

// Dispatch delivers frame (already wrapped in wire form, with logical
// length declaredLen) to exactly one consumer, following the
// loop/retry/eviction policy of spec.md §4.4 verbatim.
func (g *Group) Dispatch(frame []byte, declaredLen int, ackTimeout time.Duration) {
	for {
		g.mu.RLock()
		empty := len(g.consumers) == 0
		g.mu.RUnlock()
		if empty {
			return
		}

		g.mu.RLock()
		idx := g.cursor
		var c *Connection
		if idx < len(g.consumers) {
			c = g.consumers[idx]
		}
		g.mu.RUnlock()

		if c == nil {
			g.resetCursor()
			continue
		}

		if err := c.Send(frame); err != nil {
			g.logger.Debug("group send failed, evicting consumer", "group", g.name, "conn", c.ID(), "error", err)
			g.evict(idx, c)
			continue
		}

		ack, err := c.ReadFrame(ackTimeout)
		if err != nil {
			if err.Kind == KindTimeout {
				g.advanceCursor()
				continue
			}
			g.logger.Debug("group ack read failed, evicting consumer", "group", g.name, "conn", c.ID(), "error", err)
			g.evict(idx, c)
			continue
		}

		cmds, perr := protocol.ParseString(ack)
		if perr != nil {
			_ = c.SendErrorMessage(perr.Error())
			continue
		}
		if len(cmds) != 1 {
			_ = c.SendErrorMessage("expected exactly one command")
			continue
		}
		if cmds[0].Kind != protocol.CmdOk {
			_ = c.SendErrorMessage("expected 'Ok' one command")
			continue
		}
		if cmds[0].DeclaredLen != declaredLen {
			continue
		}

		g.advanceCursor()
		if g.metrics != nil {
			g.metrics.RecordDelivered()
		}
		return
	}
}

// evict removes c from the consumer list without advancing the
// cursor, so the element that slides into the evicted index is tried
// next (spec.md §9, round-robin cursor correctness).
func (g *Group) evict(idx int, c *Connection) {
	g.mu.Lock()
	if idx < len(g.consumers) && g.consumers[idx] == c {
		g.consumers = append(g.consumers[:idx], g.consumers[idx+1:]...)
	} else {
		for i, cc := range g.consumers {
			if cc == c {
				g.consumers = append(g.consumers[:i], g.consumers[i+1:]...)
				break
			}
		}
	}
	g.mu.Unlock()
	_ = c.Close()
	if g.metrics != nil {
		g.metrics.RecordEvicted()
	}
}

func (g *Group) advanceCursor() {
	g.mu.Lock()
	g.cursor++
	if g.cursor >= len(g.consumers) {
		g.cursor = 0
	}
	g.mu.Unlock()
}

func (g *Group) resetCursor() {
	g.mu.Lock()
	g.cursor = 0
	g.mu.Unlock()
}
