package broker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/relaybroker/relay/internal/protocol"
)

// InnerQueue is a named queue: a FIFO of published payloads plus the
// set of groups subscribed to it. Grounded on spec.md §4.5 and the
// message_queue module named (but left a stub) in
// original_source/src/server/message_queue.rs.
type InnerQueue struct {
	name   string
	logger *slog.Logger

	groupsMu sync.RWMutex
	groups   map[string]*Group
	order    []string // insertion order, for iteration (spec.md §4.5)

	messagesMu sync.Mutex
	messages   [][]byte

	ackTimeout time.Duration
	metrics    *Metrics
}

// NewInnerQueue constructs an empty queue. metrics may be nil.
func NewInnerQueue(name string, logger *slog.Logger, ackTimeout time.Duration, metrics *Metrics) *InnerQueue {
	return &InnerQueue{
		name:       name,
		logger:     logger,
		groups:     make(map[string]*Group),
		ackTimeout: ackTimeout,
		metrics:    metrics,
	}
}

// AddListener locates or creates the named group and registers conn as
// one of its consumers. When the group is newly created, ok_subscribed
// is sent before the group is published into the queue's map, so a
// failed handshake send never leaves an orphan subscription behind
// (spec.md §4.5).
func (q *InnerQueue) AddListener(conn *Connection, groupName string) *Error {
	q.groupsMu.RLock()
	g, existed := q.groups[groupName]
	q.groupsMu.RUnlock()

	if existed {
		g.PushConsumer(conn)
		return conn.SendOkSubscribed()
	}

	candidate := NewGroup(groupName, q.logger, q.metrics)
	if err := conn.SendOkSubscribed(); err != nil {
		return err
	}

	q.groupsMu.Lock()
	if already, ok := q.groups[groupName]; ok {
		g = already
	} else {
		q.groups[groupName] = candidate
		q.order = append(q.order, groupName)
		g = candidate
	}
	q.groupsMu.Unlock()

	g.PushConsumer(conn)
	return nil
}

// PushMessage appends payload to the FIFO.
func (q *InnerQueue) PushMessage(payload []byte) {
	q.messagesMu.Lock()
	q.messages = append(q.messages, payload)
	q.messagesMu.Unlock()
}

// ProcessMessage pops one message (if any) and, with the messages lock
// released, dispatches it to every group in insertion order. A group's
// dispatch failure does not prevent the others from being tried
// (spec.md §4.5); Group.Dispatch already contains its own errors.
func (q *InnerQueue) ProcessMessage() {
	q.messagesMu.Lock()
	if len(q.messages) == 0 {
		q.messagesMu.Unlock()
		return
	}
	payload := q.messages[0]
	q.messages = q.messages[1:]
	q.messagesMu.Unlock()

	declaredLen := protocol.ExpectedMessageLen(len(payload))
	frame := protocol.EncodeMessageFrame(payload, declaredLen)

	q.groupsMu.RLock()
	names := make([]string, len(q.order))
	copy(names, q.order)
	q.groupsMu.RUnlock()

	for _, name := range names {
		q.groupsMu.RLock()
		g := q.groups[name]
		q.groupsMu.RUnlock()
		if g == nil {
			continue
		}
		g.Dispatch(frame, declaredLen, q.ackTimeout)
	}
}

// Registry is MQueue: the process-wide mapping from queue name to
// InnerQueue, with lazy creation.
type Registry struct {
	mu     sync.RWMutex
	queues map[string]*InnerQueue

	logger     *slog.Logger
	ackTimeout time.Duration
	metrics    *Metrics
}

func NewRegistry(logger *slog.Logger, ackTimeout time.Duration, metrics *Metrics) *Registry {
	return &Registry{
		queues:     make(map[string]*InnerQueue),
		logger:     logger,
		ackTimeout: ackTimeout,
		metrics:    metrics,
	}
}

func (r *Registry) getOrCreate(name string) *InnerQueue {
	r.mu.RLock()
	q, ok := r.queues[name]
	r.mu.RUnlock()
	if ok {
		return q
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.queues[name]; ok {
		return q
	}
	q = NewInnerQueue(name, r.logger, r.ackTimeout, r.metrics)
	r.queues[name] = q
	return q
}

// AddListener locates or creates queueName's InnerQueue and enrolls
// conn into groupName under it.
func (r *Registry) AddListener(conn *Connection, queueName, groupName string) *Error {
	return r.getOrCreate(queueName).AddListener(conn, groupName)
}

// PushMessage locates or creates queueName's InnerQueue and appends
// payload to its FIFO.
func (r *Registry) PushMessage(queueName string, payload []byte) {
	r.getOrCreate(queueName).PushMessage(payload)
}

// Keys enumerates the known queue names, for the dispatcher.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.queues))
	for k := range r.queues {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the InnerQueue for name, if it exists.
func (r *Registry) Get(name string) (*InnerQueue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queues[name]
	return q, ok
}
