package broker

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaybroker/relay/internal/protocol"
)

// Server is the TCP acceptor, per-connection handshake dispatcher, and
// background message dispatcher, grounded on the teacher's Broker
// (mqttbroker/broker.go: accept loop, per-connection goroutine, atomic
// shutdown flag) generalized to the text command protocol instead of
// MQTT packets, and on spec.md §4.6/§4.7 for the handshake and
// publisher-loop state machines.
type Server struct {
	logger   *slog.Logger
	registry *Registry
	metrics  *Metrics

	readTimeout  time.Duration
	writeTimeout time.Duration
	bufSize      int

	mu           sync.Mutex
	listener     net.Listener
	wg           sync.WaitGroup
	shuttingDown atomic.Bool
	dispatchDone chan struct{}
}

// NewServer constructs a Server. metrics may be nil.
func NewServer(logger *slog.Logger, registry *Registry, metrics *Metrics, readTimeout, writeTimeout time.Duration, bufSize int) *Server {
	return &Server{
		logger:       logger,
		registry:     registry,
		metrics:      metrics,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		bufSize:      bufSize,
		dispatchDone: make(chan struct{}),
	}
}

// Start binds bind and begins accepting connections. The returned
// channel receives at most one fatal error and is then closed.
func (s *Server) Start(bind string) (<-chan error, error) {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, classifyListenError(err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	errCh := make(chan error, 1)
	s.logger.Info("relay broker listening", "addr", bind)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatchLoop()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := ln.Accept()
			if err != nil {
				if s.shuttingDown.Load() {
					close(errCh)
					return
				}
				errCh <- fmt.Errorf("relay accept: %w", err)
				close(errCh)
				return
			}

			c := NewConnection(conn, s.readTimeout, s.writeTimeout, s.bufSize, s.logger)
			s.HandleConnection(c)
		}
	}()

	return errCh, nil
}

// Stop closes the listener, stops the dispatcher, and waits for every
// in-flight goroutine to exit.
func (s *Server) Stop() error {
	if !s.shuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	close(s.dispatchDone)

	s.wg.Wait()
	return nil
}

// dispatchLoop drains every known queue's FIFO until Stop is called.
// It never sleeps: ProcessMessage blocks on locks and consumer I/O while
// a message is in flight, but returns at once on an empty FIFO, so with
// nothing to deliver the loop spins on the CPU.
func (s *Server) dispatchLoop() {
	for {
		select {
		case <-s.dispatchDone:
			return
		default:
		}

		for _, name := range s.registry.Keys() {
			q, ok := s.registry.Get(name)
			if !ok {
				continue
			}
			q.ProcessMessage()
		}
	}
}

// HandleConnection runs the handshake/role-dispatch state machine for
// an already-accepted Connection in its own goroutine. Shared by the
// TCP accept loop and the WebSocket gateway so both transports drive
// identical protocol logic.
func (s *Server) HandleConnection(c *Connection) {
	s.logger.Debug("accepted connection", "conn", c.ID(), "addr", c.Addr())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handshake(c)
	}()
}

// handshake reads exactly one frame and processes each command in it.
// Subscriber commands enroll the connection into its group(s) and the
// goroutine exits leaving the socket open (the connection now lives on
// inside the group); a Publisher command hands off into the publisher
// read-loop; anything else is an illegal first frame (spec.md §4.6).
func (s *Server) handshake(c *Connection) {
	frame, err := c.ReadFrame(s.readTimeout)
	if err != nil {
		s.logger.Debug("handshake read failed", "conn", c.ID(), "addr", c.Addr(), "error", err)
		_ = c.Close()
		return
	}

	cmds, perr := protocol.ParseString(frame)
	if perr != nil {
		_ = c.SendErrorMessage(perr.Error())
		_ = c.Close()
		return
	}

	for _, cmd := range cmds {
		switch cmd.Kind {
		case protocol.CmdSubscriber:
			c.SetRole(RoleConsumer)
			if err := s.registry.AddListener(c, string(cmd.QueueName), string(cmd.GroupName)); err != nil {
				s.logger.Debug("add listener failed", "conn", c.ID(), "error", err)
				_ = c.Close()
				return
			}
		case protocol.CmdPublisher:
			if err := c.SendOkPublisher(); err != nil {
				s.logger.Debug("publisher ack failed", "conn", c.ID(), "error", err)
				_ = c.Close()
				return
			}
			s.publisherLoop(c, string(cmd.QueueName))
			return
		default:
			_ = c.SendErrorMessage(handshakeErrorText(cmd.Kind))
			_ = c.Close()
			return
		}
	}
}

// publisherLoop reads frames with an unbounded timeout (publishers may
// idle indefinitely, spec.md §4.3) until the socket closes or the peer
// sends an explicit error command.
func (s *Server) publisherLoop(c *Connection, queueName string) {
	defer func() { _ = c.Close() }()

	for {
		frame, err := c.ReadFrame(0)
		if err != nil {
			if err.Kind != KindDisconnected {
				s.logger.Debug("publisher read failed", "conn", c.ID(), "queue", queueName, "error", err)
			}
			return
		}

		cmds, perr := protocol.ParseString(frame)
		if perr != nil {
			_ = c.SendErrorMessage(perr.Error())
			continue
		}

		for _, cmd := range cmds {
			switch cmd.Kind {
			case protocol.CmdMessage:
				expected := protocol.ExpectedMessageLen(len(cmd.Payload))
				if cmd.DeclaredLen != expected {
					_ = c.SendErrorMessage(fmt.Sprintf("invalid length: declared %d, expected %d", cmd.DeclaredLen, expected))
					continue
				}
				if err := c.SendOkMessage(); err != nil {
					s.logger.Debug("ok message ack failed", "conn", c.ID(), "queue", queueName, "error", err)
					return
				}
				s.registry.PushMessage(queueName, cmd.Payload)
			case protocol.CmdError:
				s.logger.Info("publisher sent error, terminating", "conn", c.ID(), "queue", queueName, "message", string(cmd.Message))
				return
			default:
				_ = c.SendErrorMessage("cannot change queue to publish message")
			}
		}
	}
}

func handshakeErrorText(kind protocol.CommandKind) string {
	switch kind {
	case protocol.CmdMessage:
		return "have to be a publisher before send a message"
	case protocol.CmdOk:
		return "ok command is able only when client receive a message"
	case protocol.CmdError:
		return "cannot send error as first command"
	default:
		return "illegal command"
	}
}
