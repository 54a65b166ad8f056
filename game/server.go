// Package game serves the local TCP endpoint the game connects to.
//
// The game speaks NUL-terminated JSON. Commands built from remote requests are
// written to it, and the results it reports are correlated with those commands
// before being forwarded to the remote side.
package game

import (
	"cc-bridge/applog"
	"cc-bridge/connstate"
	"cc-bridge/protocol"
	"cc-bridge/queue"
	"cc-bridge/util"
	"context"
	"go.uber.org/zap"
	"net"
	"time"
)

// DefaultAddr is where the game expects to find the bridge.
const DefaultAddr = "127.0.0.1:58430"

type Config struct {
	Addr string
	// Listen replaces the default TCP listener on Addr, mostly for tests.
	Listen       func(ctx context.Context) (net.Listener, error)
	PendingTTL   time.Duration
	RetryLimit   int
	MaxFrameSize int
	FrameLogger  *util.FrameLogger
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.PendingTTL == 0 {
		c.PendingTTL = DefaultPendingTTL
	}
	if c.RetryLimit == 0 {
		c.RetryLimit = DefaultRetryLimit
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = protocol.DefaultMaxFrameSize
	}
	return c
}

// Server accepts one game connection at a time.
// toGame carries encoded remote requests, toRemote carries correlated replies.
type Server struct {
	cfg      Config
	toGame   *queue.Queue[[]byte]
	toRemote *queue.Queue[protocol.RemoteOutbound]
	tracker  *connstate.Tracker
	counters counters
}

func NewServer(
	cfg Config,
	toGame *queue.Queue[[]byte],
	toRemote *queue.Queue[protocol.RemoteOutbound],
	observer connstate.Observer,
) *Server {
	return &Server{
		cfg:      cfg.withDefaults(),
		toGame:   toGame,
		toRemote: toRemote,
		tracker:  connstate.NewTracker(connstate.SideGame, observer),
	}
}

// Connect listens for the game, accepts exactly one connection and serves it
// until it fails or Disconnect is called. The listener is closed right after accept.
// It returns *connstate.AlreadyActiveError if the side is busy, connstate.ErrCancelled
// after a disconnect, and the transport failure otherwise.
func (s *Server) Connect(ctx context.Context) error {
	attempt, err := s.tracker.Begin(ctx)
	if err != nil {
		return err
	}
	defer s.tracker.Finish(attempt)

	attemptCtx := attempt.Context()

	conn, err := s.accept(attemptCtx)
	if err != nil {
		return connstate.Outcome(attemptCtx, connstate.SideGame, "accept", err)
	}
	defer func(conn net.Conn) {
		_ = conn.Close()
	}(conn)
	util.CloseOnDone(attemptCtx, conn)

	if err = s.tracker.MarkConnected(attempt); err != nil {
		return err
	}

	sess := newSession(s, conn, applog.FromContext(attemptCtx).With(
		zap.String("remoteAddr", conn.RemoteAddr().String()),
	))
	sess.logger.Info("Game connected")

	return s.tracker.Serve(attempt,
		connstate.Task{Name: "reader", Run: sess.readLoop},
		connstate.Task{Name: "writer", Run: sess.writeLoop},
	)
}

// Disconnect ends the current game connection, if any.
func (s *Server) Disconnect() error {
	return s.tracker.Disconnect()
}

func (s *Server) State() connstate.State {
	return s.tracker.State()
}

func (s *Server) Stats() Stats {
	return s.counters.snapshot()
}

func (s *Server) accept(ctx context.Context) (net.Conn, error) {
	listener, err := s.listen(ctx)
	if err != nil {
		return nil, err
	}
	defer func(listener net.Listener) {
		_ = listener.Close()
	}(listener)

	applog.FromContext(ctx).Info("Waiting for the game to connect",
		zap.String("listenAddr", listener.Addr().String()))

	return util.NetAcceptWithContext(ctx, listener)
}

func (s *Server) listen(ctx context.Context) (net.Listener, error) {
	if s.cfg.Listen != nil {
		return s.cfg.Listen(ctx)
	}

	lc := net.ListenConfig{}
	return lc.Listen(ctx, "tcp", s.cfg.Addr)
}
