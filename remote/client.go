// Package remote keeps the WebSocket connection to the remote effect service.
package remote

import (
	"cc-bridge/applog"
	"cc-bridge/connstate"
	"cc-bridge/protocol"
	"cc-bridge/queue"
	"cc-bridge/util"
	"context"
	"go.uber.org/zap"
	"net"
	"net/url"
	"nhooyr.io/websocket"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	DefaultHost           = "127.0.0.1"
	DefaultPort           = 3000
	DefaultMaxMessageSize = 1 << 20
	DefaultWriteTimeout   = 10 * time.Second

	messagePreviewLimit = 256
)

type Config struct {
	Host           string
	Port           uint16
	MaxMessageSize int64
	WriteTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

type Stats struct {
	FramesReceived uint64
	DecodeFailures uint64
	MessagesSent   uint64
}

// Client forwards effect requests from the remote service into toGame and
// reports results taken from toRemote back to it.
type Client struct {
	cfg      Config
	toGame   *queue.Queue[[]byte]
	toRemote *queue.Queue[protocol.RemoteOutbound]
	tracker  *connstate.Tracker

	framesReceived atomic.Uint64
	decodeFailures atomic.Uint64
	messagesSent   atomic.Uint64
}

func NewClient(
	cfg Config,
	toGame *queue.Queue[[]byte],
	toRemote *queue.Queue[protocol.RemoteOutbound],
	observer connstate.Observer,
) *Client {
	return &Client{
		cfg:      cfg.withDefaults(),
		toGame:   toGame,
		toRemote: toRemote,
		tracker:  connstate.NewTracker(connstate.SideRemote, observer),
	}
}

// URL is the address dialled for token. The token is passed through as is.
func (c *Client) URL(token string) string {
	u := url.URL{
		Scheme:   "ws",
		Host:     net.JoinHostPort(c.cfg.Host, strconv.Itoa(int(c.cfg.Port))),
		RawQuery: url.Values{"token": {token}}.Encode(),
	}
	return u.String()
}

// Connect dials the remote service and serves the connection until it fails
// or Disconnect is called.
func (c *Client) Connect(ctx context.Context, token string) error {
	attempt, err := c.tracker.Begin(ctx)
	if err != nil {
		return err
	}
	defer c.tracker.Finish(attempt)

	attemptCtx := attempt.Context()
	logger := applog.FromContext(attemptCtx).With(
		zap.String("host", c.cfg.Host),
		zap.Uint16("port", c.cfg.Port),
	)
	logger.Info("Connecting to remote service")

	conn, _, err := websocket.Dial(attemptCtx, c.URL(token), nil)
	if err != nil {
		return connstate.Outcome(attemptCtx, connstate.SideRemote, "dial", err)
	}
	defer func(conn *websocket.Conn) {
		_ = conn.Close(websocket.StatusNormalClosure, "bridge disconnected")
	}(conn)
	conn.SetReadLimit(c.cfg.MaxMessageSize)

	if err = c.tracker.MarkConnected(attempt); err != nil {
		return err
	}

	return c.tracker.Serve(attempt,
		connstate.Task{Name: "reader", Run: func(ctx context.Context) error {
			return c.readLoop(ctx, logger, conn)
		}},
		connstate.Task{Name: "writer", Run: func(ctx context.Context) error {
			return c.writeLoop(ctx, logger, conn)
		}},
	)
}

// Disconnect ends the current remote connection, if any.
func (c *Client) Disconnect() error {
	return c.tracker.Disconnect()
}

func (c *Client) State() connstate.State {
	return c.tracker.State()
}

func (c *Client) Stats() Stats {
	return Stats{
		FramesReceived: c.framesReceived.Load(),
		DecodeFailures: c.decodeFailures.Load(),
		MessagesSent:   c.messagesSent.Load(),
	}
}

func (c *Client) readLoop(ctx context.Context, logger *zap.Logger, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				logger.Info("Remote service closed the connection", zap.Error(err))
			}
			return connstate.Outcome(ctx, connstate.SideRemote, "read", err)
		}
		c.framesReceived.Add(1)

		request, err := protocol.DecodeRemoteInbound(data)
		if err != nil {
			c.decodeFailures.Add(1)
			logger.Warn("Dropped undecodable message from remote",
				zap.String("message", util.FramePreview(data, messagePreviewLimit)),
				zap.Error(err))
			continue
		}

		payload, err := protocol.EncodeRemoteInbound(request)
		if err != nil {
			return err
		}
		if err = c.toGame.Push(ctx, payload); err != nil {
			return connstate.Outcome(ctx, connstate.SideRemote, "enqueue", err)
		}

		logger.Debug("Effect request queued for the game",
			zap.String("playerId", request.PlayerId),
			zap.String("code", request.Code),
			zap.Int("queueLength", c.toGame.Len()))
	}
}

func (c *Client) writeLoop(ctx context.Context, logger *zap.Logger, conn *websocket.Conn) error {
	for {
		msg, err := c.toRemote.Pop(ctx)
		if err != nil {
			return connstate.Outcome(ctx, connstate.SideRemote, "dequeue", err)
		}

		data, err := protocol.EncodeRemoteOutbound(msg)
		if err != nil {
			return err
		}
		if err = c.write(ctx, conn, data); err != nil {
			return connstate.Outcome(ctx, connstate.SideRemote, "write", err)
		}

		c.messagesSent.Add(1)
		logger.Debug("Result reported to remote",
			zap.String("playerId", msg.PlayerId),
			zap.String("code", msg.Code),
			zap.Int64("time", msg.Time))
	}
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
