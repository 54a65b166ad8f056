// Package bridge wires the game server and the remote client together through
// two queues and exposes the connect/disconnect operations of both sides.
package bridge

import (
	"cc-bridge/applog"
	"cc-bridge/connstate"
	"cc-bridge/game"
	"cc-bridge/protocol"
	"cc-bridge/queue"
	"cc-bridge/remote"
	"context"
	"go.uber.org/zap"
	"sync"
	"time"
)

const DefaultQueueSize = 256

// Queues connect the two sides. ToGame carries encoded remote requests (and replays),
// ToRemote carries results correlated with their command.
type Queues struct {
	ToGame   *queue.Queue[[]byte]
	ToRemote *queue.Queue[protocol.RemoteOutbound]
}

func NewQueues(size int) Queues {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return Queues{
		ToGame:   queue.New[[]byte]("toGame", size),
		ToRemote: queue.New[protocol.RemoteOutbound]("toRemote", size),
	}
}

type Config struct {
	Game      game.Config
	Remote    remote.Config
	QueueSize int
}

// Bridge owns one connection state per side for its whole lifetime.
type Bridge struct {
	queues Queues
	game   *game.Server
	remote *remote.Client
}

// New builds both sides. observer receives every state change of either side and may be nil.
func New(cfg Config, observer connstate.Observer) *Bridge {
	queues := NewQueues(cfg.QueueSize)
	return &Bridge{
		queues: queues,
		game:   game.NewServer(cfg.Game, queues.ToGame, queues.ToRemote, observer),
		remote: remote.NewClient(cfg.Remote, queues.ToGame, queues.ToRemote, observer),
	}
}

// ConnectRemote connects to the remote service with token and blocks until the
// connection ends. A connection ended by DisconnectRemote is not an error.
func (b *Bridge) ConnectRemote(ctx context.Context, token string) error {
	return ignoreCancelled(b.remote.Connect(ctx, token))
}

// DisconnectRemote is a no-op when the remote side is idle.
func (b *Bridge) DisconnectRemote() error {
	return b.remote.Disconnect()
}

// ConnectGame waits for the game to connect and blocks until the connection ends.
// A connection ended by DisconnectGame is not an error.
func (b *Bridge) ConnectGame(ctx context.Context) error {
	return ignoreCancelled(b.game.Connect(ctx))
}

// DisconnectGame is a no-op when the game side is idle.
func (b *Bridge) DisconnectGame() error {
	return b.game.Disconnect()
}

// QueueStatus is the fill level of one queue.
type QueueStatus struct {
	Name     string
	Len      int
	Capacity int
}

type Status struct {
	Game          connstate.State
	Remote        connstate.State
	GameStats     game.Stats
	RemoteStats   remote.Stats
	ToGameQueue   QueueStatus
	ToRemoteQueue QueueStatus
}

func (b *Bridge) Status() Status {
	return Status{
		Game:        b.game.State(),
		Remote:      b.remote.State(),
		GameStats:   b.game.Stats(),
		RemoteStats: b.remote.Stats(),
		ToGameQueue: QueueStatus{
			Name:     b.queues.ToGame.Name(),
			Len:      b.queues.ToGame.Len(),
			Capacity: b.queues.ToGame.Cap(),
		},
		ToRemoteQueue: QueueStatus{
			Name:     b.queues.ToRemote.Name(),
			Len:      b.queues.ToRemote.Len(),
			Capacity: b.queues.ToRemote.Cap(),
		},
	}
}

type RunOptions struct {
	Token          string
	SkipRemote     bool
	ReconnectDelay time.Duration
}

// Run keeps both sides connected, reconnecting after a fixed delay, until ctx is done.
// Both sides are disconnected before it returns.
func (b *Bridge) Run(ctx context.Context, opts RunOptions) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		keepConnected(ctx, connstate.SideGame, opts.ReconnectDelay, b.ConnectGame)
	}()

	if !opts.SkipRemote {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keepConnected(ctx, connstate.SideRemote, opts.ReconnectDelay, func(ctx context.Context) error {
				return b.ConnectRemote(ctx, opts.Token)
			})
		}()
	}

	<-ctx.Done()
	_ = b.DisconnectGame()
	_ = b.DisconnectRemote()
	wg.Wait()
}

func keepConnected(
	ctx context.Context,
	side connstate.Side,
	delay time.Duration,
	connect func(ctx context.Context) error,
) {
	for {
		err := connect(ctx)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			applog.Warn("Connection ended with error, reconnecting",
				zap.Stringer("side", side),
				zap.Duration("delay", delay),
				zap.Error(err))
		} else {
			applog.Info("Connection ended, reconnecting",
				zap.Stringer("side", side),
				zap.Duration("delay", delay))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func ignoreCancelled(err error) error {
	if connstate.IsCancelled(err) {
		return nil
	}
	return err
}
