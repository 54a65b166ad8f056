package bridge

import (
	"cc-bridge/bridgetest"
	"cc-bridge/connstate"
	"cc-bridge/game"
	"cc-bridge/protocol"
	"cc-bridge/remote"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

type event struct {
	side  connstate.Side
	state connstate.State
}

type eventLog struct {
	mu     sync.Mutex
	events []event
}

func (l *eventLog) ConnectionStateChanged(side connstate.Side, state connstate.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{side: side, state: state})
}

func (l *eventLog) contains(side connstate.Side, state connstate.State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.side == side && e.state == state {
			return true
		}
	}
	return false
}

type fixture struct {
	bridge    *Bridge
	remote    *bridgetest.RemoteServer
	listeners *bridgetest.Listeners
	events    *eventLog
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		remote:    bridgetest.NewRemoteServer(),
		listeners: bridgetest.NewListeners(),
		events:    &eventLog{},
	}
	t.Cleanup(f.remote.Close)

	f.bridge = New(Config{
		Game:      game.Config{Listen: f.listeners.Listen},
		Remote:    remote.Config{Host: f.remote.Host(), Port: f.remote.Port()},
		QueueSize: 8,
	}, f.events)
	t.Cleanup(func() {
		_ = f.bridge.DisconnectGame()
		_ = f.bridge.DisconnectRemote()
	})
	return f
}

func (f *fixture) attachGame(t *testing.T) *bridgetest.FakeGame {
	addr, err := f.listeners.NextAddr(testTimeout)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	g, err := bridgetest.DialGame(ctx, addr)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = g.Close()
	})

	require.Eventually(t, func() bool {
		return f.bridge.Status().Game == connstate.StateConnected
	}, testTimeout, 5*time.Millisecond)
	return g
}

func (f *fixture) connectBoth(t *testing.T) (*bridgetest.FakeGame, *bridgetest.RemoteConn, chan error, chan error) {
	gameErr := make(chan error, 1)
	remoteErr := make(chan error, 1)

	go func() {
		gameErr <- f.bridge.ConnectGame(context.Background())
	}()
	go func() {
		remoteErr <- f.bridge.ConnectRemote(context.Background(), "token")
	}()

	g := f.attachGame(t)
	rc, err := f.remote.NextConn(testTimeout)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return f.bridge.Status().Remote == connstate.StateConnected
	}, testTimeout, 5*time.Millisecond)

	return g, rc, gameErr, remoteErr
}

func waitErr(t *testing.T, ch chan error) error {
	select {
	case err := <-ch:
		return err
	case <-time.After(testTimeout):
		t.Fatal("connect did not return")
		return nil
	}
}

func TestEffectRoundTrip(t *testing.T) {
	f := newFixture(t)
	g, rc, _, _ := f.connectBoth(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	require.NoError(t, rc.Send(ctx, protocol.RemoteInbound{PlayerId: "p1", Code: "kill"}))

	cmd, err := g.ReadCommand(testTimeout)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), cmd.Id)
	assert.Equal(t, "kill", *cmd.Code)

	require.NoError(t, g.SendResult(protocol.Result{Id: cmd.Id, Status: protocol.ResultStatusSuccess, TimeRemaining: 5}))

	msg, err := rc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.RemoteOutbound{PlayerId: "p1", Code: "kill", Time: 5, Sender: ""}, msg)

	assert.True(t, f.events.contains(connstate.SideGame, connstate.StateConnected))
	assert.True(t, f.events.contains(connstate.SideRemote, connstate.StateConnected))
}

func TestRetriedEffectIsReissuedAndReported(t *testing.T) {
	f := newFixture(t)
	g, rc, _, _ := f.connectBoth(t)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	require.NoError(t, rc.Send(ctx, protocol.RemoteInbound{PlayerId: "p1", Code: "spawn"}))
	first, err := g.ReadCommand(testTimeout)
	require.NoError(t, err)

	require.NoError(t, g.SendResult(protocol.Result{Id: first.Id, Status: protocol.ResultStatusRetry}))
	require.NoError(t, g.SendResult(protocol.Result{Type: protocol.ResultTypeKeepAlive}))

	second, err := g.ReadCommand(testTimeout)
	require.NoError(t, err)
	assert.NotEqual(t, first.Id, second.Id)
	assert.Equal(t, "spawn", *second.Code)

	require.NoError(t, g.SendResult(protocol.Result{Id: second.Id, Status: protocol.ResultStatusSuccess}))

	msg, err := rc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "spawn", msg.Code)

	status := f.bridge.Status()
	assert.Equal(t, uint64(1), status.GameStats.Replays)
	assert.Equal(t, uint64(2), status.GameStats.CommandsSent)
}

func TestDisconnectIsCleanAndIdempotent(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.bridge.DisconnectGame(), "disconnect when idle is a no-op")
	assert.NoError(t, f.bridge.DisconnectRemote(), "disconnect when idle is a no-op")

	_, _, gameErr, remoteErr := f.connectBoth(t)

	require.NoError(t, f.bridge.DisconnectGame())
	require.NoError(t, f.bridge.DisconnectRemote())
	assert.NoError(t, waitErr(t, gameErr))
	assert.NoError(t, waitErr(t, remoteErr))

	status := f.bridge.Status()
	assert.Equal(t, connstate.StateIdle, status.Game)
	assert.Equal(t, connstate.StateIdle, status.Remote)
	assert.True(t, f.events.contains(connstate.SideGame, connstate.StateIdle))
	assert.True(t, f.events.contains(connstate.SideRemote, connstate.StateIdle))

	assert.NoError(t, f.bridge.DisconnectGame())
}

func TestConnectWhileActiveIsRejected(t *testing.T) {
	f := newFixture(t)
	f.connectBoth(t)

	err := f.bridge.ConnectGame(context.Background())
	assert.EqualError(t, err, "game side already connected")

	err = f.bridge.ConnectRemote(context.Background(), "token")
	assert.EqualError(t, err, "remote side already connected")
}

func TestRequestsWaitForTheGame(t *testing.T) {
	f := newFixture(t)

	remoteErr := make(chan error, 1)
	go func() {
		remoteErr <- f.bridge.ConnectRemote(context.Background(), "token")
	}()
	rc, err := f.remote.NextConn(testTimeout)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	require.NoError(t, rc.Send(ctx, protocol.RemoteInbound{PlayerId: "p1", Code: "kill"}))

	require.Eventually(t, func() bool {
		return f.bridge.Status().ToGameQueue.Len == 1
	}, testTimeout, 5*time.Millisecond)
	assert.Equal(t, QueueStatus{Name: "toGame", Len: 1, Capacity: 8}, f.bridge.Status().ToGameQueue)
	assert.Equal(t, QueueStatus{Name: "toRemote", Len: 0, Capacity: 8}, f.bridge.Status().ToRemoteQueue)

	go func() {
		_ = f.bridge.ConnectGame(context.Background())
	}()
	g := f.attachGame(t)

	cmd, err := g.ReadCommand(testTimeout)
	require.NoError(t, err)
	assert.Equal(t, "kill", *cmd.Code)
}

func TestRunReconnectsGame(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.bridge.Run(ctx, RunOptions{SkipRemote: true, ReconnectDelay: 10 * time.Millisecond})
	}()

	g := f.attachGame(t)
	require.NoError(t, g.Close())

	f.attachGame(t)
	assert.Equal(t, connstate.StateIdle, f.bridge.Status().Remote, "remote side is not started")

	cancel()
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatal("Run did not return after cancellation")
	}
	assert.Equal(t, connstate.StateIdle, f.bridge.Status().Game)
}
