package remote

import (
	"cc-bridge/bridgetest"
	"cc-bridge/connstate"
	"cc-bridge/protocol"
	"cc-bridge/queue"
	"context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/nettest"
	"net"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

type statesObserver struct {
	mu     sync.Mutex
	states []connstate.State
}

func (o *statesObserver) ConnectionStateChanged(_ connstate.Side, state connstate.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func (o *statesObserver) snapshot() []connstate.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]connstate.State(nil), o.states...)
}

type harness struct {
	client     *Client
	remote     *bridgetest.RemoteServer
	toGame     *queue.Queue[[]byte]
	toRemote   *queue.Queue[protocol.RemoteOutbound]
	observer   *statesObserver
	connectErr chan error
}

func newHarness(t *testing.T) *harness {
	remote := bridgetest.NewRemoteServer()
	t.Cleanup(remote.Close)

	h := &harness{
		remote:   remote,
		toGame:   queue.New[[]byte]("toGame", 16),
		toRemote: queue.New[protocol.RemoteOutbound]("toRemote", 16),
		observer: &statesObserver{},
	}
	h.client = NewClient(Config{Host: remote.Host(), Port: remote.Port()}, h.toGame, h.toRemote, h.observer)
	t.Cleanup(func() {
		_ = h.client.Disconnect()
	})
	return h
}

func (h *harness) connect(t *testing.T, token string) *bridgetest.RemoteConn {
	h.connectErr = make(chan error, 1)
	go func() {
		h.connectErr <- h.client.Connect(context.Background(), token)
	}()

	rc, err := h.remote.NextConn(testTimeout)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return h.client.State() == connstate.StateConnected
	}, testTimeout, 5*time.Millisecond)
	return rc
}

func (h *harness) waitConnectResult(t *testing.T) error {
	select {
	case err := <-h.connectErr:
		return err
	case <-time.After(testTimeout):
		t.Fatal("Connect did not return")
		return nil
	}
}

func TestURLCarriesToken(t *testing.T) {
	client := NewClient(Config{}, nil, nil, nil)
	assert.Equal(t, "ws://127.0.0.1:3000?token=QWMuZUF", client.URL("QWMuZUF"))
	assert.Equal(t, "ws://127.0.0.1:3000?token=a+b%26c", client.URL("a b&c"))

	client = NewClient(Config{Host: "::1", Port: 4000}, nil, nil, nil)
	assert.Equal(t, "ws://[::1]:4000?token=", client.URL(""))
}

func TestConnectPassesTokenAndQueuesRequests(t *testing.T) {
	h := newHarness(t)
	rc := h.connect(t, "secret")
	assert.Equal(t, "secret", rc.Token)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	require.NoError(t, rc.SendText(ctx, []byte(`{"playerId":"p1","code":"kill","extra":true}`)))

	payload, err := h.toGame.Pop(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"playerId":"p1","code":"kill"}`, string(payload))
}

func TestUndecodableMessagesAreSkipped(t *testing.T) {
	h := newHarness(t)
	rc := h.connect(t, "secret")

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	require.NoError(t, rc.SendText(ctx, []byte("hello")))
	require.NoError(t, rc.SendText(ctx, []byte(`{"playerId":"p1"}`)))
	require.NoError(t, rc.Send(ctx, protocol.RemoteInbound{PlayerId: "p2", Code: "heal"}))

	payload, err := h.toGame.Pop(ctx)
	require.NoError(t, err)
	request, err := protocol.DecodeRemoteInbound(payload)
	require.NoError(t, err)
	assert.Equal(t, protocol.RemoteInbound{PlayerId: "p2", Code: "heal"}, request)

	stats := h.client.Stats()
	assert.Equal(t, uint64(3), stats.FramesReceived)
	assert.Equal(t, uint64(2), stats.DecodeFailures)
	assert.Equal(t, connstate.StateConnected, h.client.State())
}

func TestResultsAreSentToRemote(t *testing.T) {
	h := newHarness(t)
	rc := h.connect(t, "secret")

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	sent := protocol.RemoteOutbound{PlayerId: "p1", Code: "kill", Time: 30}
	require.NoError(t, h.toRemote.Push(ctx, sent))

	received, err := rc.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, sent, received)
	assert.Equal(t, uint64(1), h.client.Stats().MessagesSent)
}

func TestSecondConnectIsRejected(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "secret")

	err := h.client.Connect(context.Background(), "other")
	assert.EqualError(t, err, "remote side already connected")
}

func TestDisconnectEndsConnection(t *testing.T) {
	h := newHarness(t)
	h.connect(t, "secret")

	require.NoError(t, h.client.Disconnect())
	assert.ErrorIs(t, h.waitConnectResult(t), connstate.ErrCancelled)
	assert.Equal(t, connstate.StateIdle, h.client.State())
	assert.Equal(t,
		[]connstate.State{connstate.StateConnecting, connstate.StateConnected, connstate.StateIdle},
		h.observer.snapshot())

	// Side is reusable.
	h.connect(t, "secret")
}

func TestRemoteCloseEndsConnection(t *testing.T) {
	h := newHarness(t)
	rc := h.connect(t, "secret")

	require.NoError(t, rc.Close())

	err := h.waitConnectResult(t)
	var transportErr *connstate.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "read", transportErr.Op)
	assert.Equal(t, connstate.StateIdle, h.client.State())
}

func TestDialFailure(t *testing.T) {
	listener, err := nettest.NewLocalListener("tcp")
	require.NoError(t, err)
	addr := listener.Addr().(*net.TCPAddr)
	require.NoError(t, listener.Close())

	observer := &statesObserver{}
	client := NewClient(Config{Host: addr.IP.String(), Port: uint16(addr.Port)},
		queue.New[[]byte]("toGame", 1), queue.New[protocol.RemoteOutbound]("toRemote", 1), observer)

	err = client.Connect(context.Background(), "secret")

	var transportErr *connstate.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "dial", transportErr.Op)
	assert.Equal(t, connstate.StateIdle, client.State())
	assert.Equal(t, []connstate.State{connstate.StateConnecting, connstate.StateIdle}, observer.snapshot())
}

func TestCancelParentContextEndsConnection(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	connectErr := make(chan error, 1)
	go func() {
		connectErr <- h.client.Connect(ctx, "secret")
	}()

	_, err := h.remote.NextConn(testTimeout)
	require.NoError(t, err)
	cancel()

	select {
	case err = <-connectErr:
		assert.ErrorIs(t, err, connstate.ErrCancelled)
	case <-time.After(testTimeout):
		t.Fatal("Connect did not return after cancellation")
	}
	assert.Equal(t, connstate.StateIdle, h.client.State())
}
