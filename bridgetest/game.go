// Package bridgetest provides in-process peers for exercising the bridge:
// a fake game that dials the game port, a fake remote service that accepts the
// bridge's WebSocket, and a source of loopback listeners.
package bridgetest

import (
	"cc-bridge/gameclient"
	"cc-bridge/protocol"
	"context"
	"errors"
	"net"
	"time"
)

// FakeGame plays the game side of the TCP protocol, with read timeouts for tests.
type FakeGame struct {
	client *gameclient.Client
}

// DialGame connects to addr, retrying until ctx is done so it can race the bridge's listener.
func DialGame(ctx context.Context, addr string) (*FakeGame, error) {
	client, err := gameclient.Dial(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &FakeGame{client: client}, nil
}

func NewFakeGame(conn net.Conn) *FakeGame {
	return &FakeGame{client: gameclient.New(conn)}
}

func (g *FakeGame) SendResult(res protocol.Result) error {
	return g.client.SendResult(res)
}

// SendRaw writes bytes as they are, so tests control framing.
func (g *FakeGame) SendRaw(data []byte) error {
	return g.client.SendRaw(data)
}

// ReadFrame returns the next frame without its terminator, or fails after timeout.
func (g *FakeGame) ReadFrame(timeout time.Duration) ([]byte, error) {
	if err := g.client.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	defer func() {
		_ = g.client.SetReadDeadline(time.Time{})
	}()

	return g.client.ReadFrame()
}

func (g *FakeGame) ReadCommand(timeout time.Duration) (protocol.Command, error) {
	frame, err := g.ReadFrame(timeout)
	if err != nil {
		return protocol.Command{}, err
	}
	return protocol.DecodeCommand(frame)
}

// ExpectSilence reports whether nothing arrives within d.
func (g *FakeGame) ExpectSilence(d time.Duration) bool {
	_, err := g.ReadFrame(d)

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (g *FakeGame) Close() error {
	return g.client.Close()
}
