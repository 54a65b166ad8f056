// Package gameclient speaks the game side of the bridge's TCP protocol:
// it dials the game port, reads commands and answers with results.
package gameclient

import (
	"cc-bridge/protocol"
	"context"
	"net"
	"time"
)

// DialRetryInterval is the pause between connection attempts in Dial.
const DialRetryInterval = 10 * time.Millisecond

type Client struct {
	conn   net.Conn
	reader *protocol.StreamReader
	writer *protocol.StreamWriter
}

// Dial connects to addr, retrying until ctx is done, since the bridge only
// listens while its game side is connecting.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var dialer net.Dialer
	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return New(conn), nil
		}

		select {
		case <-ctx.Done():
			return nil, err
		case <-time.After(DialRetryInterval):
		}
	}
}

func New(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		reader: protocol.NewStreamReader(conn, 0),
		writer: protocol.NewStreamWriter(conn),
	}
}

func (c *Client) SendResult(res protocol.Result) error {
	return c.writer.WriteResult(res)
}

// SendRaw writes bytes as they are, the caller controls framing.
func (c *Client) SendRaw(data []byte) error {
	return c.writer.WriteFrame(data)
}

// ReadFrame blocks until the next frame arrives and returns it without its terminator.
func (c *Client) ReadFrame() ([]byte, error) {
	return c.reader.ReadFrame()
}

func (c *Client) ReadCommand() (protocol.Command, error) {
	frame, err := c.ReadFrame()
	if err != nil {
		return protocol.Command{}, err
	}
	return protocol.DecodeCommand(frame)
}

// SetReadDeadline bounds the next reads; the zero time removes the bound.
func (c *Client) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
