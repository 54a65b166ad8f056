package util

import (
	"context"
	"net"
)

// NetAcceptWithContext accepts one connection or gives up when ctx is done.
// On cancellation the listener is closed so the pending Accept returns.
func NetAcceptWithContext(ctx context.Context, listener net.Listener) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		conn, err := listener.Accept()
		resultCh <- result{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		_ = listener.Close()
		if res := <-resultCh; res.conn != nil {
			_ = res.conn.Close()
		}
		return nil, ctx.Err()
	case res := <-resultCh:
		return res.conn, res.err
	}
}
