package bridgetest

import (
	"context"
	"errors"
	"fmt"
	"golang.org/x/net/nettest"
	"net"
	"time"
)

// Listeners hands out a fresh loopback listener on every call to Listen and
// publishes its address, so a server that closes its listener after accept
// can still be reconnected in tests.
type Listeners struct {
	addrs chan string
}

func NewListeners() *Listeners {
	return &Listeners{addrs: make(chan string, 16)}
}

func (l *Listeners) Listen(_ context.Context) (net.Listener, error) {
	listener, err := nettest.NewLocalListener("tcp")
	if err != nil {
		return nil, err
	}

	select {
	case l.addrs <- listener.Addr().String():
	default:
		_ = listener.Close()
		return nil, errors.New("too many listeners not picked up")
	}
	return listener, nil
}

// NextAddr waits for the next listener created by Listen.
func (l *Listeners) NextAddr(timeout time.Duration) (string, error) {
	select {
	case addr := <-l.addrs:
		return addr, nil
	case <-time.After(timeout):
		return "", fmt.Errorf("no listener within %s", timeout)
	}
}
