package bridgetest

import (
	"cc-bridge/protocol"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"nhooyr.io/websocket"
	"sync"
	"time"
)

// RemoteServer is a stand-in for the remote effect service.
type RemoteServer struct {
	server *httptest.Server
	conns  chan *RemoteConn

	mu       sync.Mutex
	accepted []*RemoteConn
}

// RemoteConn is one bridge connection accepted by RemoteServer.
type RemoteConn struct {
	Token string

	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func NewRemoteServer() *RemoteServer {
	s := &RemoteServer{conns: make(chan *RemoteConn, 8)}
	s.server = httptest.NewServer(http.HandlerFunc(s.serveWs))
	return s
}

func (s *RemoteServer) serveWs(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	rc := &RemoteConn{
		Token: r.URL.Query().Get("token"),
		conn:  c,
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.accepted = append(s.accepted, rc)
	s.mu.Unlock()

	s.conns <- rc

	select {
	case <-rc.done:
	case <-r.Context().Done():
	}
}

func (s *RemoteServer) Host() string {
	return s.server.Listener.Addr().(*net.TCPAddr).IP.String()
}

func (s *RemoteServer) Port() uint16 {
	return uint16(s.server.Listener.Addr().(*net.TCPAddr).Port)
}

// NextConn waits for the bridge to connect.
func (s *RemoteServer) NextConn(timeout time.Duration) (*RemoteConn, error) {
	select {
	case rc := <-s.conns:
		return rc, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("no connection within %s", timeout)
	}
}

// Close drops every accepted connection and stops the server.
func (s *RemoteServer) Close() {
	s.mu.Lock()
	accepted := s.accepted
	s.accepted = nil
	s.mu.Unlock()

	for _, rc := range accepted {
		_ = rc.Close()
	}
	s.server.Close()
}

func (rc *RemoteConn) Send(ctx context.Context, msg protocol.RemoteInbound) error {
	data, err := protocol.EncodeRemoteInbound(msg)
	if err != nil {
		return err
	}
	return rc.SendText(ctx, data)
}

func (rc *RemoteConn) SendText(ctx context.Context, data []byte) error {
	return rc.conn.Write(ctx, websocket.MessageText, data)
}

// Read returns the next message the bridge reported.
func (rc *RemoteConn) Read(ctx context.Context) (protocol.RemoteOutbound, error) {
	var msg protocol.RemoteOutbound

	_, data, err := rc.conn.Read(ctx)
	if err != nil {
		return msg, err
	}
	err = json.Unmarshal(data, &msg)
	return msg, err
}

func (rc *RemoteConn) Close() error {
	var err error
	rc.closeOnce.Do(func() {
		err = rc.conn.Close(websocket.StatusNormalClosure, "bye")
		close(rc.done)
	})
	return err
}
