package util

import (
	"context"
	"github.com/stretchr/testify/assert"
	"io"
	"net"
	"testing"
	"time"
)

func TestCloseOnDoneUnblocksRead(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()

	ctx, cancel := context.WithCancel(context.Background())
	CloseOnDone(ctx, local)

	readErr := make(chan error, 1)
	go func() {
		_, err := local.Read(make([]byte, 1))
		readErr <- err
	}()

	cancel()

	select {
	case err := <-readErr:
		assert.ErrorIs(t, err, io.ErrClosedPipe)
	case <-time.After(time.Second):
		t.Fatal("read was not unblocked by cancellation")
	}
}

func TestCloseOnDoneStop(t *testing.T) {
	local, remote := net.Pipe()
	defer remote.Close()
	defer local.Close()

	ctx, cancel := context.WithCancel(context.Background())
	stop := CloseOnDone(ctx, local)
	assert.True(t, stop())
	cancel()

	go func() {
		_, _ = remote.Write([]byte{1})
	}()
	n, err := local.Read(make([]byte, 1))
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
