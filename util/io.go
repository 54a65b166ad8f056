package util

import (
	"context"
	"io"
)

// CloseOnDone closes c as soon as ctx is done, which unblocks any read or write
// in progress on it. The returned stop func detaches c again and reports
// whether the close was prevented.
func CloseOnDone(ctx context.Context, c io.Closer) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
}
