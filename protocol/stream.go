package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"
)

// DefaultMaxFrameSize bounds how many bytes may be buffered while waiting for a terminator.
const DefaultMaxFrameSize = 1 << 20

// FrameTooLargeError means the peer sent more than the allowed number of bytes
// without a terminator. The stream cannot be resynchronised after that.
type FrameTooLargeError struct {
	Limit int
}

func (e *FrameTooLargeError) Error() string {
	return fmt.Sprintf("frame exceeds %d bytes without terminator", e.Limit)
}

// StreamReader splits a byte stream into terminator-delimited frames.
type StreamReader struct {
	r            *bufio.Reader
	maxFrameSize int
}

// NewStreamReader wraps r. A maxFrameSize <= 0 selects DefaultMaxFrameSize.
func NewStreamReader(r io.Reader, maxFrameSize int) *StreamReader {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &StreamReader{
		r:            bufio.NewReader(r),
		maxFrameSize: maxFrameSize,
	}
}

// ReadFrame blocks until a whole frame is available and returns it without its terminator.
// Partial reads are kept in the buffer until the rest of the frame arrives.
// Empty frames (consecutive terminators) are skipped.
func (r *StreamReader) ReadFrame() ([]byte, error) {
	var frame []byte
	for {
		chunk, err := r.r.ReadSlice(Terminator)
		if len(frame)+len(chunk) > r.maxFrameSize+1 {
			return nil, &FrameTooLargeError{Limit: r.maxFrameSize}
		}
		frame = append(frame, chunk...)

		switch {
		case err == nil:
			frame = frame[:len(frame)-1]
			if len(frame) == 0 {
				continue
			}
			return frame, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(frame) > 0:
			return nil, io.ErrUnexpectedEOF
		default:
			return nil, err
		}
	}
}

// StreamWriter writes terminated frames. It is safe for concurrent use.
type StreamWriter struct {
	w  *bufio.Writer
	mu sync.Mutex
}

func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteFrame writes an already encoded frame (terminator included) and flushes it.
func (w *StreamWriter) WriteFrame(frame []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *StreamWriter) WriteCommand(cmd Command) error {
	frame, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return w.WriteFrame(frame)
}

func (w *StreamWriter) WriteResult(res Result) error {
	frame, err := EncodeResult(res)
	if err != nil {
		return err
	}
	return w.WriteFrame(frame)
}
