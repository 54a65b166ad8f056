package util

import (
	"fmt"
	"os"
	"sync"
	"time"
)

type FrameDirection string

const (
	FrameDirectionIn  FrameDirection = "IN"
	FrameDirectionOut FrameDirection = "OUT"
)

// FrameLogger appends every game frame to a plain text file, one frame per line.
type FrameLogger struct {
	file *os.File
	mu   sync.Mutex
	now  func() time.Time
}

func NewFrameLogger(filename string) (*FrameLogger, error) {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	header := "" +
		"-------------------------+-----+-------+-----------\n" +
		"Time                     | Dir | Len   | Frame     \n" +
		"-------------------------+-----+-------+-----------\n"

	if _, err = file.WriteString(header); err != nil {
		_ = file.Close()
		return nil, err
	}

	return &FrameLogger{file: file, now: time.Now}, nil
}

// LogFrame is safe to call on a nil logger.
func (fl *FrameLogger) LogFrame(direction FrameDirection, frame []byte) error {
	if fl == nil {
		return nil
	}

	// Generate by template:
	// Time                     | Dir | Len   | Frame
	line := fmt.Sprintf("%-24s | %-3s | %-5d | %s\n",
		fl.now().UTC().Format(time.RFC3339Nano),
		direction,
		len(frame),
		FramePreview(frame, 0),
	)

	fl.mu.Lock()
	defer fl.mu.Unlock()
	_, err := fl.file.WriteString(line)
	return err
}

func (fl *FrameLogger) Close() error {
	if fl == nil {
		return nil
	}

	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.file.Close()
}
