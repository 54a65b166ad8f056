package applog

import (
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"sync"
	"time"
)

type logEntry struct {
	entry  zapcore.Entry
	fields []zap.Field
}

// asyncSink is a zapcore.Core that hands entries to a background goroutine.
// When the buffer is full the entry is rejected instead of blocking the caller.
type asyncSink struct {
	core        zapcore.Core
	extraFields []zap.Field
	entryChan   chan logEntry
	quit        chan struct{}
	quitOnce    *sync.Once
	wg          *sync.WaitGroup
}

func newAsyncSink(core zapcore.Core, bufferSize int) *asyncSink {
	s := &asyncSink{
		core:      core,
		entryChan: make(chan logEntry, bufferSize),
		quit:      make(chan struct{}),
		quitOnce:  &sync.Once{},
		wg:        &sync.WaitGroup{},
	}

	s.wg.Add(1)
	go s.process()
	return s
}

func (s *asyncSink) process() {
	defer s.wg.Done()
	for {
		select {
		case e := <-s.entryChan:
			_ = s.core.Write(e.entry, e.fields)
		case <-s.quit:
			// Flush whatever is still buffered, then stop.
			for {
				select {
				case e := <-s.entryChan:
					_ = s.core.Write(e.entry, e.fields)
				default:
					return
				}
			}
		}
	}
}

func (s *asyncSink) Enabled(lvl zapcore.Level) bool {
	return s.core.Enabled(lvl)
}

func (s *asyncSink) With(fields []zap.Field) zapcore.Core {
	extra := make([]zap.Field, 0, len(s.extraFields)+len(fields))
	extra = append(extra, s.extraFields...)
	extra = append(extra, fields...)

	return &asyncSink{
		core:        s.core,
		extraFields: extra,
		entryChan:   s.entryChan,
		quit:        s.quit,
		quitOnce:    s.quitOnce,
		wg:          s.wg,
	}
}

func (s *asyncSink) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if s.Enabled(entry.Level) {
		return ce.AddCore(entry, s)
	}
	return ce
}

func (s *asyncSink) Write(entry zapcore.Entry, fields []zap.Field) error {
	all := fields
	if len(s.extraFields) > 0 {
		all = make([]zap.Field, 0, len(s.extraFields)+len(fields))
		all = append(all, s.extraFields...)
		all = append(all, fields...)
	}

	select {
	case s.entryChan <- logEntry{entry: entry, fields: all}:
		return nil
	default:
		return fmt.Errorf("channel log buffer overflow (capacity: %d)", cap(s.entryChan))
	}
}

func (s *asyncSink) Sync() error {
	return s.core.Sync()
}

// Shutdown stops the background goroutine, waiting at most timeout for buffered entries.
func (s *asyncSink) Shutdown(timeout time.Duration) {
	s.quitOnce.Do(func() {
		close(s.quit)
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}
