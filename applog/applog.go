package applog

import (
	"cc-bridge/build"
	"fmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type Logger = zap.Logger

const (
	logFileName         = "cc-bridge.log"
	asyncSinkBufferSize = 4096
	sinkShutdownTimeout = 500 * time.Millisecond
)

var (
	globalMu     sync.RWMutex
	globalLogger = newConsoleLogger(zapcore.InfoLevel)
	callerLogger = globalLogger.WithOptions(zap.AddCallerSkip(1))
	asyncSinks   []*asyncSink
	logFile      *os.File
)

func Info(msg string, fields ...zapcore.Field) {
	skipLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zapcore.Field) {
	skipLogger().Warn(msg, fields...)
}

func Debug(msg string, fields ...zapcore.Field) {
	skipLogger().Debug(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	skipLogger().Error(msg, fields...)
}

func GetLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// LogStartupInfo writes one line with build metadata and the effective configuration.
func LogStartupInfo(launchArgs interface{}) {
	buildInfo := build.GetBuildInfo()

	skipLogger().Info("Application started",
		zap.String("buildCommit", buildInfo.CommitHash),
		zap.String("buildTime", buildInfo.CommitTime),
		zap.String("goVersion", buildInfo.GoVersion),
		zap.Any("launchArgs", launchArgs),
	)
}

// Initialize replaces the startup console logger with a console + file logger.
// Both outputs are written asynchronously, so a slow disk never stalls the bridge.
func Initialize(rawLogLevel int, logPath string) error {
	if logPath == "" {
		workdir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %w", err)
		}
		logPath = filepath.Join(workdir, "logs")
	}

	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilename := filepath.Join(logPath, logFileName)
	file, err := os.OpenFile(logFilename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file '%s': %w", logFilename, err)
	}

	level := safeGetLogLevelOrDefault(rawLogLevel)
	encoder := zapcore.NewJSONEncoder(getEncoderConfig())

	consoleSink := newAsyncSink(zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level), asyncSinkBufferSize)
	fileSink := newAsyncSink(zapcore.NewCore(encoder.Clone(), zapcore.AddSync(file), level), asyncSinkBufferSize)

	globalMu.Lock()
	logFile = file
	asyncSinks = []*asyncSink{consoleSink, fileSink}
	globalMu.Unlock()

	setLogger(zap.New(zapcore.NewTee(consoleSink, fileSink), zap.AddCaller()))
	return nil
}

// Shutdown drains the asynchronous sinks and closes the log file.
// Anything logged afterwards goes synchronously to stdout.
func Shutdown() {
	globalMu.Lock()
	sinks := asyncSinks
	file := logFile
	asyncSinks = nil
	logFile = nil
	globalMu.Unlock()

	setLogger(newConsoleLogger(zapcore.InfoLevel))

	for _, sink := range sinks {
		sink.Shutdown(sinkShutdownTimeout)
		_ = sink.Sync()
	}

	if file != nil {
		_ = file.Close()
	}
}

// safeGetLogLevelOrDefault maps the -log-level flag to a zap level, falling back to Info.
func safeGetLogLevelOrDefault(rawLogLevel int) zapcore.Level {
	level := zapcore.Level(rawLogLevel)
	if level < zapcore.DebugLevel || level > zapcore.FatalLevel {
		return zapcore.InfoLevel
	}
	return level
}

func getEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	return encoderConfig
}

func newConsoleLogger(level zapcore.Level) *Logger {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(getEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(os.Stdout)),
		level,
	)
	return zap.New(core, zap.AddCaller())
}

// ReplaceLogger installs l as the global logger and returns a func that restores the previous one.
func ReplaceLogger(l *Logger) (restore func()) {
	prev := GetLogger()
	setLogger(l)
	return func() {
		setLogger(prev)
	}
}

func setLogger(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	callerLogger = l.WithOptions(zap.AddCallerSkip(1))
	globalMu.Unlock()

	zap.ReplaceGlobals(l)
}

func skipLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return callerLogger
}
