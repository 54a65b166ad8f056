package util

import (
	"cc-bridge/applog"
	"context"
	"fmt"
	"go.uber.org/zap"
	"strings"
)

func PtrValueOrDef[T any](value *T, def T) T {
	if value == nil {
		return def
	}
	return *value
}

func WrapAppContextCancelExitMessage(ctx context.Context, appName string) {
	ctxErr := ctx.Err()
	if ctxErr != nil {
		applog.Info(fmt.Sprintf("%s exited; context cancelled", appName), zap.Error(ctxErr))
		return
	}

	applog.Info(fmt.Sprintf("%s exited", appName))
}

func DataToHex(buffer []byte) string {
	var parts []string
	for _, b := range buffer {
		parts = append(parts, fmt.Sprintf("%02X", b))
	}
	return strings.Join(parts, " ")
}

// FramePreview renders a frame for logging: printable frames as text, anything else as hex.
// Frames longer than limit are cut short.
func FramePreview(frame []byte, limit int) string {
	suffix := ""
	if limit > 0 && len(frame) > limit {
		frame = frame[:limit]
		suffix = "..."
	}

	for _, b := range frame {
		if b < 0x20 || b > 0x7E {
			return DataToHex(frame) + suffix
		}
	}
	return string(frame) + suffix
}
