package main

import (
	"cc-bridge/applog"
	"cc-bridge/bridge"
	"cc-bridge/connstate"
	"cc-bridge/launcher"
	"cc-bridge/util"
	"context"
	"fmt"
	"go.uber.org/zap"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	info := launcher.NewInfoFromFlags()
	err := applog.Initialize(info.LogLevel, info.LogPath)
	if err != nil {
		fmt.Printf("Failed to initialize app logger: %v\n", err)
	}

	defer applog.Shutdown()
	defer util.WrapAppContextCancelExitMessage(ctx, "Bridge")

	if err = info.Validate(); err != nil {
		applog.Error("Failed to validate command line arguments", zap.Error(err))
		return
	}

	applog.LogStartupInfo(info)

	cfg := info.BridgeConfig()
	if info.FrameLogPath != "" {
		frameLogger, frameErr := util.NewFrameLogger(info.FrameLogPath)
		if frameErr != nil {
			applog.Error("Failed to open frame log", zap.String("path", info.FrameLogPath), zap.Error(frameErr))
			return
		}
		defer func() {
			_ = frameLogger.Close()
		}()
		cfg.Game.FrameLogger = frameLogger
	}

	bridgeInstance := bridge.New(cfg, connstate.ObserverFunc(func(side connstate.Side, state connstate.State) {
		applog.Info("Connection state changed",
			zap.Stringer("side", side),
			zap.Stringer("state", state))
	}))

	bridgeInstance.Run(ctx, bridge.RunOptions{
		Token:          info.Token,
		SkipRemote:     info.NoRemote,
		ReconnectDelay: info.ReconnectDelay,
	})

	status := bridgeInstance.Status()
	applog.Info("Bridge stopped",
		zap.Any("gameStats", status.GameStats),
		zap.Any("remoteStats", status.RemoteStats),
		zap.Any("toGameQueue", status.ToGameQueue),
		zap.Any("toRemoteQueue", status.ToRemoteQueue))
}
