package main

import (
	"bufio"
	"cc-bridge/applog"
	"cc-bridge/game"
	"cc-bridge/gameclient"
	"cc-bridge/protocol"
	"cc-bridge/util"
	"context"
	"errors"
	"flag"
	"fmt"
	"go.uber.org/zap"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	addr := flag.String("addr", game.DefaultAddr, "Address of the bridge game port")
	retryEvery := flag.Int("retry-every", 0, "Answer every n-th command with Retry, 0 disables retries")
	timeRemaining := flag.Int64("time-remaining", 0, "timeRemaining reported with every Success")
	logLevel := flag.Int("log-level", -1, "Log level: -1 - Debug, 0 - Info, 1 - Warn, 2 - Error")
	logPath := flag.String("log-path", "", "Directory to the logs")
	flag.Parse()

	if err := applog.Initialize(*logLevel, *logPath); err != nil {
		fmt.Printf("Failed to initialize app logger: %v\n", err)
	}

	defer applog.Shutdown()
	defer util.WrapAppContextCancelExitMessage(ctx, "Game-emulator")

	dialCtx, dialCancel := context.WithTimeout(ctx, time.Minute)
	defer dialCancel()

	client, err := gameclient.Dial(dialCtx, *addr)
	if err != nil {
		applog.Error("Failed to connect to the bridge", zap.String("addr", *addr), zap.Error(err))
		return
	}
	defer func() {
		_ = client.Close()
	}()
	stopClose := util.CloseOnDone(ctx, client)
	defer stopClose()
	applog.Info("Connected to the bridge", zap.String("addr", *addr))

	responder := &Responder{RetryEvery: *retryEvery, TimeRemaining: *timeRemaining}
	go func() {
		defer cancel()
		answerCommands(ctx, client, responder)
	}()

	// How to test
	// - Start cc-bridge (with -no-remote to skip the remote service), then this emulator.
	// - Type commands:
	//   > keepalive            replays the oldest retried command, if any
	//   > login                same as keepalive, but as a Login result
	//   > result <id> <status> sends an EffectRequest result for <id>
	//   > quit
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case value, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleInput(client, value); quit {
				return
			}
		}
	}
}

func answerCommands(ctx context.Context, client *gameclient.Client, responder *Responder) {
	for {
		cmd, err := client.ReadCommand()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			applog.Info("Bridge closed the connection (EOF reached)")
			return
		}
		var decodeErr *protocol.DecodeError
		if errors.As(err, &decodeErr) {
			applog.Warn("Received undecodable command", zap.Error(err))
			continue
		}
		if err != nil {
			applog.Error("Failed to read command from the bridge", zap.Error(err))
			return
		}

		applog.Info("Received command",
			zap.Uint32("id", cmd.Id),
			zap.String("code", util.PtrValueOrDef(cmd.Code, "")),
			zap.Stringer("type", cmd.Type))

		for _, res := range responder.Answer(cmd) {
			if err = client.SendResult(res); err != nil {
				applog.Error("Failed to send result", zap.Error(err))
				return
			}
			applog.Info("Sent result",
				zap.Uint32("id", res.Id),
				zap.Stringer("status", res.Status),
				zap.Stringer("type", res.Type))
		}
	}
}

func handleInput(client *gameclient.Client, value string) (quit bool) {
	applog.Debug("Entered command", zap.String("rawCommand", value))
	args := strings.Fields(value)
	if len(args) == 0 {
		return false
	}

	var res protocol.Result
	switch args[0] {
	case "keepalive":
		res = KeepAlive()
	case "login":
		res = protocol.Result{Type: protocol.ResultTypeLogin}
	case "result":
		if len(args) != 3 {
			applog.Warn("Usage: result <id> <status>")
			return false
		}
		id, idErr := strconv.ParseUint(args[1], 10, 32)
		status, statusErr := strconv.ParseUint(args[2], 10, 8)
		if idErr != nil || statusErr != nil {
			applog.Warn("Invalid result arguments", zap.Strings("args", args[1:]))
			return false
		}
		if !protocol.ResultStatus(status).Valid() {
			applog.Warn("Unknown result status", zap.Uint64("status", status))
			return false
		}
		res = protocol.Result{Id: uint32(id), Status: protocol.ResultStatus(status)}
	case "quit":
		return true
	default:
		applog.Warn("Unknown command", zap.String("command", args[0]))
		return false
	}

	if err := client.SendResult(res); err != nil {
		applog.Error("Failed to send result", zap.Error(err))
	}
	return false
}
