package launcher

import (
	"cc-bridge/bridge"
	"cc-bridge/game"
	"cc-bridge/remote"
	"flag"
	"fmt"
	"os"
	"time"
)

type Info struct {
	RemoteHost     string
	RemotePort     uint
	Token          string `json:"-"`
	NoRemote       bool
	GameAddr       string
	QueueSize      int
	PendingTTL     time.Duration
	RetryLimit     int
	ReconnectDelay time.Duration
	FrameLogPath   string
	LogLevel       int
	LogPath        string
}

func NewInfoFromFlags() *Info {
	info, err := ParseInfo(flag.CommandLine, os.Args[1:])
	if err != nil {
		// flag.CommandLine exits on parse errors, so this is unreachable.
		panic(err)
	}
	return info
}

// ParseInfo reads the configuration from args using fs.
func ParseInfo(fs *flag.FlagSet, args []string) (*Info, error) {
	remoteHost := fs.String(
		"remote-host", remote.DefaultHost, "Host of the remote effect service")
	remotePort := fs.Uint(
		"remote-port", remote.DefaultPort, "Port of the remote effect service")
	token := fs.String(
		"token", "", "Token passed to the remote effect service")
	noRemote := fs.Bool(
		"no-remote", false, "Only serve the game side, do not connect to the remote service")
	gameAddr := fs.String(
		"game-addr", game.DefaultAddr, "Address the game connects to")
	queueSize := fs.Int(
		"queue-size", bridge.DefaultQueueSize, "Capacity of each queue between the two sides")
	pendingTTL := fs.Duration(
		"pending-ttl", game.DefaultPendingTTL, "How long a command waits for its result before it is forgotten")
	retryLimit := fs.Int(
		"retry-limit", game.DefaultRetryLimit, "Maximum number of results waiting to be retried")
	reconnectDelay := fs.Duration(
		"reconnect-delay", time.Second, "Delay before reconnecting a side after its connection ended")
	frameLogPath := fs.String(
		"frame-log", "", "File receiving a copy of every game frame, disabled when empty")
	logLevel := fs.Int(
		"log-level", 0, "Log level: -1 - Debug, 0 - Info, 1 - Warn, 2 - Error, 3/4 - Panic, 5 - Fatal")
	logPath := fs.String(
		"log-path",
		"",
		"Directory to the logs, otherwise will use working directory and add 'logs' to that path")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Info{
		RemoteHost:     *remoteHost,
		RemotePort:     *remotePort,
		Token:          *token,
		NoRemote:       *noRemote,
		GameAddr:       *gameAddr,
		QueueSize:      *queueSize,
		PendingTTL:     *pendingTTL,
		RetryLimit:     *retryLimit,
		ReconnectDelay: *reconnectDelay,
		FrameLogPath:   *frameLogPath,
		LogLevel:       *logLevel,
		LogPath:        *logPath,
	}, nil
}

func (c *Info) Validate() error {
	if !c.NoRemote {
		if c.Token == "" {
			return fmt.Errorf("--token is required and cannot be empty")
		}

		if c.RemoteHost == "" {
			return fmt.Errorf("--remote-host cannot be empty")
		}

		if c.RemotePort == 0 || c.RemotePort > 65535 {
			return fmt.Errorf("--remote-port must be a valid port, got %d", c.RemotePort)
		}
	}

	if c.GameAddr == "" {
		return fmt.Errorf("--game-addr cannot be empty")
	}

	if c.QueueSize < 1 {
		return fmt.Errorf("--queue-size must be at least 1, got %d", c.QueueSize)
	}

	if c.PendingTTL <= 0 {
		return fmt.Errorf("--pending-ttl must be positive, got %s", c.PendingTTL)
	}

	if c.RetryLimit < 1 {
		return fmt.Errorf("--retry-limit must be at least 1, got %d", c.RetryLimit)
	}

	if c.ReconnectDelay < 0 {
		return fmt.Errorf("--reconnect-delay cannot be negative, got %s", c.ReconnectDelay)
	}

	return nil
}

// BridgeConfig maps the launch arguments onto the bridge configuration.
func (c *Info) BridgeConfig() bridge.Config {
	return bridge.Config{
		Game: game.Config{
			Addr:       c.GameAddr,
			PendingTTL: c.PendingTTL,
			RetryLimit: c.RetryLimit,
		},
		Remote: remote.Config{
			Host: c.RemoteHost,
			Port: uint16(c.RemotePort),
		},
		QueueSize: c.QueueSize,
	}
}
