package launcher

import (
	"flag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
	"time"
)

func parse(t *testing.T, args ...string) *Info {
	fs := flag.NewFlagSet("cc-bridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	info, err := ParseInfo(fs, args)
	require.NoError(t, err)
	return info
}

func TestParseInfoDefaults(t *testing.T) {
	info := parse(t, "-token", "QWMuZUF")

	assert.Equal(t, "127.0.0.1", info.RemoteHost)
	assert.Equal(t, uint(3000), info.RemotePort)
	assert.Equal(t, "127.0.0.1:58430", info.GameAddr)
	assert.Equal(t, 256, info.QueueSize)
	assert.Equal(t, 10*time.Minute, info.PendingTTL)
	assert.Equal(t, 256, info.RetryLimit)
	assert.Equal(t, time.Second, info.ReconnectDelay)
	assert.NoError(t, info.Validate())
}

func TestParseInfoOverrides(t *testing.T) {
	info := parse(t,
		"-remote-host", "10.0.0.2",
		"-remote-port", "4000",
		"-token", "abc",
		"-game-addr", "127.0.0.1:6000",
		"-pending-ttl", "30s",
		"-retry-limit", "8",
	)
	require.NoError(t, info.Validate())

	cfg := info.BridgeConfig()
	assert.Equal(t, "10.0.0.2", cfg.Remote.Host)
	assert.Equal(t, uint16(4000), cfg.Remote.Port)
	assert.Equal(t, "127.0.0.1:6000", cfg.Game.Addr)
	assert.Equal(t, 30*time.Second, cfg.Game.PendingTTL)
	assert.Equal(t, 8, cfg.Game.RetryLimit)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing token", nil, "--token is required and cannot be empty"},
		{"no remote needs no token", []string{"-no-remote"}, ""},
		{"port zero", []string{"-token", "x", "-remote-port", "0"}, "--remote-port must be a valid port, got 0"},
		{"port too large", []string{"-token", "x", "-remote-port", "70000"}, "--remote-port must be a valid port, got 70000"},
		{"queue size", []string{"-token", "x", "-queue-size", "0"}, "--queue-size must be at least 1, got 0"},
		{"ttl", []string{"-token", "x", "-pending-ttl", "0s"}, "--pending-ttl must be positive, got 0s"},
		{"retry limit", []string{"-token", "x", "-retry-limit", "0"}, "--retry-limit must be at least 1, got 0"},
		{"empty game addr", []string{"-no-remote", "-game-addr", ""}, "--game-addr cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parse(t, tt.args...).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestParseInfoRejectsUnknownFlag(t *testing.T) {
	fs := flag.NewFlagSet("cc-bridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	_, err := ParseInfo(fs, []string{"-unknown", "1"})
	assert.Error(t, err)
}
