package protocol

// RemoteInbound is an effect request delivered by the remote service.
type RemoteInbound struct {
	PlayerId string `json:"playerId"`
	Code     string `json:"code"`
}

// RemoteOutbound reports the outcome of an effect back to the remote service.
// Sender is currently always empty.
type RemoteOutbound struct {
	PlayerId string `json:"playerId"`
	Code     string `json:"code"`
	Time     int64  `json:"time"`
	Sender   string `json:"sender"`
}

// NewRemoteOutbound builds the reply for a correlated command and its result.
// ok is false when the command has no code or no target to report against.
func NewRemoteOutbound(cmd Command, res Result) (msg RemoteOutbound, ok bool) {
	target, hasTarget := cmd.FirstTarget()
	if !hasTarget || cmd.Code == nil {
		return RemoteOutbound{}, false
	}

	return RemoteOutbound{
		PlayerId: target.Id,
		Code:     *cmd.Code,
		Time:     res.TimeRemaining,
		Sender:   "",
	}, true
}

// NewReplay rebuilds the remote request that produced cmd, so it can be issued again.
func NewReplay(cmd Command) (msg RemoteInbound, ok bool) {
	target, hasTarget := cmd.FirstTarget()
	if !hasTarget || cmd.Code == nil {
		return RemoteInbound{}, false
	}

	return RemoteInbound{
		PlayerId: target.Id,
		Code:     *cmd.Code,
	}, true
}
