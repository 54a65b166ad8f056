package main

import (
	"cc-bridge/protocol"
)

// Responder decides how the emulated game answers each command.
type Responder struct {
	// Every RetryEvery-th command is answered with Retry followed by a KeepAlive,
	// which makes the bridge reissue it. Zero disables retries.
	RetryEvery    int
	TimeRemaining int64

	received int
}

func (r *Responder) Answer(cmd protocol.Command) []protocol.Result {
	r.received++

	if r.RetryEvery > 0 && r.received%r.RetryEvery == 0 {
		return []protocol.Result{
			{Id: cmd.Id, Status: protocol.ResultStatusRetry, Type: protocol.ResultTypeEffectRequest},
			KeepAlive(),
		}
	}

	return []protocol.Result{
		{
			Id:            cmd.Id,
			Status:        protocol.ResultStatusSuccess,
			TimeRemaining: r.TimeRemaining,
			Type:          protocol.ResultTypeEffectRequest,
		},
	}
}

func KeepAlive() protocol.Result {
	return protocol.Result{Status: protocol.ResultStatusSuccess, Type: protocol.ResultTypeKeepAlive}
}
