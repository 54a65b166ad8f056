package game

import "sync/atomic"

// Stats is a snapshot of the game side counters. Counters accumulate across connections.
type Stats struct {
	CommandsSent      uint64
	ResultsReceived   uint64
	Correlated        uint64
	CorrelationMisses uint64
	RetriesQueued     uint64
	RetriesDropped    uint64
	Replays           uint64
	ReplayMisses      uint64
	DecodeFailures    uint64
	Evictions         uint64
}

type counters struct {
	commandsSent      atomic.Uint64
	resultsReceived   atomic.Uint64
	correlated        atomic.Uint64
	correlationMisses atomic.Uint64
	retriesQueued     atomic.Uint64
	retriesDropped    atomic.Uint64
	replays           atomic.Uint64
	replayMisses      atomic.Uint64
	decodeFailures    atomic.Uint64
	evictions         atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		CommandsSent:      c.commandsSent.Load(),
		ResultsReceived:   c.resultsReceived.Load(),
		Correlated:        c.correlated.Load(),
		CorrelationMisses: c.correlationMisses.Load(),
		RetriesQueued:     c.retriesQueued.Load(),
		RetriesDropped:    c.retriesDropped.Load(),
		Replays:           c.replays.Load(),
		ReplayMisses:      c.replayMisses.Load(),
		DecodeFailures:    c.decodeFailures.Load(),
		Evictions:         c.evictions.Load(),
	}
}
