package game

import (
	"cc-bridge/protocol"
	"fmt"
	"sync"
	"time"
)

// DefaultPendingTTL is how long a command may wait for its result before it is evicted.
const DefaultPendingTTL = 10 * time.Minute

type pendingEntry struct {
	cmd      protocol.Command
	issuedAt time.Time
}

// PendingTable maps the identifier of every command sent to the game to that command,
// until the matching result arrives. It lives as long as one game connection.
type PendingTable struct {
	mu      sync.Mutex
	entries map[uint32]pendingEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewPendingTable returns an empty table. A ttl <= 0 disables eviction.
func NewPendingTable(ttl time.Duration) *PendingTable {
	return &PendingTable{
		entries: make(map[uint32]pendingEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Insert records cmd under its identifier. Entries older than the TTL are evicted
// first; their identifiers are returned so the caller can report them.
func (p *PendingTable) Insert(cmd protocol.Command) (evicted []uint32, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	if p.ttl > 0 {
		for id, entry := range p.entries {
			if now.Sub(entry.issuedAt) >= p.ttl {
				delete(p.entries, id)
				evicted = append(evicted, id)
			}
		}
	}

	if _, exists := p.entries[cmd.Id]; exists {
		return evicted, fmt.Errorf("command %d is already pending", cmd.Id)
	}

	p.entries[cmd.Id] = pendingEntry{cmd: cmd, issuedAt: now}
	return evicted, nil
}

// Take removes and returns the command stored under id.
func (p *PendingTable) Take(id uint32) (protocol.Command, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	return entry.cmd, ok
}

func (p *PendingTable) Contains(id uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.entries[id]
	return ok
}

func (p *PendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
