package realtime

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Presence owns the identity-to-connections mapping. An identity is online
// iff it has at least one registered connection. All state is process-local
// and rebuilt from zero on restart.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]map[*Client]struct{}
}

func NewPresence() *Presence {
	return &Presence{
		conns: make(map[string]map[*Client]struct{}),
	}
}

// Register adds the connection under its identity and reports whether this
// was the identity's first connection. Idempotent per connection. Anonymous
// connections are rejected.
func (p *Presence) Register(c *Client) bool {
	if c.userID == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		p.conns[c.userID] = set
	}
	set[c] = struct{}{}
	return !ok
}

// Deregister removes the connection and reports whether its identity went
// offline as a result. Safe to call for connections that were never
// registered.
func (p *Presence) Deregister(c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[c.userID]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}

	delete(set, c)
	if len(set) == 0 {
		delete(p.conns, c.userID)
		return true
	}
	return false
}

func (p *Presence) IsOnline(identity string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns[identity]) > 0
}

// ConnectionsFor returns the identity's live connections, empty if offline.
func (p *Presence) ConnectionsFor(identity string) []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return lo.Keys(p.conns[identity])
}

// Online returns the sorted set of online identities.
func (p *Presence) Online() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := lo.Keys(p.conns)
	sort.Strings(ids)
	return ids
}

// Clients returns every registered connection across all identities.
func (p *Presence) Clients() []*Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var all []*Client
	for _, set := range p.conns {
		all = append(all, lo.Keys(set)...)
	}
	return all
}
