package spawn

import (
	"sync"
	"time"
)

// cache is the process-local "current active spawn" view per channel.
// It only ever avoids store round-trips for plain reads; the store's
// conditional writes remain the sole authority for create/capture races.
type cache struct {
	mu        sync.RWMutex
	byChannel map[int64]*Spawn
}

func newCache() *cache {
	return &cache{byChannel: make(map[int64]*Spawn)}
}

// get returns the cached spawn for a channel. An entry past its expiry
// is treated as a miss: the cache must never make an expired spawn look
// alive.
func (c *cache) get(channelId int64, now time.Time) (*Spawn, bool) {
	c.mu.RLock()
	s, ok := c.byChannel[channelId]
	c.mu.RUnlock()
	if !ok || s.Expired(now) {
		return nil, false
	}
	return s, true
}

func (c *cache) put(s *Spawn) {
	c.mu.Lock()
	c.byChannel[s.ChannelId] = s
	c.mu.Unlock()
}

func (c *cache) invalidate(channelId int64) {
	c.mu.Lock()
	delete(c.byChannel, channelId)
	c.mu.Unlock()
}

func (c *cache) clear() {
	c.mu.Lock()
	c.byChannel = make(map[int64]*Spawn)
	c.mu.Unlock()
}
