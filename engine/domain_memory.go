package engine

import (
	"sync"
	"time"
)

type memoryEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last produced a page for each host.
// Entries expire after the TTL; a background loop prunes them hourly.
type DomainMemory struct {
	store    sync.Map // host -> *memoryEntry
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewDomainMemory creates a DomainMemory and starts its cleanup loop.
func NewDomainMemory(ttl time.Duration) *DomainMemory {
	dm := &DomainMemory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go dm.cleanupLoop(time.Hour)
	return dm
}

// Get returns the remembered engine for host, or "" if none or expired.
func (dm *DomainMemory) Get(host string) string {
	val, ok := dm.store.Load(host)
	if !ok {
		return ""
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		dm.store.Delete(host)
		return ""
	}
	return entry.engineName
}

func (dm *DomainMemory) Set(host, engineName string) {
	dm.store.Store(host, &memoryEntry{
		engineName: engineName,
		expiresAt:  time.Now().Add(dm.ttl),
	})
}

func (dm *DomainMemory) Delete(host string) {
	dm.store.Delete(host)
}

// Stop terminates the cleanup loop. It is safe to call more than once.
func (dm *DomainMemory) Stop() {
	dm.stopOnce.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) prune(now time.Time) {
	dm.store.Range(func(key, value any) bool {
		if now.After(value.(*memoryEntry).expiresAt) {
			dm.store.Delete(key)
		}
		return true
	})
}

func (dm *DomainMemory) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case now := <-ticker.C:
			dm.prune(now)
		}
	}
}
