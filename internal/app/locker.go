package app

import (
	"sync"

	cmap "github.com/orcaman/concurrent-map"
)

// locker hands out one mutex per game handle so operations on the same game run one
// at a time while different games proceed in parallel. Entries live only while some
// caller holds or waits for them.
type locker struct {
	mutexes cmap.ConcurrentMap
}

// lockEntry.refs is guarded by the map shard lock, mu by itself.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLocker() *locker {
	return &locker{mutexes: cmap.New()}
}

// Lock blocks until the handle is free and returns its unlock function.
func (l *locker) Lock(gameID string) func() {
	v := l.mutexes.Upsert(gameID, nil, func(exist bool, valueInMap interface{}, _ interface{}) interface{} {
		entry, _ := valueInMap.(*lockEntry)
		if !exist || entry == nil {
			entry = &lockEntry{}
		}
		entry.refs++
		return entry
	})
	entry := v.(*lockEntry)
	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mutexes.RemoveCb(gameID, func(_ string, _ interface{}, _ bool) bool {
			entry.refs--
			return entry.refs == 0
		})
	}
}

// size reports how many handles currently have an entry.
func (l *locker) size() int {
	return l.mutexes.Count()
}
