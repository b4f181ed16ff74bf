package service

import "sync"

// GroupLocks serializes mutations per group. All transaction lifecycle
// operations and membership changes for a group run under its lock, so the
// ledger apply/revert protocol never interleaves within one group.
type GroupLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// NewGroupLocks creates an empty lock registry.
func NewGroupLocks() *GroupLocks {
	return &GroupLocks{m: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given group, creating it on first use.
// The returned function releases the lock.
func (l *GroupLocks) Lock(groupID string) func() {
	l.mu.Lock()
	gm, ok := l.m[groupID]
	if !ok {
		gm = &sync.Mutex{}
		l.m[groupID] = gm
	}
	l.mu.Unlock()

	gm.Lock()
	return gm.Unlock
}
