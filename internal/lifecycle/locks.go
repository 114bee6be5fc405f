package lifecycle

import (
	"context"
	"sync"
)

// itemLocks serialises operations per item. Entries are dropped once nobody
// holds or waits for them.
type itemLocks struct {
	mu    sync.Mutex
	locks map[int64]*itemLock
}

type itemLock struct {
	sem  chan struct{}
	refs int
}

// acquire blocks until the item's lock is held or ctx is done.
func (l *itemLocks) acquire(ctx context.Context, itemID int64) (func(), error) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*itemLock)
	}
	il, ok := l.locks[itemID]
	if !ok {
		il = &itemLock{sem: make(chan struct{}, 1)}
		l.locks[itemID] = il
	}
	il.refs++
	l.mu.Unlock()

	select {
	case il.sem <- struct{}{}:
		return func() {
			<-il.sem
			l.release(itemID, il)
		}, nil
	case <-ctx.Done():
		l.release(itemID, il)
		return nil, ctx.Err()
	}
}

func (l *itemLocks) release(itemID int64, il *itemLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	il.refs--
	if il.refs == 0 {
		delete(l.locks, itemID)
	}
}

func (l *itemLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
