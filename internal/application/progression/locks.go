package progression

import (
	"sync"

	"github.com/planhive/planhive/internal/domain/shared"
)

// userLocks serializes progression runs per user. Runs for different users
// proceed in parallel; two runs for the same user never interleave, which is
// what keeps unlock uniqueness and the XP ledger consistent without relying
// on database-level locking.
type userLocks struct {
	mu    sync.Mutex
	locks map[shared.UserID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[shared.UserID]*userLock)}
}

// acquire blocks until the per-user lock is held and returns the release
// function. Lock entries are reference counted and removed once the last
// holder releases, so the map does not grow with the user population.
func (l *userLocks) acquire(userID shared.UserID) (release func()) {
	l.mu.Lock()
	entry, ok := l.locks[userID]
	if !ok {
		entry = &userLock{}
		l.locks[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
