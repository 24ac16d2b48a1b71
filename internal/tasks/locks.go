package tasks

import "sync"

// slots holds at most one active job per user.
type slots struct {
	mu    sync.Mutex
	taken map[string]string
}

func newSlots() *slots {
	return &slots{taken: make(map[string]string)}
}

// tryAcquire claims the user's slot for jobID. It never blocks.
func (s *slots) tryAcquire(userID, jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.taken[userID]; ok {
		return false
	}
	s.taken[userID] = jobID
	return true
}

// release frees the slot if jobID still holds it.
func (s *slots) release(userID, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken[userID] == jobID {
		delete(s.taken, userID)
	}
}

// active returns the job holding the user's slot.
func (s *slots) active(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.taken[userID]
	return id, ok
}

// keyedMutex serializes work per key. Entries are dropped once nobody holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
