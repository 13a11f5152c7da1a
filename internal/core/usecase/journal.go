package usecase

import "sync"

// DeletionJournal tracks chunk ids removed from the store whose index
// cleanup has not finished yet. The read path consults it to tell a benign
// in-flight deletion apart from a fatal index/store desynchronization.
type DeletionJournal struct {
	mu      sync.RWMutex
	pending map[string]struct{}
}

func NewDeletionJournal() *DeletionJournal {
	return &DeletionJournal{pending: make(map[string]struct{})}
}

func (j *DeletionJournal) Mark(chunkIDs ...string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, id := range chunkIDs {
		j.pending[id] = struct{}{}
	}
}

func (j *DeletionJournal) Clear(chunkIDs ...string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, id := range chunkIDs {
		delete(j.pending, id)
	}
}

func (j *DeletionJournal) IsPending(chunkID string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, ok := j.pending[chunkID]
	return ok
}
