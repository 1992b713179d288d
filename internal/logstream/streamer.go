package logstream

import (
	"context"
	"sync"

	"clipsight/internal/media"
)

// Batch is one delivery to a streaming subscriber. Ended is set once the
// record reached a terminal state and every entry up to that point has been
// delivered.
type Batch struct {
	Entries []media.LogEntry
	Status  media.Status
	Ended   bool
}

// Streamer wakes log subscribers when new progress entries land. It
// implements media.Notifier; wire it with store.SetNotifier before the
// workflow manager starts.
type Streamer struct {
	store *media.Store

	mu      sync.Mutex
	cond    *sync.Cond
	lastSeq map[int64]int64
	ended   map[int64]media.Status
}

// New constructs a streamer over the given store.
func New(store *media.Store) *Streamer {
	s := &Streamer{
		store:   store,
		lastSeq: make(map[int64]int64),
		ended:   make(map[int64]media.Status),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// LogAppended implements media.Notifier.
func (s *Streamer) LogAppended(mediaID int64, entry media.LogEntry) {
	s.mu.Lock()
	if entry.Seq > s.lastSeq[mediaID] {
		s.lastSeq[mediaID] = entry.Seq
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

// StatusChanged implements media.Notifier. Terminal statuses release
// followers; non-terminal changes (a retry back to pending) clear any stale
// end marker.
func (s *Streamer) StatusChanged(record *media.Record) {
	if record == nil {
		return
	}
	s.mu.Lock()
	if record.Status.IsTerminal() {
		s.ended[record.ID] = record.Status
	} else {
		delete(s.ended, record.ID)
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Forget drops cached state for a removed record.
func (s *Streamer) Forget(mediaID int64) {
	s.mu.Lock()
	delete(s.lastSeq, mediaID)
	delete(s.ended, mediaID)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Fetch returns log entries with seq greater than since. When wait is true
// and nothing new is available, Fetch blocks until an entry arrives, the
// record ends, or the context is cancelled.
func (s *Streamer) Fetch(ctx context.Context, mediaID int64, since int64, wait bool) (Batch, error) {
	for {
		entries, err := s.store.LogsSince(ctx, mediaID, since)
		if err != nil {
			return Batch{}, err
		}

		status, ended, err := s.terminalStatus(ctx, mediaID)
		if err != nil {
			return Batch{}, err
		}

		if len(entries) > 0 || ended || !wait {
			return Batch{
				Entries: entries,
				Status:  status,
				Ended:   ended && len(entries) == 0,
			}, nil
		}

		if err := s.waitForChange(ctx, mediaID, since); err != nil {
			return Batch{}, err
		}
	}
}

// terminalStatus reports whether the record has ended, consulting the store
// for records that finished before this streamer existed.
func (s *Streamer) terminalStatus(ctx context.Context, mediaID int64) (media.Status, bool, error) {
	s.mu.Lock()
	if status, ok := s.ended[mediaID]; ok {
		s.mu.Unlock()
		return status, true, nil
	}
	s.mu.Unlock()

	record, err := s.store.GetByID(ctx, mediaID)
	if err != nil {
		return "", false, err
	}
	if !record.Status.IsTerminal() {
		return record.Status, false, nil
	}

	s.mu.Lock()
	s.ended[mediaID] = record.Status
	s.mu.Unlock()
	return record.Status, true, nil
}

func (s *Streamer) waitForChange(ctx context.Context, mediaID int64, since int64) error {
	cancelWait := make(chan struct{})
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.lastSeq[mediaID] > since {
			return nil
		}
		if _, ok := s.ended[mediaID]; ok {
			return nil
		}
		s.cond.Wait()
	}
}
