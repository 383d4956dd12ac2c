package audit

import (
	"context"
	"sync"
	"time"

	"keyvault.org/internal/ids"
	"keyvault.org/internal/obs"
)

const appendAttempts = 3

// Recorder persists audit records as a non-blocking side effect of access
// decisions. A write failure is retried a bounded number of times, counted
// and logged to the operational channel, and never surfaced to the caller or
// allowed to overturn a decision already made.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder constructs a Recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (r *Recorder) WithClock(fn func() time.Time) *Recorder {
	if fn != nil {
		r.now = fn
	}
	return r
}

// Record writes one audit entry. The write runs on a detached context so an
// in-flight client disconnect cannot cancel it; audit completeness matters
// more than audit latency.
func (r *Recorder) Record(ctx context.Context, rec *Record) {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = r.now().UTC()
	}
	detached := context.WithoutCancel(ctx)

	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		if err = r.store.Append(detached, rec); err == nil {
			obs.ObserveAccessDecision(string(rec.Result))
			return
		}
	}
	obs.IncAuditWriteFailure()
	obs.LogRequest(map[string]any{
		"level":  "error",
		"msg":    "audit record dropped",
		"action": rec.Action,
		"result": string(rec.Result),
		"error":  err.Error(),
	})
}

// MemoryStore keeps records in process, for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores a copy of the record.
func (s *MemoryStore) Append(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	copied.PermissionsUsed = append([]string(nil), rec.PermissionsUsed...)
	s.records = append(s.records, &copied)
	return nil
}

// Records returns a snapshot of everything appended so far.
func (s *MemoryStore) Records() []*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, len(s.records))
	copy(out, s.records)
	return out
}
