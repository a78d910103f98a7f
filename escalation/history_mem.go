package escalation

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/warden-chat/warden/event"
)

// per-actor record list; the mutex serializes one actor's history, distinct
// actors never contend
type actorHistory struct {
	mu   sync.Mutex
	recs []ActionRecord
}

// MemHistoryStore keeps violation history in process memory, bounded per
// actor. Suitable for single-instance deployments and tests.
type MemHistoryStore struct {
	maxRecords int
	data       *xsync.MapOf[event.ActorKey, *actorHistory]
}

var _ HistoryStore = (*MemHistoryStore)(nil)

func NewMemHistoryStore(maxRecords int) *MemHistoryStore {
	if maxRecords <= 0 {
		maxRecords = 50
	}
	return &MemHistoryStore{
		maxRecords: maxRecords,
		data:       xsync.NewMapOf[event.ActorKey, *actorHistory](),
	}
}

func (s *MemHistoryStore) Append(ctx context.Context, rec ActionRecord) error {
	h, _ := s.data.LoadOrCompute(rec.Key(), func() *actorHistory {
		return &actorHistory{}
	})
	h.mu.Lock()
	h.recs = append(h.recs, rec)
	if len(h.recs) > s.maxRecords {
		h.recs = h.recs[len(h.recs)-s.maxRecords:]
	}
	h.mu.Unlock()
	return nil
}

func (s *MemHistoryStore) List(ctx context.Context, key event.ActorKey) ([]ActionRecord, error) {
	h, ok := s.data.Load(key)
	if !ok {
		return nil, nil
	}
	h.mu.Lock()
	out := append([]ActionRecord(nil), h.recs...)
	h.mu.Unlock()
	return out, nil
}

func (s *MemHistoryStore) Clear(ctx context.Context, key event.ActorKey) error {
	s.data.Delete(key)
	return nil
}

func (s *MemHistoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	evicted := 0
	s.data.Range(func(key event.ActorKey, h *actorHistory) bool {
		h.mu.Lock()
		kept := h.recs[:0]
		for _, r := range h.recs {
			if r.RecordedAt.After(cutoff) {
				kept = append(kept, r)
			}
		}
		h.recs = kept
		empty := len(kept) == 0
		h.mu.Unlock()
		if empty {
			s.data.Delete(key)
			evicted++
		}
		return true
	})
	return evicted, nil
}
