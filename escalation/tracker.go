package escalation

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/warden-chat/warden/event"
)

// Tracker computes escalation multipliers from stored violation history.
type Tracker struct {
	cfg    Config
	store  HistoryStore
	logger *slog.Logger

	now func() time.Time
}

func NewTracker(store HistoryStore, cfg Config, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		cfg:    cfg.withDefaults(),
		store:  store,
		logger: logger.With("component", "escalation"),
		now:    time.Now,
	}
}

// Record appends one enforcement action to the actor's history.
func (t *Tracker) Record(ctx context.Context, key event.ActorKey, action, ruleName, reason string) error {
	return t.store.Append(ctx, ActionRecord{
		ActorID:    key.ActorID,
		GuildID:    key.GuildID,
		Action:     action,
		RuleName:   ruleName,
		Reason:     reason,
		RecordedAt: t.now(),
	})
}

// History returns the stored action records for an actor, oldest first.
func (t *Tracker) History(ctx context.Context, key event.ActorKey) ([]ActionRecord, error) {
	return t.store.List(ctx, key)
}

// RecentViolations counts records within the escalation window. Used by the
// engine to snapshot history into the evaluation Context.
func (t *Tracker) RecentViolations(ctx context.Context, key event.ActorKey) int {
	recs, err := t.store.List(ctx, key)
	if err != nil {
		t.logger.Warn("history read failed", "err", err, "actor", key.ActorID, "guild", key.GuildID)
		return 0
	}
	cutoff := t.now().Add(-t.cfg.Window)
	n := 0
	for _, r := range recs {
		if r.RecordedAt.After(cutoff) {
			n++
		}
	}
	return n
}

// Multiplier computes the escalation multiplier for an actor:
//
//	raw = 1 + K*ln(1+count), capped at MaxMultiplier
//
// where count is the number of violations within the window. Decay is applied
// lazily at read time: each record contributes DecayBase^minutesSince to a
// risk accumulator, and when the accumulated risk has decayed below Epsilon
// the history is cleared and the multiplier resets to 1.0. No background task
// is needed for the multiplier to reflect elapsed time.
func (t *Tracker) Multiplier(ctx context.Context, key event.ActorKey) float64 {
	recs, err := t.store.List(ctx, key)
	if err != nil {
		t.logger.Warn("history read failed", "err", err, "actor", key.ActorID, "guild", key.GuildID)
		return 1.0
	}
	if len(recs) == 0 {
		return 1.0
	}

	now := t.now()
	var risk float64
	count := 0
	cutoff := now.Add(-t.cfg.Window)
	for _, r := range recs {
		minutes := now.Sub(r.RecordedAt).Minutes()
		if minutes < 0 {
			minutes = 0
		}
		risk += math.Pow(t.cfg.DecayBase, minutes)
		if r.RecordedAt.After(cutoff) {
			count++
		}
	}

	if risk < t.cfg.Epsilon {
		if err := t.store.Clear(ctx, key); err != nil {
			t.logger.Warn("history clear failed", "err", err, "actor", key.ActorID, "guild", key.GuildID)
		}
		return 1.0
	}
	if count == 0 {
		return 1.0
	}

	raw := 1 + t.cfg.K*math.Log(1+float64(count))
	if raw > t.cfg.MaxMultiplier {
		raw = t.cfg.MaxMultiplier
	}
	return raw
}

// Run executes the periodic retention sweep until the context is canceled.
// The sweep is memory-bound hygiene only; multiplier correctness never
// depends on it.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := t.now().Add(-t.cfg.Retention)
			evicted, err := t.store.Sweep(ctx, cutoff)
			if err != nil {
				t.logger.Warn("history sweep failed", "err", err)
				continue
			}
			if evicted > 0 {
				t.logger.Debug("history sweep complete", "evicted", evicted)
			}
		}
	}
}
