// Package escalation tracks per-(actor,guild) violation history and turns it
// into a confidence multiplier for repeat offenders. History lives in a
// pluggable store (in-memory or redis); the multiplier math is store-agnostic
// and applies decay lazily at read time, so it reflects elapsed time without
// needing a background recompute.
package escalation

import (
	"context"
	"time"

	"github.com/warden-chat/warden/event"
)

// ActionRecord is one enforcement action taken against an actor. Records are
// appended on every non-NONE decision and pruned by retention age and by a
// per-actor cap (oldest evicted first).
type ActionRecord struct {
	ActorID    string    `json:"actor_id"`
	GuildID    string    `json:"guild_id"`
	Action     string    `json:"action"`
	RuleName   string    `json:"rule_name,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

func (r ActionRecord) Key() event.ActorKey {
	return event.ActorKey{ActorID: r.ActorID, GuildID: r.GuildID}
}

// HistoryStore persists violation history per actor key.
type HistoryStore interface {
	Append(ctx context.Context, rec ActionRecord) error
	// List returns records newest-last. Order by RecordedAt ascending.
	List(ctx context.Context, key event.ActorKey) ([]ActionRecord, error)
	Clear(ctx context.Context, key event.ActorKey) error
	// Sweep drops all records older than cutoff, returning how many keys were
	// fully evicted. Stores with server-side expiry may no-op.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

type Config struct {
	// violations within this window count toward the multiplier
	Window time.Duration
	// multiplier curve steepness: raw = 1 + K*ln(1+count)
	K float64
	// cap on the multiplier
	MaxMultiplier float64
	// per-minute decay base applied to the risk accumulator at read time
	DecayBase float64
	// decayed risk below this clears history and resets the multiplier
	Epsilon float64
	// records older than this are swept regardless of count
	Retention time.Duration
	// background sweep cadence
	SweepInterval time.Duration
	// bounded history length per actor
	MaxRecords int
}

func (c Config) withDefaults() Config {
	if c.Window == 0 {
		c.Window = 7 * 24 * time.Hour
	}
	if c.K == 0 {
		c.K = 0.3
	}
	if c.MaxMultiplier == 0 {
		c.MaxMultiplier = 3.0
	}
	if c.DecayBase == 0 {
		c.DecayBase = 0.95
	}
	if c.Epsilon == 0 {
		c.Epsilon = 0.1
	}
	if c.Retention == 0 {
		c.Retention = 14 * 24 * time.Hour
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = 5 * time.Minute
	}
	if c.MaxRecords == 0 {
		c.MaxRecords = 50
	}
	return c
}
