package detector

import (
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/warden-chat/warden/event"
	"github.com/warden-chat/warden/keyword"
)

type SpamConfig struct {
	// sliding window for message frequency counting
	Window time.Duration
	// messages within Window above which the frequency sub-score starts rising
	RateThreshold int
	// how many recent messages to keep per actor for duplicate comparison
	RecentMessages int
	// Jaccard similarity at or above which two messages count as near-duplicates
	SimilarityThreshold float64
	// near-duplicate count at which the duplication sub-score starts rising
	DuplicateThreshold int
	// sub-score weights; must sum to 1
	FrequencyWeight   float64
	DuplicationWeight float64
}

func (c SpamConfig) withDefaults() SpamConfig {
	if c.Window == 0 {
		c.Window = 60 * time.Second
	}
	if c.RateThreshold == 0 {
		c.RateThreshold = 8
	}
	if c.RecentMessages == 0 {
		c.RecentMessages = 15
	}
	if c.SimilarityThreshold == 0 {
		c.SimilarityThreshold = 0.8
	}
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = 3
	}
	if c.FrequencyWeight == 0 && c.DuplicationWeight == 0 {
		c.FrequencyWeight = 0.5
		c.DuplicationWeight = 0.5
	}
	return c
}

// per-actor sliding state. The struct-level mutex serializes observations for
// one actor; distinct actors never contend.
type actorActivity struct {
	mu     sync.Mutex
	stamps []time.Time
	recent []string
}

// SpamDetector tracks per-actor message frequency and near-duplicate content.
// It is the one detector with accumulated state; everything is keyed by
// (actor, guild) in a concurrency-safe map and pruned on every observation.
type SpamDetector struct {
	cfg    SpamConfig
	actors *xsync.MapOf[event.ActorKey, *actorActivity]
}

func NewSpamDetector(cfg SpamConfig) *SpamDetector {
	return &SpamDetector{
		cfg:    cfg.withDefaults(),
		actors: xsync.NewMapOf[event.ActorKey, *actorActivity](),
	}
}

func (d *SpamDetector) Name() string { return string(CategorySpam) }

func (d *SpamDetector) Evaluate(ctx event.Context) Signal {
	act, _ := d.actors.LoadOrCompute(ctx.ActorKey(), func() *actorActivity {
		return &actorActivity{}
	})

	act.mu.Lock()
	defer act.mu.Unlock()

	now := ctx.Timestamp
	cutoff := now.Add(-d.cfg.Window)

	// prune the frequency window, then record this message
	kept := act.stamps[:0]
	for _, ts := range act.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	act.stamps = append(kept, now)

	norm := keyword.NormalizeText(ctx.Content)
	dupes := 0
	for _, prev := range act.recent {
		if keyword.TokenJaccard(norm, prev) >= d.cfg.SimilarityThreshold {
			dupes++
		}
	}
	act.recent = append(act.recent, norm)
	if len(act.recent) > d.cfg.RecentMessages {
		act.recent = act.recent[len(act.recent)-d.cfg.RecentMessages:]
	}

	var evidence []string
	var freqScore float64
	if n := len(act.stamps); n > d.cfg.RateThreshold {
		freqScore = float64(n-d.cfg.RateThreshold) / float64(d.cfg.RateThreshold)
		if freqScore > 1 {
			freqScore = 1
		}
		evidence = append(evidence, fmt.Sprintf("spam:frequency:%d/%s", n, d.cfg.Window))
	}

	var dupScore float64
	if dupes >= d.cfg.DuplicateThreshold {
		dupScore = float64(dupes) / float64(d.cfg.RecentMessages)
		if dupScore > 1 {
			dupScore = 1
		}
		evidence = append(evidence, fmt.Sprintf("spam:near_duplicates:%d", dupes))
	}

	score := d.cfg.FrequencyWeight*freqScore + d.cfg.DuplicationWeight*dupScore
	if score > 1 {
		score = 1
	}
	return Signal{Category: CategorySpam, Score: score, Evidence: evidence}
}

// Forget drops accumulated state for one actor, eg after a ban.
func (d *SpamDetector) Forget(key event.ActorKey) {
	d.actors.Delete(key)
}

// PruneIdle evicts actors whose newest observation is older than the given
// age. Called from the engine's background maintenance loop.
func (d *SpamDetector) PruneIdle(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	evicted := 0
	d.actors.Range(func(key event.ActorKey, act *actorActivity) bool {
		act.mu.Lock()
		stale := len(act.stamps) == 0 || act.stamps[len(act.stamps)-1].Before(cutoff)
		act.mu.Unlock()
		if stale {
			d.actors.Delete(key)
			evicted++
		}
		return true
	})
	return evicted
}
