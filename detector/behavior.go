package detector

import (
	"fmt"
	"time"

	"github.com/warden-chat/warden/event"
)

type BehaviorConfig struct {
	// accounts younger than this are considered suspicious
	NewAccountAge time.Duration
	// messages per minute above which the rate component fires
	RateThreshold float64
	// violation count at which the history component saturates
	ViolationSaturation int

	// component weights; must sum to 1
	AccountAgeWeight float64
	RateWeight       float64
	TrustWeight      float64
	HistoryWeight    float64
}

func (c BehaviorConfig) withDefaults() BehaviorConfig {
	if c.NewAccountAge == 0 {
		c.NewAccountAge = 7 * 24 * time.Hour
	}
	if c.RateThreshold == 0 {
		c.RateThreshold = 10
	}
	if c.ViolationSaturation == 0 {
		c.ViolationSaturation = 5
	}
	if c.AccountAgeWeight == 0 && c.RateWeight == 0 && c.TrustWeight == 0 && c.HistoryWeight == 0 {
		c.AccountAgeWeight = 0.35
		c.RateWeight = 0.25
		c.TrustWeight = 0.2
		c.HistoryWeight = 0.2
	}
	return c
}

// BehaviorDetector scores actor-level heuristics: account age, sustained
// message rate, trust score, and recent violation history (snapshotted into
// the Context by the engine).
type BehaviorDetector struct {
	cfg BehaviorConfig
}

func NewBehaviorDetector(cfg BehaviorConfig) *BehaviorDetector {
	return &BehaviorDetector{cfg: cfg.withDefaults()}
}

func (d *BehaviorDetector) Name() string { return string(CategoryBehavior) }

func (d *BehaviorDetector) Evaluate(ctx event.Context) Signal {
	var score float64
	var evidence []string

	if ctx.AccountAge < d.cfg.NewAccountAge {
		// younger accounts score higher, linearly down to zero at the threshold
		frac := 1 - ctx.AccountAge.Seconds()/d.cfg.NewAccountAge.Seconds()
		score += d.cfg.AccountAgeWeight * frac
		evidence = append(evidence, fmt.Sprintf("behavior:new_account:%s", ctx.AccountAge.Round(time.Hour)))
	}

	if ctx.MessageRate > d.cfg.RateThreshold {
		frac := (ctx.MessageRate - d.cfg.RateThreshold) / d.cfg.RateThreshold
		if frac > 1 {
			frac = 1
		}
		score += d.cfg.RateWeight * frac
		evidence = append(evidence, fmt.Sprintf("behavior:high_rate:%.1f/min", ctx.MessageRate))
	}

	if distrust := 1 - ctx.TrustScore; distrust > 0 {
		score += d.cfg.TrustWeight * distrust
		if ctx.TrustScore < 0.5 {
			evidence = append(evidence, fmt.Sprintf("behavior:low_trust:%.2f", ctx.TrustScore))
		}
	}

	if ctx.RecentViolations > 0 {
		frac := float64(ctx.RecentViolations) / float64(d.cfg.ViolationSaturation)
		if frac > 1 {
			frac = 1
		}
		score += d.cfg.HistoryWeight * frac
		evidence = append(evidence, fmt.Sprintf("behavior:recent_violations:%d", ctx.RecentViolations))
	}

	return Signal{Category: CategoryBehavior, Score: score, Evidence: evidence}
}
