// Package detector implements the individual risk scorers which feed the
// moderation engine: content pattern matching, spam frequency/duplication,
// threat (URL/domain) analysis, and actor behavior heuristics.
//
// Detectors are deterministic: the same Context and accumulated actor state
// always produce the same Signal. Scores are normalized to [0,1] and carry
// human-readable evidence strings which end up in Decision reasons.
package detector

import (
	"fmt"
	"log/slog"

	"github.com/warden-chat/warden/event"
)

type Category string

const (
	CategoryContent  Category = "content"
	CategorySpam     Category = "spam"
	CategoryThreat   Category = "threat"
	CategoryBehavior Category = "behavior"
)

// Signal is one detector's normalized verdict for a single message.
type Signal struct {
	Category Category
	// risk score, always in [0,1]
	Score float64
	// short human-readable markers explaining the score
	Evidence []string
}

func (s Signal) Clamped() Signal {
	if s.Score < 0 {
		s.Score = 0
	}
	if s.Score > 1 {
		s.Score = 1
	}
	return s
}

type Detector interface {
	Name() string
	Evaluate(ctx event.Context) Signal
}

// Safe runs a detector and absorbs any panic, so a single broken detector can
// never abort an evaluation. A failed detector scores zero with a marker
// evidence entry. The returned signal is always clamped to [0,1].
func Safe(d Detector, ctx event.Context) (sig Signal) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("detector execution exception", "detector", d.Name(), "err", r)
			sig = Signal{
				Category: Category(d.Name()),
				Score:    0,
				Evidence: []string{fmt.Sprintf("detector_failed:%s", d.Name())},
			}
		}
	}()
	return d.Evaluate(ctx).Clamped()
}
