package engine

import (
	"github.com/warden-chat/warden/detector"
	"github.com/warden-chat/warden/keyword"
	"github.com/warden-chat/warden/rules"
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// consolidate merges detector signals, rule matches, and the escalation
// multiplier into the final Decision.
//
// The signal score is a weighted sum over the categories that fired,
// renormalized so quiet categories do not dilute it. The primary rule (if
// any) picks the action through the severity mapping; without one, the
// signal score alone picks warn/delete/timeout through the configured
// thresholds. The escalation multiplier scales confidence, and when the
// multiplied confidence crosses the bump threshold the action is raised one
// level, never past ban. Confidence is clamped to [0,1] no matter how the
// weighted inputs summed.
func (e *Engine) consolidate(signals []detector.Signal, matches []rules.Match, mult float64) Decision {
	var weighted, totalWeight float64
	var reasons []string
	for _, s := range signals {
		reasons = append(reasons, s.Evidence...)
		if s.Score <= 0 {
			continue
		}
		w := e.cfg.CategoryWeights[s.Category]
		if w <= 0 {
			continue
		}
		weighted += w * s.Score
		totalWeight += w
	}
	signalScore := 0.0
	if totalWeight > 0 {
		signalScore = weighted / totalWeight
	}

	var triggered []string
	for _, m := range matches {
		triggered = append(triggered, m.Rule.Name)
		if m.Rule.Description != "" {
			reasons = append(reasons, m.Rule.Description)
		} else {
			reasons = append(reasons, "rule:"+m.Rule.Name)
		}
	}

	var action Action
	var severity rules.Severity
	conf := signalScore

	if primary := rules.Primary(matches); primary != nil {
		severity = primary.Rule.Severity
		action = e.cfg.SeverityActions[severity]
		if c := clamp01(primary.Confidence); c > conf {
			conf = c
		}
	} else {
		switch {
		case signalScore >= e.cfg.TimeoutThreshold:
			action, severity = ActionTimeout, rules.SeverityHigh
		case signalScore >= e.cfg.DeleteThreshold:
			action, severity = ActionDelete, rules.SeverityMedium
		case signalScore >= e.cfg.WarnThreshold:
			action, severity = ActionWarn, rules.SeverityLow
		default:
			return Decision{
				Action:     ActionNone,
				Confidence: clamp01(signalScore),
				Reasons:    keyword.DedupeStrings(reasons),
			}
		}
	}

	conf = clamp01(conf * mult)
	if mult > 1 && conf >= e.cfg.EscalationBumpThreshold {
		if bumped := action.Escalate(); bumped != action {
			action = bumped
			reasons = append(reasons, "escalation:repeat_offender")
		}
	}

	return Decision{
		Action:         action,
		Severity:       string(severity),
		Confidence:     conf,
		Reasons:        keyword.DedupeStrings(reasons),
		TriggeredRules: triggered,
	}
}
