package engine

import (
	"log/slog"
	"time"

	"github.com/warden-chat/warden/rules"
)

// FixtureRules returns the rule set used by the test fixture and the debug
// CLI: a phishing rule, a message-flood rule, and a repeat-offender rule.
func FixtureRules() []rules.Rule {
	return []rules.Rule{
		{
			ID:          "phishing-links",
			Name:        "phishing-links",
			Description: "phishing bait or credential scam",
			Logic:       rules.LogicOr,
			Severity:    rules.SeverityHigh,
			Weight:      1.2,
			Priority:    10,
			Enabled:     true,
			Conditions: []rules.Condition{
				{Kind: rules.KindContent, Op: rules.OpContains, Value: "free nitro", Confidence: 0.9},
				{Kind: rules.KindContent, Op: rules.OpRegex, Value: `(?i)verify your account`, Confidence: 0.8},
			},
		},
		{
			ID:          "message-flood",
			Name:        "message-flood",
			Description: "sustained message flooding",
			Logic:       rules.LogicAnd,
			Severity:    rules.SeverityMedium,
			Weight:      1.0,
			Priority:    5,
			Enabled:     true,
			Conditions: []rules.Condition{
				{Kind: rules.KindFrequency, Op: rules.OpGt, Value: "12", Confidence: 0.6},
			},
		},
		{
			ID:          "repeat-offender",
			Name:        "repeat-offender",
			Description: "extensive recent violation history",
			Logic:       rules.LogicAnd,
			Severity:    rules.SeverityHigh,
			Weight:      1.0,
			Priority:    50,
			Enabled:     true,
			Conditions: []rules.Condition{
				{Kind: rules.KindUserHistory, Op: rules.OpGte, Value: "6", Confidence: 0.9},
			},
		},
	}
}

// EngineTestFixture builds an engine with in-memory stores, default
// detectors, and the fixture rules. Intentionally exported, for use in other
// packages' tests.
func EngineTestFixture() *Engine {
	cfg := DefaultConfig()
	cfg.EvalBudget = Duration(2 * time.Second)
	eng, err := New(cfg, slog.Default(), nil, nil)
	if err != nil {
		panic(err)
	}
	for _, r := range FixtureRules() {
		if err := eng.AddRule(r); err != nil {
			panic(err)
		}
	}
	return eng
}
