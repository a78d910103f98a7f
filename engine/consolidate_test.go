package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warden-chat/warden/detector"
	"github.com/warden-chat/warden/rules"
)

func fixtureEngine(t *testing.T) *Engine {
	t.Helper()
	return EngineTestFixture()
}

func TestConsolidateConfidenceClamped(t *testing.T) {
	assert := assert.New(t)
	eng := fixtureEngine(t)

	// rule weight near the top of its range pushes raw confidence above 1
	r := rules.Rule{
		Name:     "overweight",
		Logic:    rules.LogicAnd,
		Severity: rules.SeverityMedium,
		Weight:   2.0,
		Enabled:  true,
		Conditions: []rules.Condition{
			{Kind: rules.KindContent, Op: rules.OpContains, Value: "x", Confidence: 0.9},
		},
	}
	matches := []rules.Match{{Rule: &r, Confidence: 1.8}}
	signals := []detector.Signal{
		{Category: detector.CategoryContent, Score: 1.0},
		{Category: detector.CategoryThreat, Score: 1.0},
		{Category: detector.CategorySpam, Score: 1.0},
		{Category: detector.CategoryBehavior, Score: 1.0},
	}

	d := eng.consolidate(signals, matches, 3.0)
	assert.LessOrEqual(d.Confidence, 1.0)
	assert.GreaterOrEqual(d.Confidence, 0.0)
}

func TestConsolidateWeightRenormalization(t *testing.T) {
	assert := assert.New(t)
	eng := fixtureEngine(t)

	// a single firing category gets its full score, not a diluted one
	signals := []detector.Signal{
		{Category: detector.CategoryContent, Score: 0.8, Evidence: []string{"content:hate:slur"}},
		{Category: detector.CategorySpam, Score: 0},
		{Category: detector.CategoryThreat, Score: 0},
		{Category: detector.CategoryBehavior, Score: 0},
	}
	d := eng.consolidate(signals, nil, 1.0)
	assert.InDelta(0.8, d.Confidence, 0.001)
	assert.Equal(ActionDelete, d.Action)
}

func TestConsolidateSignalOnlyThresholds(t *testing.T) {
	assert := assert.New(t)
	eng := fixtureEngine(t)

	cases := []struct {
		score float64
		want  Action
	}{
		{0.2, ActionNone},
		{0.55, ActionWarn},
		{0.75, ActionDelete},
		{0.95, ActionTimeout},
	}
	for _, c := range cases {
		signals := []detector.Signal{{Category: detector.CategoryContent, Score: c.score}}
		d := eng.consolidate(signals, nil, 1.0)
		assert.Equal(c.want, d.Action, "score %.2f", c.score)
	}
}

func TestConsolidateBumpNeverPastBan(t *testing.T) {
	assert := assert.New(t)
	eng := fixtureEngine(t)

	r := rules.Rule{
		Name:     "worst",
		Logic:    rules.LogicAnd,
		Severity: rules.SeverityVeryHigh,
		Weight:   1.0,
		Enabled:  true,
		Conditions: []rules.Condition{
			{Kind: rules.KindContent, Op: rules.OpContains, Value: "x", Confidence: 1.0},
		},
	}
	matches := []rules.Match{{Rule: &r, Confidence: 1.0}}

	d := eng.consolidate(nil, matches, 3.0)
	assert.Equal(ActionBan, d.Action)
}

func TestConsolidateBumpRaisesOneLevel(t *testing.T) {
	assert := assert.New(t)
	eng := fixtureEngine(t)

	r := rules.Rule{
		Name:     "medium-rule",
		Logic:    rules.LogicAnd,
		Severity: rules.SeverityMedium,
		Weight:   1.0,
		Enabled:  true,
		Conditions: []rules.Condition{
			{Kind: rules.KindContent, Op: rules.OpContains, Value: "x", Confidence: 0.9},
		},
	}
	matches := []rules.Match{{Rule: &r, Confidence: 0.9}}

	// without escalation: medium maps to delete
	d := eng.consolidate(nil, matches, 1.0)
	assert.Equal(ActionDelete, d.Action)

	// with an escalation multiplier pushing confidence over the bump
	// threshold, the action rises one level
	d = eng.consolidate(nil, matches, 1.5)
	assert.Equal(ActionTimeout, d.Action)
	assert.Contains(d.Reasons, "escalation:repeat_offender")
}

func TestConsolidateReasonsDeduped(t *testing.T) {
	assert := assert.New(t)
	eng := fixtureEngine(t)

	signals := []detector.Signal{
		{Category: detector.CategoryContent, Score: 0.6, Evidence: []string{"content:hate:slur", "content:hate:slur"}},
		{Category: detector.CategoryThreat, Score: 0.6, Evidence: []string{"content:hate:slur"}},
	}
	d := eng.consolidate(signals, nil, 1.0)
	count := 0
	for _, r := range d.Reasons {
		if r == "content:hate:slur" {
			count++
		}
	}
	assert.Equal(1, count)
}
