package detector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warden-chat/warden/event"
)

func testContext(content string) event.Context {
	return event.Context{
		Content:    content,
		ActorID:    "actor-1",
		GuildID:    "guild-1",
		ChannelID:  "chan-1",
		Timestamp:  time.Now(),
		AccountAge: 400 * 24 * time.Hour,
		TrustScore: 0.9,
	}
}

type panicDetector struct{}

func (panicDetector) Name() string                      { return "panicky" }
func (panicDetector) Evaluate(ctx event.Context) Signal { panic("boom") }

type wildDetector struct{ score float64 }

func (d wildDetector) Name() string { return "wild" }
func (d wildDetector) Evaluate(ctx event.Context) Signal {
	return Signal{Category: CategoryContent, Score: d.score}
}

func TestSafeAbsorbsPanic(t *testing.T) {
	assert := assert.New(t)

	sig := Safe(panicDetector{}, testContext("anything"))
	assert.Equal(0.0, sig.Score)
	assert.Contains(sig.Evidence, "detector_failed:panicky")
}

func TestSafeClampsScore(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1.0, Safe(wildDetector{score: 3.7}, testContext("x")).Score)
	assert.Equal(0.0, Safe(wildDetector{score: -0.4}, testContext("x")).Score)
}

func TestContentDetector(t *testing.T) {
	assert := assert.New(t)
	d := NewContentDetector(ContentConfig{})

	sig := d.Evaluate(testContext("hello, how are you"))
	assert.Equal(CategoryContent, sig.Category)
	assert.Equal(0.0, sig.Score)
	assert.Empty(sig.Evidence)

	sig = d.Evaluate(testContext("FREE NITRO CLICK HERE http://bit.ly/x"))
	assert.Greater(sig.Score, 0.5)
	assert.Contains(sig.Evidence, "content:phishing:free-nitro")
	assert.Contains(sig.Evidence, "content:phishing:click-bait")

	// leetspeak folds to the same pattern
	sig = d.Evaluate(testContext("fr33 n1tro for everyone"))
	assert.Contains(sig.Evidence, "content:phishing:free-nitro")
}

func TestSpamDetectorDuplicates(t *testing.T) {
	assert := assert.New(t)
	d := NewSpamDetector(SpamConfig{})

	base := time.Now()
	var last Signal
	for i := 0; i < 15; i++ {
		ctx := testContext("buy my cheap followers at example.com")
		ctx.Timestamp = base.Add(time.Duration(i) * 3 * time.Second)
		last = d.Evaluate(ctx)
	}
	assert.Greater(last.Score, 0.7)
	assert.NotEmpty(last.Evidence)

	// a different actor is unaffected
	other := testContext("buy my cheap followers at example.com")
	other.ActorID = "actor-2"
	assert.Equal(0.0, d.Evaluate(other).Score)
}

func TestSpamDetectorWindowSlides(t *testing.T) {
	assert := assert.New(t)
	d := NewSpamDetector(SpamConfig{})

	base := time.Now()
	for i := 0; i < 12; i++ {
		ctx := testContext("message number " + string(rune('a'+i)))
		ctx.Timestamp = base.Add(time.Duration(i) * time.Second)
		d.Evaluate(ctx)
	}
	// two minutes later the window is empty again
	ctx := testContext("fresh start")
	ctx.Timestamp = base.Add(2 * time.Minute)
	assert.Equal(0.0, d.Evaluate(ctx).Score)
}

func TestSpamDetectorPruneIdle(t *testing.T) {
	assert := assert.New(t)
	d := NewSpamDetector(SpamConfig{})

	ctx := testContext("hello")
	ctx.Timestamp = time.Now().Add(-time.Hour)
	d.Evaluate(ctx)

	assert.Equal(1, d.PruneIdle(10*time.Minute))
	assert.Equal(0, d.PruneIdle(10*time.Minute))
}

func TestThreatDetector(t *testing.T) {
	assert := assert.New(t)
	d := NewThreatDetector(ThreatConfig{})

	sig := d.Evaluate(testContext("hello, how are you"))
	assert.Equal(0.0, sig.Score)

	sig = d.Evaluate(testContext("claim it at http://bit.ly/x"))
	assert.Greater(sig.Score, 0.5)
	assert.Contains(sig.Evidence, "threat:malicious_domain:bit.ly")

	sig = d.Evaluate(testContext("login via https://discrod.com/account"))
	assert.Greater(sig.Score, 0.0)
	assert.Contains(sig.Evidence, "threat:typosquat:discrod.com~discord.com")

	// exact legitimate domain is not a typosquat
	sig = d.Evaluate(testContext("see https://discord.com/channels/1"))
	assert.Equal(0.0, sig.Score)
}

func TestBehaviorDetector(t *testing.T) {
	assert := assert.New(t)
	d := NewBehaviorDetector(BehaviorConfig{})

	// established, trusted, quiet account
	sig := d.Evaluate(testContext("hi"))
	assert.Less(sig.Score, 0.1)

	// brand new account with prior violations and a high message rate
	ctx := testContext("hi")
	ctx.AccountAge = 0
	ctx.TrustScore = 0.1
	ctx.MessageRate = 25
	ctx.RecentViolations = 5
	sig = d.Evaluate(ctx)
	assert.Greater(sig.Score, 0.8)
	assert.Contains(sig.Evidence, "behavior:recent_violations:5")
}

func TestSignalClamped(t *testing.T) {
	assert := assert.New(t)
	for _, raw := range []float64{-1, 0, 0.5, 1, 42} {
		s := Signal{Score: raw}.Clamped()
		assert.GreaterOrEqual(s.Score, 0.0)
		assert.LessOrEqual(s.Score, 1.0)
	}
}
