// Package engine wires the moderation pipeline together: detectors, the rule
// set, escalation history, and the decision cache, behind a single Evaluate
// call that always hands the caller a well-formed Decision.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/warden-chat/warden/detector"
	"github.com/warden-chat/warden/escalation"
	"github.com/warden-chat/warden/evalcache"
	"github.com/warden-chat/warden/event"
	"github.com/warden-chat/warden/keyword"
	"github.com/warden-chat/warden/rules"
)

// ActionExecutor is the platform adapter's capability to carry out an
// enforcement action (delete message, timeout, kick, ban). The engine never
// talks to platform APIs directly.
type ActionExecutor interface {
	Execute(ctx context.Context, actorID, guildID string, action Action, reason string) error
}

// MetricsSnapshot is the cheap in-process view of engine activity, for
// embedders without a prometheus scrape.
type MetricsSnapshot struct {
	Evaluations     uint64
	RulesTriggered  uint64
	ActionsExecuted uint64
	CacheSize       int
	CacheHitRate    float64
}

type Engine struct {
	logger    *slog.Logger
	cfg       Config
	detectors []detector.Detector
	spam      *detector.SpamDetector
	ruleset   *rules.RuleSet
	tracker   *escalation.Tracker
	cache     *evalcache.Cache[Decision]
	executor  ActionExecutor

	evaluations     atomic.Uint64
	rulesTriggered  atomic.Uint64
	actionsExecuted atomic.Uint64
}

// New builds an engine from a validated config. A nil history store falls
// back to the in-memory implementation; a nil executor leaves enforcement to
// the caller.
func New(cfg Config, logger *slog.Logger, history escalation.HistoryStore, executor ActionExecutor) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if history == nil {
		history = escalation.NewMemHistoryStore(cfg.Escalation.MaxRecords)
	}

	spam := detector.NewSpamDetector(cfg.Spam)
	e := &Engine{
		logger: logger,
		cfg:    cfg,
		detectors: []detector.Detector{
			detector.NewContentDetector(cfg.Content),
			spam,
			detector.NewThreatDetector(cfg.Threat),
			detector.NewBehaviorDetector(cfg.Behavior),
		},
		spam:     spam,
		ruleset:  rules.NewRuleSet(),
		tracker:  escalation.NewTracker(history, cfg.Escalation, logger),
		executor: executor,
	}
	if cfg.CacheSize > 0 && cfg.CacheTTL.Std() > 0 {
		e.cache = evalcache.New[Decision](cfg.CacheSize, cfg.CacheTTL.Std())
	}
	// a rule change can invalidate any cached decision
	e.ruleset.OnChange(func() {
		if e.cache != nil {
			e.cache.Flush()
		}
	})
	return e, nil
}

// ReplaceDetectors swaps the detector list, for embedders with custom
// detectors. Not safe to call concurrently with Evaluate.
func (e *Engine) ReplaceDetectors(ds ...detector.Detector) {
	e.detectors = ds
}

// Fingerprint derives the cache key for a context: actor, guild, channel,
// and a hash of the content.
func Fingerprint(mc event.Context) string {
	return fmt.Sprintf("%s/%s/%s/%s", mc.ActorID, mc.GuildID, mc.ChannelID, keyword.HashOfString(mc.Content))
}

// Evaluate produces the moderation decision for one message. It honors the
// caller's deadline, applying the configured budget when none is set; on
// expiry it fails open with Decision{Action: NONE, TimedOut: true} rather
// than blocking or erroring. Per-event detector failures are absorbed into
// evidence; Evaluate itself only errors on unrecoverable internal state.
func (e *Engine) Evaluate(ctx context.Context, mc event.Context) (Decision, error) {
	e.evaluations.Add(1)
	start := time.Now()
	defer func() { evalDuration.Observe(time.Since(start).Seconds()) }()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.EvalBudget.Std())
		defer cancel()
	}

	// the computation runs detached from the caller's deadline: if this
	// caller times out, waiters on the same single-flight key still get a
	// result, and the cache still gets populated
	bg := context.WithoutCancel(ctx)
	key := Fingerprint(mc)
	ch := make(chan Decision, 1)
	go func() {
		var d Decision
		if e.cache != nil {
			d, _, _ = e.cache.GetOrCompute(key, func() (Decision, error) {
				return e.compute(bg, mc), nil
			})
		} else {
			d = e.compute(bg, mc)
		}
		ch <- d
	}()

	select {
	case d := <-ch:
		e.afterDecision(bg, mc, d)
		evalCount.WithLabelValues(string(d.Action)).Inc()
		return d, nil
	case <-ctx.Done():
		evalTimeoutCount.Inc()
		evalCount.WithLabelValues(string(ActionNone)).Inc()
		e.logger.Warn("evaluation timed out, failing open",
			"actor", mc.ActorID, "guild", mc.GuildID, "budget", e.cfg.EvalBudget.Std())
		return Decision{
			Action:   ActionNone,
			TimedOut: true,
			Reasons:  []string{"evaluation_timeout"},
		}, nil
	}
}

// compute runs the full pipeline: history snapshot, detectors, rules,
// escalation, consolidation.
func (e *Engine) compute(ctx context.Context, mc event.Context) Decision {
	key := mc.ActorKey()
	mc.RecentViolations = e.tracker.RecentViolations(ctx, key)

	signals := make([]detector.Signal, 0, len(e.detectors))
	for _, d := range e.detectors {
		sig := detector.Safe(d, mc)
		for _, ev := range sig.Evidence {
			if strings.HasPrefix(ev, "detector_failed:") {
				detectorFailureCount.WithLabelValues(d.Name()).Inc()
			}
		}
		signals = append(signals, sig)
	}

	matches := e.ruleset.Eval(mc)
	if len(matches) > 0 {
		e.rulesTriggered.Add(uint64(len(matches)))
		for _, m := range matches {
			ruleMatchCount.WithLabelValues(m.Rule.Name).Inc()
		}
	}

	mult := e.tracker.Multiplier(ctx, key)
	return e.consolidate(signals, matches, mult)
}

// afterDecision records the violation and hands the action to the executor.
// Runs on every non-NONE decision, cached or freshly computed. Failures here
// are logged and counted, never surfaced to the caller.
func (e *Engine) afterDecision(ctx context.Context, mc event.Context, d Decision) {
	if d.Action == ActionNone {
		return
	}
	key := mc.ActorKey()
	ruleName := ""
	if len(d.TriggeredRules) > 0 {
		ruleName = d.TriggeredRules[0]
	}
	reason := strings.Join(d.Reasons, "; ")

	if err := e.tracker.Record(ctx, key, string(d.Action), ruleName, reason); err != nil {
		e.logger.Error("recording violation failed", "err", err, "actor", mc.ActorID, "guild", mc.GuildID)
	}
	if e.executor != nil {
		actionExecuteCount.WithLabelValues(string(d.Action)).Inc()
		if err := e.executor.Execute(ctx, mc.ActorID, mc.GuildID, d.Action, reason); err != nil {
			actionExecuteErrorCount.Inc()
			e.logger.Error("action execution failed", "err", err, "actor", mc.ActorID, "action", d.Action)
		} else {
			e.actionsExecuted.Add(1)
		}
	}
}

// AddRule validates and registers a rule, flushing the decision cache.
func (e *Engine) AddRule(r rules.Rule) error {
	return e.ruleset.Add(r)
}

// RemoveRule drops a rule by ID, flushing the decision cache if it existed.
func (e *Engine) RemoveRule(id string) {
	e.ruleset.Remove(id)
}

// RuleCount returns how many rules are registered.
func (e *Engine) RuleCount() int {
	return e.ruleset.Len()
}

// LoadRules registers every rule from a YAML rules file.
func (e *Engine) LoadRules(path string) error {
	return e.ruleset.LoadFromFileYAML(path)
}

// GetActionHistory returns the retained enforcement records for one actor in
// one guild, oldest first.
func (e *Engine) GetActionHistory(ctx context.Context, actorID, guildID string) ([]escalation.ActionRecord, error) {
	return e.tracker.History(ctx, event.ActorKey{ActorID: actorID, GuildID: guildID})
}

func (e *Engine) Metrics() MetricsSnapshot {
	snap := MetricsSnapshot{
		Evaluations:     e.evaluations.Load(),
		RulesTriggered:  e.rulesTriggered.Load(),
		ActionsExecuted: e.actionsExecuted.Load(),
	}
	if e.cache != nil {
		snap.CacheSize = e.cache.Len()
		snap.CacheHitRate = e.cache.HitRate()
	}
	return snap
}

// Run executes background maintenance (history retention sweep, idle
// spam-state pruning) until the context is canceled. Maintenance never holds
// locks that block foreground Evaluate calls for more than a bounded, short
// duration.
func (e *Engine) Run(ctx context.Context) {
	go e.tracker.Run(ctx)

	ticker := time.NewTicker(e.cfg.MaintenanceInterval.Std())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := e.spam.PruneIdle(e.cfg.MaintenanceInterval.Std() * 2); n > 0 {
				e.logger.Debug("pruned idle spam state", "actors", n)
			}
		}
	}
}
