package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/warden-chat/warden/event"
)

// ErrRuleValidation marks a rule rejected at registration time. The rule set
// is left unchanged when Add returns it.
var ErrRuleValidation = errors.New("rule validation failed")

// Match is one applicable rule that matched the context.
type Match struct {
	Rule       *Rule
	Confidence float64
}

// RuleSet holds registered rules and evaluates them against message contexts.
// Safe for concurrent use; evaluation takes a read lock only.
type RuleSet struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	// notified after any successful mutation; used by the engine to flush its
	// decision cache
	onChange func()
}

func NewRuleSet() *RuleSet {
	return &RuleSet{rules: make(map[string]*Rule)}
}

// OnChange registers a callback invoked after every Add/Remove that altered
// the set.
func (rs *RuleSet) OnChange(fn func()) {
	rs.mu.Lock()
	rs.onChange = fn
	rs.mu.Unlock()
}

func validate(r Rule) error {
	if r.Name == "" {
		return fmt.Errorf("%w: rule name must not be empty", ErrRuleValidation)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: rule %q has no conditions", ErrRuleValidation, r.Name)
	}
	if r.Weight <= 0 || r.Weight > 2 {
		return fmt.Errorf("%w: rule %q weight %.2f outside (0,2]", ErrRuleValidation, r.Name, r.Weight)
	}
	if r.Severity.Rank() == 0 {
		return fmt.Errorf("%w: rule %q has unknown severity %q", ErrRuleValidation, r.Name, r.Severity)
	}
	switch r.Logic {
	case LogicAnd, LogicOr:
	default:
		return fmt.Errorf("%w: rule %q has unknown logic %q", ErrRuleValidation, r.Name, r.Logic)
	}
	return nil
}

// Add validates and registers a rule. The rule is copied; its regex
// conditions are compiled here so malformed patterns surface as validation
// errors. A rule with an existing ID replaces the old one.
func (rs *RuleSet) Add(r Rule) error {
	if err := validate(r); err != nil {
		return err
	}
	if r.ID == "" {
		r.ID = r.Name
	}
	r.Conditions = append([]Condition(nil), r.Conditions...)
	for i := range r.Conditions {
		if err := r.Conditions[i].compile(); err != nil {
			return fmt.Errorf("%w: rule %q: %s", ErrRuleValidation, r.Name, err)
		}
	}

	rs.mu.Lock()
	rs.rules[r.ID] = &r
	fn := rs.onChange
	rs.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Remove deletes a rule by ID. Removing an unknown ID is a no-op and does not
// fire the change callback.
func (rs *RuleSet) Remove(id string) {
	rs.mu.Lock()
	_, existed := rs.rules[id]
	delete(rs.rules, id)
	fn := rs.onChange
	rs.mu.Unlock()

	if existed && fn != nil {
		fn()
	}
}

func (rs *RuleSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rules)
}

// Eval runs every applicable rule against the context and returns the
// matches, ordered by priority (desc), then severity (desc), then confidence
// (desc). The first element, if any, is the primary rule.
func (rs *RuleSet) Eval(ctx event.Context) []Match {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	var matches []Match
	for _, r := range rs.rules {
		if !r.Applicable(ctx) {
			continue
		}
		if ok, conf := r.Eval(ctx); ok {
			matches = append(matches, Match{Rule: r, Confidence: conf})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Rule.Priority != b.Rule.Priority {
			return a.Rule.Priority > b.Rule.Priority
		}
		if a.Rule.Severity.Rank() != b.Rule.Severity.Rank() {
			return a.Rule.Severity.Rank() > b.Rule.Severity.Rank()
		}
		return a.Confidence > b.Confidence
	})
	return matches
}

// Primary returns the highest-ranked match, or nil when nothing matched.
func Primary(matches []Match) *Match {
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}
