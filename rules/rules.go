// Package rules implements the configurable rule layer of the moderation
// engine: rule and condition models, applicability scoping, AND/OR evaluation
// with short-circuiting, and primary-rule selection.
package rules

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/warden-chat/warden/event"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityVeryHigh Severity = "very_high"
)

// Rank orders severities for comparison; higher is worse. Unknown severities
// rank zero.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityVeryHigh:
		return 4
	}
	return 0
}

func ParseSeverity(raw string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if s.Rank() == 0 {
		return "", fmt.Errorf("unknown severity: %q", raw)
	}
	return s, nil
}

type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

type Kind string

const (
	KindContent     Kind = "content"
	KindBehavior    Kind = "behavior"
	KindContext     Kind = "context"
	KindFrequency   Kind = "frequency"
	KindUserHistory Kind = "user_history"
)

type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
	OpRegex    Op = "regex"
)

// Condition is one comparison within a rule. Kind selects which Context value
// is compared (optionally refined by Field); Op and Value define the
// comparison; Confidence is how strongly a match should count.
type Condition struct {
	Kind Kind `yaml:"kind"`
	// refines Kind where it is ambiguous: for "behavior", one of trust_score,
	// account_age_hours, message_rate (default trust_score); for "context",
	// one of channel, guild, role (default channel)
	Field      string  `yaml:"field,omitempty"`
	Op         Op      `yaml:"op"`
	Value      string  `yaml:"value"`
	Confidence float64 `yaml:"confidence"`

	re *regexp.Regexp
}

// compile pre-builds the regex for regex conditions; called at registration
// time so bad patterns are a validation error, not an evaluation surprise.
func (c *Condition) compile() error {
	if c.Op != OpRegex {
		return nil
	}
	re, err := regexp.Compile(c.Value)
	if err != nil {
		return fmt.Errorf("compiling condition regex: %w", err)
	}
	c.re = re
	return nil
}

func (c *Condition) Matches(ctx event.Context) bool {
	switch c.Kind {
	case KindContent:
		return c.matchString(ctx.Content)
	case KindBehavior:
		switch c.Field {
		case "account_age_hours":
			return c.matchNumber(ctx.AccountAge.Hours())
		case "message_rate":
			return c.matchNumber(ctx.MessageRate)
		default:
			return c.matchNumber(ctx.TrustScore)
		}
	case KindContext:
		switch c.Field {
		case "guild":
			return c.matchString(ctx.GuildID)
		case "role":
			for _, r := range ctx.Roles {
				if c.matchString(r) {
					return true
				}
			}
			return false
		default:
			return c.matchString(ctx.ChannelID)
		}
	case KindFrequency:
		return c.matchNumber(ctx.MessageRate)
	case KindUserHistory:
		return c.matchNumber(float64(ctx.RecentViolations))
	}
	return false
}

func (c *Condition) matchString(val string) bool {
	switch c.Op {
	case OpEq:
		return strings.EqualFold(val, c.Value)
	case OpNeq:
		return !strings.EqualFold(val, c.Value)
	case OpContains:
		return strings.Contains(strings.ToLower(val), strings.ToLower(c.Value))
	case OpRegex:
		if c.re == nil {
			// registered rules are compiled at Add time; this path only runs
			// for ad-hoc rules evaluated outside a RuleSet
			re, err := regexp.Compile(c.Value)
			if err != nil {
				return false
			}
			c.re = re
		}
		return c.re.MatchString(val)
	}
	return false
}

func (c *Condition) matchNumber(val float64) bool {
	threshold, err := strconv.ParseFloat(c.Value, 64)
	if err != nil {
		return false
	}
	switch c.Op {
	case OpEq:
		return val == threshold
	case OpNeq:
		return val != threshold
	case OpGt:
		return val > threshold
	case OpGte:
		return val >= threshold
	case OpLt:
		return val < threshold
	case OpLte:
		return val <= threshold
	}
	return false
}

// HourRange restricts a rule to part of the day (UTC). From==To means always
// active; From may be greater than To for ranges crossing midnight.
type HourRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

func (h HourRange) contains(hour int) bool {
	if h.From == h.To {
		return true
	}
	if h.From < h.To {
		return hour >= h.From && hour < h.To
	}
	return hour >= h.From || hour < h.To
}

// Scope limits where and to whom a rule applies. Any scoping failure skips
// the rule entirely: it is not evaluated and does not count as a non-match.
type Scope struct {
	// guild/channel allow-lists; empty means everywhere
	Guilds   []string `yaml:"guilds,omitempty"`
	Channels []string `yaml:"channels,omitempty"`
	// actors holding any of these roles are never evaluated by this rule
	ExcludedRoles []string `yaml:"excluded_roles,omitempty"`
	// actors never evaluated by this rule
	ExemptActors []string   `yaml:"exempt_actors,omitempty"`
	ActiveHours  *HourRange `yaml:"active_hours,omitempty"`
}

type Rule struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Conditions  []Condition `yaml:"conditions"`
	Logic       Logic       `yaml:"logic"`
	Severity    Severity    `yaml:"severity"`
	// multiplier on condition confidence, in (0,2]
	Weight   float64 `yaml:"weight"`
	Priority int     `yaml:"priority"`
	Enabled  bool    `yaml:"enabled"`
	Scope    Scope   `yaml:"scope,omitempty"`
}

// Applicable reports whether the rule should be evaluated at all for this
// context.
func (r *Rule) Applicable(ctx event.Context) bool {
	if !r.Enabled {
		return false
	}
	if len(r.Scope.Guilds) > 0 && !slices.Contains(r.Scope.Guilds, ctx.GuildID) {
		return false
	}
	if len(r.Scope.Channels) > 0 && !slices.Contains(r.Scope.Channels, ctx.ChannelID) {
		return false
	}
	if slices.Contains(r.Scope.ExemptActors, ctx.ActorID) {
		return false
	}
	for _, role := range ctx.Roles {
		if slices.Contains(r.Scope.ExcludedRoles, role) {
			return false
		}
	}
	if r.Scope.ActiveHours != nil && !r.Scope.ActiveHours.contains(ctx.Timestamp.UTC().Hour()) {
		return false
	}
	return true
}

// Eval evaluates the rule's conditions in order with short-circuiting: AND
// stops at the first non-match, OR at the first match. Returns whether the
// rule matched and the confidence (max matched-condition confidence times the
// rule weight).
func (r *Rule) Eval(ctx event.Context) (bool, float64) {
	var maxConf float64
	matchedAny := false
	for i := range r.Conditions {
		c := &r.Conditions[i]
		matched := c.Matches(ctx)
		if matched {
			matchedAny = true
			if c.Confidence > maxConf {
				maxConf = c.Confidence
			}
			if r.Logic == LogicOr {
				break
			}
		} else if r.Logic != LogicOr {
			return false, 0
		}
	}
	if !matchedAny {
		return false, 0
	}
	return true, maxConf * r.Weight
}
