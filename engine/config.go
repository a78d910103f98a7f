package engine

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warden-chat/warden/detector"
	"github.com/warden-chat/warden/escalation"
	"github.com/warden-chat/warden/rules"
)

// ErrConfiguration marks a config rejected at load time. Evaluation never
// sees an invalid configuration.
var ErrConfiguration = errors.New("invalid configuration")

// Duration wraps time.Duration for YAML decoding of strings like "75ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	// relative weight per signal category; renormalized at consolidation time
	// over the categories that actually fired
	CategoryWeights map[detector.Category]float64 `yaml:"category_weights"`
	// how primary-rule severity maps to an action
	SeverityActions map[rules.Severity]Action `yaml:"severity_actions"`

	// signal-only action thresholds, used when no rule matched; ascending
	WarnThreshold    float64 `yaml:"warn_threshold"`
	DeleteThreshold  float64 `yaml:"delete_threshold"`
	TimeoutThreshold float64 `yaml:"timeout_threshold"`

	// multiplied confidence at or above this raises the action one severity
	// level (never past ban)
	EscalationBumpThreshold float64 `yaml:"escalation_bump_threshold"`

	// per-evaluation time budget; on expiry the engine fails open
	EvalBudget Duration `yaml:"eval_budget"`

	// decision cache; TTL or size of zero disables caching
	CacheTTL  Duration `yaml:"cache_ttl"`
	CacheSize int      `yaml:"cache_size"`

	// sweep cadence for idle spam-detector state
	MaintenanceInterval Duration `yaml:"maintenance_interval"`

	// leaf component knobs
	Content    detector.ContentConfig  `yaml:"-"`
	Spam       detector.SpamConfig     `yaml:"-"`
	Threat     detector.ThreatConfig   `yaml:"-"`
	Behavior   detector.BehaviorConfig `yaml:"-"`
	Escalation escalation.Config       `yaml:"-"`
}

func DefaultConfig() Config {
	return Config{
		CategoryWeights: map[detector.Category]float64{
			detector.CategoryContent:  0.35,
			detector.CategoryBehavior: 0.20,
			detector.CategoryThreat:   0.15,
			detector.CategorySpam:     0.15,
		},
		SeverityActions: map[rules.Severity]Action{
			rules.SeverityLow:      ActionWarn,
			rules.SeverityMedium:   ActionDelete,
			rules.SeverityHigh:     ActionTimeout,
			rules.SeverityVeryHigh: ActionBan,
		},
		WarnThreshold:           0.5,
		DeleteThreshold:         0.7,
		TimeoutThreshold:        0.9,
		EscalationBumpThreshold: 0.85,
		EvalBudget:              Duration(75 * time.Millisecond),
		CacheTTL:                Duration(5 * time.Minute),
		CacheSize:               4096,
		MaintenanceInterval:     Duration(5 * time.Minute),
	}
}

// Validate rejects out-of-range weights and thresholds up front, so bad
// values surface at load time rather than mid-evaluation.
func (c Config) Validate() error {
	if len(c.CategoryWeights) == 0 {
		return fmt.Errorf("%w: category weights must not be empty", ErrConfiguration)
	}
	for cat, w := range c.CategoryWeights {
		if w <= 0 || w > 1 {
			return fmt.Errorf("%w: weight %.2f for category %q outside (0,1]", ErrConfiguration, w, cat)
		}
	}
	for sev, act := range c.SeverityActions {
		if sev.Rank() == 0 {
			return fmt.Errorf("%w: unknown severity %q in action map", ErrConfiguration, sev)
		}
		if act.Rank() == 0 && act != ActionNone {
			return fmt.Errorf("%w: unknown action %q for severity %q", ErrConfiguration, act, sev)
		}
	}
	for _, th := range []float64{c.WarnThreshold, c.DeleteThreshold, c.TimeoutThreshold, c.EscalationBumpThreshold} {
		if th <= 0 || th > 1 {
			return fmt.Errorf("%w: threshold %.2f outside (0,1]", ErrConfiguration, th)
		}
	}
	if !(c.WarnThreshold <= c.DeleteThreshold && c.DeleteThreshold <= c.TimeoutThreshold) {
		return fmt.Errorf("%w: signal thresholds must be ascending", ErrConfiguration)
	}
	if c.EvalBudget.Std() <= 0 {
		return fmt.Errorf("%w: eval budget must be positive", ErrConfiguration)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache size must not be negative", ErrConfiguration)
	}
	return nil
}

// LoadConfigYAML reads engine-level overrides from a YAML file on top of the
// defaults, then validates the result.
func LoadConfigYAML(p string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(p)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
