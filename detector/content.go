package detector

import (
	"fmt"
	"regexp"

	"github.com/warden-chat/warden/event"
	"github.com/warden-chat/warden/keyword"
)

// Pattern is a single weighted content pattern within a set. Patterns match
// against normalized text (lower-case, leetspeak folded, URLs replaced), so
// "fr33 n1tro" and "FREE NITRO" hit the same entry.
type Pattern struct {
	Tag    string
	Re     *regexp.Regexp
	Weight float64
}

// PatternSet groups patterns for one abuse class in one language.
type PatternSet struct {
	Name     string
	Language string
	Patterns []Pattern
}

func mustPattern(tag, expr string, weight float64) Pattern {
	return Pattern{Tag: tag, Re: regexp.MustCompile(expr), Weight: weight}
}

// DefaultPatternSets returns the built-in English pattern table. Deployments
// extend or replace this via ContentConfig.
func DefaultPatternSets() []PatternSet {
	return []PatternSet{
		{
			Name:     "hate",
			Language: "en",
			Patterns: []Pattern{
				mustPattern("hate-group-slogan", `\b(gas the|race war now|\d*1488)\b`, 4),
				mustPattern("dehumanizing", `\b(subhuman|vermin) (scum|filth)\b`, 3),
				mustPattern("identity-attack", `\bgo back to your country\b`, 3),
			},
		},
		{
			Name:     "threats",
			Language: "en",
			Patterns: []Pattern{
				mustPattern("direct-threat", `\b(i('| wi)ll|gonna) (kill|hurt|find) you\b`, 4),
				mustPattern("doxx-threat", `\b(leak|post|drop) (your|ur) (address|dox)\b`, 4),
				mustPattern("swat-threat", `\bswat (you|your house)\b`, 4),
			},
		},
		{
			Name:     "profanity",
			Language: "en",
			Patterns: []Pattern{
				mustPattern("strong-profanity", `\b(fuck(er|ing)?|cunt)\b`, 1),
				mustPattern("mild-profanity", `\b(shit|asshole|bitch)\b`, 0.5),
			},
		},
		{
			Name:     "phishing",
			Language: "en",
			Patterns: []Pattern{
				mustPattern("free-nitro", `\bfree (nitro|robux|vbucks|gift)\b`, 3),
				mustPattern("click-bait", `\bclick (here|this|the link)\b`, 2),
				mustPattern("account-scare", `\byour account (will be|is) (deleted|banned|suspended)\b`, 2),
				mustPattern("verify-scam", `\bverify (your|ur) account\b`, 2),
				mustPattern("giveaway-link", `\b(giveaway|airdrop).*`+regexp.QuoteMeta(keyword.URLPlaceholder), 2),
			},
		},
	}
}

type ContentConfig struct {
	// pattern sets to match; nil means DefaultPatternSets
	Sets []PatternSet
	// languages to evaluate; empty means all sets
	Languages []string
}

// ContentDetector scores message text against weighted pattern sets. Pattern
// tables are loaded once at construction and read-only afterwards.
type ContentDetector struct {
	sets []PatternSet
}

func NewContentDetector(cfg ContentConfig) *ContentDetector {
	sets := cfg.Sets
	if sets == nil {
		sets = DefaultPatternSets()
	}
	if len(cfg.Languages) > 0 {
		allowed := make(map[string]bool, len(cfg.Languages))
		for _, l := range cfg.Languages {
			allowed[l] = true
		}
		var filtered []PatternSet
		for _, s := range sets {
			if allowed[s.Language] {
				filtered = append(filtered, s)
			}
		}
		sets = filtered
	}
	return &ContentDetector{sets: sets}
}

func (d *ContentDetector) Name() string { return string(CategoryContent) }

// Per-set score is min(1, sum of matched weights / set size); the overall
// content score is the max across sets, so one clearly-matched abuse class is
// not diluted by the sets that stayed quiet.
func (d *ContentDetector) Evaluate(ctx event.Context) Signal {
	norm := keyword.NormalizeText(ctx.Content)
	var score float64
	var evidence []string
	for _, set := range d.sets {
		var matched float64
		for _, p := range set.Patterns {
			if p.Re.MatchString(norm) {
				matched += p.Weight
				evidence = append(evidence, fmt.Sprintf("content:%s:%s", set.Name, p.Tag))
			}
		}
		if matched == 0 {
			continue
		}
		setScore := matched / float64(len(set.Patterns))
		if setScore > 1 {
			setScore = 1
		}
		if setScore > score {
			score = setScore
		}
	}
	return Signal{Category: CategoryContent, Score: score, Evidence: evidence}
}
