package detector

import (
	"fmt"
	"regexp"

	"github.com/warden-chat/warden/event"
	"github.com/warden-chat/warden/keyword"
)

type ThreatConfig struct {
	// domains known to serve malware/phishing; nil means DefaultMaliciousDomains
	MaliciousDomains []string
	// well-known legitimate domains, used for the typosquat check; nil means
	// DefaultLegitimateDomains
	LegitimateDomains []string
	// keyword pattern sets (phishing/malware/scam); nil means DefaultThreatSets
	Sets []PatternSet
	// max edit distance from a legitimate domain to count as a typosquat
	TyposquatDistance int

	// per-hit weights
	MaliciousDomainWeight float64
	TyposquatWeight       float64
	KeywordWeight         float64
}

func (c ThreatConfig) withDefaults() ThreatConfig {
	if c.MaliciousDomains == nil {
		c.MaliciousDomains = DefaultMaliciousDomains()
	}
	if c.LegitimateDomains == nil {
		c.LegitimateDomains = DefaultLegitimateDomains()
	}
	if c.Sets == nil {
		c.Sets = DefaultThreatSets()
	}
	if c.TyposquatDistance == 0 {
		c.TyposquatDistance = 2
	}
	if c.MaliciousDomainWeight == 0 {
		c.MaliciousDomainWeight = 0.6
	}
	if c.TyposquatWeight == 0 {
		c.TyposquatWeight = 0.5
	}
	if c.KeywordWeight == 0 {
		c.KeywordWeight = 0.25
	}
	return c
}

func DefaultMaliciousDomains() []string {
	return []string{
		"bit.ly",
		"tinyurl.com",
		"grabify.link",
		"iplogger.org",
		"discord-nitro.club",
		"discordgift.ru",
		"steamcommunlty.com",
	}
}

func DefaultLegitimateDomains() []string {
	return []string{
		"discord.com",
		"discord.gg",
		"steamcommunity.com",
		"paypal.com",
		"youtube.com",
		"twitch.tv",
		"github.com",
	}
}

func DefaultThreatSets() []PatternSet {
	return []PatternSet{
		{
			Name:     "scam",
			Language: "en",
			Patterns: []Pattern{
				mustPattern("crypto-doubler", `\b(double|triple) your (crypto|btc|eth)\b`, 3),
				mustPattern("steam-gift", `\bsteam (gift|wallet) code\b`, 2),
				mustPattern("urgency", `\b(limited time|act now|expires (today|soon))\b`, 1),
			},
		},
		{
			Name:     "malware",
			Language: "en",
			Patterns: []Pattern{
				mustPattern("exe-bait", `\bdownload .{0,40}\.(exe|scr|bat)\b`, 3),
				mustPattern("token-grabber", `\b(token (grabber|logger)|session stealer)\b`, 3),
			},
		},
	}
}

// ThreatDetector scores URLs and scam/malware keywords: known-malicious
// domains, typosquats of well-known domains, and keyword pattern sets.
type ThreatDetector struct {
	cfg       ThreatConfig
	malicious map[string]bool
	urlToken  *regexp.Regexp
}

func NewThreatDetector(cfg ThreatConfig) *ThreatDetector {
	cfg = cfg.withDefaults()
	malicious := make(map[string]bool, len(cfg.MaliciousDomains))
	for _, d := range cfg.MaliciousDomains {
		malicious[d] = true
	}
	return &ThreatDetector{cfg: cfg, malicious: malicious}
}

func (d *ThreatDetector) Name() string { return string(CategoryThreat) }

func (d *ThreatDetector) Evaluate(ctx event.Context) Signal {
	var score float64
	var evidence []string

	for _, domain := range keyword.ExtractDomains(ctx.Content) {
		if d.malicious[domain] {
			score += d.cfg.MaliciousDomainWeight
			evidence = append(evidence, fmt.Sprintf("threat:malicious_domain:%s", domain))
			continue
		}
		if legit := d.typosquatOf(domain); legit != "" {
			score += d.cfg.TyposquatWeight
			evidence = append(evidence, fmt.Sprintf("threat:typosquat:%s~%s", domain, legit))
		}
	}

	norm := keyword.NormalizeText(ctx.Content)
	for _, set := range d.cfg.Sets {
		for _, p := range set.Patterns {
			if p.Re.MatchString(norm) {
				score += d.cfg.KeywordWeight * p.Weight
				evidence = append(evidence, fmt.Sprintf("threat:%s:%s", set.Name, p.Tag))
			}
		}
	}

	if score > 1 {
		score = 1
	}
	return Signal{Category: CategoryThreat, Score: score, Evidence: evidence}
}

// typosquatOf returns the legitimate domain the given one imitates, or "" when
// it is either exact (legitimate) or too far from all of them.
func (d *ThreatDetector) typosquatOf(domain string) string {
	for _, legit := range d.cfg.LegitimateDomains {
		if domain == legit {
			return ""
		}
		if keyword.Levenshtein(domain, legit) <= d.cfg.TyposquatDistance {
			return legit
		}
	}
	return ""
}
