package keyword

import (
	"regexp"
	"strings"
)

// URLPlaceholder replaces extracted URLs during normalization, so that pattern
// matching runs against link-free text while URL analysis happens separately.
const URLPlaceholder = "<url>"

// common single-character leetspeak substitutions, folded back to letters
var leetReplacer = strings.NewReplacer(
	"0", "o",
	"1", "i",
	"3", "e",
	"4", "a",
	"5", "s",
	"7", "t",
	"8", "b",
	"@", "a",
	"$", "s",
	"!", "i",
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeText canonicalizes message content for pattern matching: lower-case,
// URLs replaced with a placeholder token, leetspeak folded to letters, and
// whitespace collapsed to single spaces.
func NormalizeText(text string) string {
	out := strings.ToLower(text)
	out = urlRegex.ReplaceAllString(out, URLPlaceholder)
	out = leetReplacer.Replace(out)
	out = whitespaceRun.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}
