package keyword

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spaolacci/murmur3"
)

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// based on: https://stackoverflow.com/a/48769624, with no trailing period allowed
var urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)

func ExtractTextURLs(raw string) []string {
	return urlRegex.FindAllString(raw, -1)
}

// ExtractDomains pulls just the host portion out of any URLs in the text,
// lower-cased, with any scheme, path, port, and query stripped.
func ExtractDomains(raw string) []string {
	var out []string
	for _, u := range ExtractTextURLs(raw) {
		u = strings.ToLower(u)
		if idx := strings.Index(u, "://"); idx >= 0 {
			u = u[idx+3:]
		}
		if idx := strings.IndexAny(u, "/?"); idx >= 0 {
			u = u[:idx]
		}
		if idx := strings.Index(u, ":"); idx >= 0 {
			u = u[:idx]
		}
		if u != "" {
			out = append(out, u)
		}
	}
	return DedupeStrings(out)
}
