// Package scan checks request bodies for known-hostile patterns before they
// reach a handler.
package scan

import "regexp"

// blockedPatterns covers path traversal, inline script injection, the common
// SQL-injection keywords, and code-execution calls. The set is fixed; anything
// configurable belongs in a WAF, not here.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\.\./|\.\.\\)`),
	regexp.MustCompile(`(?i)<script[^>]*>`),
	regexp.MustCompile(`(?i)union.*select`),
	regexp.MustCompile(`(?i)drop\s+table`),
	regexp.MustCompile(`(?i)exec\(`),
}

// IsSafe reports whether body matches none of the blocked patterns.
func IsSafe(body []byte) bool {
	for _, p := range blockedPatterns {
		if p.Match(body) {
			return false
		}
	}
	return true
}
