package planner

import (
	"regexp"
	"strings"
)

// blockedPatterns is the closed list of query-string shapes the planner
// refuses to forward to the scheduler — injection payloads and
// sensitive-identifier shapes that should never be sent to an external
// source as a literal query. Modeled on the teacher's pattern-table
// heuristics (internal/utils/heuristics.go's ContainsSQLError /
// ContainsErrorTrace): a flat list of substrings/regexes checked in
// order, short-circuiting on the first match.
var blockedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bunion\s+select\b`),
	regexp.MustCompile(`(?i)\bdrop\s+table\b`),
	regexp.MustCompile(`(?i)'\s*or\s+'?1'?\s*=\s*'?1`),
	regexp.MustCompile(`(?i)<script[\s>]`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i);\s*(rm|curl|wget|nc)\s`),
	regexp.MustCompile(`\$\(.*\)`),
	regexp.MustCompile(`\.\./\.\./`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),  // SSN-shaped literal
	regexp.MustCompile(`\b(?:\d[ -]?){13,16}\b`), // credit-card-shaped literal
	regexp.MustCompile(`(?i)\b(?:intext|filetype|inurl|site):\s*(?:password|sql|pastebin\.com|passwd|credentials)\b`), // credential-dumping dork
	regexp.MustCompile(`(?i)(?:/wp-login|/admin/login|/\.env\b)`),                                                     // auth-endpoint probe
}

// ContainsBlockedPattern reports whether s matches any blocked pattern.
func ContainsBlockedPattern(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, p := range blockedPatterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
