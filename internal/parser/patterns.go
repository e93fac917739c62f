package parser

import "regexp"

// Regex-based extraction patterns for §4.6's candidate types. Grounded on
// the teacher's flat pattern-table idiom (internal/utils/heuristics.go).
var (
	emailPattern         = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	e164Pattern          = regexp.MustCompile(`\+[1-9]\d{7,14}`)
	nationalPhonePattern = regexp.MustCompile(`\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	urlPattern           = regexp.MustCompile(`https?://[^\s"'<>]+`)
	atUsernamePattern    = regexp.MustCompile(`@[a-zA-Z0-9_]{2,30}\b`)
	pathUsernamePattern  = regexp.MustCompile(`(?:github\.com|twitter\.com|x\.com|instagram\.com|reddit\.com/u(?:ser)?)/([a-zA-Z0-9_\-.]{2,39})`)
	domainPattern        = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)
)

// unsafeContentPatterns flags content that should never be cached or
// logged verbatim. Each match sets the RawResult's security flag and the
// matched span is redacted, not the whole result dropped (§4.6).
var unsafeContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bunion\s+select\b`),
	regexp.MustCompile(`(?i)\bdrop\s+table\b`),
	regexp.MustCompile(`(?i)'\s*or\s+'?1'?\s*=\s*'?1`),
	regexp.MustCompile(`(?i)<script[\s>].*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i);\s*(rm|curl|wget|nc)\s`),
	regexp.MustCompile(`\$\([^)]*\)`),
	regexp.MustCompile(`\.\./\.\./`),
}

const maxContentBytes = 5 << 20 // 5MB size cap
