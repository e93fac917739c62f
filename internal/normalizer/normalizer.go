// Package normalizer is C7: per-candidate type-specific canonicalization
// plus a quality score combining completeness, internal consistency, and
// source confidence.
package normalizer

import (
	"sort"
	"strings"

	"golang.org/x/net/idna"

	"github.com/osint-pipeline/investigator/internal/models"
)

// aliasProviders maps a provider domain to its canonical form, e.g.
// googlemail.com and gmail.com are the same deliverable mailbox space.
var aliasProviders = map[string]string{
	"googlemail.com": "gmail.com",
}

// plusTagProviders strips a "+tag" local-part suffix when computing a
// deliverable key, since these providers treat it as address routing,
// not a distinct mailbox.
var plusTagProviders = map[string]bool{
	"gmail.com": true, "googlemail.com": true, "outlook.com": true, "fastmail.com": true,
}

// Normalizer is C7.
type Normalizer struct{}

// New builds a Normalizer.
func New() *Normalizer {
	return &Normalizer{}
}

// Normalize applies type-specific canonicalization to a candidate and
// computes its quality score. geoHint supplies a default country for
// phone parsing when the input number is in national format.
func (n *Normalizer) Normalize(c models.EntityCandidate, geoHint *models.GeographicHints, sourceBaseConfidence float64) models.NormalizedEntity {
	ne := models.NormalizedEntity{EntityCandidate: c}

	switch c.EntityType {
	case models.EntityTypeEmail:
		n.normalizeEmail(&ne)
	case models.EntityTypePhone:
		country := ""
		if geoHint != nil {
			country = geoHint.Country
		}
		n.normalizePhone(&ne, country)
	case models.EntityTypeUsername, models.EntityTypeSocialProfile:
		n.normalizeUsername(&ne)
	case models.EntityTypePerson:
		n.normalizeName(&ne)
	case models.EntityTypeDomain:
		n.normalizeDomain(&ne)
	case models.EntityTypeLocation:
		n.normalizeLocation(&ne, geoHint)
	default:
		ne.ComparisonKey = strings.ToLower(strings.TrimSpace(c.RawValue))
	}

	ne.QualityScore = n.qualityScore(ne, sourceBaseConfidence)
	return ne
}

func (n *Normalizer) normalizeEmail(ne *models.NormalizedEntity) {
	lower := strings.ToLower(strings.TrimSpace(ne.RawValue))
	at := strings.LastIndex(lower, "@")
	if at < 0 {
		ne.ComparisonKey = lower
		return
	}
	local, domain := lower[:at], lower[at+1:]

	if canonical, ok := aliasProviders[domain]; ok {
		domain = canonical
	}

	deliverable := local
	if plusTagProviders[domain] {
		if plus := strings.Index(deliverable, "+"); plus >= 0 {
			deliverable = deliverable[:plus]
		}
		deliverable = strings.ReplaceAll(deliverable, ".", "")
	}

	ne.NormalizedEmail = deliverable + "@" + domain
	ne.ComparisonKey = ne.NormalizedEmail
}

func (n *Normalizer) normalizePhone(ne *models.NormalizedEntity, defaultCountry string) {
	e164, ok := ToE164(ne.RawValue, defaultCountry)
	if !ok {
		ne.ComparisonKey = ne.RawValue
		return
	}
	ne.E164Phone = e164
	ne.ComparisonKey = Last7(e164)
}

func (n *Normalizer) normalizeUsername(ne *models.NormalizedEntity) {
	lower := strings.ToLower(strings.TrimSpace(ne.RawValue))
	stripped := strings.NewReplacer(".", "", "_", "", "-", "").Replace(lower)

	variants := map[string]bool{lower: true, stripped: true}
	variants[strings.ReplaceAll(lower, "_", ".")] = true
	variants[strings.ReplaceAll(lower, ".", "_")] = true

	ne.LowercaseUsername = lower
	ne.UsernameVariants = sortedKeys(variants)
	ne.ComparisonKey = stripped
}

func (n *Normalizer) normalizeName(ne *models.NormalizedEntity) {
	tokens := tokenizeName(ne.RawValue)
	ne.NameTokens = tokens

	sorted := append([]string(nil), tokens...)
	sort.Strings(sorted)
	ne.ComparisonKey = strings.Join(sorted, " ")

	if len(tokens) > 0 {
		ne.Soundex = Soundex(tokens[len(tokens)-1])
		ne.Metaphone = Metaphone(tokens[len(tokens)-1])
	}
}

func tokenizeName(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	var out []string
	for _, f := range fields {
		if f != "" {
			out = append(out, strings.ToLower(f))
		}
	}
	return out
}

func (n *Normalizer) normalizeDomain(ne *models.NormalizedEntity) {
	lower := strings.ToLower(strings.TrimSpace(ne.RawValue))
	lower = strings.TrimSuffix(lower, ".")
	if ascii, err := idna.ToASCII(lower); err == nil {
		lower = ascii
	}
	ne.ComparisonKey = lower
	ne.RawValue = lower
}

func (n *Normalizer) normalizeLocation(ne *models.NormalizedEntity, geoHint *models.GeographicHints) {
	if geoHint != nil {
		ne.NormalizedCountry = strings.ToUpper(geoHint.Country)
		ne.NormalizedRegion = strings.ToLower(geoHint.Region)
	}
	ne.ComparisonKey = strings.ToLower(strings.TrimSpace(ne.RawValue))
}

// qualityScore combines attribute completeness, internal consistency, and
// source confidence into a single [0,1] value (§4.7).
func (n *Normalizer) qualityScore(ne models.NormalizedEntity, sourceBaseConfidence float64) float64 {
	completeness := 0.3
	if ne.ComparisonKey != "" {
		completeness = 1.0
	}

	consistency := 1.0
	if ne.EntityType == models.EntityTypePhone && ne.E164Phone == "" {
		consistency = 0.5
	}

	score := completeness * consistency * clamp01(sourceBaseConfidence)
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
