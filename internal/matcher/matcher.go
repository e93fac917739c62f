// Package matcher is C8: given two normalized entity records, compute a
// weighted similarity score in [0,100] with a per-field breakdown and
// human-readable reasoning.
package matcher

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/osint-pipeline/investigator/internal/models"
)

// Weights tunes the per-field contribution to the overall score.
type Weights struct {
	Name         float64
	Email        float64
	Phone        float64
	Username     float64
	Biographical float64
}

// DefaultWeights matches the spec's documented defaults.
func DefaultWeights() Weights {
	return Weights{Name: 0.25, Email: 0.25, Phone: 0.15, Username: 0.15, Biographical: 0.20}
}

// FieldReason is one field's contribution to the overall score, with the
// algorithm used and its inputs so a reviewer can audit the match.
type FieldReason struct {
	Field        string
	Algorithm    string
	Score        float64 // 0-100
	Contribution float64 // Score * weight
	Detail       string
}

// MatchResult is C8's output for one pair of records.
type MatchResult struct {
	Score   float64 // 0-100
	Reasons []FieldReason
}

// Matcher is C8.
type Matcher struct {
	weights Weights
}

// New builds a Matcher with the given weights. A zero-value Weights
// falls back to DefaultWeights.
func New(weights Weights) *Matcher {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Matcher{weights: weights}
}

// Score compares two normalized entities and returns their weighted
// similarity.
func (m *Matcher) Score(a, b models.NormalizedEntity) MatchResult {
	var reasons []FieldReason
	var total float64

	if r, ok := m.scoreName(a, b); ok {
		reasons = append(reasons, r)
		total += r.Contribution
	}
	if r, ok := m.scoreEmail(a, b); ok {
		reasons = append(reasons, r)
		total += r.Contribution
	}
	if r, ok := m.scorePhone(a, b); ok {
		reasons = append(reasons, r)
		total += r.Contribution
	}
	if r, ok := m.scoreUsername(a, b); ok {
		reasons = append(reasons, r)
		total += r.Contribution
	}
	if r, ok := m.scoreBiographical(a, b); ok {
		reasons = append(reasons, r)
		total += r.Contribution
	}

	return MatchResult{Score: total, Reasons: reasons}
}

func (m *Matcher) scoreName(a, b models.NormalizedEntity) (FieldReason, bool) {
	if len(a.NameTokens) == 0 || len(b.NameTokens) == 0 {
		return FieldReason{}, false
	}

	jaccard := tokenSetJaccard(a.NameTokens, b.NameTokens) * 100
	editRatio := (1 - editDistanceRatio(strings.Join(a.NameTokens, " "), strings.Join(b.NameTokens, " "))) * 100
	jw := JaroWinkler(a.ComparisonKey, b.ComparisonKey) * 100
	phonetic := 0.0
	algorithm := "token-set-jaccard"
	if a.Soundex != "" && a.Soundex == b.Soundex {
		phonetic = 85
		algorithm = "phonetic-code-match"
	}

	best := jaccard
	if editRatio > best {
		best, algorithm = editRatio, "ordered-token-edit-distance"
	}
	if jw > best {
		best, algorithm = jw, "jaro-winkler"
	}
	if phonetic > best {
		best = phonetic
	}

	return FieldReason{
		Field:        "name",
		Algorithm:    algorithm,
		Score:        best,
		Contribution: best * m.weights.Name,
		Detail:       fmt.Sprintf("%q vs %q", a.ComparisonKey, b.ComparisonKey),
	}, true
}

func (m *Matcher) scoreEmail(a, b models.NormalizedEntity) (FieldReason, bool) {
	if a.NormalizedEmail == "" || b.NormalizedEmail == "" {
		return FieldReason{}, false
	}

	var score float64
	algorithm := "jaro-winkler"
	switch {
	case a.NormalizedEmail == b.NormalizedEmail:
		score, algorithm = 100, "deliverable-key-exact"
	case sameLocalDifferentDomain(a.NormalizedEmail, b.NormalizedEmail):
		score, algorithm = 90, "alias-domain-equivalence"
	case sameDomain(a.NormalizedEmail, b.NormalizedEmail):
		score = JaroWinkler(localPart(a.NormalizedEmail), localPart(b.NormalizedEmail)) * 100
	default:
		score = 0
	}

	return FieldReason{
		Field:        "email",
		Algorithm:    algorithm,
		Score:        score,
		Contribution: score * m.weights.Email,
		Detail:       fmt.Sprintf("%s vs %s", a.NormalizedEmail, b.NormalizedEmail),
	}, true
}

func (m *Matcher) scorePhone(a, b models.NormalizedEntity) (FieldReason, bool) {
	if a.E164Phone == "" || b.E164Phone == "" {
		return FieldReason{}, false
	}

	var score float64
	algorithm := "jaro-winkler-digits"
	switch {
	case a.E164Phone == b.E164Phone:
		score, algorithm = 100, "e164-exact"
	case a.ComparisonKey != "" && a.ComparisonKey == b.ComparisonKey:
		score, algorithm = 80, "last7-match"
	default:
		score = JaroWinkler(a.E164Phone, b.E164Phone) * 100
	}

	return FieldReason{
		Field:        "phone",
		Algorithm:    algorithm,
		Score:        score,
		Contribution: score * m.weights.Phone,
		Detail:       fmt.Sprintf("%s vs %s", a.E164Phone, b.E164Phone),
	}, true
}

func (m *Matcher) scoreUsername(a, b models.NormalizedEntity) (FieldReason, bool) {
	if a.LowercaseUsername == "" || b.LowercaseUsername == "" {
		return FieldReason{}, false
	}

	var score float64
	algorithm := "edit-distance-ratio"
	switch {
	case a.ComparisonKey == b.ComparisonKey:
		score, algorithm = 100, "canonical-exact"
	case variantOverlap(a.UsernameVariants, b.UsernameVariants):
		score, algorithm = 90, "variant-match"
	default:
		score = (1 - editDistanceRatio(a.LowercaseUsername, b.LowercaseUsername)) * 100
	}

	return FieldReason{
		Field:        "username",
		Algorithm:    algorithm,
		Score:        score,
		Contribution: score * m.weights.Username,
		Detail:       fmt.Sprintf("%s vs %s", a.LowercaseUsername, b.LowercaseUsername),
	}, true
}

func (m *Matcher) scoreBiographical(a, b models.NormalizedEntity) (FieldReason, bool) {
	dobA, hasDobA := a.Attributes.Get("dob_year")
	dobB, hasDobB := b.Attributes.Get("dob_year")
	cityA, hasCityA := a.Attributes.Get("city")
	cityB, hasCityB := b.Attributes.Get("city")
	empA, hasEmpA := a.Attributes.Get("employer")
	empB, hasEmpB := b.Attributes.Get("employer")

	if !hasDobA && !hasCityA && !hasEmpA {
		return FieldReason{}, false
	}
	if !hasDobB && !hasCityB && !hasEmpB {
		return FieldReason{}, false
	}

	var score float64
	var parts []string
	if hasDobA && hasDobB && withinOneYear(dobA, dobB) {
		score += 70
		parts = append(parts, "dob within 1 year")
	}
	if hasCityA && hasCityB && strings.EqualFold(cityA, cityB) {
		score += 60
		parts = append(parts, "city match")
	}
	if hasEmpA && hasEmpB {
		overlap := tokenSetJaccard(strings.Fields(strings.ToLower(empA)), strings.Fields(strings.ToLower(empB)))
		score += overlap * 80
		if overlap > 0 {
			parts = append(parts, "employer token overlap")
		}
	}
	if score > 100 {
		score = 100
	}

	return FieldReason{
		Field:        "biographical",
		Algorithm:    "weighted-hint-combination",
		Score:        score,
		Contribution: score * m.weights.Biographical,
		Detail:       strings.Join(parts, ", "),
	}, true
}

func tokenSetJaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toSet(xs []string) map[string]bool {
	out := make(map[string]bool, len(xs))
	for _, x := range xs {
		out[x] = true
	}
	return out
}

func editDistanceRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(dist) / float64(maxLen)
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

func domainPart(email string) string {
	if i := strings.Index(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return ""
}

func sameDomain(a, b string) bool {
	return domainPart(a) == domainPart(b)
}

func sameLocalDifferentDomain(a, b string) bool {
	return localPart(a) == localPart(b) && domainPart(a) != domainPart(b)
}

func variantOverlap(a, b []string) bool {
	setB := toSet(b)
	for _, v := range a {
		if setB[v] {
			return true
		}
	}
	return false
}

func withinOneYear(a, b string) bool {
	ya, oka := parseYear(a)
	yb, okb := parseYear(b)
	if !oka || !okb {
		return false
	}
	diff := ya - yb
	if diff < 0 {
		diff = -diff
	}
	return diff <= 1
}

func parseYear(s string) (int, bool) {
	var y int
	_, err := fmt.Sscanf(s, "%d", &y)
	return y, err == nil
}
