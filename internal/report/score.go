package report

import (
	"sort"

	"github.com/osint-pipeline/investigator/internal/models"
)

// privacyCategory is the closed set of attribute classes the privacy
// exposure score weighs (§4.12).
type privacyCategory struct {
	name   string
	weight float64
}

var privacyCategories = []privacyCategory{
	{"contact", 0.30},
	{"professional", 0.25},
	{"identity", 0.20},
	{"behavioral", 0.15},
	{"network", 0.10},
}

// saturationCount is how many exposed entities in one category max out
// that category's weighted contribution.
const saturationCount = 3

func categoryFor(entityType models.EntityType) string {
	switch entityType {
	case models.EntityTypeEmail, models.EntityTypePhone:
		return "contact"
	case models.EntityTypeOrganization:
		return "professional"
	case models.EntityTypePerson, models.EntityTypeDocument:
		return "identity"
	case models.EntityTypeSocialProfile, models.EntityTypeUsername:
		return "behavioral"
	default:
		return "network"
	}
}

// privacyExposureScore computes the weighted, saturating count of
// exposed attribute classes across resolved entities. networkEdges is the
// relationship-edge count from the entity graph: each publicly inferable
// association counts toward the "network" category on top of any entities
// that classify there directly.
func privacyExposureScore(entities []models.ResolvedEntity, networkEdges int, refsFor func(models.ResolvedEntity) []models.SourceReference) (float64, []models.ExposureCategoryBreakdown) {
	counts := make(map[string]int)
	refs := make(map[string][]models.SourceReference)
	for _, e := range entities {
		cat := categoryFor(e.EntityType)
		counts[cat]++
		refs[cat] = append(refs[cat], refsFor(e)...)
	}
	counts["network"] += networkEdges

	var score float64
	var breakdown []models.ExposureCategoryBreakdown
	for _, pc := range privacyCategories {
		count := counts[pc.name]
		saturation := float64(count) / saturationCount
		if saturation > 1 {
			saturation = 1
		}
		contribution := pc.weight * saturation * 100
		score += contribution
		breakdown = append(breakdown, models.ExposureCategoryBreakdown{
			Category: pc.name, Weight: pc.weight, Count: count, SourceRefs: refs[pc.name],
		})
	}
	if score > 100 {
		score = 100
	}
	return score, breakdown
}

// securitySignals are the attribute keys securityRiskScore reads off a
// resolved entity. Upstream connectors/parsers populate these when a
// source reports them; absence simply contributes nothing.
const (
	attrBreachCount       = "breach_count"
	attrBreachRecencyDays = "breach_recency_days"
	attrWeakPasswordHint  = "weak_password_hint"
	attrMissing2FAHint    = "missing_2fa_hint"
	attrVulnerabilityFlag = "vulnerability_exposure"
)

// securityRiskScore combines breach exposure (count weighted by
// recency), account security signals, and infra vulnerability exposure.
func securityRiskScore(entities []models.ResolvedEntity, refsFor func(models.ResolvedEntity) []models.SourceReference) (float64, []models.ExposureCategoryBreakdown) {
	var breachScore, accountScore, vulnScore float64
	var breachCount, accountCount, vulnCount int
	var breachRefs, accountRefs, vulnRefs []models.SourceReference

	for _, e := range entities {
		if n, ok := intAttr(e.Attributes, attrBreachCount); ok && n > 0 {
			recency := 1.0
			if days, ok := intAttr(e.Attributes, attrBreachRecencyDays); ok {
				recency = recencyWeight(days)
			}
			breachScore += float64(n) * recency * 10
			breachCount++
			breachRefs = append(breachRefs, refsFor(e)...)
		}
		if boolAttr(e.Attributes, attrWeakPasswordHint) || boolAttr(e.Attributes, attrMissing2FAHint) {
			accountScore += 20
			accountCount++
			accountRefs = append(accountRefs, refsFor(e)...)
		}
		if boolAttr(e.Attributes, attrVulnerabilityFlag) {
			vulnScore += 25
			vulnCount++
			vulnRefs = append(vulnRefs, refsFor(e)...)
		}
	}

	total := clamp100(breachScore) * 0.5
	total += clamp100(accountScore) * 0.3
	total += clamp100(vulnScore) * 0.2

	breakdown := []models.ExposureCategoryBreakdown{
		{Category: "breach_exposure", Weight: 0.5, Count: breachCount, SourceRefs: breachRefs},
		{Category: "account_security", Weight: 0.3, Count: accountCount, SourceRefs: accountRefs},
		{Category: "vulnerability_exposure", Weight: 0.2, Count: vulnCount, SourceRefs: vulnRefs},
	}
	return clamp100(total), breakdown
}

func recencyWeight(daysAgo int) float64 {
	switch {
	case daysAgo <= 90:
		return 1.0
	case daysAgo <= 365:
		return 0.7
	case daysAgo <= 1095:
		return 0.4
	default:
		return 0.2
	}
}

const (
	attrSSNFlag        = "ssn_flag"
	attrDOBFlag        = "dob_flag"
	attrAddressFlag    = "address_flag"
	attrFinancialFlag  = "financial_data_flag"
	attrCredentialFlag = "credential_flag"
)

// identityTheftRiskScore combines PII availability, address data,
// financial-data flags, and credential availability.
func identityTheftRiskScore(entities []models.ResolvedEntity, refsFor func(models.ResolvedEntity) []models.SourceReference) (float64, []models.ExposureCategoryBreakdown) {
	var piiCount, addressCount, financialCount, credentialCount int
	var piiRefs, addressRefs, financialRefs, credentialRefs []models.SourceReference

	for _, e := range entities {
		if boolAttr(e.Attributes, attrSSNFlag) || boolAttr(e.Attributes, attrDOBFlag) {
			piiCount++
			piiRefs = append(piiRefs, refsFor(e)...)
		}
		if boolAttr(e.Attributes, attrAddressFlag) {
			addressCount++
			addressRefs = append(addressRefs, refsFor(e)...)
		}
		if boolAttr(e.Attributes, attrFinancialFlag) {
			financialCount++
			financialRefs = append(financialRefs, refsFor(e)...)
		}
		if boolAttr(e.Attributes, attrCredentialFlag) {
			credentialCount++
			credentialRefs = append(credentialRefs, refsFor(e)...)
		}
	}

	score := saturate(piiCount, 2)*40 + saturate(addressCount, 2)*20 + saturate(financialCount, 2)*25 + saturate(credentialCount, 2)*15

	breakdown := []models.ExposureCategoryBreakdown{
		{Category: "pii_availability", Weight: 0.40, Count: piiCount, SourceRefs: piiRefs},
		{Category: "address_data", Weight: 0.20, Count: addressCount, SourceRefs: addressRefs},
		{Category: "financial_data", Weight: 0.25, Count: financialCount, SourceRefs: financialRefs},
		{Category: "credential_availability", Weight: 0.15, Count: credentialCount, SourceRefs: credentialRefs},
	}
	return clamp100(score), breakdown
}

// miscScore: the spec names a fourth "misc" factor in the overall-score
// formula without describing it further (an open question — resolved
// here as cross-source corroboration strength: the fraction of resolved
// entities that reached "verified" or "probable" status, reflecting how
// much of the investigation's footprint is well-attested rather than a
// single weak mention).
func miscScore(entities []models.ResolvedEntity) float64 {
	if len(entities) == 0 {
		return 0
	}
	var corroborated int
	for _, e := range entities {
		if e.VerificationStatus == models.VerificationVerified || e.VerificationStatus == models.VerificationProbable {
			corroborated++
		}
	}
	return float64(corroborated) / float64(len(entities)) * 100
}

func overallScore(privacy, security, identity, misc float64) float64 {
	return 0.35*privacy + 0.30*security + 0.20*identity + 0.15*misc
}

func intAttr(a models.Attributes, key string) (int, bool) {
	v, ok := a.Get(key)
	if !ok {
		return 0, false
	}
	n := 0
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

func boolAttr(a models.Attributes, key string) bool {
	v, ok := a.Get(key)
	return ok && v == "true"
}

func saturate(count, max int) float64 {
	v := float64(count) / float64(max)
	if v > 1 {
		return 1
	}
	return v
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// topExposures returns the names of the highest-contributing breakdown
// categories across all three sub-scores, for the executive summary's
// key_exposures field.
func topExposures(breakdowns ...[]models.ExposureCategoryBreakdown) []string {
	type weighted struct {
		name  string
		score float64
	}
	var all []weighted
	for _, list := range breakdowns {
		for _, b := range list {
			if b.Count == 0 {
				continue
			}
			all = append(all, weighted{name: b.Category, score: b.Weight * float64(b.Count)})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })

	const maxExposures = 5
	out := make([]string, 0, maxExposures)
	for i := 0; i < len(all) && i < maxExposures; i++ {
		out = append(out, all[i].name)
	}
	return out
}
