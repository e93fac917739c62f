// Package planner is C5: it turns seed identifiers into a deduplicated,
// prioritized query plan, routes each query to the connectors whose
// supported entity types intersect its kind, and rejects anything
// matching a blocked pattern before it ever reaches the scheduler.
package planner

import (
	"fmt"

	"github.com/osint-pipeline/investigator/internal/connector"
	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

// Planner is C5.
type Planner struct {
	registry *connector.Registry
}

// New builds a Planner against the given connector registry.
func New(registry *connector.Registry) *Planner {
	return &Planner{registry: registry}
}

// RejectedQuery records a query that failed the security pass along with
// why, for the investigation's errors[] log.
type RejectedQuery struct {
	QueryString string
	Reason      string
}

// Plan turns seed into a deduplicated, priority-ordered query plan.
// Rejected queries are returned separately rather than silently dropped
// so the caller can attribute them in the investigation record.
func (p *Planner) Plan(seed models.SeedInput) ([]models.Query, []RejectedQuery) {
	var raw []models.Query
	si := seed.SubjectIdentifiers

	if si.FullName != "" {
		raw = append(raw, p.templateQueries(models.QueryKindName, si.FullName, 1)...)
	}
	for _, u := range si.Usernames {
		raw = append(raw, p.templateQueries(models.QueryKindUsername, u, 1)...)
	}
	for _, e := range si.Emails {
		raw = append(raw, p.templateQueries(models.QueryKindEmail, e, 1)...)
	}
	for _, ph := range si.PhoneNumbers {
		raw = append(raw, p.templateQueries(models.QueryKindPhone, ph, 1)...)
	}
	for _, d := range si.KnownDomains {
		raw = append(raw, p.templateQueries(models.QueryKindDomain, d, 1)...)
	}

	if si.FullName != "" && si.GeographicHints != nil && si.GeographicHints.City != "" {
		composite := fmt.Sprintf("%s %s", si.FullName, si.GeographicHints.City)
		raw = append(raw, p.templateQueries(models.QueryKindComposite, composite, 1)...)
	}
	if si.FullName != "" && si.ProfessionalHints != nil && si.ProfessionalHints.Employer != "" {
		composite := fmt.Sprintf("%s %s", si.FullName, si.ProfessionalHints.Employer)
		raw = append(raw, p.templateQueries(models.QueryKindComposite, composite, 1)...)
	}

	return p.finalize(raw)
}

// Expand generates follow-up queries at the next depth from newly
// discovered identifiers, honoring constraints.max_search_depth (checked
// by the caller, C13, which knows the current round number).
func (p *Planner) Expand(discovered []models.EntityCandidate, depth int) ([]models.Query, []RejectedQuery) {
	var raw []models.Query
	for _, c := range discovered {
		kind, ok := kindForEntityType(c.EntityType)
		if !ok {
			continue
		}
		raw = append(raw, p.templateQueries(kind, c.RawValue, depth)...)
	}
	return p.finalize(raw)
}

func kindForEntityType(et models.EntityType) (models.QueryKind, bool) {
	switch et {
	case models.EntityTypePerson:
		return models.QueryKindName, true
	case models.EntityTypeUsername, models.EntityTypeSocialProfile:
		return models.QueryKindUsername, true
	case models.EntityTypeEmail:
		return models.QueryKindEmail, true
	case models.EntityTypePhone:
		return models.QueryKindPhone, true
	case models.EntityTypeDomain:
		return models.QueryKindDomain, true
	case models.EntityTypeOrganization:
		return models.QueryKindCompany, true
	case models.EntityTypeLocation:
		return models.QueryKindLocation, true
	default:
		return "", false
	}
}

// templateQueries instantiates one query per connector supporting the
// query kind's natural entity type, per step 1-2 of §4.5's algorithm.
func (p *Planner) templateQueries(kind models.QueryKind, value string, depth int) []models.Query {
	et := entityTypeForKind(kind)
	candidates := p.registry.SupportingEntityType(et)
	if len(candidates) == 0 {
		return nil
	}

	out := make([]models.Query, 0, len(candidates))
	for _, conn := range candidates {
		out = append(out, models.Query{
			QueryID:          fmt.Sprintf("%s:%s:%s", kind, conn.Name(), value),
			QueryString:      value,
			Kind:             kind,
			TargetConnectors: []string{conn.Name()},
			Priority:         priorityFor(kind, conn.BaseConfidence()),
			Depth:            depth,
		})
	}
	return out
}

func entityTypeForKind(kind models.QueryKind) models.EntityType {
	switch kind {
	case models.QueryKindName:
		return models.EntityTypePerson
	case models.QueryKindUsername:
		return models.EntityTypeUsername
	case models.QueryKindEmail:
		return models.EntityTypeEmail
	case models.QueryKindPhone:
		return models.EntityTypePhone
	case models.QueryKindDomain:
		return models.EntityTypeDomain
	case models.QueryKindCompany:
		return models.EntityTypeOrganization
	case models.QueryKindLocation:
		return models.EntityTypeLocation
	default:
		return models.EntityTypePerson
	}
}

// priorityFor scores a 0-100 priority as a linear combination of the
// query's specificity (composite queries score higher) and the
// connector's declared base_confidence.
func priorityFor(kind models.QueryKind, baseConfidence float64) int {
	specificity := 40
	if kind == models.QueryKindComposite {
		specificity = 70
	}
	score := specificity + int(baseConfidence*30)
	if score > 100 {
		score = 100
	}
	return score
}

// finalize deduplicates by (kind, query_string, target_connector,
// parameters) and runs the security pass, per steps 4-5 of §4.5.
func (p *Planner) finalize(raw []models.Query) ([]models.Query, []RejectedQuery) {
	seen := make(map[string]bool, len(raw))
	var plan []models.Query
	var rejected []RejectedQuery

	for _, q := range raw {
		if ContainsBlockedPattern(q.QueryString) {
			rejected = append(rejected, RejectedQuery{QueryString: q.QueryString, Reason: string(perr.KindSecurityRejected)})
			continue
		}
		var connector string
		if len(q.TargetConnectors) > 0 {
			connector = q.TargetConnectors[0]
		}
		key := fmt.Sprintf("%s|%s|%s|%v", q.Kind, q.QueryString, connector, q.Parameters)
		if seen[key] {
			continue
		}
		seen[key] = true
		plan = append(plan, q)
	}
	return plan, rejected
}
