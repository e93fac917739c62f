// Package resolver is C9: clusters normalized candidates from possibly
// many sources into resolved entities, consulting the fuzzy matcher (C8)
// for pairwise scoring and producing the co-occurrence edges and
// disputed-attribute record the graph (C10) and report (C12) consume.
package resolver

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/osint-pipeline/investigator/internal/matcher"
	"github.com/osint-pipeline/investigator/internal/models"
)

// CandidateSource pairs a normalized entity with the provenance the
// conflict-resolution rule table needs: which source observed it, that
// source's base confidence, and (via the embedded entity) its extraction
// confidence and observation time.
type CandidateSource struct {
	Entity               models.NormalizedEntity
	SourceName           string
	SourceBaseConfidence float64
}

// AmbiguousPair is a comparable pair scoring between 60 and the merge
// threshold: flagged for human review, never merged (§4.9 step 3).
type AmbiguousPair struct {
	CandidateA, CandidateB string // candidate IDs
	Score                  float64
	Reasons                []matcher.FieldReason
}

// CoOccurrence is a relationship inferred from two resolved entities
// appearing in the same raw result, to be written into C10.
type CoOccurrence struct {
	EntityA, EntityB string
	Relationship     models.RelationshipType
	Sources          []string
}

// Result is C9's output for one resolution pass.
type Result struct {
	Resolved  []models.ResolvedEntity
	Ambiguous []AmbiguousPair
}

// Resolver is C9.
type Resolver struct {
	matcher *matcher.Matcher
}

// New builds a Resolver using the given fuzzy-matching weights.
func New(weights matcher.Weights) *Resolver {
	return &Resolver{matcher: matcher.New(weights)}
}

// Resolve clusters candidates into resolved entities per §4.9.
func (r *Resolver) Resolve(candidates []CandidateSource, thresholds models.Thresholds) Result {
	entities := make([]models.NormalizedEntity, len(candidates))
	for i, c := range candidates {
		entities[i] = c.Entity
	}

	type scoredPair struct {
		a, b    int
		score   float64
		reasons []matcher.FieldReason
	}

	var scored []scoredPair
	for _, pair := range comparablePairs(entities) {
		result := r.matcher.Score(entities[pair[0]], entities[pair[1]])
		scored = append(scored, scoredPair{a: pair[0], b: pair[1], score: result.Score, reasons: result.Reasons})
	}

	minEntity := float64(thresholds.MinimumEntityConfidence)

	var ambiguous []AmbiguousPair
	var mergeEdges []scoredPair
	for _, sp := range scored {
		switch {
		case sp.score >= minEntity:
			mergeEdges = append(mergeEdges, sp)
		case sp.score >= 60:
			ambiguous = append(ambiguous, AmbiguousPair{
				CandidateA: entities[sp.a].CandidateID,
				CandidateB: entities[sp.b].CandidateID,
				Score:      sp.score,
				Reasons:    sp.reasons,
			})
		}
	}

	uf := newUnionFind(len(entities))
	for _, e := range mergeEdges {
		uf.union(e.a, e.b)
	}

	edgeScoreFor := func(a, b int) (float64, bool) {
		for _, e := range mergeEdges {
			if (e.a == a && e.b == b) || (e.a == b && e.b == a) {
				return e.score, true
			}
		}
		return 0, false
	}

	var resolved []models.ResolvedEntity
	for _, members := range uf.groups() {
		resolved = append(resolved, r.resolveCluster(members, candidates, edgeScoreFor)...)
	}

	sort.Slice(resolved, func(i, j int) bool { return resolved[i].EntityID < resolved[j].EntityID })

	return Result{Resolved: resolved, Ambiguous: ambiguous}
}

// resolveCluster builds one or more resolved entities from a connected
// group of candidate indices. If the cluster's confidence (the mean of its
// internal merge scores) falls below 60, the "unlikely" band, the weakest
// merge edge is dropped and the cluster is split and re-evaluated
// (§4.9 step 5, "the cluster is split back on the weakest merge").
func (r *Resolver) resolveCluster(members []int, candidates []CandidateSource, edgeScoreFor func(a, b int) (float64, bool)) []models.ResolvedEntity {
	if len(members) == 1 {
		return []models.ResolvedEntity{r.buildEntity(members, candidates, 100)}
	}

	memberSet := make(map[int]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}

	var internalScores []float64
	weakestScore := 100.0
	weakestA, weakestB := -1, -1
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i], members[j]
			if score, ok := edgeScoreFor(a, b); ok {
				internalScores = append(internalScores, score)
				if score < weakestScore {
					weakestScore, weakestA, weakestB = score, a, b
				}
			}
		}
	}

	confidence := meanScore(internalScores)

	if confidence >= 60 || weakestA < 0 {
		return []models.ResolvedEntity{r.buildEntity(members, candidates, confidence)}
	}

	// Split off the weakest merge edge and recompute sub-clusters using
	// the remaining edges within this group only.
	sub := newUnionFind(len(members))
	indexOf := make(map[int]int, len(members))
	for i, m := range members {
		indexOf[m] = i
	}
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i], members[j]
			if a == weakestA && b == weakestB {
				continue
			}
			if b == weakestA && a == weakestB {
				continue
			}
			if _, ok := edgeScoreFor(a, b); ok {
				sub.union(i, j)
			}
		}
	}

	var out []models.ResolvedEntity
	for _, subMembers := range sub.groups() {
		mapped := make([]int, len(subMembers))
		for i, sm := range subMembers {
			mapped[i] = members[sm]
		}
		out = append(out, r.resolveCluster(mapped, candidates, edgeScoreFor)...)
	}
	return out
}

func meanScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 100
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// buildEntity assembles one resolved entity from its member candidates,
// applying the conflict-resolution rule table: singletons coalesce,
// conflicts prefer higher source.base_confidence, then higher
// extraction_confidence, then recency.
func (r *Resolver) buildEntity(members []int, candidates []CandidateSource, confidence float64) models.ResolvedEntity {
	valuesByKey := make(map[string][]valueProvenance)
	memberIDs := make([]string, 0, len(members))
	sourceSet := make(map[string]bool)
	var first, last time.Time

	for _, idx := range members {
		c := candidates[idx]
		memberIDs = append(memberIDs, c.Entity.CandidateID)
		sourceSet[c.SourceName] = true

		if first.IsZero() || c.Entity.ObservedAt.Before(first) {
			first = c.Entity.ObservedAt
		}
		if c.Entity.ObservedAt.After(last) {
			last = c.Entity.ObservedAt
		}

		for k, v := range c.Entity.Attributes {
			valuesByKey[k] = append(valuesByKey[k], valueProvenance{
				value: v, sourceBaseConfidence: c.SourceBaseConfidence,
				extractionConfidence: c.Entity.ExtractionConfidence, observedAt: c.Entity.ObservedAt,
			})
		}
		valuesByKey["raw_value"] = append(valuesByKey["raw_value"], valueProvenance{
			value: c.Entity.RawValue, sourceBaseConfidence: c.SourceBaseConfidence,
			extractionConfidence: c.Entity.ExtractionConfidence, observedAt: c.Entity.ObservedAt,
		})
	}

	attributes := make(models.Attributes, len(valuesByKey))
	disputed := make(map[string][]string)

	for key, provenances := range valuesByKey {
		distinct := distinctValues(provenances)
		if len(distinct) == 1 {
			attributes[key] = distinct[0]
			continue
		}

		winner := provenances[0]
		for _, p := range provenances[1:] {
			if p.sourceBaseConfidence > winner.sourceBaseConfidence {
				winner = p
				continue
			}
			if p.sourceBaseConfidence == winner.sourceBaseConfidence && p.extractionConfidence > winner.extractionConfidence {
				winner = p
				continue
			}
			if p.sourceBaseConfidence == winner.sourceBaseConfidence && p.extractionConfidence == winner.extractionConfidence && p.observedAt.After(winner.observedAt) {
				winner = p
			}
		}
		attributes[key] = winner.value
		disputed[key] = distinct
	}

	entityType := candidates[members[0]].Entity.EntityType
	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	confidenceInt := int(confidence + 0.5)
	if confidenceInt > 100 {
		confidenceInt = 100
	}

	return models.ResolvedEntity{
		EntityID:           uuid.NewString(),
		EntityType:         entityType,
		Attributes:         attributes,
		DisputedAttributes: disputed,
		Confidence:         confidenceInt,
		VerificationStatus: models.VerificationStatusFor(confidenceInt),
		MemberCandidates:   memberIDs,
		Sources:            sources,
		FirstObserved:      first,
		LastObserved:       last,
	}
}

// valueProvenance tracks one observed attribute value alongside the
// provenance the conflict-resolution rule table needs to pick a winner:
// the observing source's base confidence, the candidate's extraction
// confidence, and when it was observed.
type valueProvenance struct {
	value                string
	sourceBaseConfidence float64
	extractionConfidence float64
	observedAt           time.Time
}

func distinctValues(provenances []valueProvenance) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range provenances {
		if !seen[p.value] {
			seen[p.value] = true
			out = append(out, p.value)
		}
	}
	sort.Strings(out)
	return out
}
