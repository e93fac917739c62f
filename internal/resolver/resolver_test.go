package resolver

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osint-pipeline/investigator/internal/graph"
	"github.com/osint-pipeline/investigator/internal/matcher"
	"github.com/osint-pipeline/investigator/internal/models"
)

func candidate(id string, email string, confidence float64, observedAt time.Time) CandidateSource {
	return CandidateSource{
		Entity: models.NormalizedEntity{
			EntityCandidate: models.EntityCandidate{
				CandidateID:          id,
				EntityType:           models.EntityTypeEmail,
				RawValue:             email,
				ExtractionConfidence: confidence,
				ObservedAt:           observedAt,
				Attributes:           models.Attributes{"display_name": "Jane Doe"},
			},
			NormalizedEmail: email,
			ComparisonKey:   email,
		},
		SourceName:           "source-" + id,
		SourceBaseConfidence: confidence,
	}
}

func TestResolver_MergesExactDuplicates(t *testing.T) {
	r := New(matcher.DefaultWeights())
	now := time.Now()
	candidates := []CandidateSource{
		candidate("c1", "jane@example.com", 0.9, now),
		candidate("c2", "jane@example.com", 0.8, now.Add(time.Hour)),
	}

	result := r.Resolve(candidates, models.DefaultThresholds())
	require.Len(t, result.Resolved, 1)
	assert.ElementsMatch(t, []string{"c1", "c2"}, result.Resolved[0].MemberCandidates)
	assert.Equal(t, models.VerificationVerified, result.Resolved[0].VerificationStatus)
}

func TestResolver_DoesNotMergeUnrelatedCandidates(t *testing.T) {
	r := New(matcher.DefaultWeights())
	now := time.Now()
	candidates := []CandidateSource{
		candidate("c1", "jane@example.com", 0.9, now),
		candidate("c2", "someoneelse@other.com", 0.9, now),
	}

	result := r.Resolve(candidates, models.DefaultThresholds())
	assert.Len(t, result.Resolved, 2)
}

func TestResolver_ConflictingAttributesRecordedAsDisputed(t *testing.T) {
	r := New(matcher.DefaultWeights())
	now := time.Now()
	a := candidate("c1", "jane@example.com", 0.6, now)
	a.Entity.Attributes = models.Attributes{"display_name": "Jane Doe"}
	b := candidate("c2", "jane@example.com", 0.9, now.Add(time.Hour))
	b.Entity.Attributes = models.Attributes{"display_name": "J. Doe"}
	b.SourceBaseConfidence = 0.9

	result := r.Resolve([]CandidateSource{a, b}, models.DefaultThresholds())
	require.Len(t, result.Resolved, 1)
	resolved := result.Resolved[0]
	assert.Equal(t, "J. Doe", resolved.Attributes["display_name"])
	assert.ElementsMatch(t, []string{"J. Doe", "Jane Doe"}, resolved.DisputedAttributes["display_name"])
}

func TestResolver_AmbiguousPairsNotMerged(t *testing.T) {
	r := New(matcher.Weights{Name: 1.0})
	now := time.Now()
	a := CandidateSource{
		Entity: models.NormalizedEntity{
			EntityCandidate: models.EntityCandidate{CandidateID: "c1", EntityType: models.EntityTypePerson, ObservedAt: now},
			NameTokens:      []string{"jane", "doe"},
			ComparisonKey:   "doe jane",
			Soundex:         "D000",
		},
		SourceName: "s1", SourceBaseConfidence: 0.7,
	}
	b := CandidateSource{
		Entity: models.NormalizedEntity{
			EntityCandidate: models.EntityCandidate{CandidateID: "c2", EntityType: models.EntityTypePerson, ObservedAt: now},
			NameTokens:      []string{"jan", "doe"},
			ComparisonKey:   "doe jan",
			Soundex:         "D000",
		},
		SourceName: "s2", SourceBaseConfidence: 0.7,
	}

	thresholds := models.Thresholds{MinimumEntityConfidence: 99, MinimumSourceConfidence: 60}
	result := r.Resolve([]CandidateSource{a, b}, thresholds)
	assert.Len(t, result.Resolved, 2)
}

// clusterSignature reduces a resolved set to an order-insensitive shape:
// one sorted member-ID list per cluster, themselves sorted, so two runs
// over permuted input can be compared without depending on generated
// entity IDs.
func clusterSignature(resolved []models.ResolvedEntity) [][]string {
	out := make([][]string, 0, len(resolved))
	for _, e := range resolved {
		members := append([]string(nil), e.MemberCandidates...)
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Join(out[i], ",") < strings.Join(out[j], ",") })
	return out
}

func TestResolver_ResultIndependentOfInputOrder(t *testing.T) {
	r := New(matcher.DefaultWeights())
	now := time.Now()
	candidates := []CandidateSource{
		candidate("c1", "jane@example.com", 0.9, now),
		candidate("c2", "jane@example.com", 0.8, now.Add(time.Hour)),
		candidate("c3", "someoneelse@other.com", 0.9, now),
		candidate("c4", "third@else.net", 0.7, now),
	}

	forward := r.Resolve(candidates, models.DefaultThresholds())

	reversed := make([]CandidateSource, len(candidates))
	for i, c := range candidates {
		reversed[len(candidates)-1-i] = c
	}
	backward := r.Resolve(reversed, models.DefaultThresholds())

	assert.Equal(t, clusterSignature(forward.Resolved), clusterSignature(backward.Resolved))
}

func TestBuildCoOccurrences_SharedResultProducesEdge(t *testing.T) {
	resolved := []models.ResolvedEntity{
		{EntityID: "e1", MemberCandidates: []string{"c1"}},
		{EntityID: "e2", MemberCandidates: []string{"c2"}},
	}
	refs := map[string][]string{
		"c1": {"source:q1:hash1"},
		"c2": {"source:q1:hash1"},
	}

	edges := BuildCoOccurrences(resolved, refs)
	require.Len(t, edges, 1)
	assert.Equal(t, models.RelationshipCoOccurs, edges[0].Relationship)
}

func TestApplyToGraph_WritesNodesAndEdges(t *testing.T) {
	g := graph.New()
	resolved := []models.ResolvedEntity{
		{EntityID: "e1"},
		{EntityID: "e2"},
	}
	edges := []CoOccurrence{{EntityA: "e1", EntityB: "e2", Relationship: models.RelationshipCoOccurs}}

	ApplyToGraph(g, resolved, edges)
	assert.Equal(t, 2, g.NodeCount())
	idx, _ := g.NodeByEntityID("e1")
	assert.Len(t, g.Edges(idx), 1)
}
