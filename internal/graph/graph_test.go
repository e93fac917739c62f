package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osint-pipeline/investigator/internal/models"
)

func entity(id string) models.ResolvedEntity {
	return models.ResolvedEntity{EntityID: id, EntityType: models.EntityTypePerson}
}

func TestGraph_AddNodeIdempotent(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("a"))
	assert.Equal(t, a, b)
	assert.Equal(t, 1, g.NodeCount())
}

func TestGraph_AddEdgeMergesStrengthAndConfidence(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("b"))

	g.AddEdge(a, b, models.RelationshipKnows, models.EdgeClassDirect, 0.5, 0.6, []string{"s1"})
	g.AddEdge(a, b, models.RelationshipKnows, models.EdgeClassDirect, 0.5, 0.9, []string{"s2"})

	edges := g.Edges(a)
	require.Len(t, edges, 1)
	assert.InDelta(t, 1-(1-0.5)*(1-0.5), edges[0].Strength, 1e-9)
	assert.Equal(t, 0.9, edges[0].Confidence)
	assert.ElementsMatch(t, []string{"s1", "s2"}, edges[0].Sources)
}

func TestGraph_AddEdgeRejectsSelfEdgeUnlessSameIdentity(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))

	idx := g.AddEdge(a, a, models.RelationshipKnows, models.EdgeClassDirect, 0.5, 0.5, nil)
	assert.Equal(t, -1, idx)

	idx = g.AddEdge(a, a, models.RelationshipSameIdentity, models.EdgeClassDirect, 0.5, 0.5, nil)
	assert.NotEqual(t, -1, idx)
}

func TestGraph_EgoNetworkRespectsDepth(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("b"))
	c := g.AddNode(entity("c"))
	g.AddEdge(a, b, models.RelationshipKnows, models.EdgeClassDirect, 1, 1, nil)
	g.AddEdge(b, c, models.RelationshipKnows, models.EdgeClassDirect, 1, 1, nil)

	assert.ElementsMatch(t, []int{a, b}, g.EgoNetwork(a, 1))
	assert.ElementsMatch(t, []int{a, b, c}, g.EgoNetwork(a, 2))
}

func TestGraph_ShortestPathPrefersHigherConfidence(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("b"))
	c := g.AddNode(entity("c"))
	d := g.AddNode(entity("d"))

	g.AddEdge(a, b, models.RelationshipKnows, models.EdgeClassDirect, 1, 0.5, nil)
	g.AddEdge(b, d, models.RelationshipKnows, models.EdgeClassDirect, 1, 0.5, nil)
	g.AddEdge(a, c, models.RelationshipKnows, models.EdgeClassDirect, 1, 0.9, nil)
	g.AddEdge(c, d, models.RelationshipKnows, models.EdgeClassDirect, 1, 0.9, nil)

	path, ok := g.ShortestPath(a, d)
	require.True(t, ok)
	assert.Equal(t, []int{a, c, d}, path.Nodes)
}

func TestGraph_TransitiveClosureAddsInferredEdges(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("b"))
	c := g.AddNode(entity("c"))
	g.AddEdge(a, b, models.RelationshipWorksWith, models.EdgeClassDirect, 0.8, 0.8, nil)
	g.AddEdge(b, c, models.RelationshipWorksWith, models.EdgeClassDirect, 0.8, 0.8, nil)

	added := g.TransitiveClosure(models.RelationshipWorksWith, 2)
	assert.Equal(t, 1, added)

	var found bool
	for _, e := range g.Edges(a) {
		if e.Dst == c && e.Class == models.EdgeClassInferred {
			found = true
			assert.InDelta(t, 0.8*0.8*0.9, e.Confidence, 1e-9)
		}
	}
	assert.True(t, found)
}

func TestGraph_PageRankSumsToApproximatelyOne(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("b"))
	c := g.AddNode(entity("c"))
	g.AddEdge(a, b, models.RelationshipKnows, models.EdgeClassDirect, 1, 1, nil)
	g.AddEdge(b, c, models.RelationshipKnows, models.EdgeClassDirect, 1, 1, nil)
	g.AddEdge(c, a, models.RelationshipKnows, models.EdgeClassDirect, 1, 1, nil)

	ranks := g.PageRank()
	var sum float64
	for _, r := range ranks {
		sum += r
	}
	assert.InDelta(t, 1.0, sum, 0.05)
}

func TestGraph_CommunityDetectionSeparatesComponents(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("b"))
	c := g.AddNode(entity("c"))
	g.AddEdge(a, b, models.RelationshipKnows, models.EdgeClassDirect, 1, 1, nil)

	communities := g.CommunityDetection()
	assert.Equal(t, communities[a], communities[b])
	assert.NotEqual(t, communities[a], communities[c])
}

func TestGraph_StatsReflectsShape(t *testing.T) {
	g := New()
	a := g.AddNode(entity("a"))
	b := g.AddNode(entity("b"))
	g.AddEdge(a, b, models.RelationshipKnows, models.EdgeClassDirect, 1, 0.8, nil)

	stats := g.Stats()
	assert.Equal(t, 2, stats.NodeCount)
	assert.Equal(t, 1, stats.EdgeCount)
	assert.InDelta(t, 0.8, stats.MeanConfidence, 1e-9)
}
