package resolver

import (
	"github.com/osint-pipeline/investigator/internal/graph"
	"github.com/osint-pipeline/investigator/internal/models"
)

// BuildCoOccurrences derives co_occurs edges between resolved entities
// whose member candidates share a raw-result reference (§4.9: "edges
// derived from co-mention in the same raw result become co_occurs").
func BuildCoOccurrences(resolved []models.ResolvedEntity, candidateSourceRefs map[string][]string) []CoOccurrence {
	resultToEntities := make(map[string]map[string]bool)
	for _, re := range resolved {
		for _, candidateID := range re.MemberCandidates {
			for _, resultID := range candidateSourceRefs[candidateID] {
				if resultToEntities[resultID] == nil {
					resultToEntities[resultID] = make(map[string]bool)
				}
				resultToEntities[resultID][re.EntityID] = true
			}
		}
	}

	seen := make(map[[2]string]bool)
	var edges []CoOccurrence
	for resultID, entitySet := range resultToEntities {
		entityIDs := make([]string, 0, len(entitySet))
		for id := range entitySet {
			entityIDs = append(entityIDs, id)
		}
		for i := 0; i < len(entityIDs); i++ {
			for j := i + 1; j < len(entityIDs); j++ {
				a, b := entityIDs[i], entityIDs[j]
				if a > b {
					a, b = b, a
				}
				key := [2]string{a, b}
				if seen[key] {
					continue
				}
				seen[key] = true
				edges = append(edges, CoOccurrence{
					EntityA: a, EntityB: b,
					Relationship: models.RelationshipCoOccurs,
					Sources:      []string{resultID},
				})
			}
		}
	}
	return edges
}

// ApplyToGraph writes a resolution result into g: one node per resolved
// entity and one edge per derived co-occurrence.
func ApplyToGraph(g *graph.Graph, resolved []models.ResolvedEntity, edges []CoOccurrence) {
	for _, re := range resolved {
		g.AddNode(re)
	}
	for _, e := range edges {
		srcIdx, ok1 := g.NodeByEntityID(e.EntityA)
		dstIdx, ok2 := g.NodeByEntityID(e.EntityB)
		if !ok1 || !ok2 {
			continue
		}
		g.AddEdge(srcIdx, dstIdx, e.Relationship, models.EdgeClassDirect, 0.5, 0.6, e.Sources)
	}
}
