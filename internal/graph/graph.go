// Package graph is C10: an arena-indexed directed multigraph over
// resolved entities, typed by relationship and derivation class, with the
// query operations the report and coordinator need (ego network, shortest
// path, transitive closure, pagerank, centrality, community detection).
//
// Node and edge types live here rather than in models to avoid an import
// cycle with internal/report, which reads both models.ResolvedEntity and
// graph.Graph.
package graph

import (
	"sort"

	"github.com/osint-pipeline/investigator/internal/models"
)

// Node wraps a resolved entity with its arena index.
type Node struct {
	Index  int
	Entity models.ResolvedEntity
}

// Edge connects two node indices by relationship and derivation class.
type Edge struct {
	Src, Dst     int
	Relationship models.RelationshipType
	Class        models.EdgeClass
	Strength     float64
	Confidence   float64
	Sources      []string
}

// Graph is C10. Nodes are arena-indexed (append-only slice); edges are
// stored as an adjacency list keyed by src index, deduplicated on
// (src, dst, relationship).
type Graph struct {
	nodes    []Node
	byEntity map[string]int // EntityID -> node index
	adj      map[int][]int  // src index -> edge indices
	edges    []Edge
}

// New builds an empty graph.
func New() *Graph {
	return &Graph{
		byEntity: make(map[string]int),
		adj:      make(map[int][]int),
	}
}

// AddNode inserts a node for the entity if absent, returning its index.
// Idempotent: re-adding the same EntityID returns the existing index and
// refreshes the stored entity snapshot.
func (g *Graph) AddNode(entity models.ResolvedEntity) int {
	if idx, ok := g.byEntity[entity.EntityID]; ok {
		g.nodes[idx].Entity = entity
		return idx
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, Node{Index: idx, Entity: entity})
	g.byEntity[entity.EntityID] = idx
	return idx
}

// NodeByEntityID looks up a node's index by resolved entity ID.
func (g *Graph) NodeByEntityID(entityID string) (int, bool) {
	idx, ok := g.byEntity[entityID]
	return idx, ok
}

// Node returns the node at idx.
func (g *Graph) Node(idx int) Node {
	return g.nodes[idx]
}

// NodeCount returns the number of nodes in the arena.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// AddEdge adds or merges an edge (src, dst, relationship). A duplicate
// edge merges strength via 1-(1-s1)(1-s2) and confidence via max, both of
// which are monotonically non-decreasing, satisfying the graph's merge
// invariant. relationship != same_identity and src == dst is rejected as
// a no-op (no self-edges except same_identity).
func (g *Graph) AddEdge(src, dst int, relationship models.RelationshipType, class models.EdgeClass, strength, confidence float64, sources []string) int {
	if src == dst && relationship != models.RelationshipSameIdentity {
		return -1
	}
	strength = clamp01(strength)
	confidence = clamp01(confidence)

	for _, ei := range g.adj[src] {
		e := &g.edges[ei]
		if e.Dst == dst && e.Relationship == relationship {
			e.Strength = 1 - (1-e.Strength)*(1-strength)
			if confidence > e.Confidence {
				e.Confidence = confidence
			}
			e.Sources = dedupeStrings(append(e.Sources, sources...))
			return ei
		}
	}

	ei := len(g.edges)
	g.edges = append(g.edges, Edge{
		Src: src, Dst: dst, Relationship: relationship, Class: class,
		Strength: strength, Confidence: confidence, Sources: dedupeStrings(sources),
	})
	g.adj[src] = append(g.adj[src], ei)
	return ei
}

// Edges returns every edge originating at src.
func (g *Graph) Edges(src int) []Edge {
	out := make([]Edge, 0, len(g.adj[src]))
	for _, ei := range g.adj[src] {
		out = append(out, g.edges[ei])
	}
	return out
}

// AllEdges returns every edge in the graph.
func (g *Graph) AllEdges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// EgoNetwork returns the BFS subgraph within depth hops of node, as the
// set of reachable node indices (including node itself). depth is capped
// to [1,5] per the documented bound.
func (g *Graph) EgoNetwork(node int, depth int) []int {
	if depth < 1 {
		depth = 1
	}
	if depth > 5 {
		depth = 5
	}

	visited := map[int]int{node: 0}
	queue := []int{node}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] >= depth {
			continue
		}
		for _, ei := range g.adj[cur] {
			nxt := g.edges[ei].Dst
			if _, seen := visited[nxt]; !seen {
				visited[nxt] = visited[cur] + 1
				queue = append(queue, nxt)
			}
		}
	}

	out := make([]int, 0, len(visited))
	for idx := range visited {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// Path is a sequence of node indices connected by the chosen edges.
type Path struct {
	Nodes      []int
	Confidence float64 // product of traversed edge confidences
}

// ShortestPath finds a minimum-hop path from src to dst via BFS. Among
// paths of equal hop count, the one with higher path-confidence (product
// of edge confidences) wins.
func (g *Graph) ShortestPath(src, dst int) (Path, bool) {
	if src == dst {
		return Path{Nodes: []int{src}, Confidence: 1}, true
	}

	type state struct {
		path       []int
		confidence float64
	}
	best := map[int]state{src: {path: []int{src}, confidence: 1}}
	queue := []int{src}
	found := false
	var result state

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		curState := best[cur]

		if found && len(curState.path) >= len(result.path) {
			continue
		}

		for _, ei := range g.adj[cur] {
			e := g.edges[ei]
			nextConfidence := curState.confidence * e.Confidence
			nextPath := append(append([]int(nil), curState.path...), e.Dst)

			existing, seen := best[e.Dst]
			better := !seen ||
				len(nextPath) < len(existing.path) ||
				(len(nextPath) == len(existing.path) && nextConfidence > existing.confidence)

			if better {
				best[e.Dst] = state{path: nextPath, confidence: nextConfidence}
				if !seen {
					queue = append(queue, e.Dst)
				}
				if e.Dst == dst {
					found = true
					result = best[e.Dst]
				}
			}
		}
	}

	if !found {
		return Path{}, false
	}
	return Path{Nodes: result.path, Confidence: result.confidence}, true
}

// TransitiveClosure adds inferred edges A->C whenever A->B and B->C share
// relationship, with strength = product of the two hop strengths and
// confidence = product × 0.9 penalty per additional hop. Runs to
// maxDepth hops and returns the count of inferred edges added.
func (g *Graph) TransitiveClosure(relationship models.RelationshipType, maxDepth int) int {
	added := 0
	frontier := map[[2]int]struct {
		strength, confidence float64
		hops                 int
	}{}

	for src := range g.adj {
		for _, ei := range g.adj[src] {
			e := g.edges[ei]
			if e.Relationship != relationship {
				continue
			}
			frontier[[2]int{src, e.Dst}] = struct {
				strength, confidence float64
				hops                 int
			}{e.Strength, e.Confidence, 1}
		}
	}

	for hop := 1; hop < maxDepth; hop++ {
		next := map[[2]int]struct {
			strength, confidence float64
			hops                 int
		}{}
		for pair, info := range frontier {
			b := pair[1]
			for _, ei := range g.adj[b] {
				e := g.edges[ei]
				if e.Relationship != relationship {
					continue
				}
				a, c := pair[0], e.Dst
				if a == c {
					continue
				}
				strength := info.strength * e.Strength
				confidence := info.confidence * e.Confidence * 0.9
				key := [2]int{a, c}
				if existing, ok := next[key]; !ok || confidence > existing.confidence {
					next[key] = struct {
						strength, confidence float64
						hops                 int
					}{strength, confidence, info.hops + 1}
				}
			}
		}
		for key, info := range next {
			if g.hasDirectEdge(key[0], key[1], relationship) {
				continue
			}
			g.AddEdge(key[0], key[1], relationship, models.EdgeClassInferred, info.strength, info.confidence, nil)
			added++
		}
		frontier = next
		if len(frontier) == 0 {
			break
		}
	}
	return added
}

func (g *Graph) hasDirectEdge(src, dst int, relationship models.RelationshipType) bool {
	for _, ei := range g.adj[src] {
		e := g.edges[ei]
		if e.Dst == dst && e.Relationship == relationship && e.Class == models.EdgeClassDirect {
			return true
		}
	}
	return false
}

// PageRank runs the standard iterative computation with the documented
// damping factor and convergence criteria.
func (g *Graph) PageRank() map[int]float64 {
	const damping = 0.85
	const maxIterations = 20
	const convergence = 1e-4

	n := len(g.nodes)
	if n == 0 {
		return map[int]float64{}
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	outDegree := make([]int, n)
	for src, edges := range g.adj {
		outDegree[src] = len(edges)
	}

	for iter := 0; iter < maxIterations; iter++ {
		next := make([]float64, n)
		for i := range next {
			next[i] = (1 - damping) / float64(n)
		}
		for src, edges := range g.adj {
			if outDegree[src] == 0 {
				continue
			}
			share := damping * rank[src] / float64(outDegree[src])
			for _, ei := range edges {
				next[g.edges[ei].Dst] += share
			}
		}

		var delta float64
		for i := range next {
			d := next[i] - rank[i]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		rank = next
		if delta < convergence {
			break
		}
	}

	out := make(map[int]float64, n)
	for i, r := range rank {
		out[i] = r
	}
	return out
}

// DegreeCentrality returns in+out degree per node.
func (g *Graph) DegreeCentrality() map[int]int {
	out := make(map[int]int, len(g.nodes))
	for _, n := range g.nodes {
		out[n.Index] = 0
	}
	for src, edges := range g.adj {
		out[src] += len(edges)
		for _, ei := range edges {
			out[g.edges[ei].Dst]++
		}
	}
	return out
}

// BetwennessCentralitySampleThreshold triggers approximate sampling
// instead of exact all-pairs computation.
const BetwennessCentralitySampleThreshold = 1000

// BetweennessCentrality computes (approximate, via sampled single-source
// BFS, above the node-count threshold) betweenness centrality.
func (g *Graph) BetweennessCentrality() map[int]float64 {
	out := make(map[int]float64, len(g.nodes))
	for _, n := range g.nodes {
		out[n.Index] = 0
	}
	if len(g.nodes) == 0 {
		return out
	}

	sources := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		sources[i] = n.Index
	}
	if len(g.nodes) > BetwennessCentralitySampleThreshold {
		sources = sampleIndices(sources, BetwennessCentralitySampleThreshold)
	}

	for _, s := range sources {
		g.accumulateBrandes(s, out)
	}
	return out
}

// accumulateBrandes runs one pass of Brandes' algorithm from source s,
// accumulating betweenness contributions into out.
func (g *Graph) accumulateBrandes(s int, out map[int]float64) {
	n := len(g.nodes)
	sigma := make([]float64, n)
	dist := make([]int, n)
	for i := range dist {
		dist[i] = -1
	}
	sigma[s] = 1
	dist[s] = 0

	var stack []int
	predecessors := make([][]int, n)
	queue := []int{s}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		stack = append(stack, v)
		for _, ei := range g.adj[v] {
			w := g.edges[ei].Dst
			if dist[w] < 0 {
				dist[w] = dist[v] + 1
				queue = append(queue, w)
			}
			if dist[w] == dist[v]+1 {
				sigma[w] += sigma[v]
				predecessors[w] = append(predecessors[w], v)
			}
		}
	}

	delta := make([]float64, n)
	for i := len(stack) - 1; i >= 0; i-- {
		w := stack[i]
		for _, v := range predecessors[w] {
			if sigma[w] != 0 {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
		}
		if w != s {
			out[w] += delta[w]
		}
	}
}

func sampleIndices(all []int, k int) []int {
	if len(all) <= k {
		return all
	}
	step := len(all) / k
	if step < 1 {
		step = 1
	}
	var out []int
	for i := 0; i < len(all) && len(out) < k; i += step {
		out = append(out, all[i])
	}
	return out
}

// CommunityDetection partitions nodes into connected components over a
// symmetrized (undirected) view of the graph. Returns a map from node
// index to community ID.
func (g *Graph) CommunityDetection() map[int]int {
	undirected := make(map[int][]int, len(g.nodes))
	for src, edges := range g.adj {
		for _, ei := range edges {
			dst := g.edges[ei].Dst
			undirected[src] = append(undirected[src], dst)
			undirected[dst] = append(undirected[dst], src)
		}
	}

	community := make(map[int]int, len(g.nodes))
	nextID := 0
	for _, n := range g.nodes {
		if _, seen := community[n.Index]; seen {
			continue
		}
		queue := []int{n.Index}
		community[n.Index] = nextID
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range undirected[cur] {
				if _, seen := community[nb]; !seen {
					community[nb] = nextID
					queue = append(queue, nb)
				}
			}
		}
		nextID++
	}
	return community
}

// Statistics summarizes the current graph shape.
type Statistics struct {
	NodeCount      int
	EdgeCount      int
	Density        float64
	MeanDegree     float64
	ComponentCount int
	MeanConfidence float64
}

// Stats computes §4.10's documented summary statistics.
func (g *Graph) Stats() Statistics {
	n := len(g.nodes)
	e := len(g.edges)

	var density float64
	if n > 1 {
		density = float64(e) / float64(n*(n-1))
	}

	var meanDegree float64
	if n > 0 {
		meanDegree = float64(2*e) / float64(n)
	}

	var meanConfidence float64
	if e > 0 {
		var sum float64
		for _, edge := range g.edges {
			sum += edge.Confidence
		}
		meanConfidence = sum / float64(e)
	}

	components := g.CommunityDetection()
	componentSet := map[int]struct{}{}
	for _, c := range components {
		componentSet[c] = struct{}{}
	}

	return Statistics{
		NodeCount:      n,
		EdgeCount:      e,
		Density:        density,
		MeanDegree:     meanDegree,
		ComponentCount: len(componentSet),
		MeanConfidence: meanConfidence,
	}
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

func dedupeStrings(xs []string) []string {
	seen := make(map[string]bool, len(xs))
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		if x == "" || seen[x] {
			continue
		}
		seen[x] = true
		out = append(out, x)
	}
	return out
}
