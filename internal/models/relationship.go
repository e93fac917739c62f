package models

// RelationshipType is the closed set of edge labels the graph package
// accepts. "same_identity" is the only type allowed to connect two
// ResolvedEntity nodes of different EntityType (e.g. a person and the
// email proven to belong to them); it is also the only relationship
// exempt from the no-self-edge invariant.
type RelationshipType string

const (
	RelationshipWorksWith    RelationshipType = "works_with"
	RelationshipKnows        RelationshipType = "knows"
	RelationshipFamily       RelationshipType = "family"
	RelationshipOwns         RelationshipType = "owns"
	RelationshipRegistered   RelationshipType = "registered"
	RelationshipLocatedAt    RelationshipType = "located_at"
	RelationshipAuthored     RelationshipType = "authored"
	RelationshipCites        RelationshipType = "cites"
	RelationshipSameIdentity RelationshipType = "same_identity"
	RelationshipCoOccurs     RelationshipType = "co_occurs"
)

// EdgeClass records how an edge was derived: observed directly in a
// source, inferred from other edges, or produced by transitive closure.
type EdgeClass string

const (
	EdgeClassDirect     EdgeClass = "direct"
	EdgeClassInferred   EdgeClass = "inferred"
	EdgeClassTransitive EdgeClass = "transitive"
)
