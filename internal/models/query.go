package models

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// QueryKind is the closed set of query shapes the planner can emit.
type QueryKind string

const (
	QueryKindName      QueryKind = "name"
	QueryKindUsername  QueryKind = "username"
	QueryKindEmail     QueryKind = "email"
	QueryKindPhone     QueryKind = "phone"
	QueryKindDomain    QueryKind = "domain"
	QueryKindCompany   QueryKind = "company"
	QueryKindLocation  QueryKind = "location"
	QueryKindComposite QueryKind = "composite"
)

// Query is one unit of planned work: a single search string routed to a
// specific ordered set of connectors.
type Query struct {
	QueryID          string            `json:"query_id"`
	QueryString      string            `json:"query_string"`
	Kind             QueryKind         `json:"kind"`
	TargetConnectors []string          `json:"target_connectors"`
	Priority         int               `json:"priority"` // 0-100
	Parameters       map[string]string `json:"parameters,omitempty"`
	Depth            int               `json:"depth"` // hop distance from seed
}

// Fingerprint is the deterministic key used by the fetch cache, scoped to
// one connector's view of the query.
type Fingerprint string

// Fingerprint hashes (source, kind, normalized query string, parameters)
// into the cache key for one connector's view of this query. Parameters
// are folded in sorted-key order so two maps with the same contents hash
// identically.
func (q Query) Fingerprint(connectorName string) Fingerprint {
	h := sha256.New()
	h.Write([]byte(connectorName))
	h.Write([]byte{0})
	h.Write([]byte(q.Kind))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(q.QueryString))))

	keys := make([]string, 0, len(q.Parameters))
	for k := range q.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(q.Parameters[k]))
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
