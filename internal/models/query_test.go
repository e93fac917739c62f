package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryFingerprint_DeterministicAcrossParameterOrder(t *testing.T) {
	a := Query{Kind: QueryKindEmail, QueryString: "Jane@Example.com", Parameters: map[string]string{"page": "1", "lang": "en"}}
	b := Query{Kind: QueryKindEmail, QueryString: "  jane@example.com ", Parameters: map[string]string{"lang": "en", "page": "1"}}

	assert.Equal(t, a.Fingerprint("breach-database"), b.Fingerprint("breach-database"))
}

func TestQueryFingerprint_ScopedToConnectorAndQuery(t *testing.T) {
	q := Query{Kind: QueryKindName, QueryString: "jane doe"}

	assert.NotEqual(t, q.Fingerprint("search-engine"), q.Fingerprint("social-media"))

	other := Query{Kind: QueryKindName, QueryString: "john doe"}
	assert.NotEqual(t, q.Fingerprint("search-engine"), other.Fingerprint("search-engine"))
}
