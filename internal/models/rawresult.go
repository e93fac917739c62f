package models

import "time"

// RawResult is exactly what one connector returned for one query: the
// bytes, the envelope metadata, and a content hash that is a pure function
// of the bytes (testable property §8.7).
type RawResult struct {
	QueryID      string            `json:"query_id"`
	SourceName   string            `json:"source_name"`
	URL          string            `json:"url"`
	Title        string            `json:"title,omitempty"`
	Content      []byte            `json:"-"`
	MediaType    string            `json:"media_type"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RetrievedAt  time.Time         `json:"retrieved_at"`
	ContentHash  string            `json:"content_hash"`
	SecurityFlag bool              `json:"security_flag,omitempty"` // set by parser on unsafe content
}

// ResultID derives a stable identity for a raw result from its query and
// content hash; raw results are not separately IDed fields in the
// wire-model so callers compose this instead of inventing a random UUID
// per fetch, which would break cache coalescing's "exactly one call per
// fingerprint" invariant.
func (r RawResult) ResultID() string {
	return r.SourceName + ":" + r.QueryID + ":" + r.ContentHash
}
