// Package connector is C1: the SourceConnector interface and a registry of
// adapters keyed by source name. Each adapter encodes one external
// source's native query dialect and response envelope. The registry shape
// (map + mutex + options struct, startup validation loop) follows the
// teacher's SiteContextManager construction pattern
// (internal/driven/context_manager.go) repointed at connectors instead of
// per-host contexts.
package connector

import (
	"context"
	"sync"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

// SourceType buckets connectors by the kind of external source they
// query, per the spec's initial adapter set.
type SourceType string

const (
	SourceTypeSearchEngine            SourceType = "search-engine"
	SourceTypeSocialMedia             SourceType = "social-media"
	SourceTypeCodeRepository          SourceType = "code-repository"
	SourceTypeDomainRegistry          SourceType = "domain-registry"
	SourceTypeCertificateTransparency SourceType = "certificate-transparency"
	SourceTypeBreachDatabase          SourceType = "breach-database"
	SourceTypeArchive                 SourceType = "archive"
	SourceTypeCorporateRegistry       SourceType = "corporate-registry"
	SourceTypePatentRegistry          SourceType = "patent-registry"
	SourceTypeFundingRegistry         SourceType = "funding-registry"
	SourceTypeThreatIntel             SourceType = "threat-intel"
)

// SourceConnector is the polymorphic adapter contract every source
// implements (§4.1). search must honor ctx's deadline/cancellation and
// return partial results plus a timeout error rather than hang; it never
// panics on upstream failure — failures surface as classified *perr.Error
// values the scheduler can classify as transient or terminal.
type SourceConnector interface {
	Name() string
	Type() SourceType
	SupportedEntityTypes() []models.EntityType
	RateLimitPerHour() int
	BaseConfidence() float64
	Search(ctx context.Context, query models.Query) ([]models.RawResult, error)
	ValidateCredentials(ctx context.Context) error
}

// Registry holds the configured set of connectors, keyed by stable
// source name.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]SourceConnector
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]SourceConnector)}
}

// Register adds a connector, overwriting any existing one with the same
// name.
func (r *Registry) Register(c SourceConnector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Name()] = c
}

// Get returns the named connector, or ok=false if unregistered.
func (r *Registry) Get(name string) (SourceConnector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[name]
	return c, ok
}

// All returns every registered connector in no particular order.
func (r *Registry) All() []SourceConnector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]SourceConnector, 0, len(r.connectors))
	for _, c := range r.connectors {
		out = append(out, c)
	}
	return out
}

// SupportingEntityType returns every registered connector whose
// SupportedEntityTypes includes et, used by the planner's routing step.
func (r *Registry) SupportingEntityType(et models.EntityType) []SourceConnector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []SourceConnector
	for _, c := range r.connectors {
		for _, supported := range c.SupportedEntityTypes() {
			if supported == et {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ValidateAll runs ValidateCredentials against every registered connector
// at startup, collecting failures rather than aborting on the first one —
// an adapter with bad or missing credentials should not block the rest of
// the registry from serving the investigation.
func (r *Registry) ValidateAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	results := make(map[string]error, len(r.connectors))
	for name, c := range r.connectors {
		if err := c.ValidateCredentials(ctx); err != nil {
			results[name] = perr.NewFromSource(perr.KindCredentialsInvalid, "connector.ValidateAll", name, err)
		}
	}
	return results
}
