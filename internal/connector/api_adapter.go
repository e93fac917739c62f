package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

// APIAdapter queries a source whose native response is structured JSON —
// the registry, transparency-log, breach-database, and threat-intel style
// sources that the spec groups separately from free-text HTML sources.
type APIAdapter struct {
	name           string
	sourceType     SourceType
	entityTypes    []models.EntityType
	rateLimitHour  int
	baseConfidence float64
	buildRequest   func(query models.Query) (*http.Request, error)
	client         *http.Client
	credential     string
	requiresCred   bool
}

// APIAdapterConfig configures an APIAdapter.
type APIAdapterConfig struct {
	Name           string
	SourceType     SourceType
	EntityTypes    []models.EntityType
	RateLimitHour  int
	BaseConfidence float64
	BuildRequest   func(query models.Query) (*http.Request, error)
	Client         *http.Client
	Credential     string

	// RequiresCredential marks sources that cannot be queried anonymously;
	// ValidateCredentials fails for them when no credential is configured.
	RequiresCredential bool
}

// NewAPIAdapter builds an APIAdapter from cfg.
func NewAPIAdapter(cfg APIAdapterConfig) *APIAdapter {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &APIAdapter{
		name:           cfg.Name,
		sourceType:     cfg.SourceType,
		entityTypes:    cfg.EntityTypes,
		rateLimitHour:  cfg.RateLimitHour,
		baseConfidence: cfg.BaseConfidence,
		buildRequest:   cfg.BuildRequest,
		client:         client,
		credential:     cfg.Credential,
		requiresCred:   cfg.RequiresCredential,
	}
}

func (a *APIAdapter) Name() string                              { return a.name }
func (a *APIAdapter) Type() SourceType                          { return a.sourceType }
func (a *APIAdapter) SupportedEntityTypes() []models.EntityType { return a.entityTypes }
func (a *APIAdapter) RateLimitPerHour() int                     { return a.rateLimitHour }
func (a *APIAdapter) BaseConfidence() float64                   { return a.baseConfidence }

// ValidateCredentials requires a non-empty credential for keyed API
// sources; anonymous sources (WHOIS, certificate transparency) pass.
func (a *APIAdapter) ValidateCredentials(ctx context.Context) error {
	if a.requiresCred && a.credential == "" {
		return perr.New(perr.KindCredentialsInvalid, "api_adapter.ValidateCredentials", fmt.Errorf("%s: missing credential", a.name))
	}
	return nil
}

// Search issues the adapter's request and caches the raw JSON body as the
// RawResult's content, leaving schema-aware extraction to the parser (§4.6
// treats structural extraction as "opaque to core" — the connector does
// not need to understand the source's own JSON shape).
func (a *APIAdapter) Search(ctx context.Context, query models.Query) ([]models.RawResult, error) {
	req, err := a.buildRequest(query)
	if err != nil {
		return nil, perr.NewFromSource(perr.KindInternal, "api_adapter.Search", a.name, err)
	}
	req = req.WithContext(ctx)
	if a.credential != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+a.credential)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, perr.NewFromSource(perr.KindTimeout, "api_adapter.Search", a.name, ctx.Err())
		}
		return nil, perr.NewFromSource(perr.KindUpstreamUnavailable, "api_adapter.Search", a.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, perr.NewFromSource(perr.KindRateLimited, "api_adapter.Search", a.name, fmt.Errorf("429"))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, perr.NewFromSource(perr.KindCredentialsInvalid, "api_adapter.Search", a.name, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, perr.NewFromSource(perr.KindUpstreamUnavailable, "api_adapter.Search", a.name, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, perr.NewFromSource(perr.KindMalformedResponse, "api_adapter.Search", a.name, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, perr.NewFromSource(perr.KindMalformedResponse, "api_adapter.Search", a.name, err)
	}
	if !json.Valid(body) {
		return nil, perr.NewFromSource(perr.KindMalformedResponse, "api_adapter.Search", a.name, fmt.Errorf("non-JSON response body"))
	}

	sum := sha256.Sum256(body)
	result := models.RawResult{
		QueryID:     query.QueryID,
		SourceName:  a.name,
		URL:         req.URL.String(),
		Content:     body,
		MediaType:   "application/json",
		RetrievedAt: time.Now(),
		ContentHash: hex.EncodeToString(sum[:]),
	}
	return []models.RawResult{result}, nil
}
