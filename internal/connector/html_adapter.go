package connector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

// HTMLAdapter queries a source whose native response is an HTML document
// and extracts a title plus the page's visible text, following the
// teacher's goquery.NewDocumentFromReader + doc.Find(...).Each(...)
// pattern (internal/driven/analyzer.go, internal/utils/form_extractor.go).
type HTMLAdapter struct {
	name           string
	sourceType     SourceType
	entityTypes    []models.EntityType
	rateLimitHour  int
	baseConfidence float64
	searchURL      func(query models.Query) string
	client         *http.Client
	credential     string // opaque API key/token, empty if the source needs none
}

// HTMLAdapterConfig configures an HTMLAdapter.
type HTMLAdapterConfig struct {
	Name           string
	SourceType     SourceType
	EntityTypes    []models.EntityType
	RateLimitHour  int
	BaseConfidence float64
	SearchURL      func(query models.Query) string
	Client         *http.Client
	Credential     string
}

// NewHTMLAdapter builds an HTMLAdapter from cfg.
func NewHTMLAdapter(cfg HTMLAdapterConfig) *HTMLAdapter {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLAdapter{
		name:           cfg.Name,
		sourceType:     cfg.SourceType,
		entityTypes:    cfg.EntityTypes,
		rateLimitHour:  cfg.RateLimitHour,
		baseConfidence: cfg.BaseConfidence,
		searchURL:      cfg.SearchURL,
		client:         client,
		credential:     cfg.Credential,
	}
}

func (a *HTMLAdapter) Name() string                              { return a.name }
func (a *HTMLAdapter) Type() SourceType                          { return a.sourceType }
func (a *HTMLAdapter) SupportedEntityTypes() []models.EntityType { return a.entityTypes }
func (a *HTMLAdapter) RateLimitPerHour() int                     { return a.rateLimitHour }
func (a *HTMLAdapter) BaseConfidence() float64                   { return a.baseConfidence }

// ValidateCredentials fails with credentials_invalid when no search URL
// template is configured. It does not check any API key or other credential.
func (a *HTMLAdapter) ValidateCredentials(ctx context.Context) error {
	if a.searchURL == nil {
		return perr.New(perr.KindCredentialsInvalid, "html_adapter.ValidateCredentials", fmt.Errorf("%s: no search URL template configured", a.name))
	}
	return nil
}

// Search performs one HTTP GET against the adapter's search URL template
// and extracts the document's title and visible text into a single
// RawResult. It honors ctx's deadline/cancellation.
func (a *HTMLAdapter) Search(ctx context.Context, query models.Query) ([]models.RawResult, error) {
	target := a.searchURL(query)
	if _, err := url.Parse(target); err != nil {
		return nil, perr.NewFromSource(perr.KindMalformedResponse, "html_adapter.Search", a.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, perr.NewFromSource(perr.KindInternal, "html_adapter.Search", a.name, err)
	}
	if a.credential != "" {
		req.Header.Set("Authorization", "Bearer "+a.credential)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, perr.NewFromSource(perr.KindTimeout, "html_adapter.Search", a.name, ctx.Err())
		}
		return nil, perr.NewFromSource(perr.KindUpstreamUnavailable, "html_adapter.Search", a.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, perr.NewFromSource(perr.KindRateLimited, "html_adapter.Search", a.name, fmt.Errorf("429"))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, perr.NewFromSource(perr.KindCredentialsInvalid, "html_adapter.Search", a.name, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 500 {
		return nil, perr.NewFromSource(perr.KindUpstreamUnavailable, "html_adapter.Search", a.name, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, perr.NewFromSource(perr.KindMalformedResponse, "html_adapter.Search", a.name, fmt.Errorf("status %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, perr.NewFromSource(perr.KindMalformedResponse, "html_adapter.Search", a.name, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	var textBuilder strings.Builder
	doc.Find("body").Each(func(i int, s *goquery.Selection) {
		textBuilder.WriteString(s.Text())
		textBuilder.WriteString("\n")
	})
	content := []byte(strings.TrimSpace(textBuilder.String()))

	sum := sha256.Sum256(content)
	result := models.RawResult{
		QueryID:     query.QueryID,
		SourceName:  a.name,
		URL:         target,
		Title:       title,
		Content:     content,
		MediaType:   "text/html",
		RetrievedAt: time.Now(),
		ContentHash: hex.EncodeToString(sum[:]),
	}
	return []models.RawResult{result}, nil
}
