package connector

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/osint-pipeline/investigator/internal/models"
)

// CredentialSet holds the per-source API keys BuildDefaultRegistry wires
// into the spec's initial adapter set (§4.1), built with plausible base
// URLs and credential requirements. Sources missing a configured credential are still registered
// (validate_credentials will report them at startup rather than
// panicking the registry build) since an unconfigured source should not
// prevent the rest of the registry from serving an investigation.
type CredentialSet struct {
	SocialMediaAPIKey  string
	CodeRepoAPIKey     string
	BreachDBAPIKey     string
	CorporateRegAPIKey string
	PatentRegAPIKey    string
	FundingRegAPIKey   string
	ThreatIntelAPIKey  string
}

// BuildDefaultRegistry registers one adapter per source type named in the
// spec's initial set.
func BuildDefaultRegistry(creds CredentialSet) *Registry {
	r := NewRegistry()

	r.Register(NewHTMLAdapter(HTMLAdapterConfig{
		Name:           "search-engine",
		SourceType:     SourceTypeSearchEngine,
		EntityTypes:    []models.EntityType{models.EntityTypePerson, models.EntityTypeOrganization, models.EntityTypeDomain},
		RateLimitHour:  300,
		BaseConfidence: 0.55,
		SearchURL: func(q models.Query) string {
			return "https://search.example.invalid/search?q=" + url.QueryEscape(q.QueryString)
		},
	}))

	r.Register(NewHTMLAdapter(HTMLAdapterConfig{
		Name:           "social-media",
		SourceType:     SourceTypeSocialMedia,
		EntityTypes:    []models.EntityType{models.EntityTypePerson, models.EntityTypeUsername, models.EntityTypeSocialProfile},
		RateLimitHour:  120,
		BaseConfidence: 0.65,
		Credential:     creds.SocialMediaAPIKey,
		SearchURL: func(q models.Query) string {
			return "https://social.example.invalid/profiles?handle=" + url.QueryEscape(q.QueryString)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:               "code-repository",
		SourceType:         SourceTypeCodeRepository,
		EntityTypes:        []models.EntityType{models.EntityTypeUsername, models.EntityTypePerson, models.EntityTypeEmail},
		RateLimitHour:      200,
		BaseConfidence:     0.70,
		Credential:         creds.CodeRepoAPIKey,
		RequiresCredential: true,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://code.example.invalid/api/search/users?q=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:           "domain-registry",
		SourceType:     SourceTypeDomainRegistry,
		EntityTypes:    []models.EntityType{models.EntityTypeDomain, models.EntityTypeOrganization},
		RateLimitHour:  60,
		BaseConfidence: 0.85,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://whois.example.invalid/api/whois?domain=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:           "certificate-transparency",
		SourceType:     SourceTypeCertificateTransparency,
		EntityTypes:    []models.EntityType{models.EntityTypeDomain},
		RateLimitHour:  240,
		BaseConfidence: 0.80,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://crt.example.invalid/api/v1/?q=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:               "breach-database",
		SourceType:         SourceTypeBreachDatabase,
		EntityTypes:        []models.EntityType{models.EntityTypeEmail, models.EntityTypeUsername},
		RateLimitHour:      30,
		BaseConfidence:     0.75,
		Credential:         creds.BreachDBAPIKey,
		RequiresCredential: true,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://breach.example.invalid/api/breaches?account=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	r.Register(NewHTMLAdapter(HTMLAdapterConfig{
		Name:           "archive",
		SourceType:     SourceTypeArchive,
		EntityTypes:    []models.EntityType{models.EntityTypeDomain, models.EntityTypeDocument},
		RateLimitHour:  120,
		BaseConfidence: 0.60,
		SearchURL: func(q models.Query) string {
			return "https://archive.example.invalid/wayback/available?url=" + url.QueryEscape(q.QueryString)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:               "corporate-registry",
		SourceType:         SourceTypeCorporateRegistry,
		EntityTypes:        []models.EntityType{models.EntityTypeOrganization, models.EntityTypePerson},
		RateLimitHour:      60,
		BaseConfidence:     0.85,
		Credential:         creds.CorporateRegAPIKey,
		RequiresCredential: true,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://corp-registry.example.invalid/api/search?q=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:               "patent-registry",
		SourceType:         SourceTypePatentRegistry,
		EntityTypes:        []models.EntityType{models.EntityTypePerson, models.EntityTypeOrganization},
		RateLimitHour:      60,
		BaseConfidence:     0.80,
		Credential:         creds.PatentRegAPIKey,
		RequiresCredential: true,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://patents.example.invalid/api/search?inventor=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:               "funding-registry",
		SourceType:         SourceTypeFundingRegistry,
		EntityTypes:        []models.EntityType{models.EntityTypeOrganization, models.EntityTypePerson},
		RateLimitHour:      60,
		BaseConfidence:     0.75,
		Credential:         creds.FundingRegAPIKey,
		RequiresCredential: true,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://funding.example.invalid/api/rounds?q=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	r.Register(NewAPIAdapter(APIAdapterConfig{
		Name:               "threat-intel",
		SourceType:         SourceTypeThreatIntel,
		EntityTypes:        []models.EntityType{models.EntityTypeDomain, models.EntityTypeEmail, models.EntityTypeOrganization},
		RateLimitHour:      60,
		BaseConfidence:     0.70,
		Credential:         creds.ThreatIntelAPIKey,
		RequiresCredential: true,
		BuildRequest: func(q models.Query) (*http.Request, error) {
			u := "https://threatintel.example.invalid/api/indicators?q=" + url.QueryEscape(q.QueryString)
			return http.NewRequest(http.MethodGet, u, nil)
		},
	}))

	return r
}

// Describe returns a short human-readable summary of a registry's
// contents, used by cmd/osint-cli at startup.
func Describe(r *Registry) string {
	names := make([]string, 0)
	for _, c := range r.All() {
		names = append(names, fmt.Sprintf("%s(%s)", c.Name(), c.Type()))
	}
	return fmt.Sprintf("%d connectors registered: %v", len(names), names)
}
