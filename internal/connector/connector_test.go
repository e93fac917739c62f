package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osint-pipeline/investigator/internal/models"
	"github.com/osint-pipeline/investigator/internal/perr"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	adapter := NewHTMLAdapter(HTMLAdapterConfig{
		Name:        "test-source",
		SourceType:  SourceTypeSearchEngine,
		EntityTypes: []models.EntityType{models.EntityTypePerson},
		SearchURL:   func(q models.Query) string { return "https://example.invalid" },
	})
	r.Register(adapter)

	got, ok := r.Get("test-source")
	require.True(t, ok)
	assert.Equal(t, "test-source", got.Name())
}

func TestRegistry_SupportingEntityType(t *testing.T) {
	r := NewRegistry()
	r.Register(NewHTMLAdapter(HTMLAdapterConfig{
		Name:        "email-source",
		EntityTypes: []models.EntityType{models.EntityTypeEmail},
		SearchURL:   func(q models.Query) string { return "https://example.invalid" },
	}))
	r.Register(NewHTMLAdapter(HTMLAdapterConfig{
		Name:        "phone-source",
		EntityTypes: []models.EntityType{models.EntityTypePhone},
		SearchURL:   func(q models.Query) string { return "https://example.invalid" },
	}))

	matches := r.SupportingEntityType(models.EntityTypeEmail)
	require.Len(t, matches, 1)
	assert.Equal(t, "email-source", matches[0].Name())
}

func TestRegistry_ValidateAllReportsPerSourceFailures(t *testing.T) {
	r := NewRegistry()
	r.Register(NewAPIAdapter(APIAdapterConfig{Name: "missing-creds", RequiresCredential: true}))
	r.Register(NewAPIAdapter(APIAdapterConfig{Name: "has-creds", RequiresCredential: true, Credential: "token"}))

	errs := r.ValidateAll(context.Background())
	require.Contains(t, errs, "missing-creds")
	assert.NotContains(t, errs, "has-creds")
	assert.Equal(t, perr.KindCredentialsInvalid, perr.KindOf(errs["missing-creds"]))
}

func TestHTMLAdapter_SearchExtractsTitleAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Jane Doe Profile</title></head><body><p>Works at Acme Corp</p></body></html>`))
	}))
	defer srv.Close()

	adapter := NewHTMLAdapter(HTMLAdapterConfig{
		Name:       "html-test",
		SourceType: SourceTypeSearchEngine,
		SearchURL:  func(q models.Query) string { return srv.URL },
	})

	results, err := adapter.Search(context.Background(), models.Query{QueryID: "q1", QueryString: "jane doe"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Jane Doe Profile", results[0].Title)
	assert.Contains(t, string(results[0].Content), "Acme Corp")
	assert.NotEmpty(t, results[0].ContentHash)
}

func TestHTMLAdapter_SearchClassifiesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	adapter := NewHTMLAdapter(HTMLAdapterConfig{
		Name:      "rl-test",
		SearchURL: func(q models.Query) string { return srv.URL },
	})

	_, err := adapter.Search(context.Background(), models.Query{QueryID: "q1"})
	require.Error(t, err)
	assert.Equal(t, perr.KindRateLimited, perr.KindOf(err))
}

func TestAPIAdapter_SearchRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	adapter := NewAPIAdapter(APIAdapterConfig{
		Name:       "api-test",
		Credential: "token",
		BuildRequest: func(q models.Query) (*http.Request, error) {
			return http.NewRequest(http.MethodGet, srv.URL, nil)
		},
	})

	_, err := adapter.Search(context.Background(), models.Query{QueryID: "q1"})
	require.Error(t, err)
	assert.Equal(t, perr.KindMalformedResponse, perr.KindOf(err))
}

func TestAPIAdapter_ValidateCredentials(t *testing.T) {
	missing := NewAPIAdapter(APIAdapterConfig{Name: "no-creds", RequiresCredential: true})
	assert.Error(t, missing.ValidateCredentials(context.Background()))

	present := NewAPIAdapter(APIAdapterConfig{Name: "has-creds", RequiresCredential: true, Credential: "abc"})
	assert.NoError(t, present.ValidateCredentials(context.Background()))

	anonymous := NewAPIAdapter(APIAdapterConfig{Name: "whois"})
	assert.NoError(t, anonymous.ValidateCredentials(context.Background()))
}

func TestBuildDefaultRegistry_RegistersInitialSet(t *testing.T) {
	r := BuildDefaultRegistry(CredentialSet{})
	names := []string{
		"search-engine", "social-media", "code-repository", "domain-registry",
		"certificate-transparency", "breach-database", "archive",
		"corporate-registry", "patent-registry", "funding-registry", "threat-intel",
	}
	for _, name := range names {
		_, ok := r.Get(name)
		assert.True(t, ok, "expected %s to be registered", name)
	}
}
