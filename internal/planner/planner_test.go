package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osint-pipeline/investigator/internal/connector"
	"github.com/osint-pipeline/investigator/internal/models"
)

func testRegistry() *connector.Registry {
	r := connector.NewRegistry()
	r.Register(connector.NewHTMLAdapter(connector.HTMLAdapterConfig{
		Name:           "name-source",
		EntityTypes:    []models.EntityType{models.EntityTypePerson},
		BaseConfidence: 0.6,
		SearchURL:      func(q models.Query) string { return "https://example.invalid" },
	}))
	r.Register(connector.NewHTMLAdapter(connector.HTMLAdapterConfig{
		Name:           "email-source",
		EntityTypes:    []models.EntityType{models.EntityTypeEmail},
		BaseConfidence: 0.8,
		SearchURL:      func(q models.Query) string { return "https://example.invalid" },
	}))
	return r
}

func TestPlanner_PlanInstantiatesTemplateQueries(t *testing.T) {
	p := New(testRegistry())
	seed := models.SeedInput{
		SubjectIdentifiers: models.SubjectIdentifiers{
			FullName: "Jane Doe",
			Emails:   []string{"jane@example.com"},
		},
	}

	plan, rejected := p.Plan(seed)
	require.Empty(t, rejected)
	require.NotEmpty(t, plan)

	var sawName, sawEmail bool
	for _, q := range plan {
		if q.Kind == models.QueryKindName {
			sawName = true
		}
		if q.Kind == models.QueryKindEmail {
			sawEmail = true
		}
	}
	assert.True(t, sawName)
	assert.True(t, sawEmail)
}

func TestPlanner_PlanDeduplicates(t *testing.T) {
	p := New(testRegistry())
	seed := models.SeedInput{
		SubjectIdentifiers: models.SubjectIdentifiers{
			FullName: "Jane Doe",
		},
	}

	plan1, _ := p.Plan(seed)
	plan2, _ := p.Plan(seed)
	assert.Equal(t, len(plan1), len(plan2))
}

func TestPlanner_PlanRejectsBlockedPattern(t *testing.T) {
	p := New(testRegistry())
	seed := models.SeedInput{
		SubjectIdentifiers: models.SubjectIdentifiers{
			FullName: "Robert'); DROP TABLE users;--",
		},
	}

	plan, rejected := p.Plan(seed)
	for _, q := range plan {
		assert.NotContains(t, q.QueryString, "DROP TABLE")
	}
	assert.NotEmpty(t, rejected)
}

func TestPlanner_CompositeQueryOutranksSingleAttribute(t *testing.T) {
	p := New(testRegistry())
	seed := models.SeedInput{
		SubjectIdentifiers: models.SubjectIdentifiers{
			FullName:        "Jane Doe",
			GeographicHints: &models.GeographicHints{City: "Springfield"},
		},
	}

	plan, _ := p.Plan(seed)
	var namePriority, compositePriority int
	for _, q := range plan {
		if q.Kind == models.QueryKindName {
			namePriority = q.Priority
		}
		if q.Kind == models.QueryKindComposite {
			compositePriority = q.Priority
		}
	}
	assert.Greater(t, compositePriority, namePriority)
}

func TestContainsBlockedPattern(t *testing.T) {
	assert.True(t, ContainsBlockedPattern("1' OR '1'='1"), "sqli")
	assert.True(t, ContainsBlockedPattern("<script>alert(1)</script>"), "xss")
	assert.True(t, ContainsBlockedPattern("jane; rm -rf /"), "command injection")
	assert.True(t, ContainsBlockedPattern("../../etc/passwd"), "path traversal")
	assert.True(t, ContainsBlockedPattern("jane doe 123-45-6789"), "ssn format")
	assert.True(t, ContainsBlockedPattern("4111 1111 1111 1111"), "credit card format")
	assert.True(t, ContainsBlockedPattern("intext:password jane doe"), "credential-dumping dork")
	assert.True(t, ContainsBlockedPattern("filetype:sql password leak"), "credential-dumping dork")
	assert.True(t, ContainsBlockedPattern("jane doe site:pastebin.com"), "credential-dumping dork")
	assert.True(t, ContainsBlockedPattern("example.com/wp-login.php"), "auth endpoint probe")
	assert.True(t, ContainsBlockedPattern("example.com/admin/login"), "auth endpoint probe")
	assert.True(t, ContainsBlockedPattern("example.com/.env"), "auth endpoint probe")
	assert.False(t, ContainsBlockedPattern("jane doe"))
}
