package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osint-pipeline/investigator/internal/models"
)

func TestNormalize_EmailAliasAndPlusTag(t *testing.T) {
	n := New()
	ne := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypeEmail, RawValue: "Jane.Doe+newsletter@googlemail.com"}, nil, 0.8)

	assert.Equal(t, "janedoe@gmail.com", ne.NormalizedEmail)
	assert.Equal(t, ne.NormalizedEmail, ne.ComparisonKey)
}

func TestNormalize_EmailEquivalentAcrossDotAndPlusTag(t *testing.T) {
	n := New()
	a := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypeEmail, RawValue: "jane.doe@gmail.com"}, nil, 0.8)
	b := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypeEmail, RawValue: "janedoe+work@gmail.com"}, nil, 0.8)
	assert.Equal(t, a.ComparisonKey, b.ComparisonKey)
}

func TestNormalize_PhoneToE164WithDefaultCountry(t *testing.T) {
	n := New()
	ne := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypePhone, RawValue: "4155552671"}, &models.GeographicHints{Country: "US"}, 0.8)

	assert.Equal(t, "+14155552671", ne.E164Phone)
	assert.Equal(t, "5552671", ne.ComparisonKey)
}

func TestNormalize_PhoneAlreadyE164(t *testing.T) {
	n := New()
	ne := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypePhone, RawValue: "+44 20 7946 0958"}, nil, 0.8)
	assert.Equal(t, "+442079460958", ne.E164Phone)
}

func TestNormalize_UsernameVariants(t *testing.T) {
	n := New()
	ne := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypeUsername, RawValue: "Jane_Doe"}, nil, 0.7)

	assert.Equal(t, "jane_doe", ne.LowercaseUsername)
	assert.Contains(t, ne.UsernameVariants, "janedoe")
	assert.Equal(t, "janedoe", ne.ComparisonKey)
}

func TestNormalize_NameTokensAndPhonetics(t *testing.T) {
	n := New()
	a := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypePerson, RawValue: "Jon Smith"}, nil, 0.6)
	b := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypePerson, RawValue: "John Smyth"}, nil, 0.6)

	assert.Equal(t, a.Soundex, b.Soundex)
}

func TestNormalize_DomainLowercasesAndStripsTrailingDot(t *testing.T) {
	n := New()
	ne := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypeDomain, RawValue: "Example.COM."}, nil, 0.9)
	assert.Equal(t, "example.com", ne.ComparisonKey)
}

func TestNormalize_QualityScoreWithinBounds(t *testing.T) {
	n := New()
	ne := n.Normalize(models.EntityCandidate{EntityType: models.EntityTypeEmail, RawValue: "jane@example.com"}, nil, 0.8)
	assert.GreaterOrEqual(t, ne.QualityScore, 0.0)
	assert.LessOrEqual(t, ne.QualityScore, 1.0)
}

func TestSoundex_KnownValues(t *testing.T) {
	assert.Equal(t, "R163", Soundex("Robert"))
	assert.Equal(t, "R163", Soundex("Rupert"))
}

func TestToE164_UnknownCountryFallsBackToNANP(t *testing.T) {
	e164, ok := ToE164("2125551234", "")
	assert.True(t, ok)
	assert.Equal(t, "+12125551234", e164)
}
