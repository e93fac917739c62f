package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osint-pipeline/investigator/internal/models"
)

func TestClassifyCategory(t *testing.T) {
	cases := []struct {
		text string
		want models.EventCategory
	}{
		{"Jane was born on 1990-04-02 in Springfield", models.EventCategoryBirth},
		{"She graduated from Springfield University in 2012", models.EventCategoryEducation},
		{"They got married in a small ceremony", models.EventCategoryRelationship},
		{"He founded Acme Corp in 2009", models.EventCategoryJob},
		{"She was arrested and later convicted on fraud charges", models.EventCategoryLegal},
		{"Featured in an interview published by a local paper", models.EventCategoryMedia},
		{"Relocated and moved to Austin last year", models.EventCategoryLocation},
		{"Just another unrelated mention of the subject online", models.EventCategoryDigital},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ClassifyCategory(c.text), c.text)
	}
}
