package timeline

import (
	"strings"

	"github.com/osint-pipeline/investigator/internal/models"
)

// categoryKeywords maps the substrings that typically surround a dated
// mention of each EventCategory, checked most-specific first.
var categoryKeywords = []struct {
	category models.EventCategory
	keywords []string
}{
	{models.EventCategoryBirth, []string{"born", "date of birth", "birth of"}},
	{models.EventCategoryEducation, []string{"graduat", "enrolled", "university", "college", "degree"}},
	{models.EventCategoryRelationship, []string{"married", "marriage", "engaged", "divorced", "wedding"}},
	{models.EventCategoryJob, []string{"founded", "hired", "joined as", "promoted", "ceo of", "employment", "started working"}},
	{models.EventCategoryLegal, []string{"lawsuit", "convicted", "arrested", "indicted", "court filing"}},
	{models.EventCategoryMedia, []string{"interview", "published", "press release", "article"}},
	{models.EventCategoryLocation, []string{"moved to", "relocated", "residing in"}},
}

// ClassifyCategory returns the best-guess EventCategory for text
// surrounding an extracted date, falling back to EventCategoryDigital (an
// undated online mention with no clearer milestone signal) when nothing
// matches.
func ClassifyCategory(text string) models.EventCategory {
	lower := strings.ToLower(text)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				return ck.category
			}
		}
	}
	return models.EventCategoryDigital
}
