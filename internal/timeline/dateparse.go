package timeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/osint-pipeline/investigator/internal/models"
)

var monthNames = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	isoDateTimePattern = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})`)
	isoDatePattern     = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	usNumericPattern   = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	euNumericPattern   = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{4})\b`)
	namedMonthPattern  = regexp.MustCompile(`(?i)\b([A-Za-z]+)\s+(\d{1,2}),?\s+(\d{4})\b`)
	monthYearPattern   = regexp.MustCompile(`(?i)\b([A-Za-z]+)\s+(\d{4})\b`)
	yearOnlyPattern    = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

// ExtractedDate is one date found in free text, with the precision the
// matching pattern supports.
type ExtractedDate struct {
	Date      time.Time
	Precision models.DatePrecision
}

// ExtractDates tries the pattern library over text from most to least
// precise and returns the leftmost match of the first pattern that
// matches: at most one date. Other dates in the same text are not
// returned.
func ExtractDates(text string) []ExtractedDate {
	var out []ExtractedDate

	if m := isoDateTimePattern.FindStringSubmatch(text); m != nil {
		out = append(out, ExtractedDate{Date: buildTime(m[1], m[2], m[3], m[4], m[5], m[6]), Precision: models.PrecisionExactTime})
		return out
	}
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		out = append(out, ExtractedDate{Date: buildTime(m[1], m[2], m[3], "0", "0", "0"), Precision: models.PrecisionExactDate})
		return out
	}
	if m := usNumericPattern.FindStringSubmatch(text); m != nil {
		out = append(out, ExtractedDate{Date: buildTime(m[3], m[1], m[2], "0", "0", "0"), Precision: models.PrecisionExactDate})
		return out
	}
	if m := euNumericPattern.FindStringSubmatch(text); m != nil {
		out = append(out, ExtractedDate{Date: buildTime(m[3], m[2], m[1], "0", "0", "0"), Precision: models.PrecisionExactDate})
		return out
	}
	if m := namedMonthPattern.FindStringSubmatch(text); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			day, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			out = append(out, ExtractedDate{Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Precision: models.PrecisionExactDate})
			return out
		}
	}
	if m := monthYearPattern.FindStringSubmatch(text); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			year, _ := strconv.Atoi(m[2])
			out = append(out, ExtractedDate{Date: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), Precision: models.PrecisionMonth})
			return out
		}
	}
	if m := yearOnlyPattern.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		out = append(out, ExtractedDate{Date: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), Precision: models.PrecisionApproxYear})
		return out
	}

	return out
}

func buildTime(yearS, monthS, dayS, hourS, minS, secS string) time.Time {
	year, _ := strconv.Atoi(yearS)
	month, _ := strconv.Atoi(monthS)
	day, _ := strconv.Atoi(dayS)
	hour, _ := strconv.Atoi(hourS)
	min, _ := strconv.Atoi(minS)
	sec, _ := strconv.Atoi(secS)
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
}
