package normalizer

import "strings"

// countryDialCodes is a small default-country lookup used when a phone
// number has no country code of its own. No phone-number library exists
// anywhere in the reference corpus, so E.164 conversion here is a
// deliberately narrow hand-rolled mapping rather than a general parser.
var countryDialCodes = map[string]string{
	"US": "1", "CA": "1", "GB": "44", "DE": "49", "FR": "33",
	"ES": "34", "IT": "39", "AU": "61", "IN": "91", "BR": "55",
	"JP": "81", "NL": "31", "SE": "46", "NO": "47", "PL": "48",
}

// ToE164 converts a phone string to E.164 form. If the number already
// starts with '+', it is only stripped of non-digit characters. Otherwise
// defaultCountry (ISO-3166 alpha-2, from geographic_hints) supplies the
// dial code for a national-format number.
func ToE164(raw, defaultCountry string) (e164 string, ok bool) {
	digits := keepDigits(raw)
	if digits == "" {
		return "", false
	}

	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		return "+" + digits, true
	}

	dial, known := countryDialCodes[strings.ToUpper(defaultCountry)]
	if !known {
		dial = "1" // fall back to NANP, the corpus's only observed default
	}

	national := digits
	if strings.HasPrefix(national, "0") && dial != "1" {
		national = national[1:]
	}
	return "+" + dial + national, true
}

// Last7 returns the last 7 digits of a phone number, used as a
// partial-match blocking key.
func Last7(e164 string) string {
	digits := keepDigits(e164)
	if len(digits) < 7 {
		return digits
	}
	return digits[len(digits)-7:]
}

func keepDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
