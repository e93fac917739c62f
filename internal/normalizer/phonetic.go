package normalizer

import "strings"

// soundexCodes maps letters to Soundex digit groups (American Soundex).
var soundexCodes = map[byte]byte{
	'b': '1', 'f': '1', 'p': '1', 'v': '1',
	'c': '2', 'g': '2', 'j': '2', 'k': '2', 'q': '2', 's': '2', 'x': '2', 'z': '2',
	'd': '3', 't': '3',
	'l': '4',
	'm': '5', 'n': '5',
	'r': '6',
}

// Soundex computes the classic American Soundex code for a single token:
// first letter, then up to three digits for subsequent consonant groups,
// zero-padded to four characters. No phonetics library exists anywhere in
// the reference corpus, so this is implemented directly against the
// published algorithm.
func Soundex(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}

	var code strings.Builder
	code.WriteByte(upper(token[0]))

	lastDigit := soundexCodes[token[0]]
	for i := 1; i < len(token) && code.Len() < 4; i++ {
		ch := token[i]
		digit, ok := soundexCodes[ch]
		if !ok {
			if ch != 'h' && ch != 'w' {
				lastDigit = 0
			}
			continue
		}
		if digit != lastDigit {
			code.WriteByte(digit)
		}
		lastDigit = digit
	}
	for code.Len() < 4 {
		code.WriteByte('0')
	}
	return code.String()
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 32
	}
	return b
}

// Metaphone computes a simplified Metaphone-like code: it collapses
// common digraphs to their dominant sound and drops vowels after the
// first letter, which is enough to group phonetically similar name
// tokens without pulling in a full Double Metaphone implementation.
func Metaphone(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}

	replacements := []struct{ from, to string }{
		{"ph", "f"}, {"th", "0"}, {"sh", "x"}, {"ch", "x"},
		{"ck", "k"}, {"wh", "w"}, {"gh", "g"},
	}
	for _, r := range replacements {
		token = strings.ReplaceAll(token, r.from, r.to)
	}

	var out strings.Builder
	for i, ch := range token {
		if i == 0 {
			out.WriteRune(ch)
			continue
		}
		if isVowel(byte(ch)) {
			continue
		}
		out.WriteRune(ch)
	}
	result := out.String()
	if len(result) > 6 {
		result = result[:6]
	}
	return strings.ToUpper(result)
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	default:
		return false
	}
}
