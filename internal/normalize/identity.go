package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldName strips combining marks and folds compatibility forms, so that
// "José" and full-width "ＪＯＳＥ" both compare as "jose". Hangul syllables
// survive the NFD/NFKC round trip unchanged. Chains carry state, so each call
// builds its own.
func foldName() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFKC)
}

// Name lowercases and trims a person name, drops punctuation, and collapses
// internal whitespace.
func Name(s string) string {
	s, _, _ = transform.String(foldName(), s)
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// NameCompact is Name with all whitespace removed. Used for blocking keys and
// for sheets that store names with irregular spacing.
func NameCompact(s string) string {
	return strings.ReplaceAll(Name(s), " ", "")
}

// minPhoneDigits is the shortest Korean number with an area code (02-xxx-xxxx).
const minPhoneDigits = 9

// Phone reduces a phone number to digits and rewrites Korean country/trunk
// prefixes to the canonical 010 form. Returns "" for values too short to be a
// number and for placeholders whose last eight digits are all zero.
func Phone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	p := b.String()
	if len(p) < minPhoneDigits || strings.Trim(p[len(p)-8:], "0") == "" {
		return ""
	}
	switch {
	case len(p) == 10 && strings.HasPrefix(p, "10"):
		return "0" + p
	case len(p) == 11 && strings.HasPrefix(p, "010"):
		return p
	case len(p) == 12 && strings.HasPrefix(p, "8210"):
		return "0" + p[2:]
	case len(p) == 11 && strings.HasPrefix(p, "821"):
		return "0" + p[2:]
	}
	// numbers outside the mobile ranges are kept as digits only
	return p
}

// Email lowercases and trims an address. Values without '@' are treated as absent.
func Email(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.Contains(s, "@") {
		return ""
	}
	return s
}

// EmailLocal returns the part of a normalized address before '@'.
func EmailLocal(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return ""
}

// Digits returns only the ASCII digits of s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
