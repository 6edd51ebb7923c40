package match

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio is the edit-distance similarity of a and b in [0,1]: one minus the
// levenshtein distance over the longer rune length.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// NameSimilarity compares two normalized names. Equal names score 1,
// containment scores at least containment, anything else scores Ratio.
func NameSimilarity(a, b string, containment float64) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	r := Ratio(a, b)
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return max(r, containment)
	}
	return r
}
