package match

import (
	"github.com/jask/panelmatch/internal/table"
)

// FindDuplicates returns the indices of records that repeat an earlier
// record: same mobile number, or an email equal or more similar than
// emailSimilarity. The earliest record of each group is kept. A record
// already marked as a duplicate is not used to mark later ones.
func FindDuplicates(records []table.Record, f Fields, emailSimilarity float64) map[int]struct{} {
	phones := make([]string, len(records))
	emails := make([]string, len(records))
	for i, r := range records {
		if p := firstPhone(r, f.Phone); isMobile(p) {
			phones[i] = p
		}
		emails[i] = firstEmail(r, f.Email)
	}

	dups := make(map[int]struct{})
	for i := range records {
		if _, dup := dups[i]; dup {
			continue
		}
		for j := i + 1; j < len(records); j++ {
			if _, dup := dups[j]; dup {
				continue
			}
			phoneHit := phones[i] != "" && phones[i] == phones[j]
			emailHit := emails[i] != "" && emails[j] != "" &&
				(emails[i] == emails[j] || Ratio(emails[i], emails[j]) > emailSimilarity)
			if phoneHit || emailHit {
				dups[j] = struct{}{}
			}
		}
	}
	return dups
}

// isMobile reports whether p is a canonical 11 digit 010 number. Landlines
// and junk are left out of duplicate detection.
func isMobile(p string) bool {
	return len(p) == 11 && p[:3] == "010"
}

// Summary tallies a set of outcomes.
type Summary struct {
	Total     int
	Matched   int
	Unmatched int
	ByType    map[Type]int
	ByScore   map[float64]int
}

// Summarize counts outcomes by type and by score.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes), ByType: map[Type]int{}, ByScore: map[float64]int{}}
	for _, o := range outcomes {
		if !o.Matched {
			s.Unmatched++
			continue
		}
		s.Matched++
		s.ByType[o.Type]++
		s.ByScore[o.Score]++
	}
	return s
}
