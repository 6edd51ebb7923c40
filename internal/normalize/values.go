package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Gender values written by the normalizers.
const (
	Female = "Female"
	Male   = "Male"
)

// genderExact holds whole-value spellings seen across the registration sheets.
var genderExact = map[string]string{
	"female": Female, "f": Female, "woman": Female, "여": Female, "여자": Female, "여성": Female, "女": Female, "여(female)": Female,
	"male": Male, "m": Male, "man": Male, "남": Male, "남자": Male, "남성": Male, "男": Male, "남(male)": Male,
}

// genderContains is checked in order; "female" and "woman" must precede
// "male" and "man" since they contain them.
var genderContains = []struct{ key, value string }{
	{"female", Female},
	{"woman", Female},
	{"여", Female},
	{"女", Female},
	{"male", Male},
	{"man", Male},
	{"남", Male},
	{"男", Male},
}

// Gender maps the many spellings of gender to Female/Male. Unknown values are
// returned trimmed but otherwise unchanged.
func Gender(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	lower := strings.ToLower(v)
	if g, ok := genderExact[lower]; ok {
		return g
	}
	for _, c := range genderContains {
		if strings.Contains(lower, c.key) {
			return c.value
		}
	}
	return v
}

var birthLayouts = []string{"2006-01-02", "2006/01/02", "2006.01.02", "2006-1-2", "2006/1/2", "2006.1.2"}

// BirthDate converts a birth date or year to YYYY-MM-DD. Four digit years in
// 1900..2010 get -01-01 appended; two digit years pivot at 50. Anything else
// is returned trimmed.
func BirthDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if len(v) >= 8 {
		head := v
		if len(head) > 10 {
			head = head[:10]
		}
		for _, layout := range birthLayouts {
			if t, err := time.Parse(layout, head); err == nil {
				return t.Format(time.DateOnly)
			}
		}
	}
	if isDigits(v) {
		switch len(v) {
		case 4:
			year, _ := strconv.Atoi(v)
			if year >= 1900 && year <= 2010 {
				return fmt.Sprintf("%d-01-01", year)
			}
		case 2:
			year, _ := strconv.Atoi(v)
			if year > 50 {
				return fmt.Sprintf("19%02d-01-01", year)
			}
			return fmt.Sprintf("20%02d-01-01", year)
		}
	}
	return v
}

// Location rewrites refusal markers to "cancel" and keeps everything else.
func Location(v string) string {
	v = strings.TrimSpace(v)
	if strings.Contains(v, "거부") {
		return "cancel"
	}
	return v
}

// LocationCity collapses branch names to their city.
func LocationCity(v string) string {
	v = strings.TrimSpace(v)
	upper := strings.ToUpper(v)
	switch {
	case strings.Contains(v, "서울") || strings.Contains(upper, "SEOUL"):
		return "Seoul"
	case strings.Contains(v, "수원") || strings.Contains(upper, "SUWON"):
		return "Suwon"
	}
	return v
}

// Reservation years outside this window are treated as typos.
var (
	MinReservationYear = 2024
	MaxReservationYear = 2026
)

var nonDateMarkers = []string{"거부", "cancel", "변경", "change", "대상 아님", "n/a"}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})\.(\d{1,2})\.(\d{1,2})`),
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
	regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
}

// ReservationDate extracts a reservation date as YYYY-MM-DD. Slash dates with
// the year last are read month first. Status words and out-of-range dates
// yield "".
func ReservationDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || hasMarker(v, nonDateMarkers) {
		return ""
	}
	for _, re := range datePatterns {
		m := re.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		var year, month, day int
		if len(m[1]) == 4 {
			year, month, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
		} else {
			month, day, year = atoi(m[1]), atoi(m[2]), atoi(m[3])
		}
		if year >= MinReservationYear && year <= MaxReservationYear && month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		}
	}
	return ""
}

var nonTimeMarkers = append([]string{"pending"}, nonDateMarkers...)

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d{1,2}):(\d{2})$`),
	regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})$`),
	regexp.MustCompile(`^(\d{1,2})시(\d{0,2})`),
	regexp.MustCompile(`^(\d{1,2})h(\d{0,2})`),
}

var ampmPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*(AM|PM|am|pm)`)

// ReservationTime converts the time formats used by the booking sheets to
// 24h HH:MM. Unparseable values yield "".
func ReservationTime(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || hasMarker(v, nonTimeMarkers) {
		return ""
	}
	for _, re := range timePatterns {
		m := re.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		hour, minute := atoi(m[1]), 0
		if m[2] != "" {
			minute = atoi(m[2])
		}
		if hour <= 23 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}
	if m := ampmPattern.FindStringSubmatch(v); m != nil {
		hour, minute := atoi(m[1]), atoi(m[2])
		switch strings.ToUpper(m[3]) {
		case "PM":
			if hour < 12 {
				hour += 12
			}
		case "AM":
			if hour == 12 {
				hour = 0
			}
		}
		if hour <= 23 && minute <= 59 {
			return fmt.Sprintf("%02d:%02d", hour, minute)
		}
	}
	return ""
}

func hasMarker(v string, markers []string) bool {
	lower := strings.ToLower(v)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
