package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhone(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"010-1234-5678":    "01012345678",
		"01012345678":      "01012345678",
		"1012345678":       "01012345678",
		"+82 10 1234 5678": "01012345678",
		"82-10-1234-5678":  "01012345678",
		"821012345678":     "01012345678",
		"(02) 555-1234":    "025551234",
		"n/a":              "",
		"":                 "",
		"0":                "",
		"1234":             "",
		"12-3456":          "",
		"000-0000-0000":    "",
		"010-0000-0000":    "",
	}
	for in, want := range cases {
		require.Equal(t, want, Phone(in), "input %q", in)
	}
}

func TestPhoneCanonicalIsIdempotent(t *testing.T) {
	t.Parallel()
	for _, p := range []string{"01012345678", "01099998888", "01055550000"} {
		once := Phone(p)
		require.Equal(t, p, once)
		require.Equal(t, once, Phone(once))
	}
}

func TestEmail(t *testing.T) {
	t.Parallel()
	require.Equal(t, "jane.doe@example.com", Email("  Jane.Doe@Example.COM "))
	require.Equal(t, "", Email("not-an-email"))
	require.Equal(t, "", Email(""))
	require.Equal(t, "jane.doe", EmailLocal("jane.doe@example.com"))
	require.Equal(t, "", EmailLocal("@example.com"))
}

func TestName(t *testing.T) {
	t.Parallel()
	require.Equal(t, "kim minji", Name("  Kim   Min-Ji "))
	require.Equal(t, "kimminji", NameCompact("Kim Min-Ji"))
	require.Equal(t, "jose garcia", Name("José García"))
	require.Equal(t, "jose", Name("ＪＯＳＥ"))
	require.Equal(t, "김민지", Name(" 김민지 "))
	require.Equal(t, "", Name("  !!  "))
}

func TestGender(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"female":    Female,
		"Female":    Female,
		"F":         Female,
		"여":         Female,
		"여성":        Female,
		"여(female)": Female,
		"woman":     Female,
		"Male":      Male,
		"m":         Male,
		"남자":        Male,
		"男":         Male,
		"man":       Male,
		"other":     "other",
		"":          "",
	}
	for in, want := range cases {
		require.Equal(t, want, Gender(in), "input %q", in)
	}
}

func TestBirthDate(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"1995-03-15":          "1995-03-15",
		"1995/3/5":            "1995-03-05",
		"1995-03-15 00:00:00": "1995-03-15",
		"1988":                "1988-01-01",
		"2015":                "2015",
		"88":                  "1988-01-01",
		"05":                  "2005-01-01",
		"unknown":             "unknown",
		"":                    "",
	}
	for in, want := range cases {
		require.Equal(t, want, BirthDate(in), "input %q", in)
	}
}

func TestLocation(t *testing.T) {
	t.Parallel()
	require.Equal(t, "cancel", Location("거부"))
	require.Equal(t, "강남점", Location(" 강남점 "))
	require.Equal(t, "Seoul", LocationCity("서울 강남점"))
	require.Equal(t, "Suwon", LocationCity("suwon station"))
	require.Equal(t, "Busan", LocationCity("Busan"))
}

func TestReservationDate(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"2025.9.3":          "2025-09-03",
		"2025-09-23":        "2025-09-23",
		"2025/10/01 (Wed)":  "2025-10-01",
		"9/23/2025":         "2025-09-23",
		"2019-01-01":        "",
		"2025-13-01":        "",
		"거부":                "",
		"change requested":  "",
		"sometime next week": "",
	}
	for in, want := range cases {
		require.Equal(t, want, ReservationDate(in), "input %q", in)
	}
}

func TestReservationTime(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"9:30":     "09:30",
		"14:00:00": "14:00",
		"3시":       "03:00",
		"15시30":    "15:30",
		"10h15":    "10:15",
		"2:30 PM":  "14:30",
		"12:05am":  "00:05",
		"25:00":    "",
		"pending":  "",
		"morning":  "",
	}
	for in, want := range cases {
		require.Equal(t, want, ReservationTime(in), "input %q", in)
	}
}
