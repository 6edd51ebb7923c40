package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/match"
	"github.com/jask/panelmatch/internal/table"
)

func TestAliasColumns(t *testing.T) {
	t.Parallel()
	aliases := config.DefaultMapping().Aliases

	got := AliasColumns([]string{"응답시간", "이메일 주소", "성함(Name)", "연락처", "Gender", "예약날짜"}, aliases)
	require.Equal(t, map[string]string{
		"이메일 주소":    "이메일",
		"성함(Name)": "이름",
		"연락처":      "전화번호",
		"Gender":   "성별",
		"예약날짜":     "예약 날짜",
	}, got)
}

func TestAliasColumnsKeepsCanonicalHeaders(t *testing.T) {
	t.Parallel()
	aliases := config.DefaultMapping().Aliases

	// "Email address" would claim 이메일 if the canonical header were not
	// already present
	got := AliasColumns([]string{"Email address", "이메일", "이름", "name_en"}, aliases)
	require.Empty(t, got)
}

func TestAliasColumnsFirstHeaderWins(t *testing.T) {
	t.Parallel()
	aliases := []config.Alias{{Column: "전화번호", Names: []string{"phone", "연락처"}}}

	got := AliasColumns([]string{"연락처", "phone"}, aliases)
	require.Equal(t, map[string]string{"연락처": "전화번호"}, got)
}

func panel(t *testing.T, lines ...string) *table.Table {
	t.Helper()
	tb, err := table.ReadCSV(strings.NewReader(strings.Join(lines, "\n")), table.ReadOptions{})
	require.NoError(t, err)
	return tb
}

func TestMergePanels(t *testing.T) {
	t.Parallel()
	first := panel(t,
		"응답시간,이메일,이름,전화번호,전화번호,메모",
		"2025-09-01,U001,김민지,minji@example.com,010-1234-5678,a",
		"2025-09-01,U002,이서준,seojun@example.com,010-2222-3333,b",
	)
	second := panel(t,
		"응답시간,이메일,이름,전화번호,전화번호,국적(Nationality)",
		"2025-09-02,U003,김민지,minji@example.com,+82 10-1234-5678,KR",
		"2025-09-02,U004,이서준,seojun@example.co,,KR",
		"2025-09-02,U005,박지우,jiwoo@example.com,010-5555-6666,US",
	)
	dedupe := testConfig(t.TempDir())
	fields := match.Fields{Name: dedupe.Match.SourceName, Phone: dedupe.Match.SourcePhone, Email: dedupe.Match.SourceEmail}

	merged, res := MergePanels([]*table.Table{first, second}, config.DefaultMapping(), fields, 0.85)

	require.Equal(t, []int{2, 3}, res.PerFile)
	require.Equal(t, 5, res.Combined)
	require.Equal(t, 2, res.Duplicates)
	require.Equal(t, 3, res.Rows)
	require.Equal(t, []string{"U001", "U002", "U005"}, merged.Column("이메일"))
	require.Equal(t, map[string]string{"국적(Nationality)": "국적"}, res.Renamed)

	require.Equal(t, []string{"이메일", "이름", "전화번호", "국적"}, merged.Headers[:4])
	require.Equal(t, len(merged.Headers), res.Columns)
	require.Equal(t, 3, res.WithEmail)
}
