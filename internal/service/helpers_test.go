package service

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/database"
	"github.com/jask/panelmatch/internal/logging"
	"github.com/jask/panelmatch/internal/table"
)

func testConfig(dir string) config.Config {
	return config.Config{
		Paths: config.PathsConfig{
			Workdir:       dir,
			Panels:        []string{"panel_1.csv", "panel_2.csv", "panel_3.csv"},
			PanelSkipRows: 1,
			Registry:      "registry.csv",
			Integrated:    "integrated.csv",
			Crosschecked:  "crosschecked.csv",
			Matched:       "matched.csv",
			Unmatched:     "unmatched.csv",
			Renamed:       "renamed.csv",
			Normalized:    "normalized.csv",
		},
		Match: config.MatchConfig{
			Threshold:             0.8,
			EmailSimilarity:       0.9,
			DedupeEmailSimilarity: 0.85,
			IDPrefix:              "FAM_",
			SourceName:            []string{"이름", "name"},
			SourcePhone:           []string{"전화번호", "전화번호.1", "연락처", "phone"},
			SourceEmail:           []string{"이메일", "전화번호", "email"},
			TargetName:            []string{"Name", "name", "이름"},
			TargetPhone:           []string{"Mobile", "Phone", "phone", "전화번호"},
			TargetEmail:           []string{"Email", "email", "이메일"},
		},
		Participation: config.ParticipationConfig{
			Base:           "normalized.csv",
			Update:         "update.csv",
			UpdateSkipRows: 1,
			Output:         "participation.xlsx",
			BaseName:       "name",
			UpdateNames:    []string{"이름", "NAME"},
			BaseResult:     "participation_result",
			UpdateResult:   "참여 여부 결과",
			BaseDate:       "reservation_date",
			BaseTime:       "reservation_time",
			UpdateDate:     "예약 날짜",
			UpdateTime:     "확정 예약시간",
			UpdateUID:      "UID",
			Confirmation:   "confirmation_status",
			GroupColumn:    "그룹구분",
			Threshold:      0.8,
		},
		Filter: config.FilterConfig{
			Input:                "normalized.csv",
			Output:               "filtered.csv",
			ConfirmationColumns:  []string{"confirmation_status", "확정 여부"},
			ExcludeConfirmation:  []string{"취소", "중복", "탈락", "거부", "x"},
			ParticipationColumns: []string{"participation_result", "참여여부결과"},
			ExcludeParticipation: []string{"불가", "불참"},
		},
	}
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Setup(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newPipeline(t *testing.T, dir string) *Pipeline {
	t.Helper()
	return &Pipeline{
		Config:  testConfig(dir),
		Mapping: config.DefaultMapping(),
		DB:      setupDB(t),
		Log:     logging.Discard(),
	}
}

func writeFile(t *testing.T, dir, name string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func readCSV(t *testing.T, path string) *table.Table {
	t.Helper()
	tb, err := table.ReadCSVFile(path, table.ReadOptions{})
	require.NoError(t, err)
	return tb
}

func byColumn(t *testing.T, tb *table.Table, col string) map[string]table.Record {
	t.Helper()
	out := make(map[string]table.Record, tb.Len())
	for _, r := range tb.Rows {
		out[r[col]] = r
	}
	return out
}

const panelHeader = "응답시간,이메일,이름,전화번호,전화번호,성별,생년,예약 지점,예약 날짜,예약시간,"

// writeWorkspace lays out three panel exports and a registry. Six registrants,
// one of whom applied twice; four exist in the registry, one only by a
// longer spelling of the name.
func writeWorkspace(t *testing.T, dir string) {
	t.Helper()
	writeFile(t, dir, "panel_1.csv",
		"K-Beauty Skin Care Panel,,,,,,,,,,",
		panelHeader,
		"2025-09-01,U001,김민지,minji@example.com,010-1234-5678,여,1995,서울 강남,2025.09.20,14:00,memo",
		"2025-09-01,U002,이서준,seojun@example.com,010-2222-3333,남성,98,수원,2025-09-21,3시30,",
	)
	writeFile(t, dir, "panel_2.csv",
		"K-Beauty Skin Care Panel,,,,,,,,,,",
		panelHeader,
		"2025-09-02,U003,김민지,minji@example.com,01012345678,여,1995,서울,2025.09.20,14:00,",
		"2025-09-02,U004,박지우,jiwoo@example.com,010-5555-6666,F,2001-03-04,거부,거부,pending,",
	)
	writeFile(t, dir, "panel_3.csv",
		"K-Beauty Skin Care Panel,,,,,,,,,,",
		panelHeader,
		"2025-09-03,U005,최하나,hana@example.com,010-7777-8888,female,1990,서울,9/22/2025,2:30 PM,",
		"2025-09-03,U006,정유진,yujin@example.com,010-4444-0000,여자,1999,수원,2025/09/23,10:00:00,",
	)
	writeFile(t, dir, "registry.csv",
		"Name,Mobile,Email",
		"김민지,010-1234-5678,minji@example.com",
		"이서준,01099990000,seojun@example.com",
		"박지우,,",
		"최하나나,,",
	)
}
