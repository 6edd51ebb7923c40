package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/panelmatch/internal/table"
)

func participationBase() *table.Table {
	base := table.New("UID", "name", "participation_result", "reservation_date", "reservation_time", "confirmation_status")
	for _, r := range []table.Record{
		{"UID": "U001", "name": "김민지"},
		{"UID": "U002", "name": "이서준", "participation_result": "참여"},
		{"UID": "U004", "name": "박지우", "confirmation_status": "X"},
		{"UID": "U005", "name": "최하나나"},
		{"UID": "U006", "name": "정유진", "reservation_date": "2025-09-23", "reservation_time": "10:00"},
		{"UID": "U007", "name": "한결", "participation_result": "불참"},
	} {
		base.Append(r)
	}
	return base
}

func participationUpdate() *table.Table {
	up := table.New("UID", "이름", "NAME", "참여 여부 결과", "예약 날짜", "확정 예약시간", "그룹구분")
	for _, r := range []table.Record{
		{"UID": "U001", "이름": "김민지", "참여 여부 결과": "참여", "예약 날짜": "2025-09-20", "확정 예약시간": "14:00", "그룹구분": "A"},
		{"UID": "U002", "이름": "이서준", "참여 여부 결과": "불참", "그룹구분": "A?"},
		{"UID": "U005", "이름": "최하나", "그룹구분": "B"},
		{"UID": "U005", "이름": "최하나", "NAME": "Choi Hana", "예약 날짜": "2025-09-22", "확정 예약시간": "15:00", "그룹구분": "A"},
		{"UID": "U008", "이름": "홍길동", "참여 여부 결과": "참여"},
		{"UID": "U009", "이름": "김철수", "참여 여부 결과": "참여", "예약 날짜": "2025-09-24", "그룹구분": "A"},
		{"UID": "U010", "그룹구분": "A"},
	} {
		up.Append(r)
	}
	return up
}

func TestUpdateParticipation(t *testing.T) {
	t.Parallel()
	c := testConfig(t.TempDir()).Participation
	c.Group = "A"

	base := participationBase()
	res := UpdateParticipation(base, participationUpdate(), c)

	require.Equal(t, 6, res.BaseRows)
	require.Equal(t, 7, res.UpdateRows)
	require.Equal(t, 4, res.Considered)
	require.Equal(t, 2, res.Exact)
	require.Equal(t, 1, res.Fuzzy)
	require.Equal(t, 3, res.Updated)

	require.Equal(t, 1, res.Unmatched.Len())
	miss := res.Unmatched.Rows[0]
	require.Equal(t, "U009", miss["uid"])
	require.Equal(t, "김철수", miss["name"])
	require.Equal(t, "2025-09-24", miss["reservation_date"])

	rows := byColumn(t, base, "UID")
	require.Equal(t, "참여", rows["U001"]["participation_result"])
	require.Equal(t, "2025-09-20", rows["U001"]["reservation_date"])
	require.Equal(t, "14:00", rows["U001"]["reservation_time"])
	require.Equal(t, "A", rows["U001"]["그룹구분"])

	// a later non-participation result does not overwrite a recorded one
	require.Equal(t, "참여", rows["U002"]["participation_result"])

	require.Equal(t, "2025-09-22", rows["U005"]["reservation_date"])
	require.Equal(t, "15:00", rows["U005"]["reservation_time"])

	require.True(t, base.Has(ColStatus))
	require.True(t, base.Has("그룹구분"))
	require.Equal(t, StatusCompleted, rows["U001"][ColStatus])
	require.Equal(t, StatusCompleted, rows["U002"][ColStatus])
	require.Equal(t, StatusCancelled, rows["U004"][ColStatus])
	require.Equal(t, StatusConfirmed, rows["U005"][ColStatus])
	require.Equal(t, StatusConfirmed, rows["U006"][ColStatus])
	require.Equal(t, StatusApplied, rows["U007"][ColStatus])
	require.Equal(t, map[string]int{
		StatusCompleted: 2,
		StatusCancelled: 1,
		StatusConfirmed: 2,
		StatusApplied:   1,
	}, res.Status)
}

func TestUpdateParticipationEmptyGroup(t *testing.T) {
	t.Parallel()
	c := testConfig(t.TempDir()).Participation
	c.Group = "A"
	c.IncludeEmptyGroup = true

	base := participationBase()
	res := UpdateParticipation(base, participationUpdate(), c)

	// 홍길동 has no group and is now considered, but has no base record
	require.Equal(t, 5, res.Considered)
	require.Equal(t, 2, res.Unmatched.Len())
}

func TestUpdateParticipationAllGroups(t *testing.T) {
	t.Parallel()
	c := testConfig(t.TempDir()).Participation

	base := participationBase()
	res := UpdateParticipation(base, participationUpdate(), c)

	require.Equal(t, 6, res.Considered)
	require.False(t, base.Has("그룹구분"))
}

func TestDeriveStatus(t *testing.T) {
	t.Parallel()
	c := testConfig(t.TempDir()).Participation

	cases := []struct {
		row  table.Record
		want string
	}{
		{table.Record{"participation_result": "참여"}, StatusCompleted},
		{table.Record{"participation_result": "참여", "confirmation_status": "x"}, StatusCancelled},
		{table.Record{"participation_result": "취소"}, StatusCancelled},
		{table.Record{"participation_result": "거부"}, StatusCancelled},
		{table.Record{"participation_result": "보류"}, StatusApplied},
		{table.Record{"participation_result": "중복"}, StatusApplied},
		{table.Record{"reservation_date": "2025-09-20", "reservation_time": "14:00"}, StatusConfirmed},
		{table.Record{"reservation_date": "2025-09-20"}, StatusWaiting},
		{table.Record{}, StatusWaiting},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DeriveStatus(tc.row, c), "%v", tc.row)
	}
}

func TestPipelineParticipation(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := newPipeline(t, dir)
	p.Config.Participation.Group = "A"

	require.NoError(t, table.WriteCSVFile(filepath.Join(dir, "normalized.csv"), participationBase(), true))
	writeFile(t, dir, "update.csv",
		"예약 현황,,,,,,",
		"UID,이름,NAME,참여 여부 결과,예약 날짜,확정 예약시간,그룹구분",
		"U001,김민지,,참여,2025-09-20,14:00,A",
		"U009,김철수,,참여,2025-09-24,,A",
	)

	res, err := p.Participation(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, res.Considered)
	require.Equal(t, 1, res.Exact)

	out := filepath.Join(dir, "participation.xlsx")
	matched, err := table.ReadXLSX(out, "matched")
	require.NoError(t, err)
	require.Equal(t, 6, matched.Len())
	require.True(t, matched.Has(ColStatus))

	unmatched, err := table.ReadXLSX(out, "unmatched")
	require.NoError(t, err)
	require.Equal(t, []string{"김철수"}, unmatched.Column("name"))

	stats, err := table.ReadXLSX(out, "stats")
	require.NoError(t, err)
	require.Equal(t, "base records", stats.Rows[0]["item"])
	require.Equal(t, "6", stats.Rows[0]["count"])

	csvOut := readCSV(t, filepath.Join(dir, "participation.csv"))
	require.Equal(t, 6, csvOut.Len())
	require.Equal(t, StatusCompleted, byColumn(t, csvOut, "UID")["U001"][ColStatus])
}
