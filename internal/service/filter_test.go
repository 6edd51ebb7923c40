package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/panelmatch/internal/table"
)

func TestFilterPanel(t *testing.T) {
	t.Parallel()
	c := testConfig(t.TempDir()).Filter
	in := table.New("uid", "name", "confirmation_status", "participation_result")
	for _, r := range []table.Record{
		{"uid": "U001", "name": "김민지", "confirmation_status": "확정", "participation_result": "참여"},
		{"uid": "U002", "name": "이서준", "confirmation_status": " X "},
		{"uid": "U003", "name": "박지우", "confirmation_status": "중복", "participation_result": "불참"},
		{"uid": "U004", "name": "최하나", "participation_result": "불가"},
		{"uid": "U005", "name": "정유진", "participation_result": "불참 예정"},
		{"uid": "U006", "name": "한결"},
	} {
		in.Append(r)
	}

	kept, res := FilterPanel(in, c)
	require.Equal(t, 6, res.Before)
	require.Equal(t, 3, res.Rows)
	require.Equal(t, 3, res.Removed())
	require.Equal(t, "confirmation_status", res.ConfirmationColumn)
	require.Equal(t, map[string]int{"X": 1, "중복": 1}, res.ByConfirmation)
	require.Equal(t, map[string]int{"불가": 1}, res.ByParticipation)
	require.Equal(t, []string{"U001", "U005", "U006"}, kept.Column("uid"))
	require.Equal(t, in.Headers, kept.Headers)
}

func TestFilterPanelWithoutColumns(t *testing.T) {
	t.Parallel()
	in := table.New("uid", "name")
	in.Append(table.Record{"uid": "U001", "name": "김민지"})

	kept, res := FilterPanel(in, testConfig(t.TempDir()).Filter)
	require.Empty(t, res.ConfirmationColumn)
	require.Empty(t, res.ParticipationColumn)
	require.Equal(t, 1, kept.Len())
}

func TestPipelineFilterUsesKoreanColumns(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	p := newPipeline(t, dir)
	writeFile(t, dir, "normalized.csv",
		"UID,이름,확정 여부,참여여부결과",
		"U001,김민지,,참여",
		"U002,이서준,탈락,",
		"U003,박지우,,불참",
	)

	res, err := p.Filter(context.Background())
	require.NoError(t, err)
	require.Equal(t, "확정 여부", res.ConfirmationColumn)
	require.Equal(t, "참여여부결과", res.ParticipationColumn)
	require.Equal(t, 2, res.Removed())
	require.Contains(t, res.Stats(), Stat{"확정 여부 탈락", "1"})

	out := readCSV(t, filepath.Join(dir, "filtered.csv"))
	require.Equal(t, []string{"U001"}, out.Column("UID"))
}
