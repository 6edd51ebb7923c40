package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/panelmatch/internal/database/repository"
	"github.com/jask/panelmatch/internal/service"
)

func TestStep(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(&buf)
	require.False(t, p.color)

	p.Step(service.StepReport{
		Num:      2,
		Name:     "crosscheck",
		Duration: 1234567 * time.Microsecond,
		Stats:    []service.Stat{{Label: "matched", Value: "4"}, {Label: "pending review", Value: "1"}},
	})
	out := buf.String()
	require.Contains(t, out, "== Step 2: crosscheck (1.235s) ==")
	require.Contains(t, out, "matched")
	require.Contains(t, out, "pending review")
	require.Contains(t, out, "╭")
}

func TestRuns(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(&buf)

	p.Runs(nil, nil)
	require.Equal(t, "No crosscheck runs recorded.\n", buf.String())

	buf.Reset()
	runs := []repository.MatchRun{{ID: "0123456789abcdef", Total: 5, Matched: 4, CreatedAt: time.Now()}}
	counts := map[string]map[string]int{"0123456789abcdef": {repository.ReviewPending: 1, repository.ReviewAccepted: 2}}
	p.Runs(runs, counts)
	out := buf.String()
	require.Contains(t, out, "01234567")
	require.NotContains(t, out, "89abcdef")
	require.Contains(t, out, "4/5")
}

func TestWarnings(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	p := New(&buf)

	p.Warnings("failed batches", nil)
	require.Empty(t, buf.String())

	p.Warnings("failed batches", []error{errors.New("airtable: 422 INVALID_VALUE")})
	require.Equal(t, "failed batches (1)\n  - airtable: 422 INVALID_VALUE\n", buf.String())
}
