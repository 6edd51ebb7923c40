// Package report prints step summaries and run history for the CLI.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/jask/panelmatch/internal/database/repository"
	"github.com/jask/panelmatch/internal/service"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
)

// Printer writes human readable reports. Colour is used only on terminals.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a Printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, color: IsTerminal(w)}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *Printer) banner(title string) {
	line := fmt.Sprintf("== %s ==", title)
	if p.color {
		line = bannerStyle.Render(line)
	}
	fmt.Fprintln(p.w, line)
}

// Step prints the summary of one pipeline step.
func (p *Printer) Step(r service.StepReport) {
	p.banner(fmt.Sprintf("Step %d: %s (%s)", r.Num, r.Name, r.Duration.Round(time.Millisecond)))
	p.stats(r.Stats)
}

// Stats prints a titled list of figures.
func (p *Printer) Stats(title string, stats []service.Stat) {
	p.banner(title)
	p.stats(stats)
}

func (p *Printer) stats(stats []service.Stat) {
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{s.Label, s.Value}
	}
	fmt.Fprintln(p.w, render([]string{"Item", "Value"}, rows, 1))
}

// Done prints a success line.
func (p *Printer) Done(msg string) {
	if p.color {
		msg = okStyle.Render(msg)
	}
	fmt.Fprintln(p.w, msg)
}

// Warnings prints one line per error under a heading; nothing when errs is empty.
func (p *Printer) Warnings(title string, errs []error) {
	if len(errs) == 0 {
		return
	}
	head := fmt.Sprintf("%s (%d)", title, len(errs))
	if p.color {
		head = warnStyle.Render(head)
	}
	fmt.Fprintln(p.w, head)
	for _, err := range errs {
		fmt.Fprintf(p.w, "  - %v\n", err)
	}
}

// Runs lists match runs with their review counts. counts is keyed by run id.
func (p *Printer) Runs(runs []repository.MatchRun, counts map[string]map[string]int) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, "No crosscheck runs recorded.")
		return
	}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		c := counts[r.ID]
		rows[i] = []string{
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", r.Matched, r.Total),
			fmt.Sprint(c[repository.ReviewPending]),
			fmt.Sprint(c[repository.ReviewAccepted]),
			fmt.Sprint(c[repository.ReviewRejected]),
		}
	}
	fmt.Fprintln(p.w, render([]string{"Run", "Created", "Matched", "Pending", "Accepted", "Rejected"}, rows, 2, 3, 4, 5))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// render draws a rounded table; right lists the zero-based columns aligned right.
func render(headers []string, rows [][]string, right ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range headers {
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
	}
	for _, i := range right {
		if i < len(configs) {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return strings.TrimRight(tw.Render(), "\n")
}
