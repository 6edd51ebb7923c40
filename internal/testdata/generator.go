// Package testdata writes synthetic panel workspaces for demos and manual
// testing of the pipeline.
package testdata

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jask/panelmatch/internal/config"
	"github.com/jask/panelmatch/internal/table"
)

// Options sizes a generated workspace.
type Options struct {
	// Respondents is the number of distinct people across all panels.
	Respondents int
	// Seed makes the output reproducible.
	Seed uint64
}

// Summary describes what Workspace wrote.
type Summary struct {
	PanelRows  int
	Duplicates int
	Registry   int
	Typos      int
}

var (
	familyNames = []string{"김", "이", "박", "최", "정", "강", "조", "윤", "장", "임"}
	givenNames  = []string{"민지", "서준", "지우", "하나", "유진", "도윤", "서연", "하준", "지민", "수아", "예준", "채원"}
	locations   = []string{"서울 강남", "서울 홍대", "수원", "부산 서면", "인천 송도"}
	slots       = []string{"10:00", "11:30", "14:00", "3시30", "오후 4시"}
)

const panelTitle = "K-Beauty Skin Care Panel"

var panelHeaders = []string{"응답시간", "이메일", "이름", "전화번호", "전화번호.1", "성별", "생년", "예약 지점", "예약 날짜", "예약시간"}

// Workspace writes the panel exports and member registry named by cfg.Paths.
// Roughly one respondent in ten applies twice, two in three are registered
// and a few registered names carry an extra syllable.
func Workspace(cfg config.Config, opts Options) (Summary, error) {
	if len(cfg.Paths.Panels) == 0 {
		return Summary{}, fmt.Errorf("testdata: no panel paths configured")
	}
	if opts.Respondents <= 0 {
		opts.Respondents = 30
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	panels := make([]*table.Table, len(cfg.Paths.Panels))
	for i := range panels {
		panels[i] = table.New(panelHeaders...)
	}
	registry := table.New("Name", "Mobile", "Email", "ID")

	var sum Summary
	for i := range opts.Respondents {
		name := familyNames[rng.IntN(len(familyNames))] + givenNames[rng.IntN(len(givenNames))]
		phone := fmt.Sprintf("010-%04d-%04d", rng.IntN(10000), i)
		email := fmt.Sprintf("panel%03d@example.com", i)
		gender := "여"
		if rng.IntN(3) == 0 {
			gender = "남성"
		}
		row := table.Record{
			"응답시간":   fmt.Sprintf("2025-09-%02d", 1+rng.IntN(20)),
			"이메일":    "U" + strconv.Itoa(1000+i),
			"이름":     name,
			"전화번호":   email,
			"전화번호.1": phone,
			"성별":     gender,
			"생년":     strconv.Itoa(1975 + rng.IntN(30)),
			"예약 지점":  locations[rng.IntN(len(locations))],
			"예약 날짜":  fmt.Sprintf("2025.09.%02d", 20+rng.IntN(10)),
			"예약시간":   slots[rng.IntN(len(slots))],
		}
		panels[i%len(panels)].Append(row)
		sum.PanelRows++
		if rng.IntN(10) == 0 {
			dup := table.Record{}
			for k, v := range row {
				dup[k] = v
			}
			panels[rng.IntN(len(panels))].Append(dup)
			sum.PanelRows++
			sum.Duplicates++
		}

		if rng.IntN(3) == 2 {
			continue
		}
		regName := name
		if rng.IntN(8) == 0 {
			regName += givenNames[rng.IntN(len(givenNames))][:3]
			sum.Typos++
		}
		registry.Append(table.Record{
			"Name":   regName,
			"Mobile": phone,
			"Email":  email,
			"ID":     fmt.Sprintf("M%05d", i),
		})
		sum.Registry++
	}

	for i, p := range panels {
		if err := writePanel(cfg.Path(cfg.Paths.Panels[i]), p); err != nil {
			return sum, err
		}
	}
	if err := table.WriteCSVFile(cfg.Path(cfg.Paths.Registry), registry, true); err != nil {
		return sum, err
	}
	return sum, nil
}

// writePanel prefixes the export with the survey title line.
func writePanel(path string, t *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create panel dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(panelTitle + "\n"); err != nil {
		_ = f.Close()
		return err
	}
	if err := table.WriteCSV(f, t, false); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}
