package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions controls CSV loading.
type ReadOptions struct {
	// SkipRows discards leading records before the header (sheets exported
	// from the booking tool carry a title line).
	SkipRows int
	// Headers, when set, replaces the header row; no row is consumed for it.
	Headers []string
}

// ReadCSVFile loads path with ReadCSV.
func ReadCSVFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// ReadCSV parses delimited text into a Table. A UTF-8 BOM is stripped; input
// that is not valid UTF-8 is decoded as CP949 (EUC-KR), which is what older
// Korean spreadsheet exports produce.
func ReadCSV(r io.Reader, opts ReadOptions) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode cp949: %w", err)
		}
		raw = decoded
	}

	csvr := csv.NewReader(bytes.NewReader(raw))
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true
	csvr.TrimLeadingSpace = true

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := csvr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return New(), nil
			}
			return nil, fmt.Errorf("skip line %d: %w", i+1, err)
		}
	}

	headers := opts.Headers
	if len(headers) == 0 {
		first, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("header: %w", err)
		}
		headers = uniqueHeaders(first)
	}

	t := New(headers...)
	line := opts.SkipRows + 1
	for {
		line++
		rec, err := csvr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(Record, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// uniqueHeaders trims names, labels blanks "Unnamed: N" and suffixes repeats
// with ".1", ".2", matching how spreadsheet tools export them.
func uniqueHeaders(in []string) []string {
	out := make([]string, len(in))
	// counts covers generated names too, so "a,a,a.1" yields a, a.1, a.1.1
	counts := make(map[string]int, len(in))
	for i, h := range in {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		for n := counts[h]; n > 0; n = counts[h] {
			counts[h] = n + 1
			h = h + "." + strconv.Itoa(n)
		}
		counts[h]++
		out[i] = h
	}
	return out
}

// WriteCSVFile writes t to path, creating parent directories. With bom the
// file starts with a UTF-8 byte order mark so Excel opens Hangul correctly.
func WriteCSVFile(path string, t *Table, bom bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t, bom); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// WriteCSV writes the header followed by every row.
func WriteCSV(w io.Writer, t *Table, bom bool) error {
	if bom {
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	rec := make([]string, len(t.Headers))
	for _, r := range t.Rows {
		for i, h := range t.Headers {
			rec[i] = r[h]
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
