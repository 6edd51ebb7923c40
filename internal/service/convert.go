package service

import (
	"fmt"

	"github.com/jask/panelmatch/internal/table"
)

// ConvertWorkbook writes one worksheet of an xlsx file as a BOM-prefixed CSV
// and returns the number of data rows.
func ConvertWorkbook(in, sheet, out string) (int, error) {
	t, err := table.ReadXLSX(in, sheet)
	if err != nil {
		return 0, fmt.Errorf("convert: %w", err)
	}
	if err := table.WriteCSVFile(out, t, true); err != nil {
		return 0, fmt.Errorf("convert: write csv: %w", err)
	}
	return t.Len(), nil
}
