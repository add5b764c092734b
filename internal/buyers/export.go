package buyers

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// exportColumns is the fixed column order for CSV exports. Import accepts
// the same names, so an export can round-trip back in unchanged.
var exportColumns = []string{
	"fullName", "email", "phone", "city", "propertyType", "bhk", "purpose",
	"budgetMin", "budgetMax", "timeline", "source", "notes", "tags", "status",
}

// WriteCSV streams leads as CSV. The header row is unquoted; every data
// value is quoted, with embedded quotes doubled, so downstream spreadsheet
// tools never misparse free-text notes. Null budgets render as empty cells
// and tags join with commas inside one cell.
func WriteCSV(w io.Writer, leads []Lead) error {
	if _, err := io.WriteString(w, strings.Join(exportColumns, ",")+"\n"); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i := range leads {
		if _, err := io.WriteString(w, exportRow(&leads[i])); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}
	return nil
}

func exportRow(l *Lead) string {
	values := []string{
		l.FullName,
		l.Email,
		l.Phone,
		string(l.City),
		string(l.PropertyType),
		string(l.BHK),
		string(l.Purpose),
		intCell(l.BudgetMin),
		intCell(l.BudgetMax),
		string(l.Timeline),
		string(l.Source),
		l.Notes,
		strings.Join(l.Tags, ","),
		string(l.Status),
	}
	for i, v := range values {
		values[i] = `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return strings.Join(values, ",") + "\n"
}

func intCell(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
