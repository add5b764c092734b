package buyers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DefaultImportMaxRows caps how many rows a single import may carry. Rows
// past the cap are dropped before validation.
const DefaultImportMaxRows = 200

// ImportRow is one submitted row. ParseErrors carries failures detected
// before validation, such as a non-numeric budget cell; a row with parse
// errors is reported invalid without running the validator.
type ImportRow struct {
	Input       *LeadInput
	ParseErrors FieldErrors
}

// WrapInputs lifts plain inputs into import rows, for JSON imports where
// decoding already happened.
func WrapInputs(inputs []*LeadInput) []ImportRow {
	rows := make([]ImportRow, len(inputs))
	for i, in := range inputs {
		rows[i] = ImportRow{Input: in}
	}
	return rows
}

// RowResult is the per-row outcome reported back to the caller. Row
// numbering starts at 1 for the first data row.
type RowResult struct {
	Row    int               `json:"row"`
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ImportResult accounts for a whole import: how many rows landed and what
// happened to each submitted row.
type ImportResult struct {
	Imported int         `json:"imported"`
	Results  []RowResult `json:"results"`
}

// Importer validates a batch row by row and commits the valid rows in one
// transaction. Invalid rows never block valid ones; they are only reported.
type Importer struct {
	repo    Repository
	maxRows int
}

func NewImporter(repo Repository, maxRows int) *Importer {
	if maxRows <= 0 {
		maxRows = DefaultImportMaxRows
	}
	return &Importer{repo: repo, maxRows: maxRows}
}

// Import normalizes and validates every row independently, then inserts the
// valid subset atomically. All rows invalid returns ErrNoValidRows and
// nothing is written.
func (imp *Importer) Import(ctx context.Context, ownerID string, rows []ImportRow) (*ImportResult, error) {
	if len(rows) > imp.maxRows {
		rows = rows[:imp.maxRows]
	}

	result := &ImportResult{Results: make([]RowResult, 0, len(rows))}
	valid := make([]*LeadInput, 0, len(rows))

	for i, row := range rows {
		if len(row.ParseErrors) > 0 {
			result.Results = append(result.Results, RowResult{Row: i + 1, Errors: row.ParseErrors})
			continue
		}
		row.Input.Normalize()
		if fe := row.Input.Validate(); fe != nil {
			result.Results = append(result.Results, RowResult{Row: i + 1, Errors: fe})
			continue
		}
		result.Results = append(result.Results, RowResult{Row: i + 1, Valid: true})
		valid = append(valid, row.Input)
	}

	if len(valid) == 0 {
		return result, ErrNoValidRows
	}

	n, err := imp.repo.ImportBatch(ctx, ownerID, valid)
	if err != nil {
		return nil, err
	}
	result.Imported = n
	return result, nil
}

// csvFields maps header cells to LeadInput fields. Headers are matched
// case-insensitively and must use the export column names.
var csvFields = map[string]func(in *LeadInput, value string) error{
	"fullname":     func(in *LeadInput, v string) error { in.FullName = v; return nil },
	"email":        func(in *LeadInput, v string) error { in.Email = v; return nil },
	"phone":        func(in *LeadInput, v string) error { in.Phone = v; return nil },
	"city":         func(in *LeadInput, v string) error { in.City = v; return nil },
	"propertytype": func(in *LeadInput, v string) error { in.PropertyType = v; return nil },
	"bhk":          func(in *LeadInput, v string) error { in.BHK = v; return nil },
	"purpose":      func(in *LeadInput, v string) error { in.Purpose = v; return nil },
	"budgetmin":    func(in *LeadInput, v string) error { return setBudget(&in.BudgetMin, v) },
	"budgetmax":    func(in *LeadInput, v string) error { return setBudget(&in.BudgetMax, v) },
	"timeline":     func(in *LeadInput, v string) error { in.Timeline = v; return nil },
	"source":       func(in *LeadInput, v string) error { in.Source = v; return nil },
	"notes":        func(in *LeadInput, v string) error { in.Notes = v; return nil },
	"tags":         func(in *LeadInput, v string) error { in.Tags = splitTags(v); return nil },
	"status":       func(in *LeadInput, v string) error { in.Status = v; return nil },
}

// csvJSONNames translates matched header names back to the JSON field names
// used in error payloads.
var csvJSONNames = map[string]string{
	"fullname":     "fullName",
	"propertytype": "propertyType",
	"budgetmin":    "budgetMin",
	"budgetmax":    "budgetMax",
}

func jsonFieldName(header string) string {
	if name, ok := csvJSONNames[header]; ok {
		return name
	}
	return header
}

func setBudget(dst **int, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		*dst = nil
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	*dst = &n
	return nil
}

// ParseCSV reads an uploaded CSV into import rows. The first record must be
// a header naming the columns; unknown columns fail the whole upload so
// silent data loss cannot hide behind a typo. A bad cell marks only its own
// row invalid. Reading stops after maxRows data rows.
func ParseCSV(r io.Reader, maxRows int) ([]ImportRow, error) {
	if maxRows <= 0 {
		maxRows = DefaultImportMaxRows
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("csv import: empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("csv import: read header: %w", err)
	}

	names := make([]string, len(header))
	setters := make([]func(in *LeadInput, value string) error, len(header))
	for i, cell := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\uFEFF")))
		setter, ok := csvFields[name]
		if !ok {
			return nil, fmt.Errorf("csv import: unknown column %q", strings.TrimSpace(cell))
		}
		names[i] = jsonFieldName(name)
		setters[i] = setter
	}

	var rows []ImportRow
	for len(rows) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv import: row %d: %w", len(rows)+1, err)
		}

		row := ImportRow{Input: &LeadInput{}}
		for i, cell := range record {
			if i >= len(setters) {
				break
			}
			if err := setters[i](row.Input, cell); err != nil {
				if row.ParseErrors == nil {
					row.ParseErrors = FieldErrors{}
				}
				row.ParseErrors[names[i]] = err.Error()
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
