// Package export turns fetched inventory records into the shapes the relay
// hands back to callers: department-annotated JSON rows and xlsx workbooks.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/odl-optics/remains-relay/pkg/departments"
	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/xuri/excelize/v2"
)

const (
	// DepartmentField is the upstream field carrying a department id.
	DepartmentField = "department"

	// DepartmentNameField is added by Annotate.
	DepartmentNameField = "department_name"

	// SheetName matches the default sheet of a new workbook.
	SheetName = "Sheet1"

	// Filename is the attachment name used for xlsx responses.
	Filename = "inventory.xlsx"

	// ContentType is the xlsx MIME type.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Annotate sets department_name on every record whose department id is in
// table. Records with an unknown or missing id are left without the field.
// Records are modified in place; the count of annotated records is returned.
func Annotate(records []pagination.Record, table *departments.Table) int {
	annotated := 0
	for _, rec := range records {
		v, ok := rec[DepartmentField]
		if !ok {
			continue
		}
		if name, ok := table.NameOf(v); ok {
			rec[DepartmentNameField] = name
			annotated++
		}
	}
	return annotated
}

// Columns returns the header row for records. Fields listed in order come
// first, in that order; any other fields follow, sorted.
// department_name is always last and is present whenever any record has a
// department field, even if no id was recognised.
func Columns(records []pagination.Record, order []string) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}

	_, hasDept := seen[DepartmentField]
	_, hasName := seen[DepartmentNameField]
	delete(seen, DepartmentNameField)

	cols := make([]string, 0, len(seen)+1)
	for _, k := range order {
		if _, ok := seen[k]; ok {
			cols = append(cols, k)
			delete(seen, k)
		}
	}

	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	cols = append(cols, rest...)

	if hasDept || hasName {
		cols = append(cols, DepartmentNameField)
	}
	return cols
}

// WriteXLSX writes records as a single-sheet workbook to w, with columns
// laid out by Columns(records, order).
func WriteXLSX(w io.Writer, records []pagination.Record, order []string) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	cols := Columns(records, order)

	if len(cols) > 0 {
		header := make([]any, len(cols))
		for i, c := range cols {
			header[i] = c
		}
		if err := sw.SetRow("A1", header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, rec := range records {
		row := make([]any, len(cols))
		for j, c := range cols {
			v, err := cellValue(rec[c])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i+1, c, err)
			}
			row[j] = v
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cellValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		if f, err := val.Float64(); err == nil {
			return f, nil
		}
		return val.String(), nil
	case string, bool, int, int64, float64:
		return val, nil
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
}
