// Package departments holds the fixed table of Optima departments and their
// numeric identifiers.
package departments

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrUnknownDepartment is returned when a name is not in the table.
var ErrUnknownDepartment = errors.New("unknown department")

// Department is one row of the table.
type Department struct {
	Name string `json:"name"`
	ID   int64  `json:"id"`
}

var defaults = []Department{
	{Name: "Ленина", ID: 1000000021},
	{Name: "Склад. Мобильный салон", ID: 1000000020},
	{Name: "Мобильный салон", ID: 1000000019},
	{Name: "Интернет-магазин Якутск", ID: 1000000018},
	{Name: "Склад. Интернет-магазин Якутск", ID: 1000000017},
	{Name: "Айсберг", ID: 1000000016},
	{Name: "Качели", ID: 1000000012},
	{Name: "Улуру", ID: 1000000011},
	{Name: "Лермонтова", ID: 1000000009},
	{Name: "Пояркова", ID: 1000000008},
	{Name: "Склад ИП", ID: 1000000007},
	{Name: "Цех", ID: 1000000006},
	{Name: "Склад ООО", ID: 1000000005},
	{Name: "Экспо", ID: 1000000004},
	{Name: "Офис", ID: 1000000003},
}

// Table is an immutable bidirectional name/id mapping. The zero value is an
// empty table; use Default or New.
type Table struct {
	byName map[string]int64
	byID   map[int64]string
	order  []Department
}

// Default returns the table of the fifteen known departments.
func Default() *Table {
	t, _ := New(defaults)
	return t
}

// New builds a table, rejecting duplicate names or ids.
func New(rows []Department) (*Table, error) {
	t := &Table{
		byName: make(map[string]int64, len(rows)),
		byID:   make(map[int64]string, len(rows)),
		order:  make([]Department, 0, len(rows)),
	}
	for _, d := range rows {
		if _, dup := t.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate department name %q", d.Name)
		}
		if _, dup := t.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate department id %d", d.ID)
		}
		t.byName[d.Name] = d.ID
		t.byID[d.ID] = d.Name
		t.order = append(t.order, d)
	}
	return t, nil
}

// Lookup resolves a display name to its id. Matching is exact and
// case-sensitive.
func (t *Table) Lookup(name string) (int64, error) {
	id, ok := t.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDepartment, name)
	}
	return id, nil
}

// Name resolves an id back to its display name.
func (t *Table) Name(id int64) (string, bool) {
	name, ok := t.byID[id]
	return name, ok
}

// NameOf resolves a decoded JSON value (json.Number, float64, int, string)
// holding a department id.
func (t *Table) NameOf(v any) (string, bool) {
	id, ok := toID(v)
	if !ok {
		return "", false
	}
	return t.Name(id)
}

// Len returns the number of departments.
func (t *Table) Len() int {
	return len(t.order)
}

// List returns the departments sorted by id, descending, as they are listed
// in Optima.
func (t *Table) List() []Department {
	out := make([]Department, len(t.order))
	copy(out, t.order)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// Map returns a copy of the name to id mapping.
func (t *Table) Map() map[string]int64 {
	out := make(map[string]int64, len(t.byName))
	for k, v := range t.byName {
		out[k] = v
	}
	return out
}

func toID(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if id, err := n.Int64(); err == nil {
			return id, true
		}
		f, err := n.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case string:
		id, err := strconv.ParseInt(n, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}
