package pagination

// Record is one inventory row. Its shape belongs to the upstream API; numbers
// are kept as json.Number.
type Record map[string]any

// Payload is the caller's query, sent with every page request.
type Payload struct {
	Product      string         `json:"product"`
	Filter       map[string]any `json:"filter,omitempty"`
	DepartmentID *int64         `json:"departmentId,omitempty"`
}

// Body returns the JSON body for one page request: the payload fields plus
// page. The payload itself is left untouched.
func (p Payload) Body(page int) map[string]any {
	body := map[string]any{
		"product": p.Product,
		"page":    page,
	}
	if p.Filter != nil {
		body["filter"] = p.Filter
	}
	if p.DepartmentID != nil {
		body["departmentId"] = *p.DepartmentID
	}
	return body
}

// WithDepartment returns a copy of p filtered to department id.
func (p Payload) WithDepartment(id int64) Payload {
	p.DepartmentID = &id
	return p
}

// Page is one decoded page of records.
type Page struct {
	Records []Record

	// Keys lists the record fields in the order they first appear on the
	// page. Nil when the source does not know the order.
	Keys []string
}

// Result is every record of a fetch together with the upstream field order.
type Result struct {
	Records []Record

	// Columns is the union of Page.Keys in first-seen order.
	Columns []string
}

// addColumns appends the keys not yet present in r.Columns.
func (r *Result) addColumns(seen map[string]struct{}, keys []string) {
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		r.Columns = append(r.Columns, k)
	}
}
