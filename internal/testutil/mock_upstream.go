// Package testutil provides a scriptable fake of the Optima remote remains API.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockPage is the canned response for one page number.
type MockPage struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// RecordedRequest is what the mock saw for one call.
type RecordedRequest struct {
	Method string
	Path   string
	Key    string
	Page   int
	Body   map[string]any
	Header http.Header
}

// MockUpstream serves POST /{app}/remoteRemains/list. Pages without a
// scripted response get the default (200, empty array).
type MockUpstream struct {
	server  *httptest.Server
	appName string

	mu          sync.RWMutex
	pages       map[int]MockPage
	defaultPage MockPage
	requests    []RecordedRequest
}

// NewMockUpstream starts a mock for appName.
func NewMockUpstream(appName string) *MockUpstream {
	mock := &MockUpstream{
		appName:     appName,
		pages:       make(map[int]MockPage),
		defaultPage: NewRecordsPage(),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the base URL to configure the client with.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears scripted pages and recorded requests.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = make(map[int]MockPage)
	m.defaultPage = NewRecordsPage()
	m.requests = nil
}

// SetPage scripts the response for one page.
func (m *MockUpstream) SetPage(page int, resp MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// SetPages scripts pages 1..n with 200 responses carrying the given JSON bodies.
func (m *MockUpstream) SetPages(bodies ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, body := range bodies {
		m.pages[i+1] = MockPage{StatusCode: http.StatusOK, Body: body}
	}
}

// SetDefault sets the response for every page without a scripted one.
func (m *MockUpstream) SetDefault(resp MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPage = resp
}

// Requests returns a copy of the recorded requests in arrival order.
func (m *MockUpstream) Requests() []RecordedRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestCount returns the number of requests received.
func (m *MockUpstream) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.requests)
}

// Pages returns the page numbers requested, in order.
func (m *MockUpstream) Pages() []int {
	reqs := m.Requests()
	out := make([]int, len(reqs))
	for i, r := range reqs {
		out[i] = r.Page
	}
	return out
}

func (m *MockUpstream) handle(w http.ResponseWriter, r *http.Request) {
	rec := RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Key:    r.URL.Query().Get("key"),
		Header: r.Header.Clone(),
	}

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err == nil {
		rec.Body = body
		if n, ok := body["page"].(json.Number); ok {
			if page, err := n.Int64(); err == nil {
				rec.Page = int(page)
			}
		}
	}

	m.mu.Lock()
	m.requests = append(m.requests, rec)
	resp, scripted := m.pages[rec.Page]
	if !scripted {
		resp = m.defaultPage
	}
	m.mu.Unlock()

	if r.Method != http.MethodPost || r.URL.Path != "/"+m.appName+"/remoteRemains/list" {
		http.NotFound(w, r)
		return
	}

	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	if resp.Headers["Content-Type"] == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewRecordsPage returns a 200 response with records encoded as a JSON array.
func NewRecordsPage(records ...map[string]any) MockPage {
	if records == nil {
		records = []map[string]any{}
	}
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(records)
	return MockPage{StatusCode: http.StatusOK, Body: buf.String()}
}

// NewErrorPage returns a non-success response with a raw body.
func NewErrorPage(status int, body string) MockPage {
	return MockPage{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "text/plain; charset=utf-8"},
	}
}

// NewEndlessPages makes every unscripted page return one record, simulating
// an upstream that never signals the end.
func NewEndlessPages() MockPage {
	return NewRecordsPage(map[string]any{"id": 1})
}
