package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/odl-optics/remains-relay/internal/testutil"
	"github.com/odl-optics/remains-relay/pkg/pagination"
)

const testApp = "odl"

func newTestClient(t *testing.T, mock *testutil.MockUpstream) *Client {
	t.Helper()

	cfg := DefaultConfig(testApp, "secret-key")
	cfg.BaseURL = mock.URL()
	cfg.Timeout = 5 * time.Second

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:   "valid config",
			config: DefaultConfig("odl", "key"),
		},
		{
			name:        "missing app name",
			config:      DefaultConfig("", "key"),
			expectError: true,
			errorMsg:    "app name is required",
		},
		{
			name:        "missing api key",
			config:      DefaultConfig("odl", ""),
			expectError: true,
			errorMsg:    "api key is required",
		},
		{
			name:        "missing base url",
			config:      Config{AppName: "odl", APIKey: "key"},
			expectError: true,
			errorMsg:    "base url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got nil")
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if c == nil {
				t.Fatal("Client is nil")
			}
		})
	}
}

func TestNew_Endpoint(t *testing.T) {
	cfg := DefaultConfig("odl", "key")
	cfg.BaseURL = "https://optima.itigris.ru/"

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	want := "https://optima.itigris.ru/odl/remoteRemains/list"
	if c.Endpoint() != want {
		t.Errorf("Endpoint() = %q, want %q", c.Endpoint(), want)
	}
	if strings.Contains(c.Endpoint(), "key") {
		t.Error("Endpoint() must not contain the api key")
	}
}

func TestFetchPage_RequestShape(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetPage(2, testutil.NewRecordsPage(map[string]any{"id": 7}))

	c := newTestClient(t, mock)
	payload := pagination.Payload{
		Product: "LENS",
		Filter:  map[string]any{"brand": "Hoya"},
	}.WithDepartment(1000000021)

	page, err := c.FetchPage(context.Background(), payload, 2)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	records := page.Records
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0]["id"] != json.Number("7") {
		t.Errorf("records[0][id] = %#v, want json.Number(7)", records[0]["id"])
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("request count = %d, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Method != http.MethodPost {
		t.Errorf("Method = %s, want POST", req.Method)
	}
	if req.Path != "/odl/remoteRemains/list" {
		t.Errorf("Path = %s", req.Path)
	}
	if req.Key != "secret-key" {
		t.Errorf("Key = %q, want secret-key", req.Key)
	}
	if req.Page != 2 {
		t.Errorf("Page = %d, want 2", req.Page)
	}
	if req.Body["product"] != "LENS" {
		t.Errorf("product = %v", req.Body["product"])
	}
	if req.Body["departmentId"] != json.Number("1000000021") {
		t.Errorf("departmentId = %#v", req.Body["departmentId"])
	}
	filter, _ := req.Body["filter"].(map[string]any)
	if filter["brand"] != "Hoya" {
		t.Errorf("filter = %#v", req.Body["filter"])
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestFetchPage_OmitsOptionalFields(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()

	c := newTestClient(t, mock)
	if _, err := c.FetchPage(context.Background(), pagination.Payload{Product: "LENS"}, 1); err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}

	body := mock.Requests()[0].Body
	if _, ok := body["filter"]; ok {
		t.Error("filter should be omitted when nil")
	}
	if _, ok := body["departmentId"]; ok {
		t.Error("departmentId should be omitted when unset")
	}
}

func TestFetchPage_UpstreamError(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetPage(1, testutil.NewErrorPage(http.StatusInternalServerError, "boom"))

	c := newTestClient(t, mock)
	_, err := c.FetchPage(context.Background(), pagination.Payload{Product: "LENS"}, 1)
	if err == nil {
		t.Fatal("Expected error")
	}

	upErr, ok := AsUpstreamError(err)
	if !ok {
		t.Fatalf("error %v is not an UpstreamError", err)
	}
	if upErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", upErr.StatusCode)
	}
	if upErr.Body != "boom" {
		t.Errorf("Body = %q, want boom", upErr.Body)
	}
	if upErr.Class != ErrorClassServer {
		t.Errorf("Class = %q, want server", upErr.Class)
	}
}

func TestFetchPage_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "object instead of array", body: `{"error":"nope"}`},
		{name: "truncated", body: `[{"id":1}`},
		{name: "empty body", body: ""},
		{name: "array of scalars", body: `[1,2]`},
		{name: "unterminated object", body: `[{"id":1`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockUpstream(testApp)
			defer mock.Close()
			mock.SetPage(1, testutil.MockPage{StatusCode: http.StatusOK, Body: tt.body})

			c := newTestClient(t, mock)
			_, err := c.FetchPage(context.Background(), pagination.Payload{Product: "LENS"}, 1)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestFetchPage_NullIsEmpty(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetPage(1, testutil.MockPage{StatusCode: http.StatusOK, Body: "null"})

	c := newTestClient(t, mock)
	page, err := c.FetchPage(context.Background(), pagination.Payload{Product: "LENS"}, 1)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(page.Records))
	}
}

func TestFetchPage_KeyOrder(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetPages(`[{"name":"Lens","id":1,"meta":{"z":1,"a":2}},{"qty":3,"name":"Frame","id":2},{"id":3,"id":4}]`)

	c := newTestClient(t, mock)
	page, err := c.FetchPage(context.Background(), pagination.Payload{Product: "LENS"}, 1)
	if err != nil {
		t.Fatalf("FetchPage() failed: %v", err)
	}

	if got := strings.Join(page.Keys, ","); got != "name,id,meta,qty" {
		t.Errorf("Keys = %s, want name,id,meta,qty", got)
	}
	if len(page.Records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(page.Records))
	}
	meta, _ := page.Records[0]["meta"].(map[string]any)
	if meta["a"] != json.Number("2") {
		t.Errorf("nested value = %#v, want json.Number(2)", meta["a"])
	}
	if page.Records[2]["id"] != json.Number("4") {
		t.Errorf("duplicate key = %#v, want last value 4", page.Records[2]["id"])
	}
}

func TestFetchPage_ErrorBodyBound(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	long := strings.Repeat("x", maxErrorBody+512)
	mock.SetPage(1, testutil.NewErrorPage(http.StatusBadGateway, long))

	c := newTestClient(t, mock)
	_, err := c.FetchPage(context.Background(), pagination.Payload{Product: "LENS"}, 1)

	upErr, ok := AsUpstreamError(err)
	if !ok {
		t.Fatalf("error %v is not an UpstreamError", err)
	}
	if len(upErr.Body) != maxErrorBody {
		t.Errorf("len(Body) = %d, want %d", len(upErr.Body), maxErrorBody)
	}
	if upErr.Body != long[:maxErrorBody] {
		t.Error("Body must be the leading bytes of the upstream body")
	}
}

func TestFetchPage_ContextTimeout(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetPage(1, testutil.MockPage{StatusCode: http.StatusOK, Body: "[]", Delay: 500 * time.Millisecond})

	c := newTestClient(t, mock)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchPage(ctx, pagination.Payload{Product: "LENS"}, 1)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if _, ok := AsUpstreamError(err); ok {
		t.Error("timeout must not be reported as an upstream status error")
	}
}

// The scenarios below run the real client under the paginated fetcher.

func TestFetchAll_ThreePages(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetPages(`[{"id":1},{"id":2}]`, `[{"id":3}]`, `[]`)

	fetcher := pagination.NewFetcher(newTestClient(t, mock), pagination.DefaultConfig())
	records, err := fetcher.FetchAll(context.Background(), pagination.Payload{Product: "LENS"})
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}

	var ids []string
	for _, r := range records {
		ids = append(ids, r["id"].(json.Number).String())
	}
	if strings.Join(ids, ",") != "1,2,3" {
		t.Errorf("ids = %v, want [1 2 3]", ids)
	}

	pages := mock.Pages()
	if len(pages) != 3 || pages[0] != 1 || pages[1] != 2 || pages[2] != 3 {
		t.Errorf("pages requested = %v, want [1 2 3]", pages)
	}
}

func TestFetchAll_FirstPageFails(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetPage(1, testutil.NewErrorPage(500, "boom"))
	mock.SetPage(2, testutil.NewRecordsPage(map[string]any{"id": 2}))

	fetcher := pagination.NewFetcher(newTestClient(t, mock), pagination.DefaultConfig())
	records, err := fetcher.FetchAll(context.Background(), pagination.Payload{Product: "LENS"})

	if records != nil {
		t.Errorf("records = %v, want nil", records)
	}
	upErr, ok := AsUpstreamError(err)
	if !ok {
		t.Fatalf("error %v is not an UpstreamError", err)
	}
	if upErr.Body != "boom" || upErr.StatusCode != 500 {
		t.Errorf("UpstreamError = %+v, want boom/500", upErr)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.RequestCount())
	}
}

func TestFetchAll_EmptyFirstPage(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()

	fetcher := pagination.NewFetcher(newTestClient(t, mock), pagination.DefaultConfig())
	records, err := fetcher.FetchAll(context.Background(), pagination.Payload{Product: "LENS"})
	if err != nil {
		t.Fatalf("FetchAll() failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
	if mock.RequestCount() != 1 {
		t.Errorf("request count = %d, want 1", mock.RequestCount())
	}
}

func TestFetchAll_EndlessUpstreamHitsCap(t *testing.T) {
	mock := testutil.NewMockUpstream(testApp)
	defer mock.Close()
	mock.SetDefault(testutil.NewEndlessPages())

	fetcher := pagination.NewFetcher(newTestClient(t, mock), pagination.Config{MaxPages: 5})
	_, err := fetcher.FetchAll(context.Background(), pagination.Payload{Product: "LENS"})

	if !errors.Is(err, pagination.ErrPageLimitExceeded) {
		t.Errorf("error = %v, want ErrPageLimitExceeded", err)
	}
	if mock.RequestCount() != 5 {
		t.Errorf("request count = %d, want 5", mock.RequestCount())
	}
}
