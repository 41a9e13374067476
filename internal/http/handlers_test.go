package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"vendite/internal/catalog"
	"vendite/internal/ledger"
	"vendite/internal/reports"
	"vendite/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := storage.NewRepository(
		filepath.Join(t.TempDir(), "vendite.db"),
		catalog.DefaultCategory, catalog.DefaultSubCategory)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}

	cat := catalog.New(map[string][]string{
		"misc":        {"other"},
		"electronics": {"phone", "laptop"},
	})
	svc := ledger.NewService(store, cat, nil)
	srv := NewServer(":0", svc, reports.NewEngine(store))

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		srv.rateLimiter.stop()
		svc.Close()
	})
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body string) (int, map[string]any) {
	t.Helper()

	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, ts.URL+path, nil)
	} else {
		req, err = http.NewRequest(method, ts.URL+path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if err != nil {
		t.Fatal(err)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("%s %s: decode response: %v", method, path, err)
	}
	return resp.StatusCode, decoded
}

func errorKind(t *testing.T, body map[string]any) string {
	t.Helper()
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("response has no error envelope: %v", body)
	}
	kind, _ := errObj["kind"].(string)
	return kind
}

func createCustomer(t *testing.T, ts *httptest.Server, phone string) int64 {
	t.Helper()
	status, body := doJSON(t, ts, http.MethodPost, "/customers",
		fmt.Sprintf(`{"name": "Gina", "phone": %q, "location": "Verona"}`, phone))
	if status != http.StatusCreated {
		t.Fatalf("create customer: status %d, body %v", status, body)
	}
	customer := body["customer"].(map[string]any)
	return int64(customer["id"].(float64))
}

func createSale(t *testing.T, ts *httptest.Server, customerID int64, total string) int64 {
	t.Helper()
	status, body := doJSON(t, ts, http.MethodPost, "/sales", fmt.Sprintf(
		`{"customer_id": %d, "item": "lamp", "category": "misc", "sub_category": "other", "total_price": %s, "sale_date": "2024-03-10"}`,
		customerID, total))
	if status != http.StatusCreated {
		t.Fatalf("create sale: status %d, body %v", status, body)
	}
	sale := body["sale"].(map[string]any)
	return int64(sale["id"].(float64))
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ts.Client().Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestCustomerLifecycle(t *testing.T) {
	ts := newTestServer(t)

	id := createCustomer(t, ts, "5551000")

	status, body := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/customers/%d", id), "")
	if status != http.StatusOK {
		t.Fatalf("get customer: status %d, body %v", status, body)
	}
	customer := body["customer"].(map[string]any)
	if customer["phone"] != "5551000" {
		t.Errorf("phone = %v, want 5551000", customer["phone"])
	}
	summary := body["summary"].(map[string]any)
	if summary["total_remaining"] != "0.00" {
		t.Errorf("total_remaining = %v, want 0.00", summary["total_remaining"])
	}

	status, body = doJSON(t, ts, http.MethodPost, "/customers",
		`{"name": "Copy", "phone": "5551000", "location": "Bari"}`)
	if status != http.StatusBadRequest {
		t.Errorf("duplicate phone: status %d, want 400", status)
	}
	if kind := errorKind(t, body); kind != "duplicate_phone" {
		t.Errorf("error kind = %q, want duplicate_phone", kind)
	}

	status, body = doJSON(t, ts, http.MethodGet, "/customers/999", "")
	if status != http.StatusNotFound {
		t.Errorf("missing customer: status %d, want 404", status)
	}
	if kind := errorKind(t, body); kind != "customer_not_found" {
		t.Errorf("error kind = %q, want customer_not_found", kind)
	}
}

func TestSaleAndPaymentFlow(t *testing.T) {
	ts := newTestServer(t)

	customerID := createCustomer(t, ts, "5551001")
	saleID := createSale(t, ts, customerID, `"150.00"`)

	status, body := doJSON(t, ts, http.MethodPost, "/payments", fmt.Sprintf(
		`{"sale_id": %d, "amount": "50.00", "payment_date": "2024-03-11", "note": "first"}`, saleID))
	if status != http.StatusCreated {
		t.Fatalf("post payment: status %d, body %v", status, body)
	}
	if body["remaining"] != "100.00" {
		t.Errorf("remaining = %v, want 100.00", body["remaining"])
	}

	status, body = doJSON(t, ts, http.MethodGet, fmt.Sprintf("/sales/%d", saleID), "")
	if status != http.StatusOK {
		t.Fatalf("get sale: status %d", status)
	}
	sale := body["sale"].(map[string]any)
	if sale["paid"] != "50.00" || sale["remaining"] != "100.00" {
		t.Errorf("sale balance = paid %v / remaining %v, want 50.00/100.00", sale["paid"], sale["remaining"])
	}
	if sale["customer_name"] != "Gina" {
		t.Errorf("customer_name = %v, want Gina", sale["customer_name"])
	}
	payments := body["payments"].([]any)
	if len(payments) != 1 {
		t.Fatalf("got %d payments, want 1", len(payments))
	}
}

func TestPostPaymentRejections(t *testing.T) {
	ts := newTestServer(t)

	customerID := createCustomer(t, ts, "5551002")
	saleID := createSale(t, ts, customerID, `"50.00"`)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantKind string
	}{
		{
			name:     "overpayment",
			body:     fmt.Sprintf(`{"sale_id": %d, "amount": "50.01", "payment_date": "2024-03-11"}`, saleID),
			wantCode: http.StatusBadRequest,
			wantKind: "overpayment",
		},
		{
			name:     "zero amount",
			body:     fmt.Sprintf(`{"sale_id": %d, "amount": "0", "payment_date": "2024-03-11"}`, saleID),
			wantCode: http.StatusBadRequest,
			wantKind: "validation",
		},
		{
			name:     "impossible date",
			body:     fmt.Sprintf(`{"sale_id": %d, "amount": "10.00", "payment_date": "2024-02-30"}`, saleID),
			wantCode: http.StatusBadRequest,
			wantKind: "validation",
		},
		{
			name:     "unknown sale",
			body:     `{"sale_id": 999, "amount": "10.00", "payment_date": "2024-03-11"}`,
			wantCode: http.StatusNotFound,
			wantKind: "sale_not_found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, ts, http.MethodPost, "/payments", tt.body)
			if status != tt.wantCode {
				t.Errorf("status = %d, want %d (body %v)", status, tt.wantCode, body)
			}
			if kind := errorKind(t, body); kind != tt.wantKind {
				t.Errorf("error kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}

	// None of the rejections may have touched the balance.
	status, body := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/sales/%d", saleID), "")
	if status != http.StatusOK {
		t.Fatalf("get sale: status %d", status)
	}
	sale := body["sale"].(map[string]any)
	if sale["remaining"] != "50.00" {
		t.Errorf("remaining after rejections = %v, want 50.00", sale["remaining"])
	}
}

func TestCreateSaleCategoryRejections(t *testing.T) {
	ts := newTestServer(t)
	customerID := createCustomer(t, ts, "5551003")

	tests := []struct {
		name     string
		category string
		sub      string
		wantKind string
	}{
		{"unknown category", "vehicles", "boat", "unknown_category"},
		{"unknown sub-category", "electronics", "boat", "unknown_sub_category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doJSON(t, ts, http.MethodPost, "/sales", fmt.Sprintf(
				`{"customer_id": %d, "item": "x", "category": %q, "sub_category": %q, "total_price": "10.00", "sale_date": "2024-03-10"}`,
				customerID, tt.category, tt.sub))
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
			if kind := errorKind(t, body); kind != tt.wantKind {
				t.Errorf("error kind = %q, want %q", kind, tt.wantKind)
			}
		})
	}
}

func TestCreateSaleWithInitialPaid(t *testing.T) {
	ts := newTestServer(t)
	customerID := createCustomer(t, ts, "5551004")

	status, body := doJSON(t, ts, http.MethodPost, "/sales", fmt.Sprintf(
		`{"customer_id": %d, "item": "tv", "category": "electronics", "sub_category": "phone", "total_price": "200.00", "sale_date": "2024-03-10", "paid": "80.00"}`,
		customerID))
	if status != http.StatusCreated {
		t.Fatalf("create sale: status %d, body %v", status, body)
	}
	sale := body["sale"].(map[string]any)
	if sale["paid"] != "80.00" || sale["remaining"] != "120.00" {
		t.Errorf("sale balance = paid %v / remaining %v, want 80.00/120.00", sale["paid"], sale["remaining"])
	}
}

func TestMonthlySummaryEndpoint(t *testing.T) {
	ts := newTestServer(t)

	customerID := createCustomer(t, ts, "5551005")
	saleID := createSale(t, ts, customerID, `"100.00"`)
	status, _ := doJSON(t, ts, http.MethodPost, "/payments", fmt.Sprintf(
		`{"sale_id": %d, "amount": "40.00", "payment_date": "2024-03-15"}`, saleID))
	if status != http.StatusCreated {
		t.Fatal("seed payment failed")
	}

	status, body := doJSON(t, ts, http.MethodGet, "/monthly-summary/2024/3", "")
	if status != http.StatusOK {
		t.Fatalf("monthly summary: status %d, body %v", status, body)
	}
	if body["month"] != "2024-03" {
		t.Errorf("month = %v, want 2024-03", body["month"])
	}
	if body["payments_received"] != "40.00" {
		t.Errorf("payments_received = %v, want 40.00", body["payments_received"])
	}
	if body["new_sales_total"] != "100.00" {
		t.Errorf("new_sales_total = %v, want 100.00", body["new_sales_total"])
	}
	if body["outstanding_balance"] != "60.00" {
		t.Errorf("outstanding_balance = %v, want 60.00", body["outstanding_balance"])
	}

	status, body = doJSON(t, ts, http.MethodGet, "/monthly-summary/2024/13", "")
	if status != http.StatusBadRequest {
		t.Errorf("month 13: status %d, want 400 (body %v)", status, body)
	}
}

func TestOutstandingEndpoint(t *testing.T) {
	ts := newTestServer(t)

	customerID := createCustomer(t, ts, "5551006")
	createSale(t, ts, customerID, `"30.00"`)

	status, body := doJSON(t, ts, http.MethodGet, "/outstanding", "")
	if status != http.StatusOK {
		t.Fatalf("outstanding: status %d", status)
	}
	sales := body["outstanding_sales"].([]any)
	if len(sales) != 1 {
		t.Fatalf("got %d outstanding sales, want 1", len(sales))
	}
	if body["total_outstanding"] != "30.00" {
		t.Errorf("total_outstanding = %v, want 30.00", body["total_outstanding"])
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodGet, "/categories", "")
	if status != http.StatusOK {
		t.Fatalf("categories: status %d", status)
	}
	categories := body["categories"].(map[string]any)
	if _, ok := categories["electronics"]; !ok {
		t.Errorf("categories missing electronics: %v", categories)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	ts := newTestServer(t)

	status, body := doJSON(t, ts, http.MethodPost, "/customers", `{not json`)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if kind := errorKind(t, body); kind != "bad_request" {
		t.Errorf("error kind = %q, want bad_request", kind)
	}
}
