package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"stockledger/backend/internal/domain"
	"stockledger/backend/internal/notify"
	"stockledger/backend/internal/service"
	"stockledger/backend/internal/store/memory"
)

// newTestAPI builds a full API over the seeded in-memory store so handler
// tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	logger := zap.NewNop()
	repo := memory.NewSeeded("warehouse", logger)
	hub := notify.NewHub("*", logger)
	svc := service.New(repo, nil, hub, service.Options{
		WarehouseID:   "warehouse",
		PublicBaseURL: "https://ledger.example.com",
		Logger:        logger,
	})
	auth := NewAuthManager("test-secret-key-with-enough-length!", time.Hour, repo)
	return New(svc, auth, hub, "*", logger)
}

type client struct {
	t       *testing.T
	handler http.Handler
	token   string
	csrf    string
}

func newClient(t *testing.T, api *API, username, password string) *client {
	t.Helper()
	return &client{
		t:       t,
		handler: api.Handler(),
		token:   login(t, api, username, password),
		csrf:    fetchCSRFToken(t, api),
	}
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-CSRF-Token", c.csrf)
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected %d, got %d (body: %s)", want, rec.Code, rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	expectStatus(t, rec, http.StatusOK)
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin(t *testing.T) {
	api := newTestAPI(t)

	payload, _ := json.Marshal(domain.LoginRequest{Username: "inventory", Password: "inventory123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusOK)
	var resp domain.LoginResponse
	decodeBody(t, rec, &resp)
	if resp.AccessToken == "" || resp.Role != domain.RoleInventory || resp.StoreID != memory.SeedStoreID {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	payload, _ = json.Marshal(domain.LoginRequest{Username: "inventory", Password: "wrong-password"})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestProductsRequireAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	expectStatus(t, rec, http.StatusUnauthorized)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestProductsListStoreStock(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")

	rec := inventory.do(http.MethodGet, "/api/v1/products", nil)
	expectStatus(t, rec, http.StatusOK)

	var body struct {
		Products []domain.ProductStock `json:"products"`
	}
	decodeBody(t, rec, &body)
	stock := map[string]int{}
	for _, p := range body.Products {
		stock[p.SKU] = p.TotalStock
	}
	if stock["SKU-MILK-01"] != 100 || stock["SKU-BREAD-01"] != 30 || stock["SKU-JUICE-01"] != 0 {
		t.Fatalf("unexpected store stock: %v", stock)
	}

	rec = inventory.do(http.MethodGet, "/api/v1/products?store_id=warehouse", nil)
	expectStatus(t, rec, http.StatusForbidden)
}

func TestCreateBillAndPrint(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")

	rec := inventory.do(http.MethodPost, "/api/v1/bills", domain.BillCreateRequest{
		Items: []domain.BillLineRequest{{SKU: "SKU-MILK-01", Quantity: 50}},
	})
	expectStatus(t, rec, http.StatusCreated)

	var body struct {
		Bill domain.Bill `json:"bill"`
	}
	decodeBody(t, rec, &body)
	if got := body.Bill.Total.StringFixed(2); got != "74.50" {
		t.Fatalf("expected total 74.50, got %s", got)
	}
	if allocs := body.Bill.Items[0].Allocations; len(allocs) != 2 || allocs[0].Quantity != 40 || allocs[1].Quantity != 10 {
		t.Fatalf("expected FEFO allocations 40 then 10, got %+v", allocs)
	}

	rec = inventory.do(http.MethodGet, "/api/v1/bills/"+body.Bill.ID+"/print", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html, got %q", ct)
	}
	html := rec.Body.String()
	if !strings.Contains(html, body.Bill.Number) || !strings.Contains(html, "Fresh Milk 1L") || !strings.Contains(html, "74.50") {
		t.Fatalf("printable bill missing content: %s", html)
	}

	rec = inventory.do(http.MethodGet, "/api/v1/sales/export", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv, got %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "bill_number,") || !strings.Contains(lines[1], "SKU-MILK-01") {
		t.Fatalf("unexpected csv export: %q", lines)
	}
}

func TestBillErrorsMapToStatusCodes(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")

	cases := []struct {
		name string
		req  domain.BillCreateRequest
		want int
	}{
		{"insufficient stock", domain.BillCreateRequest{Items: []domain.BillLineRequest{{SKU: "SKU-CHEESE-01", Quantity: 5}}}, http.StatusConflict},
		{"unknown product", domain.BillCreateRequest{Items: []domain.BillLineRequest{{SKU: "SKU-NOPE", Quantity: 1}}}, http.StatusNotFound},
		{"no items", domain.BillCreateRequest{}, http.StatusBadRequest},
		{"zero quantity", domain.BillCreateRequest{Items: []domain.BillLineRequest{{SKU: "SKU-MILK-01", Quantity: 0}}}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, inventory.do(http.MethodPost, "/api/v1/bills", tc.req), tc.want)
		})
	}

	expectStatus(t, inventory.do(http.MethodGet, "/api/v1/bills/bill-missing", nil), http.StatusNotFound)
}

func TestBillUploadReportsPerLine(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "bills.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("product_name,quantity\nFresh Milk 1L,5\nUnknown Thing,1\nCheddar 200g,9\n"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+inventory.token)
	req.Header.Set("X-CSRF-Token", inventory.csrf)
	rec := httptest.NewRecorder()
	inventory.handler.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusOK)
	var report domain.ImportReport
	decodeBody(t, rec, &report)
	if report.Processed != 3 || report.Succeeded != 1 || report.Failed != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if !report.Lines[0].OK || report.Lines[1].OK || report.Lines[2].OK {
		t.Fatalf("unexpected line results: %+v", report.Lines)
	}
}

func TestOrderTransitionsOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")
	admin := newClient(t, api, "admin", "admin123")

	rec := inventory.do(http.MethodPost, "/api/v1/orders", domain.OrderCreateRequest{SKU: "SKU-JUICE-01", Quantity: 50})
	expectStatus(t, rec, http.StatusCreated)
	var created struct {
		Order domain.OrderRequest `json:"order"`
	}
	decodeBody(t, rec, &created)
	if created.Order.Status != domain.OrderStatusPending || created.Order.StoreID != memory.SeedStoreID {
		t.Fatalf("unexpected order: %+v", created.Order)
	}
	base := "/api/v1/orders/" + created.Order.ID

	expectStatus(t, inventory.do(http.MethodPost, base+"/approve", nil), http.StatusForbidden)
	expectStatus(t, admin.do(http.MethodPost, base+"/teleport", nil), http.StatusBadRequest)
	expectStatus(t, admin.do(http.MethodPost, base+"/approve", domain.OrderTransitionRequest{Quantity: 500}), http.StatusBadRequest)

	rec = admin.do(http.MethodPost, base+"/approve", domain.OrderTransitionRequest{Quantity: 40})
	expectStatus(t, rec, http.StatusOK)
	var approved struct {
		Order domain.OrderRequest `json:"order"`
	}
	decodeBody(t, rec, &approved)
	if approved.Order.Status != domain.OrderStatusApproved || approved.Order.FulfilledQty != 40 {
		t.Fatalf("unexpected approved order: %+v", approved.Order)
	}

	expectStatus(t, admin.do(http.MethodPost, base+"/approve", nil), http.StatusConflict)
	expectStatus(t, admin.do(http.MethodPost, base+"/deliver", nil), http.StatusOK)
	expectStatus(t, admin.do(http.MethodPost, base+"/confirm", nil), http.StatusOK)

	rec = inventory.do(http.MethodGet, "/api/v1/stock?sku=SKU-JUICE-01", nil)
	expectStatus(t, rec, http.StatusOK)
	var stock struct {
		Batches []domain.StockBatch `json:"batches"`
	}
	decodeBody(t, rec, &stock)
	if len(stock.Batches) != 1 || stock.Batches[0].Quantity != 40 || stock.Batches[0].SourceType != domain.BatchSourceTransfer {
		t.Fatalf("expected one transferred batch of 40, got %+v", stock.Batches)
	}

	rec = admin.do(http.MethodGet, "/api/v1/orders?status=completed", nil)
	expectStatus(t, rec, http.StatusOK)
	var listed struct {
		Orders []domain.OrderRequest `json:"orders"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Orders) != 1 || !listed.Orders[0].AdminMarkedReceived {
		t.Fatalf("expected one completed order, got %+v", listed.Orders)
	}
}

func TestRoleGating(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")
	marketing := newClient(t, api, "marketing", "marketing123")

	cases := []struct {
		name   string
		client *client
		method string
		path   string
	}{
		{"marketing cannot list orders", marketing, http.MethodGet, "/api/v1/orders"},
		{"marketing cannot add stock", marketing, http.MethodGet, "/api/v1/stock"},
		{"inventory cannot open trends", inventory, http.MethodGet, "/api/v1/trends"},
		{"inventory cannot list users", inventory, http.MethodGet, "/api/v1/users"},
		{"inventory cannot run maintenance", inventory, http.MethodPost, "/api/v1/maintenance/run"},
		{"marketing cannot discount", marketing, http.MethodPost, "/api/v1/products/SKU-MILK-01/discount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectStatus(t, tc.client.do(tc.method, tc.path, nil), http.StatusForbidden)
		})
	}

	expectStatus(t, marketing.do(http.MethodGet, "/api/v1/trends", nil), http.StatusOK)
	expectStatus(t, inventory.do(http.MethodGet, "/api/v1/dashboard/inventory", nil), http.StatusOK)
}

func TestMaintenanceAndNotifications(t *testing.T) {
	api := newTestAPI(t)
	admin := newClient(t, api, "admin", "admin123")
	inventory := newClient(t, api, "inventory", "inventory123")

	rec := admin.do(http.MethodPost, "/api/v1/maintenance/run", nil)
	expectStatus(t, rec, http.StatusOK)
	var report domain.MaintenanceReport
	decodeBody(t, rec, &report)
	if report.PurgedBatches != 1 || report.ExpiryWarnings != 3 || report.LowStockWarnings != 2 {
		t.Fatalf("unexpected maintenance report: %+v", report)
	}

	rec = inventory.do(http.MethodGet, "/api/v1/notifications?status=unread&page_size=2", nil)
	expectStatus(t, rec, http.StatusOK)
	var page domain.NotificationPage
	decodeBody(t, rec, &page)
	if page.Total != 6 || len(page.Items) != 2 || page.PageSize != 2 {
		t.Fatalf("unexpected notification page: total=%d items=%d size=%d", page.Total, len(page.Items), page.PageSize)
	}

	expectStatus(t, inventory.do(http.MethodPost, "/api/v1/notifications/"+page.Items[0].ID+"/read", nil), http.StatusOK)
	rec = inventory.do(http.MethodPost, "/api/v1/notifications/read-all", nil)
	expectStatus(t, rec, http.StatusOK)
	var marked map[string]int
	decodeBody(t, rec, &marked)
	if marked["marked"] != 5 {
		t.Fatalf("expected 5 more marked read, got %v", marked)
	}

	expectStatus(t, inventory.do(http.MethodDelete, "/api/v1/notifications/"+page.Items[0].ID, nil), http.StatusForbidden)
	expectStatus(t, admin.do(http.MethodDelete, "/api/v1/notifications/"+page.Items[0].ID, nil), http.StatusNoContent)
}

func TestAdminNotificationAndRecommendation(t *testing.T) {
	api := newTestAPI(t)
	admin := newClient(t, api, "admin", "admin123")
	marketing := newClient(t, api, "marketing", "marketing123")

	rec := admin.do(http.MethodPost, "/api/v1/notifications/admin", domain.AdminNotificationRequest{
		ProductName:    "Fresh Milk 1L",
		Title:          "Push milk this week",
		Recommendation: "Place it at the entrance.",
	})
	expectStatus(t, rec, http.StatusCreated)
	var sent struct {
		Notification domain.Notification `json:"notification"`
	}
	decodeBody(t, rec, &sent)
	if sent.Notification.TargetRole != domain.RoleInventory || !strings.Contains(sent.Notification.Message, "Current stock:") {
		t.Fatalf("unexpected admin notification: %+v", sent.Notification)
	}

	rec = marketing.do(http.MethodGet, "/api/v1/recommendations/SKU-CHEESE-01", nil)
	expectStatus(t, rec, http.StatusOK)
	rec = marketing.do(http.MethodPost, "/api/v1/recommendations/SKU-CHEESE-01/apply", nil)
	expectStatus(t, rec, http.StatusOK)
	var result domain.RecommendationResult
	decodeBody(t, rec, &result)
	if result.Recommendation.Status != domain.RecommendationApplied {
		t.Fatalf("expected applied recommendation, got %+v", result.Recommendation)
	}
	expectStatus(t, marketing.do(http.MethodPost, "/api/v1/recommendations/SKU-CHEESE-01/shred", nil), http.StatusNotFound)
}

func TestLedgerLinkIsPublic(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")

	rec := inventory.do(http.MethodGet, "/api/v1/auth/me", nil)
	expectStatus(t, rec, http.StatusOK)
	var me struct {
		User domain.UserProfile `json:"user"`
	}
	decodeBody(t, rec, &me)
	const prefix = "https://ledger.example.com/ledger/"
	if !strings.HasPrefix(me.User.LedgerURL, prefix) {
		t.Fatalf("unexpected ledger url %q", me.User.LedgerURL)
	}
	path := strings.TrimPrefix(me.User.LedgerURL, "https://ledger.example.com")

	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	expectStatus(t, rec, http.StatusOK)
	if body := rec.Body.String(); !strings.Contains(body, "Store ledger "+memory.SeedStoreID) || !strings.Contains(body, "Fresh Milk 1L") {
		t.Fatalf("ledger page missing content: %s", body)
	}

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "application/json")
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusOK)
	var view domain.LedgerView
	decodeBody(t, rec, &view)
	if view.StoreID != memory.SeedStoreID || len(view.Batches) == 0 {
		t.Fatalf("unexpected ledger view: %+v", view)
	}

	// Rotating the token retires the old link.
	expectStatus(t, inventory.do(http.MethodPost, "/api/v1/auth/ledger-token", nil), http.StatusOK)
	rec = httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	expectStatus(t, rec, http.StatusNotFound)
}

func TestUserManagement(t *testing.T) {
	api := newTestAPI(t)
	admin := newClient(t, api, "admin", "admin123")

	rec := admin.do(http.MethodPost, "/api/v1/users", domain.UserCreateRequest{
		Username: "Rina", Password: "long-enough-pass", Role: domain.RoleInventory, StoreID: "store-2",
	})
	expectStatus(t, rec, http.StatusCreated)

	rina := newClient(t, api, "rina", "long-enough-pass")
	rec = rina.do(http.MethodGet, "/api/v1/auth/me", nil)
	expectStatus(t, rec, http.StatusOK)

	expectStatus(t, admin.do(http.MethodPost, "/api/v1/users", domain.UserCreateRequest{
		Username: "short", Password: "123", Role: domain.RoleMarketing, StoreID: "store-2",
	}), http.StatusBadRequest)
	expectStatus(t, admin.do(http.MethodDelete, "/api/v1/users/admin", nil), http.StatusBadRequest)
	expectStatus(t, admin.do(http.MethodDelete, "/api/v1/users/rina", nil), http.StatusNoContent)
	expectStatus(t, rina.do(http.MethodGet, "/api/v1/auth/me", nil), http.StatusUnauthorized)
	expectStatus(t, admin.do(http.MethodDelete, "/api/v1/users/rina", nil), http.StatusNotFound)

	rec = admin.do(http.MethodGet, "/api/v1/audit-logs?limit=10", nil)
	expectStatus(t, rec, http.StatusOK)
	var logs struct {
		AuditLogs []domain.AuditLog `json:"audit_logs"`
	}
	decodeBody(t, rec, &logs)
	if len(logs.AuditLogs) < 2 {
		t.Fatalf("expected audit entries for user changes, got %d", len(logs.AuditLogs))
	}
}

func TestNotificationStreamRequiresToken(t *testing.T) {
	api := newTestAPI(t)

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/notifications/stream", nil))
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestStoreRegistryOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := newClient(t, api, "admin", "admin123")
	inventory := newClient(t, api, "inventory", "inventory123")

	req := domain.StoreRequest{ID: "store-2", Name: "Sharma Supermarket", OwnerName: "Priya Sharma", Email: "priya@sharmamarket.com"}
	expectStatus(t, inventory.do(http.MethodPost, "/api/v1/stores", req), http.StatusForbidden)
	rec := admin.do(http.MethodPost, "/api/v1/stores", req)
	expectStatus(t, rec, http.StatusCreated)
	expectStatus(t, admin.do(http.MethodPost, "/api/v1/stores", req), http.StatusConflict)

	req.Address = "456 Market Road, Delhi"
	rec = admin.do(http.MethodPut, "/api/v1/stores/store-2", req)
	expectStatus(t, rec, http.StatusOK)
	var updated struct {
		Store domain.Store `json:"store"`
	}
	decodeBody(t, rec, &updated)
	if updated.Store.Address != "456 Market Road, Delhi" {
		t.Fatalf("unexpected store: %+v", updated.Store)
	}

	rec = inventory.do(http.MethodGet, "/api/v1/stores", nil)
	expectStatus(t, rec, http.StatusOK)
	var listed struct {
		Stores []domain.Store `json:"stores"`
	}
	decodeBody(t, rec, &listed)
	if len(listed.Stores) != 1 || listed.Stores[0].ID != memory.SeedStoreID {
		t.Fatalf("expected only the caller's store, got %+v", listed.Stores)
	}
	expectStatus(t, inventory.do(http.MethodGet, "/api/v1/stores/store-2", nil), http.StatusNotFound)

	expectStatus(t, admin.do(http.MethodDelete, "/api/v1/stores/warehouse", nil), http.StatusBadRequest)
	expectStatus(t, admin.do(http.MethodDelete, "/api/v1/stores/store-2", nil), http.StatusNoContent)
}

func TestOrderUploadFilesRequests(t *testing.T) {
	api := newTestAPI(t)
	inventory := newClient(t, api, "inventory", "inventory123")

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "restock.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte("product_name,quantity\nFresh Milk 1L,24\nUnknown Thing,1\n"))
	_ = form.WriteField("note", "monthly restock")
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/upload", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+inventory.token)
	req.Header.Set("X-CSRF-Token", inventory.csrf)
	rec := httptest.NewRecorder()
	inventory.handler.ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusOK)
	var report domain.ImportReport
	decodeBody(t, rec, &report)
	if report.Succeeded != 1 || report.Failed != 1 || report.Lines[0].OrderID == "" {
		t.Fatalf("unexpected report: %+v", report)
	}

	rec = inventory.do(http.MethodGet, "/api/v1/orders/"+report.Lines[0].OrderID, nil)
	expectStatus(t, rec, http.StatusOK)
	var got struct {
		Order domain.OrderRequest `json:"order"`
	}
	decodeBody(t, rec, &got)
	if got.Order.RequestedQty != 24 || got.Order.Note != "monthly restock" || got.Order.StoreID != memory.SeedStoreID {
		t.Fatalf("unexpected order: %+v", got.Order)
	}
}
