package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"fintrack/internal/aggregate"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/services"
	"fintrack/internal/storage/memory"
)

const testOrigin = "http://localhost:5173"

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options, ready func(context.Context) error) *Server {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokens("test-signing-key-that-is-long-enough", 24*time.Hour)
	txs := services.NewTransactionService(store, nil, nil)
	engine := aggregate.New(aggregate.WithClock(func() time.Time { return testNow }))

	if opts.Origin == "" {
		opts.Origin = testOrigin
	}
	if opts.AuthRateLimit == 0 {
		opts.AuthRateLimit = 1000
	}
	s := NewServer(opts, Deps{
		Auth:         services.NewAuthService(store, tokens),
		Transactions: txs,
		Dashboard:    services.NewDashboardService(txs, engine),
		Tokens:       tokens,
		Ready:        ready,
	})
	t.Cleanup(s.limiter.Stop)
	return s
}

func do(t *testing.T, s *Server, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		r.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, r)
	return rec
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode message from %q: %v", rec.Body.String(), err)
	}
	return body.Message
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", auth.CookieName)
	return nil
}

func signup(t *testing.T, s *Server, email string) *http.Cookie {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"`+email+`","password":"secret1","confirmPassword":"secret1"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func createTx(t *testing.T, s *Server, cookie *http.Cookie, body string) core.Transaction {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/api/transactions", body, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status %d: %s", rec.Code, rec.Body.String())
	}
	var tx core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode transaction: %v", err)
	}
	return tx
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	if rec := do(t, s, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "not_configured") {
		t.Fatalf("readyz %d %s", rec.Code, rec.Body.String())
	}

	down := newTestServer(t, Options{}, func(context.Context) error { return errors.New("disk gone") })
	rec = do(t, down, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "disk gone") {
		t.Fatalf("readyz %d %s", rec.Code, rec.Body.String())
	}
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t, Options{}, nil)

	tests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"empty body", "", http.StatusBadRequest, "All fields are required"},
		{"missing confirm", `{"name":"A","email":"a@x.io","password":"p"}`, http.StatusBadRequest, "All fields are required"},
		{"malformed", `{"name":`, http.StatusBadRequest, "All fields are required"},
		{"mismatch", `{"name":"A","email":"a@x.io","password":"p1","confirmPassword":"p2"}`, http.StatusBadRequest, "Passwords do not match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/auth/signup", tt.body, nil)
			if rec.Code != tt.status || message(t, rec) != tt.message {
				t.Fatalf("got %d %q", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, Options{SecureCookies: true}, nil)

	rec := do(t, s, http.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"ada@example.com","password":"secret1","confirmPassword":"secret1"}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %d %s", rec.Code, rec.Body.String())
	}
	var created authBody
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Message != "Signup successful" || created.User.Email != "ada@example.com" || created.User.Name != "Ada" {
		t.Fatalf("unexpected body %+v", created)
	}
	cookie := sessionCookie(t, rec)
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode || cookie.MaxAge != 86400 {
		t.Fatalf("unexpected cookie %+v", cookie)
	}

	rec = do(t, s, http.MethodPost, "/api/auth/signup",
		`{"name":"Ada","email":"ada@example.com","password":"x","confirmPassword":"x"}`, nil)
	if rec.Code != http.StatusBadRequest || message(t, rec) != "Email already exists" {
		t.Fatalf("duplicate signup %d %s", rec.Code, rec.Body.String())
	}

	loginTests := []struct {
		name    string
		body    string
		status  int
		message string
	}{
		{"missing password", `{"email":"ada@example.com"}`, http.StatusBadRequest, "Email and password required"},
		{"unknown user", `{"email":"bob@example.com","password":"x"}`, http.StatusNotFound, "User does not exist"},
		{"wrong password", `{"email":"ada@example.com","password":"nope"}`, http.StatusBadRequest, "Invalid credentials"},
		{"ok", `{"email":"ada@example.com","password":"secret1"}`, http.StatusOK, "Login successful"},
	}
	for _, tt := range loginTests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/auth/login", tt.body, nil)
			if rec.Code != tt.status || message(t, rec) != tt.message {
				t.Fatalf("got %d %s", rec.Code, rec.Body.String())
			}
		})
	}

	rec = do(t, s, http.MethodGet, "/api/auth/profile", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("profile leaks the password hash: %s", rec.Body.String())
	}
	var profile core.User
	if err := json.Unmarshal(rec.Body.Bytes(), &profile); err != nil || profile.Email != "ada@example.com" {
		t.Fatalf("profile %+v %v", profile, err)
	}

	rec = do(t, s, http.MethodGet, "/api/auth/logout", "", cookie)
	if rec.Code != http.StatusOK || message(t, rec) != "Logout successful" {
		t.Fatalf("logout %d %s", rec.Code, rec.Body.String())
	}
	if c := sessionCookie(t, rec); c.MaxAge >= 0 || c.Value != "" {
		t.Fatalf("logout should expire the cookie, got %+v", c)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, Options{}, nil)

	for _, path := range []string{"/api/transactions", "/api/dashboard", "/api/transactions/export", "/api/auth/profile"} {
		rec := do(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized || message(t, rec) != "Token is required" {
			t.Fatalf("%s without cookie: %d %s", path, rec.Code, rec.Body.String())
		}

		rec = do(t, s, http.MethodGet, path, "", &http.Cookie{Name: auth.CookieName, Value: "not.a.jwt"})
		if rec.Code != http.StatusForbidden || message(t, rec) != "Token is invalid" {
			t.Fatalf("%s with bad cookie: %d %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestTransactionCRUD(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	ada := signup(t, s, "ada@example.com")
	bob := signup(t, s, "bob@example.com")

	badBodies := []struct {
		name    string
		body    string
		message string
	}{
		{"missing amount", `{"category":"Food","type":"expense"}`, fieldsRequired},
		{"zero amount", `{"amount":0,"category":"Food","type":"expense"}`, fieldsRequired},
		{"blank category", `{"amount":5,"category":"  ","type":"expense"}`, fieldsRequired},
		{"missing type", `{"amount":5,"category":"Food"}`, fieldsRequired},
		{"unknown type", `{"amount":5,"category":"Food","type":"transfer"}`, "Invalid transaction type"},
		{"bad date", `{"amount":5,"category":"Food","type":"expense","date":"yesterday"}`, "Invalid date"},
		{"bad amount", `{"amount":"abc","category":"Food","type":"expense"}`, "Invalid request body"},
	}
	for _, tt := range badBodies {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/transactions", tt.body, ada)
			if rec.Code != http.StatusBadRequest || message(t, rec) != tt.message {
				t.Fatalf("got %d %s", rec.Code, rec.Body.String())
			}
		})
	}

	lunch := createTx(t, s, ada, `{"amount":20,"category":"Food","type":"expense","date":"2024-06-10","note":"lunch"}`)
	if !lunch.Amount.Equal(decimal.NewFromInt(-20)) || lunch.Note != "lunch" || lunch.OwnerID == "" {
		t.Fatalf("unexpected created transaction %+v", lunch)
	}
	salary := createTx(t, s, ada, `{"amount":"-1000","category":"Salary","type":"income","date":"2024-06-01T09:00:00Z","description":"june"}`)
	if !salary.Amount.Equal(decimal.NewFromInt(1000)) || salary.Note != "june" {
		t.Fatalf("income sign or description fallback wrong: %+v", salary)
	}
	undated := createTx(t, s, ada, `{"amount":3,"category":"Coffee","type":"expense"}`)
	if undated.Date.IsZero() {
		t.Fatalf("missing date should default to now, got %v", undated.Date)
	}

	rec := do(t, s, http.MethodGet, "/api/transactions", "", ada)
	var list []core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 3 {
		t.Fatalf("list %d %s", rec.Code, rec.Body.String())
	}
	if list[1].ID != lunch.ID || list[2].ID != salary.ID {
		t.Fatalf("list not ordered by date desc: %v, %v, %v", list[0].Category, list[1].Category, list[2].Category)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions", "", bob)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("other owner sees %s", rec.Body.String())
	}

	update := `{"amount":25,"category":"Dining","type":"expense","note":"dinner"}`
	rec = do(t, s, http.MethodPut, "/api/transactions/"+lunch.ID, update, bob)
	if rec.Code != http.StatusNotFound || message(t, rec) != "Transaction not found" {
		t.Fatalf("foreign update %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodPut, "/api/transactions/"+lunch.ID, update, ada)
	if rec.Code != http.StatusOK {
		t.Fatalf("update %d %s", rec.Code, rec.Body.String())
	}
	var updated core.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !updated.Amount.Equal(decimal.NewFromInt(-25)) || updated.Category != "Dining" || !updated.Date.Equal(lunch.Date) {
		t.Fatalf("unexpected update %+v", updated)
	}

	rec = do(t, s, http.MethodDelete, "/api/transactions/"+lunch.ID, "", bob)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete %d", rec.Code)
	}
	rec = do(t, s, http.MethodDelete, "/api/transactions/"+lunch.ID, "", ada)
	if rec.Code != http.StatusOK || message(t, rec) != "Transaction deleted successfully" {
		t.Fatalf("delete %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, s, http.MethodDelete, "/api/transactions/"+lunch.ID, "", ada)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	ada := signup(t, s, "ada@example.com")

	createTx(t, s, ada, `{"amount":1000,"category":"Salary","type":"income","date":"2024-06-01"}`)
	createTx(t, s, ada, `{"amount":200,"category":"Food","type":"expense","date":"2024-06-10"}`)
	createTx(t, s, ada, `{"amount":50,"category":"Rent","type":"expense","date":"2024-05-01"}`)

	rec := do(t, s, http.MethodGet, "/api/dashboard?dateMode=month", "", ada)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard %d %s", rec.Code, rec.Body.String())
	}
	var d aggregate.Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Transactions) != 2 {
		t.Fatalf("month filter kept %d transactions", len(d.Transactions))
	}
	if !d.Summary.Income.Equal(decimal.NewFromInt(1000)) || !d.Summary.Expense.Equal(decimal.NewFromInt(200)) || !d.Summary.Balance.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("summary %+v", d.Summary)
	}
	if len(d.Categories) != 1 || !d.Categories["Food"].Equal(decimal.NewFromInt(200)) {
		t.Fatalf("categories %v", d.Categories)
	}
	if d.Monthly.Year != 2024 || !d.Monthly.ExpenseData[4].Equal(decimal.NewFromInt(50)) || !d.Monthly.IncomeData[5].Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("monthly %+v", d.Monthly)
	}
	if len(d.CategoryOptions) != 4 || d.CategoryOptions[0] != aggregate.AllCategories {
		t.Fatalf("category options %v", d.CategoryOptions)
	}

	rec = do(t, s, http.MethodGet, "/api/dashboard?category=Rent&year=2023", "", ada)
	d = aggregate.Dashboard{}
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(d.Transactions) != 1 || d.Monthly.Year != 2023 || !d.Monthly.ExpenseData[4].IsZero() {
		t.Fatalf("category/year query not applied: %+v", d)
	}

	rec = do(t, s, http.MethodGet, "/api/dashboard?dateMode=custom&startDate=2030-01-01&endDate=2030-12-31", "", ada)
	if !strings.Contains(rec.Body.String(), `"transactions":[]`) {
		t.Fatalf("empty result should encode as []: %s", rec.Body.String())
	}
}

func TestExport(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	ada := signup(t, s, "ada@example.com")
	createTx(t, s, ada, `{"amount":200,"category":"Food","type":"expense","date":"2024-06-10","note":"groceries"}`)
	createTx(t, s, ada, `{"amount":50,"category":"Rent","type":"expense","date":"2024-05-01"}`)

	rec := do(t, s, http.MethodGet, "/api/transactions/export?startDate=2024-06-01&endDate=2024-06-30", "", ada)
	if rec.Code != http.StatusOK {
		t.Fatalf("csv export %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "text/csv" || !strings.Contains(rec.Header().Get("Content-Disposition"), "transactions.csv") {
		t.Fatalf("csv headers %v", rec.Header())
	}
	want := "Date,Type,Category,Note,Amount\n6/10/2024,expense,Food,\"groceries\",-200"
	if rec.Body.String() != want {
		t.Fatalf("csv body\n%q\nwant\n%q", rec.Body.String(), want)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions/export?format=xlsx", "", ada)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != export.ContentType {
		t.Fatalf("xlsx export %d %v", rec.Code, rec.Header())
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Transactions")
	if err != nil || len(rows) != 3 {
		t.Fatalf("rows %v %v", rows, err)
	}

	rec = do(t, s, http.MethodGet, "/api/transactions/export?format=pdf", "", ada)
	if rec.Code != http.StatusBadRequest || message(t, rec) != "Unsupported export format" {
		t.Fatalf("pdf export %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, Options{AuthRateLimit: 2}, nil)
	body := `{"email":"nobody@example.com","password":"x"}`

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodPost, "/api/auth/login", body, nil); rec.Code != http.StatusNotFound {
			t.Fatalf("attempt %d status %d", i+1, rec.Code)
		}
	}
	rec := do(t, s, http.MethodPost, "/api/auth/login", body, nil)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d %v", rec.Code, rec.Header())
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("429 should be JSON, got %q", rec.Header().Get("Content-Type"))
	}

	// Only the auth routes are limited.
	if rec := do(t, s, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz limited: %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, Options{}, nil)

	preflight := func(origin string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
		r.Header.Set("Origin", origin)
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, r)
		return rec
	}

	rec := preflight(testOrigin)
	if rec.Header().Get("Access-Control-Allow-Origin") != testOrigin || rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("allowed origin headers %v", rec.Header())
	}

	rec = preflight("http://evil.example")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin allowed: %v", rec.Header())
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, Options{}, nil)
	rec := do(t, s, http.MethodGet, "/api/nope", "", nil)
	if rec.Code != http.StatusNotFound || message(t, rec) != "Not found" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("every response carries a request id")
	}
}
