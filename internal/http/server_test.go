package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/msilvprog7/receipt/internal/auth"
	"github.com/msilvprog7/receipt/internal/core"
	"github.com/msilvprog7/receipt/internal/session"
	"github.com/msilvprog7/receipt/internal/store"
)

// testApp is a full application instance over a fake identity provider.
type testApp struct {
	app      *httptest.Server
	provider *httptest.Server
	receipts *store.Owned[core.Receipt]
	client   *http.Client
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"T"}`))
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","name":"Jane Doe","picture":{"data":{"url":"https://cdn/p.jpg","width":50,"height":50}}}`))
	})
	provider := httptest.NewServer(mux)
	t.Cleanup(provider.Close)

	endpoints := auth.Endpoints{
		Authorize: provider.URL + "/dialog/oauth",
		Token:     provider.URL + "/oauth/access_token",
		Profile:   provider.URL + "/me?fields=name,picture",
	}
	flow := auth.NewFlow("cid", "secret", "public_profile", endpoints, auth.MapFacebookProfile, provider.Client())

	receipts := store.NewOwned[core.Receipt]()
	sessions := session.NewStore(time.Minute, false)
	srv := NewServer(":0", flow, sessions, receipts, nil)

	app := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(app.Close)
	flow.SetRedirectURI(app.URL + "/login/facebook")

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{app: app, provider: provider, receipts: receipts, client: client}
}

// login walks the authorization-code flow against the fake provider.
func (ta *testApp) login(t *testing.T) {
	t.Helper()

	resp, err := ta.client.Get(ta.app.URL + "/login")
	if err != nil {
		t.Fatalf("GET /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("GET /login status %d, want 302", resp.StatusCode)
	}
	redirect, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parse provider redirect: %v", err)
	}
	state := redirect.Query().Get("state")
	if state == "" {
		t.Fatalf("provider redirect carries no state: %s", redirect)
	}

	resp, err = ta.client.Get(ta.app.URL + "/login/facebook?state=" + state + "&code=good-code")
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("callback status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func (ta *testApp) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ta.app.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ta.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeReceiptBody(t *testing.T, resp *http.Response) core.Receipt {
	t.Helper()
	defer resp.Body.Close()
	var rec core.Receipt
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	return rec
}

func receiptBody() map[string]any {
	return map[string]any{
		"transaction": "Coffee",
		"amount":      4.5,
		"date":        "2024-01-01",
		"category":    "Food",
	}
}

func TestAPIRequiresAuthentication(t *testing.T) {
	ta := newTestApp(t)

	for _, probe := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/receipts"},
		{http.MethodGet, "/api/v1/receipts"},
		{http.MethodGet, "/api/v1/receipts/r1"},
		{http.MethodPut, "/api/v1/receipts/r1"},
		{http.MethodDelete, "/api/v1/receipts/r1"},
	} {
		resp := ta.do(t, probe.method, probe.path, nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s status %d, want 401", probe.method, probe.path, resp.StatusCode)
		}
	}
}

func TestCreateThenGetReceipt(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp := ta.do(t, http.MethodPost, "/api/v1/receipts", receiptBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status %d, want 201", resp.StatusCode)
	}
	created := decodeReceiptBody(t, resp)
	if created.ID == "" {
		t.Fatalf("no server-generated id in response")
	}

	resp = ta.do(t, http.MethodGet, "/api/v1/receipts/"+created.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status %d, want 200", resp.StatusCode)
	}
	got := decodeReceiptBody(t, resp)
	if got != created {
		t.Fatalf("round trip changed record: %+v != %+v", got, created)
	}
}

func TestCreateReceiptMalformedBody(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	cases := []struct {
		name string
		body any
	}{
		{"missing transaction", map[string]any{"amount": 4.5, "date": "2024-01-01", "category": "Food"}},
		{"negative amount", map[string]any{"transaction": "Coffee", "amount": -1, "date": "2024-01-01", "category": "Food"}},
		{"bad date", map[string]any{"transaction": "Coffee", "amount": 4.5, "date": "January 1st", "category": "Food"}},
		{"unknown field", map[string]any{"transaction": "Coffee", "amount": 4.5, "date": "2024-01-01", "category": "Food", "owner": "u2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := ta.do(t, http.MethodPost, "/api/v1/receipts", tc.body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestListReceiptsEmptyIsOK(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp := ta.do(t, http.MethodGet, "/api/v1/receipts", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	var list []core.Receipt
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %+v", list)
	}
}

func TestEditReceipt(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp := ta.do(t, http.MethodPost, "/api/v1/receipts", receiptBody())
	created := decodeReceiptBody(t, resp)

	updated := receiptBody()
	updated["id"] = created.ID
	updated["amount"] = 6.0
	resp = ta.do(t, http.MethodPut, "/api/v1/receipts/"+created.ID, updated)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status %d, want 200", resp.StatusCode)
	}
	got := decodeReceiptBody(t, resp)
	if got.Amount != 6.0 {
		t.Fatalf("amount not replaced: %+v", got)
	}

	stored, err := ta.receipts.Get("u1", created.ID)
	if err != nil || stored.Amount != 6.0 {
		t.Fatalf("store not updated: %+v err=%v", stored, err)
	}
}

func TestEditReceiptFailures(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp := ta.do(t, http.MethodPost, "/api/v1/receipts", receiptBody())
	created := decodeReceiptBody(t, resp)

	// Path and body ids disagree.
	mismatched := receiptBody()
	mismatched["id"] = "different"
	resp = ta.do(t, http.MethodPut, "/api/v1/receipts/"+created.ID, mismatched)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("mismatched id status %d, want 400", resp.StatusCode)
	}

	// Unknown record id is a store mismatch.
	ghost := receiptBody()
	ghost["id"] = "ghost"
	resp = ta.do(t, http.MethodPut, "/api/v1/receipts/ghost", ghost)
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("absent id status %d, want 500", resp.StatusCode)
	}
}

func TestDeleteReceipt(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp := ta.do(t, http.MethodPost, "/api/v1/receipts", receiptBody())
	created := decodeReceiptBody(t, resp)

	resp = ta.do(t, http.MethodDelete, "/api/v1/receipts/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status %d, want 204", resp.StatusCode)
	}

	resp = ta.do(t, http.MethodGet, "/api/v1/receipts/"+created.ID, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status %d, want 404", resp.StatusCode)
	}
}

func TestDeleteNonexistentLeavesPartitionAlone(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp := ta.do(t, http.MethodPost, "/api/v1/receipts", receiptBody())
	created := decodeReceiptBody(t, resp)

	resp = ta.do(t, http.MethodDelete, "/api/v1/receipts/ghost", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("DELETE status %d, want 404", resp.StatusCode)
	}
	if n := ta.receipts.Count("u1"); n != 1 {
		t.Fatalf("partition changed by failed delete: %d records", n)
	}
	if _, err := ta.receipts.Get("u1", created.ID); err != nil {
		t.Fatalf("existing record disturbed: %v", err)
	}
}

func TestCallbackWithForgedStateStaysAnonymous(t *testing.T) {
	ta := newTestApp(t)

	resp, err := ta.client.Get(ta.app.URL + "/login")
	if err != nil {
		t.Fatalf("GET /login: %v", err)
	}
	resp.Body.Close()

	// Forged state: the callback still redirects home, but no token is
	// stored, so the API keeps answering 401.
	resp, err = ta.client.Get(ta.app.URL + "/login/facebook?state=forged&code=good-code")
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("callback status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = ta.do(t, http.MethodGet, "/api/v1/receipts", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("API status %d after forged callback, want 401", resp.StatusCode)
	}
}

func TestLoginWhenAuthenticatedRedirectsHome(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp, err := ta.client.Get(ta.app.URL + "/login")
	if err != nil {
		t.Fatalf("GET /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("status %d location %q, want redirect home", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestLogout(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp, err := ta.client.Get(ta.app.URL + "/logout")
	if err != nil {
		t.Fatalf("GET /logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("logout status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp = ta.do(t, http.MethodGet, "/api/v1/receipts", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("API status %d after logout, want 401", resp.StatusCode)
	}

	// Logging out again without a session is still a clean redirect.
	resp, err = ta.client.Get(ta.app.URL + "/logout")
	if err != nil {
		t.Fatalf("second GET /logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("second logout status %d, want 302", resp.StatusCode)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	ta := newTestApp(t)
	ta.login(t)

	resp := ta.do(t, http.MethodPost, "/api/v1/receipts", receiptBody())
	created := decodeReceiptBody(t, resp)

	// A different owner with the same record id never sees u1's data.
	other := core.Receipt{ID: created.ID, Transaction: "Rent", Amount: 900, Date: core.NewDate(2024, 2, 1), Category: "Housing"}
	if err := ta.receipts.Add("u2", other); err != nil {
		t.Fatalf("seed other owner: %v", err)
	}

	resp = ta.do(t, http.MethodGet, "/api/v1/receipts/"+created.ID, nil)
	got := decodeReceiptBody(t, resp)
	if got.Transaction != "Coffee" {
		t.Fatalf("cross-owner leak: %+v", got)
	}
}

func TestHealthEndpoints(t *testing.T) {
	ta := newTestApp(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := ta.client.Get(ta.app.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status %d", path, resp.StatusCode)
		}
	}
}

func TestIndexPages(t *testing.T) {
	ta := newTestApp(t)

	// Anonymous index renders the login prompt.
	resp, err := ta.client.Get(ta.app.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	body := readAll(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Log in") {
		t.Fatalf("anonymous index status %d body %q", resp.StatusCode, body)
	}

	// Settings without auth bounces home.
	resp, err = ta.client.Get(ta.app.URL + "/settings")
	if err != nil {
		t.Fatalf("GET /settings: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("anonymous settings status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	ta.login(t)
	for i := 0; i < 2; i++ {
		ta.do(t, http.MethodPost, "/api/v1/receipts", receiptBody()).Body.Close()
	}

	resp, err = ta.client.Get(ta.app.URL + "/")
	if err != nil {
		t.Fatalf("GET / authenticated: %v", err)
	}
	body = readAll(t, resp)
	if !strings.Contains(body, "Jane") || !strings.Contains(body, "Coffee") {
		t.Fatalf("authenticated index missing content: %q", body)
	}

	resp, err = ta.client.Get(ta.app.URL + "/settings")
	if err != nil {
		t.Fatalf("GET /settings authenticated: %v", err)
	}
	body = readAll(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, "Jane Doe") {
		t.Fatalf("settings status %d body %q", resp.StatusCode, body)
	}
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
