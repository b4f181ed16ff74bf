package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/abszero/smartledger/internal/auth"
	"github.com/abszero/smartledger/internal/catalog"
	"github.com/abszero/smartledger/internal/config"
	"github.com/abszero/smartledger/internal/service"
	"github.com/abszero/smartledger/internal/storage/sqlite"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "smartledger-api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	metrics := service.NewMetrics(registry)
	locks := service.NewGroupLocks()
	cat := catalog.New(store, logger)

	jwtManager := auth.NewJWTManager("api-test-secret-32-bytes-long!!!", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	cfg := &config.Config{
		Port:               "0",
		CORSAllowedOrigins: []string{"*"},
		JWTSecret:          "api-test-secret-32-bytes-long!!!",
		TokenDuration:      time.Hour,
	}

	apiServer := New(cfg, Deps{
		JWT:      jwtManager,
		Auth:     service.NewAuthService(store, authenticator, jwtManager, logger),
		Groups:   service.NewGroupService(store, locks, logger),
		Txs:      service.NewTransactionService(store, cat, locks, metrics, logger),
		Auditor:  service.NewAuditor(store, locks, metrics, logger),
		Catalog:  cat,
		Registry: registry,
	}, logger)

	server := httptest.NewServer(apiServer.Handler())
	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return server
}

// doJSON issues a request with an optional bearer token and decodes the
// response body into out when non-nil.
func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		buf = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, buf)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func register(t *testing.T, server *httptest.Server, email string) (sub, token string) {
	t.Helper()
	var session sessionResponse
	status := doJSON(t, "POST", server.URL+"/api/auth/register", "", map[string]string{
		"email":      email,
		"first_name": "Test",
		"last_name":  "Person",
		"password":   "long-enough-password",
	}, &session)
	if status != http.StatusCreated {
		t.Fatalf("register returned %d", status)
	}
	return session.Person.Sub, session.Token
}

func TestAPIFullFlow(t *testing.T) {
	server := setupTestServer(t)

	aliceSub, aliceToken := register(t, server, "alice@example.com")
	bobSub, bobToken := register(t, server, "bob@example.com")

	// Login again to confirm the credentials round-trip.
	var session sessionResponse
	if status := doJSON(t, "POST", server.URL+"/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "long-enough-password",
	}, &session); status != http.StatusOK {
		t.Fatalf("login returned %d", status)
	}
	if session.Person.Sub != aliceSub {
		t.Fatalf("login returned sub %s, want %s", session.Person.Sub, aliceSub)
	}

	var group groupResponse
	if status := doJSON(t, "POST", server.URL+"/api/groups", aliceToken, map[string]string{
		"name": "Road Trip",
	}, &group); status != http.StatusCreated {
		t.Fatalf("group create returned %d", status)
	}
	if group.Admin != aliceSub {
		t.Fatalf("expected alice to be admin, got %s", group.Admin)
	}

	if status := doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/invites", aliceToken, map[string]string{
		"email": "bob@example.com",
	}, nil); status != http.StatusOK {
		t.Fatalf("invite returned %d", status)
	}
	if status := doJSON(t, "POST", server.URL+"/api/groups/"+group.ID+"/join", bobToken, nil, nil); status != http.StatusOK {
		t.Fatalf("join returned %d", status)
	}

	var tx transactionResponse
	if status := doJSON(t, "POST", server.URL+"/api/transactions", aliceToken, map[string]any{
		"group_id": group.ID,
		"title":    "Fuel",
		"who_paid": map[string]float64{aliceSub: 60},
		"items": []map[string]any{
			{"name": "petrol", "unit_price": 30.0, "quantity": 2, "owed_by": bobSub},
		},
	}, &tx); status != http.StatusCreated {
		t.Fatalf("transaction create returned %d", status)
	}
	if tx.TotalPrice != 60 {
		t.Fatalf("expected total 60, got %v", tx.TotalPrice)
	}

	var fetched groupResponse
	if status := doJSON(t, "GET", server.URL+"/api/groups/"+group.ID, bobToken, nil, &fetched); status != http.StatusOK {
		t.Fatalf("group get returned %d", status)
	}
	if got := fetched.Balances[aliceSub][bobSub]; got != 60 {
		t.Fatalf("expected balances[alice][bob]=60, got %v", got)
	}

	var item itemResponse
	if status := doJSON(t, "GET", server.URL+"/api/items/"+tx.Items[0].ItemID, aliceToken, nil, &item); status != http.StatusOK {
		t.Fatalf("item get returned %d", status)
	}
	if item.Name != "petrol" || item.UsageCount != 1 {
		t.Fatalf("unexpected item: %+v", item)
	}

	var audit service.AuditReport
	if status := doJSON(t, "GET", server.URL+"/api/audit", aliceToken, nil, &audit); status != http.StatusOK {
		t.Fatalf("audit returned %d", status)
	}
	if audit.GroupsChecked != 1 || len(audit.Violations) != 0 {
		t.Fatalf("unexpected audit report: %+v", audit)
	}

	if status := doJSON(t, "DELETE", server.URL+"/api/transactions/"+tx.ID, bobToken, nil, nil); status != http.StatusOK {
		t.Fatalf("transaction delete returned %d", status)
	}
	if status := doJSON(t, "GET", server.URL+"/api/groups/"+group.ID, aliceToken, nil, &fetched); status != http.StatusOK {
		t.Fatalf("group get returned %d", status)
	}
	if got := fetched.Balances[aliceSub][bobSub]; got != 0 {
		t.Fatalf("expected settled balances after delete, got %v", got)
	}
}

func TestAPIErrorMapping(t *testing.T) {
	server := setupTestServer(t)

	_, aliceToken := register(t, server, "alice@example.com")
	_, outsiderToken := register(t, server, "outsider@example.com")

	var group groupResponse
	if status := doJSON(t, "POST", server.URL+"/api/groups", aliceToken, map[string]string{
		"name": "Private",
	}, &group); status != http.StatusCreated {
		t.Fatalf("group create returned %d", status)
	}

	tests := []struct {
		name   string
		status int
		do     func() int
	}{
		{
			name:   "missing token is 401",
			status: http.StatusUnauthorized,
			do: func() int {
				return doJSON(t, "GET", server.URL+"/api/me", "", nil, nil)
			},
		},
		{
			name:   "garbage token is 401",
			status: http.StatusUnauthorized,
			do: func() int {
				return doJSON(t, "GET", server.URL+"/api/me", "not-a-token", nil, nil)
			},
		},
		{
			name:   "non-member access is 403",
			status: http.StatusForbidden,
			do: func() int {
				return doJSON(t, "GET", server.URL+"/api/groups/"+group.ID, outsiderToken, nil, nil)
			},
		},
		{
			name:   "unknown group is 404",
			status: http.StatusNotFound,
			do: func() int {
				return doJSON(t, "GET", server.URL+"/api/groups/no-such-id", aliceToken, nil, nil)
			},
		},
		{
			name:   "malformed transaction is 400",
			status: http.StatusBadRequest,
			do: func() int {
				return doJSON(t, "POST", server.URL+"/api/transactions", aliceToken, map[string]any{
					"group_id": group.ID,
					"who_paid": map[string]float64{},
				}, nil)
			},
		},
		{
			name:   "empty group name is 400",
			status: http.StatusBadRequest,
			do: func() int {
				return doJSON(t, "POST", server.URL+"/api/groups", aliceToken, map[string]string{}, nil)
			},
		},
		{
			name:   "duplicate registration is 400",
			status: http.StatusBadRequest,
			do: func() int {
				return doJSON(t, "POST", server.URL+"/api/auth/register", "", map[string]string{
					"email":    "alice@example.com",
					"password": "long-enough-password",
				}, nil)
			},
		},
		{
			name:   "bad credentials are 403",
			status: http.StatusForbidden,
			do: func() int {
				return doJSON(t, "POST", server.URL+"/api/auth/login", "", map[string]string{
					"email":    "alice@example.com",
					"password": "wrong-password",
				}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.do(); got != tt.status {
				t.Errorf("expected %d, got %d", tt.status, got)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	metrics, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics failed: %v", err)
	}
	defer metrics.Body.Close()
	if metrics.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", metrics.StatusCode)
	}
	body, _ := io.ReadAll(metrics.Body)
	if !bytes.Contains(body, []byte("smartledger_http_requests_total")) {
		t.Error("expected request counter in metrics exposition")
	}
}
