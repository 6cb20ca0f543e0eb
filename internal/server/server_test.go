package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"
	"github.com/goccy/go-json"

	"github.com/dukerupert/chorequest/internal/calendar"
	"github.com/dukerupert/chorequest/internal/database"
	"github.com/dukerupert/chorequest/internal/gateway"
	"github.com/dukerupert/chorequest/internal/middleware"
	"github.com/dukerupert/chorequest/internal/model"
	"github.com/dukerupert/chorequest/internal/push"
	"github.com/dukerupert/chorequest/internal/store"
	"github.com/dukerupert/chorequest/internal/tracker"
	chorews "github.com/dukerupert/chorequest/internal/websocket"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	srv *httptest.Server
	hub *chorews.Hub
}

func setupServer(t *testing.T, pushSvc *push.Service) *testEnv {
	t.Helper()
	hub := chorews.NewHub(quietLogger())
	tr, err := tracker.Open(context.Background(), tracker.Options{
		Store:       gateway.New(gateway.NewMemoryStore()),
		Clock:       calendar.FixedClock(time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC)),
		Broadcaster: hub,
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("open tracker: %v", err)
	}
	t.Cleanup(tr.Close)

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(Deps{
		Tracker:     tr,
		Hub:         hub,
		PINLimiter:  middleware.NewRateLimiter(time.Minute, 3),
		PushStore:   store.NewPushStore(db),
		PushService: pushSvc,
		Logger:      quietLogger(),
	})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, hub: hub}
}

func (e *testEnv) request(t *testing.T, method, path, pin, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if pin != "" {
		req.Header.Set(middleware.PINHeader, pin)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	env := setupServer(t, nil)

	resp := env.request(t, "GET", "/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["weekStart"] != "2026-10-18" {
		t.Errorf("health = %v", body)
	}
}

func TestParentRoutesRequirePIN(t *testing.T) {
	env := setupServer(t, nil)

	if resp := env.request(t, "GET", "/api/parent/pending", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no PIN: status = %d", resp.StatusCode)
	}
	if resp := env.request(t, "POST", "/api/parent/pin", "1234", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("right PIN: status = %d", resp.StatusCode)
	}
	if resp := env.request(t, "GET", "/api/kids", "", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("kid routes are open: status = %d", resp.StatusCode)
	}
}

func TestWrongPINLockout(t *testing.T) {
	env := setupServer(t, nil)

	for i := 0; i < 3; i++ {
		if resp := env.request(t, "POST", "/api/parent/pin", "0000", ""); resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d", i+1, resp.StatusCode)
		}
	}
	if resp := env.request(t, "POST", "/api/parent/pin", "1234", ""); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("after lockout: status = %d, want 429", resp.StatusCode)
	}
}

func TestWrongPINLockoutIgnoresForwardedFor(t *testing.T) {
	env := setupServer(t, nil)

	codes := make([]int, 0, 5)
	for i := range 5 {
		req, err := http.NewRequest("POST", env.srv.URL+"/api/parent/pin", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set(middleware.PINHeader, "0000")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.0.%d", i))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[4] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, rotating X-Forwarded-For escaped the lockout", codes)
	}
}

func TestDataRoute(t *testing.T) {
	env := setupServer(t, nil)

	resp := env.request(t, "GET", "/api/data", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		Data model.Document `json:"data"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	if got.Data.WeekStart != "2026-10-18" || len(got.Data.Profiles) != 2 {
		t.Errorf("data = %+v", got.Data)
	}
	if strings.Contains(string(body), `"pin"`) {
		t.Error("GET /api/data exposes the parent PIN")
	}
}

func TestDataRouteCannotResetPIN(t *testing.T) {
	env := setupServer(t, nil)

	doc := model.DefaultDocument()
	doc.WeekStart = "2026-10-18"
	doc.PIN = "9999"
	body, _ := json.Marshal(map[string]any{"data": doc})
	if resp := env.request(t, "POST", "/api/data", "", string(body)); resp.StatusCode != http.StatusOK {
		t.Fatalf("save: status = %d", resp.StatusCode)
	}

	if resp := env.request(t, "POST", "/api/parent/kids/owen/adjustments", "9999", `{"amount":200,"reason":"x"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("adjust with posted PIN: status = %d, want 401", resp.StatusCode)
	}
	if resp := env.request(t, "POST", "/api/parent/pin", "1234", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("current PIN: status = %d", resp.StatusCode)
	}
}

func TestPushRoutesNeedKeys(t *testing.T) {
	env := setupServer(t, push.NewService("", "", ""))
	if resp := env.request(t, "GET", "/api/push/vapid-key", "1234", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("disabled push: status = %d", resp.StatusCode)
	}

	env = setupServer(t, push.NewService("BPub", "priv", ""))
	if resp := env.request(t, "GET", "/api/push/vapid-key", "1234", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("enabled push: status = %d", resp.StatusCode)
	}
	if resp := env.request(t, "GET", "/api/push/vapid-key", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("push without PIN: status = %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t, nil)
	env.request(t, "GET", "/api/kids", "", "")

	resp := env.request(t, "GET", "/metrics", "", "")
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `chorequest_http_requests_total{method="GET",route="GET /api/kids",status="200"}`) {
		t.Error("request counter for /api/kids not exported")
	}
}

// The upgrade has to survive both response-writer wrappers.
func TestWebSocketThroughMiddleware(t *testing.T) {
	env := setupServer(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(env.srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if hello := readMessage(t, ctx, conn); hello.Type != "session_hello" || hello.Extra["weekStart"] != "2026-10-18" {
		t.Errorf("greeting = %+v", hello)
	}

	if resp := env.request(t, "POST", "/api/kids/owen/chores/dinner/complete", "", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: status = %d", resp.StatusCode)
	}

	if msg := readMessage(t, ctx, conn); msg.Type != "document_updated" || msg.ID != "owen" {
		t.Errorf("message = %+v", msg)
	}
}

func readMessage(t *testing.T, ctx context.Context, conn *ws.Conn) chorews.Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg chorews.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	return msg
}
