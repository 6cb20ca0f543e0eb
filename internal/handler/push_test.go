package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dukerupert/chorequest/internal/database"
	"github.com/dukerupert/chorequest/internal/model"
	"github.com/dukerupert/chorequest/internal/push"
	"github.com/dukerupert/chorequest/internal/store"
)

func setupPushMux(t *testing.T, svc *push.Service) *http.ServeMux {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := NewPushHandler(store.NewPushStore(db), svc, discard())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/push/vapid-key", h.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", h.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", h.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", h.Unsubscribe)
	return mux
}

func TestPushSubscribeLifecycle(t *testing.T) {
	mux := setupPushMux(t, push.NewService("pub", "priv", ""))

	rec := do(t, mux, "POST", "/api/push/subscribe",
		`{"endpoint":"https://push.example.com/abc","p256dh":"key","auth":"secret","device_name":"Kitchen iPad"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("subscribe: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	sub := decode[model.PushSubscription](t, rec)
	if sub.ID == 0 || sub.DeviceName != "Kitchen iPad" {
		t.Errorf("subscription = %+v", sub)
	}

	subs := decode[[]model.PushSubscription](t, do(t, mux, "GET", "/api/push/subscriptions", ""))
	if len(subs) != 1 {
		t.Fatalf("subscriptions = %d, want 1", len(subs))
	}

	path := "/api/push/subscriptions/" + itoa(sub.ID)
	if rec := do(t, mux, "DELETE", path, ""); rec.Code != http.StatusNoContent {
		t.Errorf("unsubscribe: status = %d", rec.Code)
	}
	rec = do(t, mux, "GET", "/api/push/subscriptions", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("after delete = %s", rec.Body.String())
	}
}

func TestPushSubscribeValidation(t *testing.T) {
	mux := setupPushMux(t, push.NewService("pub", "priv", ""))

	if rec := do(t, mux, "POST", "/api/push/subscribe", `{"endpoint":"https://push.example.com/abc"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing keys: status = %d", rec.Code)
	}
	if rec := do(t, mux, "DELETE", "/api/push/subscriptions/abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", rec.Code)
	}
}

func TestVAPIDKey(t *testing.T) {
	mux := setupPushMux(t, push.NewService("BPublicKey", "priv", ""))
	rec := do(t, mux, "GET", "/api/push/vapid-key", "")
	if got := decode[map[string]string](t, rec)["public_key"]; got != "BPublicKey" {
		t.Errorf("public_key = %q", got)
	}

	mux = setupPushMux(t, push.NewService("", "", ""))
	if rec := do(t, mux, "GET", "/api/push/vapid-key", ""); rec.Code != http.StatusNotFound {
		t.Errorf("disabled: status = %d", rec.Code)
	}
}
