package push

import (
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/chorequest/internal/model"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	// uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

func TestServiceEnabled(t *testing.T) {
	var nilSvc *Service
	if nilSvc.Enabled() {
		t.Error("nil service should be disabled")
	}
	if NewService("", "", "").Enabled() {
		t.Error("service without keys should be disabled")
	}
	if !NewService("pub", "priv", "").Enabled() {
		t.Error("service with keys should be enabled")
	}
}

// browserSubscription builds a subscription with real client keys so the
// payload can be encrypted.
func browserSubscription(t *testing.T, endpoint string) *model.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	auth := make([]byte, 16)
	rand.Read(auth)
	return &model.PushSubscription{
		Endpoint:  endpoint,
		P256dhKey: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		AuthKey:   base64.RawURLEncoding.EncodeToString(auth),
	}
}

type received struct {
	method string
	auth   string
}

func testService(t *testing.T, status int) (*Service, *httptest.Server, chan received) {
	t.Helper()
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- received{method: r.Method, auth: r.Header.Get("Authorization")}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("vapid keys: %v", err)
	}
	svc := NewService(pub, priv, "mailto:test@example.com")
	svc.client = srv.Client()
	return svc, srv, got
}

func TestSendDelivers(t *testing.T) {
	svc, srv, reqs := testService(t, http.StatusCreated)

	err := svc.Send(browserSubscription(t, srv.URL+"/push/abc"), Payload{Title: "Chore to check", Body: "Owen finished Dinner"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	got := <-reqs
	if got.method != http.MethodPost {
		t.Errorf("method = %s, want POST", got.method)
	}
	if !strings.HasPrefix(got.auth, "vapid ") {
		t.Errorf("authorization = %q, want vapid scheme", got.auth)
	}
}

func TestSendExpired(t *testing.T) {
	svc, srv, _ := testService(t, http.StatusGone)

	err := svc.Send(browserSubscription(t, srv.URL+"/push/gone"), Payload{Title: "x"})
	if !errors.Is(err, ErrExpired) {
		t.Errorf("error = %v, want ErrExpired", err)
	}
}

func TestSendServerError(t *testing.T) {
	svc, srv, _ := testService(t, http.StatusInternalServerError)

	err := svc.Send(browserSubscription(t, srv.URL+"/push/err"), Payload{Title: "x"})
	if err == nil || errors.Is(err, ErrExpired) {
		t.Errorf("error = %v, want a non-expiry failure", err)
	}
}
