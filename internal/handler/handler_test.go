package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/dukerupert/chorequest/internal/calendar"
	"github.com/dukerupert/chorequest/internal/gateway"
	"github.com/dukerupert/chorequest/internal/model"
	"github.com/dukerupert/chorequest/internal/tracker"
)

// Monday of the week starting Sunday 2026-10-18.
var monday = time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC)

const thisWeek = "2026-10-18"

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTracker(t *testing.T, store tracker.Store) *tracker.Tracker {
	t.Helper()
	if store == nil {
		store = gateway.New(gateway.NewMemoryStore())
	}
	tr, err := tracker.Open(context.Background(), tracker.Options{
		Store:  store,
		Clock:  calendar.FixedClock(monday),
		Rand:   rand.New(rand.NewPCG(1, 2)),
		Logger: discard(),
	})
	if err != nil {
		t.Fatalf("open tracker: %v", err)
	}
	t.Cleanup(tr.Close)
	return tr
}

// newTestMux registers the kid, parent and data routes without the PIN
// middleware, which has its own tests.
func newTestMux(tr *tracker.Tracker) *http.ServeMux {
	data := NewDataHandler(tr, discard())
	kids := NewKidHandler(tr, discard())
	parent := NewParentHandler(tr, discard())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/data", data.Get)
	mux.HandleFunc("POST /api/data", data.Save)
	mux.HandleFunc("GET /api/kids", kids.List)
	mux.HandleFunc("GET /api/kids/{kid}/chores", kids.Chores)
	mux.HandleFunc("GET /api/kids/{kid}/adjustments", kids.Adjustments)
	mux.HandleFunc("POST /api/kids/{kid}/chores/{chore}/complete", kids.Complete)
	mux.HandleFunc("POST /api/kids/{kid}/wheel/spin", kids.Spin)
	mux.HandleFunc("GET /api/wheel", kids.Wheel)
	mux.HandleFunc("POST /api/parent/pin", parent.CheckPIN)
	mux.HandleFunc("GET /api/parent/pending", parent.Pending)
	mux.HandleFunc("POST /api/parent/kids/{kid}/verify", parent.Verify)
	mux.HandleFunc("POST /api/parent/kids/{kid}/adjustments", parent.Adjust)
	mux.HandleFunc("POST /api/parent/kids/{kid}/chores", parent.AddChore)
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type failingStore struct{}

func (failingStore) Load(context.Context) (*model.Document, error) { return nil, nil }

func (failingStore) Save(context.Context, model.Document) error {
	return errors.New("kv unavailable")
}
