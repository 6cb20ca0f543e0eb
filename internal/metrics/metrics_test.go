package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentHandlerLabelsByPattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/kids/{kid}/chores", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := InstrumentHandler(mux)

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /api/kids/{kid}/chores", "418"))
	for _, kid := range []string{"owen", "liam"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", "/api/kids/"+kid+"/chores", nil))
	}
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "GET /api/kids/{kid}/chores", "418"))

	if after-before != 2 {
		t.Errorf("counter delta = %v, want 2", after-before)
	}
}

func TestInstrumentHandlerUnmatched(t *testing.T) {
	h := InstrumentHandler(http.NewServeMux())

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope", nil))
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "unmatched", "404"))

	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}

func TestRecordSave(t *testing.T) {
	okBefore := testutil.ToFloat64(saves.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(saves.WithLabelValues("error"))

	RecordSave(0, nil)
	RecordSave(0, errors.New("boom"))
	RecordSave(0, errors.New("boom"))

	if d := testutil.ToFloat64(saves.WithLabelValues("ok")) - okBefore; d != 1 {
		t.Errorf("ok delta = %v, want 1", d)
	}
	if d := testutil.ToFloat64(saves.WithLabelValues("error")) - errBefore; d != 2 {
		t.Errorf("error delta = %v, want 2", d)
	}
}

func TestRecordVerificationOutcomes(t *testing.T) {
	RecordVerification("owen", true)
	RecordVerification("owen", false)

	if testutil.ToFloat64(verifications.WithLabelValues("owen", "approved")) < 1 {
		t.Error("approved verification not counted")
	}
	if testutil.ToFloat64(verifications.WithLabelValues("owen", "rejected")) < 1 {
		t.Error("rejected verification not counted")
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	RecordWeekReset()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "chorequest_week_resets_total") {
		t.Error("expected week reset counter in scrape output")
	}
}
