package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dukerupert/chorequest/internal/chore"
)

func TestPendingAndVerify(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))

	do(t, mux, "POST", "/api/kids/owen/chores/dinner/complete", "")
	do(t, mux, "POST", "/api/kids/liam/chores/shoes/complete", "")

	pending := decode[[]pendingItem](t, do(t, mux, "GET", "/api/parent/pending", ""))
	if len(pending) != 2 {
		t.Fatalf("pending = %+v", pending)
	}
	if pending[0].KidID != "owen" || pending[0].ChoreName == "" || pending[0].Date != "2026-10-19" {
		t.Errorf("first pending = %+v", pending[0])
	}

	rec := do(t, mux, "POST", "/api/parent/kids/owen/verify", `{"choreId":"dinner","approved":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if view := decode[kidView](t, rec); view.Points != 5 {
		t.Errorf("points = %d, want 5", view.Points)
	}

	// nothing pending any more
	rec = do(t, mux, "POST", "/api/parent/kids/owen/verify", `{"choreId":"dinner","approved":true}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second verify: status = %d", rec.Code)
	}
}

func TestVerifyRejectRemovesRecord(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))
	do(t, mux, "POST", "/api/kids/liam/chores/shoes/complete", "")

	rec := do(t, mux, "POST", "/api/parent/kids/liam/verify", `{"choreId":"shoes","date":"2026-10-19","approved":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if view := decode[kidView](t, rec); view.Points != 0 {
		t.Errorf("points = %d", view.Points)
	}
	if pending := decode[[]pendingItem](t, do(t, mux, "GET", "/api/parent/pending", "")); len(pending) != 0 {
		t.Errorf("pending = %+v", pending)
	}
}

func TestVerifyValidation(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))

	if rec := do(t, mux, "POST", "/api/parent/kids/owen/verify", `{"choreId":"dinner"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing approved: status = %d", rec.Code)
	}
	if rec := do(t, mux, "POST", "/api/parent/kids/owen/verify", `nope`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: status = %d", rec.Code)
	}
	if rec := do(t, mux, "POST", "/api/parent/kids/nobody/verify", `{"choreId":"dinner","approved":true}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown kid: status = %d", rec.Code)
	}
}

func TestAdjustPoints(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))

	rec := do(t, mux, "POST", "/api/parent/kids/owen/adjustments", `{"amount":20,"reason":"  extra help  "}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if view := decode[kidView](t, rec); view.Points != 20 {
		t.Errorf("points = %d, want 20", view.Points)
	}

	rec = do(t, mux, "POST", "/api/parent/kids/owen/adjustments", `{"amount":140,"reason":"big week"}`)
	if view := decode[kidView](t, rec); !view.AtBaseline || view.ScreenMinutes != chore.BaselineScreenMinutes {
		t.Errorf("at 160 points: %+v", view)
	}

	// deductions floor at zero
	rec = do(t, mux, "POST", "/api/parent/kids/owen/adjustments", `{"amount":-500}`)
	if view := decode[kidView](t, rec); view.Points != 0 || view.ScreenMinutes != 0 {
		t.Errorf("points = %d, minutes = %d, want 0", view.Points, view.ScreenMinutes)
	}

	rec = do(t, mux, "GET", "/api/kids/owen/adjustments", "")
	if !strings.Contains(rec.Body.String(), `"reason":"extra help"`) {
		t.Errorf("reason not trimmed: %s", rec.Body.String())
	}
}

func TestAdjustPointsValidation(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))

	for _, body := range []string{`{"amount":0}`, `{"reason":"no amount"}`, `{"amount":2.5}`, `{"amount":"ten"}`} {
		if rec := do(t, mux, "POST", "/api/parent/kids/owen/adjustments", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
	if rec := do(t, mux, "POST", "/api/parent/kids/nobody/adjustments", `{"amount":5}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown kid: status = %d", rec.Code)
	}
}

func TestAddChore(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))

	rec := do(t, mux, "POST", "/api/parent/kids/liam/chores", `{"name":"Wash car","points":15}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"id":"rot-`) {
		t.Errorf("body = %s", rec.Body.String())
	}

	chores := do(t, mux, "GET", "/api/kids/liam/chores", "").Body.String()
	if !strings.Contains(chores, "Wash car") {
		t.Error("rotating chore missing from liam's list")
	}
	if strings.Contains(do(t, mux, "GET", "/api/kids/owen/chores", "").Body.String(), "Wash car") {
		t.Error("rotating chore leaked to owen")
	}
}

func TestAddChoreValidation(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))

	for _, body := range []string{`{"name":"   ","points":5}`, `{"name":"Rake","points":0}`, `{"name":"Rake","points":-1}`, `{`} {
		if rec := do(t, mux, "POST", "/api/parent/kids/liam/chores", body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCheckPIN(t *testing.T) {
	mux := newTestMux(openTracker(t, nil))
	rec := do(t, mux, "POST", "/api/parent/pin", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
