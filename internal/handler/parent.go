package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/chorequest/internal/chore"
	"github.com/dukerupert/chorequest/internal/tracker"
)

// ParentHandler serves the PIN-gated parent routes. The PIN itself is
// checked by middleware before any of these run.
type ParentHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

func NewParentHandler(t *tracker.Tracker, logger *slog.Logger) *ParentHandler {
	return &ParentHandler{tracker: t, logger: logger}
}

// CheckPIN handles POST /api/parent/pin. Reaching it means the PIN matched.
func (h *ParentHandler) CheckPIN(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type pendingItem struct {
	KidID     string `json:"kidId"`
	KidName   string `json:"kidName"`
	ChoreID   string `json:"choreId"`
	ChoreName string `json:"choreName"`
	Icon      string `json:"icon"`
	Date      string `json:"date"`
	Points    int    `json:"points"`
}

// Pending handles GET /api/parent/pending
func (h *ParentHandler) Pending(w http.ResponseWriter, r *http.Request) {
	doc := h.tracker.Document()
	items := []pendingItem{}
	for _, kidID := range doc.KidIDs() {
		for _, rec := range chore.Pending(doc, kidID) {
			item := pendingItem{
				KidID:   kidID,
				KidName: doc.Profiles[kidID].Name,
				ChoreID: rec.ChoreID,
				Date:    rec.Date,
				Points:  rec.Points,
			}
			// a rotating chore may have been dropped by a replace
			if c, ok := chore.Find(doc, kidID, rec.ChoreID); ok {
				item.ChoreName = c.Name
				item.Icon = c.Icon
			}
			items = append(items, item)
		}
	}
	writeJSON(w, http.StatusOK, items)
}

type verifyRequest struct {
	ChoreID  string `json:"choreId"`
	Date     string `json:"date"`
	Approved *bool  `json:"approved"`
}

// Verify handles POST /api/parent/kids/{kid}/verify
func (h *ParentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kid")

	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ChoreID == "" || req.Approved == nil {
		writeError(w, http.StatusBadRequest, "choreId and approved are required")
		return
	}

	matched, err := h.tracker.Verify(kidID, req.ChoreID, req.Date, *req.Approved)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	if !matched {
		writeError(w, http.StatusNotFound, "no pending completion")
		return
	}

	h.logger.Info("completion verified", "kid", kidID, "chore", req.ChoreID, "approved", *req.Approved)
	doc := h.tracker.Document()
	writeJSON(w, http.StatusOK, newKidView(doc, kidID))
}

type adjustRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// Adjust handles POST /api/parent/kids/{kid}/adjustments
func (h *ParentHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kid")

	var req adjustRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a whole number")
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must not be zero")
		return
	}

	if err := h.tracker.Adjust(kidID, req.Amount, strings.TrimSpace(req.Reason)); err != nil {
		writeTrackerError(w, err)
		return
	}

	h.logger.Info("points adjusted", "kid", kidID, "amount", req.Amount)
	doc := h.tracker.Document()
	writeJSON(w, http.StatusOK, newKidView(doc, kidID))
}

type addChoreRequest struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// AddChore handles POST /api/parent/kids/{kid}/chores
func (h *ParentHandler) AddChore(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kid")

	var req addChoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Points <= 0 {
		writeError(w, http.StatusBadRequest, "points must be positive")
		return
	}

	c, err := h.tracker.AddRotatingChore(kidID, req.Name, req.Points)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
