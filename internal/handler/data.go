package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorequest/internal/middleware"
	"github.com/dukerupert/chorequest/internal/model"
	"github.com/dukerupert/chorequest/internal/tracker"
)

// DataHandler serves the whole-document route used by the web client.
type DataHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

func NewDataHandler(t *tracker.Tracker, logger *slog.Logger) *DataHandler {
	return &DataHandler{tracker: t, logger: logger}
}

type dataEnvelope struct {
	Data *model.Document `json:"data"`
}

type dataResponse struct {
	Data model.Document `json:"data"`
}

type saveResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Get handles GET /api/data. The parent PIN is never sent.
func (h *DataHandler) Get(w http.ResponseWriter, r *http.Request) {
	doc := h.tracker.Document()
	doc.PIN = ""
	writeJSON(w, http.StatusOK, &dataResponse{Data: doc})
}

// Save handles POST /api/data. The posted document replaces the stored one
// wholesale; the last writer wins. A new PIN is taken only from a request
// that carries the current one in the PIN header.
func (h *DataHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req dataEnvelope
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, saveResponse{Error: "invalid JSON"})
		return
	}
	if req.Data == nil {
		writeJSON(w, http.StatusBadRequest, saveResponse{Error: "data is required"})
		return
	}

	changePIN := h.tracker.CheckPIN(r.Header.Get(middleware.PINHeader))
	if err := h.tracker.Replace(r.Context(), *req.Data, changePIN); err != nil {
		h.logger.Error("save document", "error", err)
		writeJSON(w, http.StatusInternalServerError, saveResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Success: true})
}
