package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/chorequest/internal/backup"
	"github.com/dukerupert/chorequest/internal/model"
)

// Archives is the read side of the weekly archive.
type Archives interface {
	Enabled() bool
	Status() backup.Status
	List(limit int) ([]model.Archive, error)
}

type ArchiveHandler struct {
	archives Archives
	logger   *slog.Logger
}

func NewArchiveHandler(a Archives, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archives: a, logger: logger}
}

// List handles GET /api/parent/archives
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := h.archives.List(limit)
	if err != nil {
		h.logger.Error("list archives", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}
	if list == nil {
		list = []model.Archive{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":  h.archives.Enabled(),
		"status":   h.archives.Status(),
		"archives": list,
	})
}
