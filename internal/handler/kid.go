package handler

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/dukerupert/chorequest/internal/calendar"
	"github.com/dukerupert/chorequest/internal/chore"
	"github.com/dukerupert/chorequest/internal/model"
	"github.com/dukerupert/chorequest/internal/tracker"
)

// KidHandler serves the kid-facing screens: point totals, the chore list,
// check-offs and the prize wheel.
type KidHandler struct {
	tracker *tracker.Tracker
	logger  *slog.Logger
}

func NewKidHandler(t *tracker.Tracker, logger *slog.Logger) *KidHandler {
	return &KidHandler{tracker: t, logger: logger}
}

type kidView struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Avatar         string  `json:"avatar"`
	Color          string  `json:"color"`
	Points         int     `json:"points"`
	WheelPrize     *string `json:"wheelPrize"`
	HasSpun        bool    `json:"hasSpun"`
	BaselineEarned bool    `json:"baselineEarned"`
	AtBaseline     bool    `json:"atBaseline"`
	AtStretch      bool    `json:"atStretch"`
	ToBaseline     int     `json:"toBaseline"`
	ToStretch      int     `json:"toStretch"`
	ScreenMinutes  int     `json:"screenMinutes"`
}

func newKidView(doc model.Document, id string) kidView {
	p := doc.Profiles[id]
	points := chore.CurrentPoints(doc, id)
	return kidView{
		ID:             id,
		Name:           p.Name,
		Avatar:         p.Avatar,
		Color:          p.Color,
		Points:         points,
		WheelPrize:     p.WheelPrize,
		HasSpun:        p.HasSpun,
		BaselineEarned: p.BaselineEarned,
		AtBaseline:     chore.IsBaseline(points),
		AtStretch:      chore.IsStretch(points),
		ToBaseline:     chore.PointsToBaseline(points),
		ToStretch:      chore.PointsToStretch(points),
		ScreenMinutes:  screenMinutes(points),
	}
}

// screenMinutes is the screen time a kid has earned so far this week.
func screenMinutes(points int) int {
	if chore.IsBaseline(points) {
		return chore.BaselineScreenMinutes
	}
	return 0
}

// List handles GET /api/kids
func (h *KidHandler) List(w http.ResponseWriter, r *http.Request) {
	doc := h.tracker.Document()
	ids := doc.KidIDs()
	views := make([]kidView, 0, len(ids))
	for _, id := range ids {
		views = append(views, newKidView(doc, id))
	}
	writeJSON(w, http.StatusOK, views)
}

// Chores handles GET /api/kids/{kid}/chores
func (h *KidHandler) Chores(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kid")
	doc := h.tracker.Document()
	if _, ok := doc.Profiles[kidID]; !ok {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	writeJSON(w, http.StatusOK, chore.WithStatus(doc, kidID, h.tracker.Now()))
}

// Adjustments handles GET /api/kids/{kid}/adjustments. Newest first.
func (h *KidHandler) Adjustments(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kid")
	doc := h.tracker.Document()
	if _, ok := doc.Profiles[kidID]; !ok {
		writeError(w, http.StatusNotFound, "kid not found")
		return
	}
	adjs := slices.Clone(doc.PointAdjustments[kidID])
	if adjs == nil {
		adjs = []model.AdjustmentRecord{}
	}
	slices.Reverse(adjs)
	writeJSON(w, http.StatusOK, adjs)
}

// Complete handles POST /api/kids/{kid}/chores/{chore}/complete
func (h *KidHandler) Complete(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kid")
	choreID := r.PathValue("chore")

	recorded, err := h.tracker.CheckOff(kidID, choreID)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	if recorded {
		h.logger.Info("chore checked off", "kid", kidID, "chore", choreID)
	}

	doc := h.tracker.Document()
	status := chore.ComputeStatus(doc, kidID, choreID, calendar.Today(h.tracker.Now()))
	writeJSON(w, http.StatusOK, map[string]any{
		"recorded": recorded,
		"status":   status,
	})
}

// Spin handles POST /api/kids/{kid}/wheel/spin
func (h *KidHandler) Spin(w http.ResponseWriter, r *http.Request) {
	kidID := r.PathValue("kid")

	prize, err := h.tracker.Spin(kidID)
	if err != nil {
		writeTrackerError(w, err)
		return
	}
	h.logger.Info("wheel spun", "kid", kidID, "prize", prize)
	writeJSON(w, http.StatusOK, map[string]string{"prize": prize})
}

// Wheel handles GET /api/wheel
func (h *KidHandler) Wheel(w http.ResponseWriter, r *http.Request) {
	items := h.tracker.Document().PrizeWheelItems
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
