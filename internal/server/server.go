package server

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/dukerupert/chorequest/internal/handler"
	"github.com/dukerupert/chorequest/internal/metrics"
	"github.com/dukerupert/chorequest/internal/middleware"
	"github.com/dukerupert/chorequest/internal/push"
	"github.com/dukerupert/chorequest/internal/store"
	"github.com/dukerupert/chorequest/internal/tracker"
	ws "github.com/dukerupert/chorequest/internal/websocket"
)

// Deps are the long-lived components the router serves. Tracker, Hub and
// PINLimiter are required. PushStore and PushService enable the push routes
// together; Archives enables the archive listing. TrustProxy keys the PIN
// limiter on forwarding headers instead of the connection address.
type Deps struct {
	Tracker     *tracker.Tracker
	Hub         *ws.Hub
	PINLimiter  *middleware.RateLimiter
	TrustProxy  bool
	PushStore   *store.PushStore
	PushService *push.Service
	Archives    handler.Archives
	Logger      *slog.Logger
}

type Server struct {
	tracker    *tracker.Tracker
	hub        *ws.Hub
	dataH      *handler.DataHandler
	kidH       *handler.KidHandler
	parentH    *handler.ParentHandler
	pushH      *handler.PushHandler
	archiveH   *handler.ArchiveHandler
	pinLimiter *middleware.RateLimiter
	clientIP   func(*http.Request) string
	logger     *slog.Logger
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		tracker:    d.Tracker,
		hub:        d.Hub,
		dataH:      handler.NewDataHandler(d.Tracker, logger.With("component", "data")),
		kidH:       handler.NewKidHandler(d.Tracker, logger.With("component", "kid")),
		parentH:    handler.NewParentHandler(d.Tracker, logger.With("component", "parent")),
		pinLimiter: d.PINLimiter,
		clientIP:   middleware.ClientIP(d.TrustProxy),
		logger:     logger,
	}
	if d.PushStore != nil && d.PushService.Enabled() {
		s.pushH = handler.NewPushHandler(d.PushStore, d.PushService, logger.With("component", "push_handler"))
	}
	if d.Archives != nil {
		s.archiveH = handler.NewArchiveHandler(d.Archives, logger.With("component", "archive_handler"))
	}
	return s
}

// PINLimiter returns the wrong-PIN limiter for cleanup tasks.
func (s *Server) PINLimiter() *middleware.RateLimiter {
	return s.pinLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.hello))

	// Whole-document route used by the web client
	mux.HandleFunc("GET /api/data", s.dataH.Get)
	mux.HandleFunc("POST /api/data", s.dataH.Save)

	// Kid routes
	mux.HandleFunc("GET /api/kids", s.kidH.List)
	mux.HandleFunc("GET /api/kids/{kid}/chores", s.kidH.Chores)
	mux.HandleFunc("GET /api/kids/{kid}/adjustments", s.kidH.Adjustments)
	mux.HandleFunc("POST /api/kids/{kid}/chores/{chore}/complete", s.kidH.Complete)
	mux.HandleFunc("POST /api/kids/{kid}/wheel/spin", s.kidH.Spin)
	mux.HandleFunc("GET /api/wheel", s.kidH.Wheel)

	s.registerParentRoutes(mux)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	return metrics.InstrumentHandler(logged)
}

func (s *Server) registerParentRoutes(mux *http.ServeMux) {
	gate := middleware.RequirePIN(s.tracker.CheckPIN, s.pinLimiter, s.clientIP, s.logger.With("component", "pin"))
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, gate(h))
	}

	handle("POST /api/parent/pin", s.parentH.CheckPIN)
	handle("GET /api/parent/pending", s.parentH.Pending)
	handle("POST /api/parent/kids/{kid}/verify", s.parentH.Verify)
	handle("POST /api/parent/kids/{kid}/adjustments", s.parentH.Adjust)
	handle("POST /api/parent/kids/{kid}/chores", s.parentH.AddChore)

	if s.archiveH != nil {
		handle("GET /api/parent/archives", s.archiveH.List)
	}

	// Push notification routes
	if s.pushH != nil {
		handle("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		handle("POST /api/push/subscribe", s.pushH.Subscribe)
		handle("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		handle("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	}
}

func (s *Server) hello() ws.Message {
	return ws.Hello(s.tracker.Document().WeekStart)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"weekStart": s.tracker.Document().WeekStart,
		"clients":   s.hub.ClientCount(),
	})
}
