package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/wacdo-pos/kiosk/internal/config"
	"github.com/wacdo-pos/kiosk/internal/handler"
	"github.com/wacdo-pos/kiosk/internal/logger"
	"github.com/wacdo-pos/kiosk/internal/metrics"
	"github.com/wacdo-pos/kiosk/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// hub, db and m may be nil; the matching routes are then left out.
func New(cfg *config.Config, svc handler.OrderServicer, db handler.Pinger, hub *ws.Hub, m *metrics.ServerMetrics, log *zap.Logger) chi.Router {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(middleware.Recoverer)
	if m != nil {
		r.Use(m.Middleware)
	}

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300, // 5 minutes
	}))

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Public routes
	handler.NewHealthHandler(db).RegisterRoutes(r)
	if m != nil {
		r.Method("GET", "/metrics", m.Handler())
	}

	var events handler.Publisher
	if hub != nil {
		events = hub
		r.Method("GET", "/ws/orders", ws.NewHandler(hub, cfg.AllowedOrigins))
	}

	orderHandler := handler.NewOrderHandler(svc, events, m, log.Named("orders"))
	orderHandler.RegisterRoutes(r)

	return r
}
