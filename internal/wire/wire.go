package wire

import (
	"net/http"

	"event-seating/internal/adaptor"
	"event-seating/internal/data/cache"
	"event-seating/internal/data/repository"
	"event-seating/internal/queue"
	"event-seating/internal/realtime"
	"event-seating/internal/usecase"
	"event-seating/pkg/middleware"
	"event-seating/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the wired router and the long-lived services behind it.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
	Hub     *realtime.Hub
}

// Wiring builds services, handlers and routes around one shared hub.
func Wiring(
	repo *repository.Repository,
	seatCache cache.SeatCache,
	publisher queue.Publisher,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	hub := realtime.NewHub(config.Realtime.SendBuffer, logger)
	service := usecase.NewService(repo, hub, seatCache, publisher, config, logger)
	handler := adaptor.NewHandler(service, hub, config, logger)

	router := setupRouter(handler, config, logger)

	return &App{
		Router:  router,
		Service: service,
		Hub:     hub,
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))

	wireSeat(r, handler.Seat)
	wireChannel(r, handler.Channel)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseNotFound(w, "Route not found")
	})

	return r
}
