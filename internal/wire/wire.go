package wire

import (
	"net/http"

	"travel-booking/internal/adaptor"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/lock"
	"travel-booking/pkg/middleware"
	"travel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface
type App struct {
	Router *chi.Mux
}

// Wiring builds services and handlers and mounts all routes
func Wiring(
	repo *repository.Repository,
	locker lock.Locker,
	processor usecase.PaymentProcessor,
	config *utils.Config,
	logger *zap.Logger,
) (*App, error) {
	service, err := usecase.NewService(repo, locker, processor, config, logger)
	if err != nil {
		return nil, err
	}
	handler := adaptor.NewHandler(service, config, logger)

	return &App{
		Router: setupRouter(handler, repo, logger),
	}, nil
}

func setupRouter(handler *adaptor.Handler, repo *repository.Repository, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))

	wirePayment(r, handler, repo, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseSuccess(w, "OK", nil)
	})

	return r
}
