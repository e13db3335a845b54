package routes

import (
	"net/http"

	"loralinka/internal/config"
	"loralinka/internal/handlers"
	"loralinka/internal/logger"
	mdlwr "loralinka/internal/middleware"
	"loralinka/internal/ratelimit"
	"loralinka/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uptrace/bun"
)

func NewRouter(db *bun.DB, cfg *config.Config, logr *logger.Logger, limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(mdlwr.RequestLogger(logr.Logger))
	r.Use(middleware.Recoverer)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", mdlwr.APIKeyHeader},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	emergencySvc := services.NewEmergencyService(db, logr)
	unitSvc := services.NewEmergencyUnitService(db, logr)
	userSvc := services.NewUserService(db, logr)
	catalogSvc := services.NewCatalogService(db)

	authMW := mdlwr.NewAuthMiddleware(cfg.APIKey, logr.Logger)
	rateMW := mdlwr.NewRateLimitMiddleware(limiter, logr.Logger)

	emergencyHandler := handlers.NewEmergencyHandler(emergencySvc, logr.Logger)
	unitHandler := handlers.NewEmergencyUnitHandler(unitSvc, logr.Logger)
	userHandler := handlers.NewUserHandler(userSvc, logr.Logger)
	catalogHandler := handlers.NewCatalogHandler(catalogSvc, logr.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authMW.APIKey)
		r.Use(rateMW.Limit)

		r.Route("/emergencies", func(r chi.Router) {
			r.Post("/", emergencyHandler.CreateEmergency)
			r.Get("/", emergencyHandler.ListEmergencies)
			r.Get("/user/{user_id}", emergencyHandler.ListUserEmergencies)
			r.Get("/{id}", emergencyHandler.GetEmergency)
			r.Put("/{id}", emergencyHandler.UpdateEmergency)
			r.Put("/{id}/assign-unit", emergencyHandler.AssignUnit)
		})

		r.Route("/emergency-units", func(r chi.Router) {
			r.Post("/", unitHandler.CreateUnit)
			r.Get("/", unitHandler.ListUnits)
			r.Get("/search/nearby", unitHandler.SearchNearby)
			r.Get("/{id}", unitHandler.GetUnit)
			r.Get("/{id}/stats", unitHandler.GetUnitStats)
			r.Put("/{id}", unitHandler.UpdateUnit)
			r.Delete("/{id}", unitHandler.DeleteUnit)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.CreateUser)
			r.Post("/login", userHandler.Login)
			r.Get("/", userHandler.ListUsers)
			r.Get("/{id}", userHandler.GetUser)
			r.Put("/{id}", userHandler.UpdateUser)
			r.Delete("/{id}", userHandler.DeleteUser)
		})

		r.Route("/catalogs", func(r chi.Router) {
			r.Get("/medical-conditions", catalogHandler.ListMedicalConditions)
			r.Get("/medical-conditions/{id}", catalogHandler.GetMedicalCondition)
			r.Get("/kin-catalog", catalogHandler.ListKinTypes)
			r.Get("/kin-catalog/{id}", catalogHandler.GetKinType)
			r.Get("/accident-types", catalogHandler.ListAccidentTypes)
			r.Get("/accident-types/{id}", catalogHandler.GetAccidentType)
			r.Get("/emergency-units", catalogHandler.ListUnits)
			r.Get("/emergency-units/{id}", catalogHandler.GetUnit)
		})
	})

	return r
}
