package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"med-connect/internal/config"
	"med-connect/internal/handler"
	"med-connect/internal/metrics"
	"med-connect/internal/middleware"
	"med-connect/internal/websocket"
)

type Handlers struct {
	Health  *handler.HealthHandler
	Connect *handler.ConnectHandler
	Access  *handler.AccessHandler
	Records *handler.RecordHandler
}

func New(cfg *config.Config, h Handlers, m *metrics.Metrics, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(m.Instrument)

	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	if hub != nil {
		r.Get("/ws", hub.Handler(cfg.CORSOrigins))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/connect", func(connect chi.Router) {
			connect.Post("/hospital-challenge", h.Connect.HospitalChallenge)
			connect.Post("/challenge-grant", h.Connect.ChallengeGrant)
			connect.Post("/connect-token", h.Connect.ConnectToken)
			connect.Post("/exchange-token", h.Connect.ExchangeToken)
			connect.Post("/codes", h.Connect.RegisterCode)
			connect.Post("/exchange-code", h.Connect.ExchangeCode)
		})

		api.Post("/access/revoke", h.Access.Revoke)
		api.Get("/patients/{patientID}/grants", h.Access.ListGrants)
		api.Get("/patients/{patientID}/audit", h.Access.ListAudit)
		api.Get("/requesters/{requesterID}/patients", h.Access.RecentPatients)

		api.Route("/records", func(records chi.Router) {
			records.Use(middleware.BearerToken)
			records.Post("/reports", h.Records.UploadReport)
			records.Post("/reports/list", h.Records.ListReports)
			records.Post("/profile", h.Records.Profile)
		})
	})

	return r
}
