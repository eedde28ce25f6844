// Package server exposes the deal desk over HTTP. It shares the dealflow
// service layer with the CLI, so records written through the API carry the
// same validation and audit trail as records written at the terminal.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/harborline/dealdesk-cli/internal/config"
	"github.com/harborline/dealdesk-cli/internal/dealflow"
	"github.com/harborline/dealdesk-cli/internal/model"
)

// Server wires the dealflow service into an HTTP API.
type Server struct {
	svc *dealflow.Service
	cfg config.ServerConfig
}

// New creates a Server. The config decides bearer auth and CORS; everything
// else comes from the service.
func New(svc *dealflow.Service, cfg config.ServerConfig) *Server {
	return &Server{svc: svc, cfg: cfg}
}

// Router builds the HTTP handler. /health stays open; everything under /api
// passes bearer auth when a token is configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(recoverer)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(s.cfg.APIToken))

		r.Route("/capital-partners", func(r chi.Router) {
			r.Get("/", s.listCapitalPartners)
			r.Post("/", s.createCapitalPartner)
			r.Get("/{id}", s.getCapitalPartner)
			r.Put("/{id}", s.updateCapitalPartner)
			r.Delete("/{id}", s.deleteCapitalPartner)
			r.Post("/{id}/archive", s.archiveRecord(model.KindCapitalPartner))
			r.Post("/{id}/restore", s.restoreRecord(model.KindCapitalPartner))
		})

		r.Route("/sponsors", func(r chi.Router) {
			r.Get("/", s.listSponsors)
			r.Post("/", s.createSponsor)
			r.Get("/{id}", s.getSponsor)
			r.Put("/{id}", s.updateSponsor)
			r.Delete("/{id}", s.deleteSponsor)
			r.Post("/{id}/archive", s.archiveRecord(model.KindSponsor))
			r.Post("/{id}/restore", s.restoreRecord(model.KindSponsor))
		})

		r.Route("/partner-teams", func(r chi.Router) {
			r.Get("/", s.listPartnerTeams)
			r.Post("/", s.createPartnerTeam)
			r.Get("/{id}", s.getPartnerTeam)
			r.Put("/{id}", s.updatePartnerTeam)
			r.Delete("/{id}", s.deletePartnerTeam)
			r.Post("/{id}/archive", s.archiveRecord(model.KindPartnerTeam))
			r.Post("/{id}/restore", s.restoreRecord(model.KindPartnerTeam))
		})

		r.Get("/profiles", s.handleProfiles)
		r.Post("/profiles/filter", s.handleFilterProfiles)
		r.Get("/pairings", s.handlePairings)
		r.Get("/market/rates", s.handleRates)
		r.Get("/audit", s.handleAudit)
	})

	return r
}
