package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/harborline/dealdesk-cli/internal/model"
	"github.com/harborline/dealdesk-cli/internal/store"
)

// Capital partners

func (s *Server) listCapitalPartners(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListCapitalPartners(r.Context(), listFilterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) createCapitalPartner(w http.ResponseWriter, r *http.Request) {
	var rec model.CapitalPartnerRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	if err := s.svc.CreateCapitalPartner(r.Context(), &rec); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &rec)
}

func (s *Server) getCapitalPartner(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetCapitalPartner(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) updateCapitalPartner(w http.ResponseWriter, r *http.Request) {
	var rec model.CapitalPartnerRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	rec.ID = chi.URLParam(r, "id")
	if err := s.svc.UpdateCapitalPartner(r.Context(), &rec); err != nil {
		respondError(w, err)
		return
	}
	got, err := s.svc.GetCapitalPartner(r.Context(), rec.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, got)
}

func (s *Server) deleteCapitalPartner(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.DeleteCapitalPartner(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// Sponsors

func (s *Server) listSponsors(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListSponsors(r.Context(), listFilterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) createSponsor(w http.ResponseWriter, r *http.Request) {
	var rec model.SponsorRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	if err := s.svc.CreateSponsor(r.Context(), &rec); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &rec)
}

func (s *Server) getSponsor(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetSponsor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) updateSponsor(w http.ResponseWriter, r *http.Request) {
	var rec model.SponsorRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	rec.ID = chi.URLParam(r, "id")
	if err := s.svc.UpdateSponsor(r.Context(), &rec); err != nil {
		respondError(w, err)
		return
	}
	got, err := s.svc.GetSponsor(r.Context(), rec.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, got)
}

func (s *Server) deleteSponsor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.DeleteSponsor(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// Partner teams

func (s *Server) listPartnerTeams(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListPartnerTeams(r.Context(), listFilterFromQuery(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

func (s *Server) createPartnerTeam(w http.ResponseWriter, r *http.Request) {
	var rec model.PartnerTeamRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	if err := s.svc.CreatePartnerTeam(r.Context(), &rec); err != nil {
		// A dangling capital_partner_id is a bad request, not a missing route.
		if eris.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, &rec)
}

func (s *Server) getPartnerTeam(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.GetPartnerTeam(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) updatePartnerTeam(w http.ResponseWriter, r *http.Request) {
	var rec model.PartnerTeamRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	rec.ID = chi.URLParam(r, "id")
	if err := s.svc.UpdatePartnerTeam(r.Context(), &rec); err != nil {
		respondError(w, err)
		return
	}
	got, err := s.svc.GetPartnerTeam(r.Context(), rec.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, got)
}

func (s *Server) deletePartnerTeam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.DeletePartnerTeam(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// Archival

func (s *Server) archiveRecord(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.svc.Archive(r.Context(), kind, id); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "archived", "id": id})
	}
}

func (s *Server) restoreRecord(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.svc.Restore(r.Context(), kind, id); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "restored", "id": id})
	}
}
