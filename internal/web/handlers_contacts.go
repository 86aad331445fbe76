package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cardfile/cardfile/internal/contact"
)

// contactPayload is the writable surface of a contact for create and
// update requests. UID, CardData, and Etag are owned by the server.
type contactPayload struct {
	FullName     string `json:"fullName"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	JobTitle     string `json:"jobTitle"`
	Address      string `json:"address"`
	Notes        string `json:"notes"`
}

func (p contactPayload) fields() contact.Fields {
	return contact.Fields{
		FullName:     strings.TrimSpace(p.FullName),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        strings.TrimSpace(p.Email),
		Phone:        strings.TrimSpace(p.Phone),
		Organization: strings.TrimSpace(p.Organization),
		JobTitle:     strings.TrimSpace(p.JobTitle),
		Address:      strings.TrimSpace(p.Address),
		Notes:        strings.TrimSpace(p.Notes),
	}
}

// hasIdentity applies the same retention rule as the import parser: a
// contact must carry at least a name, email, or phone.
func hasIdentity(f contact.Fields) bool {
	return f.FullName != "" || f.FirstName != "" || f.LastName != "" || f.Email != "" || f.Phone != ""
}

// listContactsResponse wraps the collection so the payload can grow
// paging fields without breaking clients.
type listContactsResponse struct {
	Contacts []contact.Contact `json:"contacts"`
	Total    int               `json:"total"`
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.store.ListAll(r.Context())
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to list contacts", err)
		return
	}
	if contacts == nil {
		contacts = []contact.Contact{}
	}
	writeJSON(w, http.StatusOK, listContactsResponse{Contacts: contacts, Total: len(contacts)})
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contactID")

	c, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			s.respondError(w, r, http.StatusNotFound, "contact not found", nil)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "failed to load contact", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var payload contactPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	fields := payload.fields()
	if !hasIdentity(fields) {
		s.respondError(w, r, http.StatusBadRequest, "contact needs a name, email, or phone", nil)
		return
	}

	created, err := s.svc.CreateContact(r.Context(), fields)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contactID")

	var payload contactPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, r, http.StatusBadRequest, "invalid request body", err)
		return
	}

	fields := payload.fields()
	if !hasIdentity(fields) {
		s.respondError(w, r, http.StatusBadRequest, "contact needs a name, email, or phone", nil)
		return
	}

	updated, err := s.svc.UpdateContact(r.Context(), id, fields)
	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			s.respondError(w, r, http.StatusNotFound, "contact not found", nil)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "failed to update contact", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "contactID")

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			s.respondError(w, r, http.StatusNotFound, "contact not found", nil)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "failed to delete contact", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports liveness, pinging the database when the store
// supports it. The in-memory store has no ping and is always healthy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(r.Context()); err != nil {
			s.respondError(w, r, http.StatusServiceUnavailable, "database unreachable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
