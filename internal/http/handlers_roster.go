package http

import (
	"net/http"

	"troupe/internal/core"
)

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var e core.Event
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.roster.CreateEvent(r.Context(), e)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.roster.GetEvent(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.roster.ListEvents(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if events == nil {
		events = []core.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var m core.Member
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := s.roster.CreateMember(r.Context(), m)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.roster.GetMember(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.roster.ListMembers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if members == nil {
		members = []core.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (s *Server) handleAssignMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MemberID string `json:"memberId"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.MemberID == "" {
		writeError(w, http.StatusBadRequest, "memberId is required")
		return
	}

	if err := s.roster.AssignMember(r.Context(), r.PathValue("id"), body.MemberID); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"eventId": r.PathValue("id"), "memberId": body.MemberID})
}

func (s *Server) handleEventRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := s.roster.EventRoster(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if roster == nil {
		roster = []core.Member{}
	}
	writeJSON(w, http.StatusOK, roster)
}
