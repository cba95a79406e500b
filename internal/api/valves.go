package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/valve-bridge/internal/valve"
)

// handleListValves returns every registered valve.
func (s *Server) handleListValves(w http.ResponseWriter, _ *http.Request) {
	valves := s.valves.List()
	if valves == nil {
		valves = []valve.Valve{}
	}
	writeJSON(w, http.StatusOK, valves)
}

// handleUpdateValve replaces the attributes of an existing valve.
//
// The body is a flat JSON object. An "id" field, when present, must match
// the path; ids are assigned by the bridge and cannot be changed here.
func (s *Server) handleUpdateValve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "valve id must be an integer")
		return
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || fields == nil {
		writeBadRequest(w, "body must be a JSON object")
		return
	}

	if raw, ok := fields["id"]; ok {
		var bodyID int
		if err := json.Unmarshal(raw, &bodyID); err != nil || bodyID != id {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, "id in body does not match path")
			return
		}
		delete(fields, "id")
	}

	v := valve.Valve{ID: id}
	if len(fields) > 0 {
		v.Attributes = fields
	}

	if err := s.valves.Update(r.Context(), v); err != nil {
		if errors.Is(err, valve.ErrValveNotFound) {
			writeNotFound(w, "valve not found")
			return
		}
		s.logger.Error("updating valve failed", "valve_id", id, "error", err)
		writeInternalError(w, "updating valve failed")
		return
	}

	writeJSON(w, http.StatusOK, v)
}
