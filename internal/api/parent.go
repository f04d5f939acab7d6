package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/BTreeMap/BraveCall/internal/badges"
	"github.com/BTreeMap/BraveCall/internal/models"
)

// missionsHandler lists the missions. With child_id, missions whose badge the
// child already holds are marked completed.
func (s *Server) missionsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	if r.URL.Query().Get("child_id") == "" {
		writeJSONResponse(w, http.StatusOK, models.Success(badges.Missions(nil)))
		return
	}
	childID, err := childIDParam(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	owned, err := s.st.ListBadges(r.Context(), childID)
	if err != nil {
		slog.Error("Server.missionsHandler: failed to list badges", "error", err, "child_id", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load missions"))
		return
	}
	earned := make(map[string]bool, len(owned))
	for _, b := range owned {
		earned[b.ID] = true
	}
	writeJSONResponse(w, http.StatusOK, models.Success(badges.Missions(earned)))
}

// childRequestHandler records a new request from a child for a parent to decide.
func (s *Server) childRequestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var payload models.ChildRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.childRequestHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := payload.Validate(); err != nil {
		slog.Warn("Server.childRequestHandler: validation failed", "error", err, "child_id", payload.ChildID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	reqType := strings.TrimSpace(payload.RequestType)
	if reqType == "" {
		reqType = models.DefaultRequestType
	}
	req := &models.ChildRequest{
		ChildID:     payload.ChildID,
		RequestType: reqType,
		RequestText: strings.TrimSpace(payload.RequestText),
		Status:      models.RequestPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.st.SaveChildRequest(r.Context(), req); err != nil {
		slog.Error("Server.childRequestHandler: failed to save request", "error", err, "child_id", payload.ChildID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save request"))
		return
	}
	slog.Info("Server.childRequestHandler: request recorded", "child_id", req.ChildID, "request_id", req.ID, "type", req.RequestType)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Request sent to parent", req))
}

// parentRequestsHandler lists child requests. It shows pending requests for
// every child unless child_id or status (pending, approved, rejected or all)
// narrow or widen the list.
func (s *Server) parentRequestsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	var childID int64
	if r.URL.Query().Get("child_id") != "" {
		id, err := childIDParam(r)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		childID = id
	}

	status := models.RequestPending
	switch raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status"))); raw {
	case "":
	case "all":
		status = ""
	default:
		status = models.RequestStatus(raw)
		if !models.IsValidRequestStatus(status) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("status must be pending, approved, rejected or all"))
			return
		}
	}

	list, err := s.st.ListChildRequests(r.Context(), childID, status)
	if err != nil {
		slog.Error("Server.parentRequestsHandler: failed to list requests", "error", err, "child_id", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load requests"))
		return
	}
	if list == nil {
		list = []models.ChildRequest{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(list))
}

// decideRequestHandler approves or rejects the request named in the path.
func (s *Server) decideRequestHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid request id"))
		return
	}
	var payload models.RequestDecisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	payload.Status = models.RequestStatus(strings.ToLower(strings.TrimSpace(string(payload.Status))))
	if err := payload.Validate(); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	err = s.st.UpdateChildRequestStatus(r.Context(), id, payload.Status)
	if errors.Is(err, models.ErrRequestNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
		return
	}
	if err != nil {
		slog.Error("Server.decideRequestHandler: failed to update request", "error", err, "request_id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update request"))
		return
	}
	slog.Info("Server.decideRequestHandler: request decided", "request_id", id, "status", payload.Status)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Request "+string(payload.Status), nil))
}

// childrenHandler lists every child for the parent portal. Parent contacts
// are left out.
func (s *Server) childrenHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	profiles, err := s.st.ListChildProfiles(r.Context())
	if err != nil {
		slog.Error("Server.childrenHandler: failed to list profiles", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load children"))
		return
	}
	out := make([]models.ChildSummary, 0, len(profiles))
	for i := range profiles {
		out = append(out, profiles[i].Summary())
	}
	writeJSONResponse(w, http.StatusOK, models.Success(out))
}
