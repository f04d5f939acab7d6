// Package api provides HTTP handlers for BraveCall endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BTreeMap/BraveCall/internal/badges"
	"github.com/BTreeMap/BraveCall/internal/escalation"
	"github.com/BTreeMap/BraveCall/internal/models"
	"github.com/BTreeMap/BraveCall/internal/notify"
	"github.com/BTreeMap/BraveCall/internal/pipeline"
)

// chatHandler runs one child message through the pipeline and records the turn.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.chatHandler: validation failed", "error", err, "child_id", req.ChildID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	ctx := r.Context()

	profile, persisted, err := s.loadProfile(ctx, req.ChildID)
	if err != nil {
		slog.Error("Server.chatHandler: failed to load profile", "error", err, "child_id", req.ChildID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load child profile"))
		return
	}

	history, err := s.st.RecentMessages(ctx, req.ChildID, HistoryLimit)
	if err != nil {
		slog.Error("Server.chatHandler: failed to load history", "error", err, "child_id", req.ChildID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load conversation history"))
		return
	}

	now := s.now().UTC()
	distress := escalation.CountDistress(req.Message) > 0
	pattern, err := s.patternOverDays(ctx, req.ChildID, now, distress)
	if err != nil {
		// Pattern detection is best effort.
		slog.Warn("Server.chatHandler: failed to load distress history", "error", err, "child_id", req.ChildID)
	}

	res := s.proc.Process(ctx, pipeline.Turn{
		ChildID:         req.ChildID,
		Message:         req.Message,
		Context:         profile.ConversationContext(models.ChatMessages(history)),
		ParentContact:   profile.ParentContact,
		PatternOverDays: pattern,
	})

	s.recordTurn(ctx, req, res, now, distress)

	profile = s.creditPoints(ctx, profile, persisted)

	writeJSONResponse(w, http.StatusOK, models.Success(models.ChatResponse{
		Response:  res.Response,
		Safe:      res.Safe,
		Blocked:   res.Blocked,
		Agent:     res.Agent,
		Tier:      res.Escalation.Tier,
		NewBadges: s.awardBadges(ctx, req),
		Profile:   profile,
	}))
}

// loadProfile returns the stored profile, or unsaved defaults when the child
// has no profile yet. persisted reports which case applied.
func (s *Server) loadProfile(ctx context.Context, childID int64) (*models.ChildProfile, bool, error) {
	profile, err := s.st.GetChildProfile(ctx, childID)
	if err == nil {
		return profile, true, nil
	}
	if !errors.Is(err, models.ErrProfileNotFound) {
		return nil, false, err
	}
	slog.Debug("Server.loadProfile: no profile, using defaults", "child_id", childID)
	p := &models.ChildProfile{ID: childID}
	p.ApplyDefaults()
	return p, false, nil
}

// creditPoints awards the per-message points. Stored profiles are updated in
// the store so concurrent turns for one child do not lose points; a failed
// write keeps the profile as loaded.
func (s *Server) creditPoints(ctx context.Context, profile *models.ChildProfile, persisted bool) *models.ChildProfile {
	level := profile.Level
	if persisted {
		updated, err := s.st.AddPoints(ctx, profile.ID, models.PointsPerMessage)
		if err != nil {
			slog.Error("Server.creditPoints: failed to save points", "error", err, "child_id", profile.ID)
			return profile
		}
		profile = updated
	} else {
		profile.AddPoints(models.PointsPerMessage)
	}
	if profile.Level > level {
		slog.Info("Server.creditPoints: level up", "child_id", profile.ID, "level", profile.Level)
	}
	return profile
}

// patternOverDays counts the current message when it carries distress words,
// since it is not stored until after the pipeline runs.
func (s *Server) patternOverDays(ctx context.Context, childID int64, now time.Time, distress bool) (bool, error) {
	times, err := s.st.DistressMessageTimes(ctx, childID, now.Add(-escalation.PatternWindow))
	if err != nil {
		return false, err
	}
	if distress {
		times = append(times, now)
	}
	return escalation.PatternOverDays(times, now), nil
}

// recordTurn stores the child's message and the reply. Failures are logged;
// the child still receives the reply.
func (s *Server) recordTurn(ctx context.Context, req models.ChatRequest, res pipeline.Result, at time.Time, distress bool) {
	msgs := []*models.StoredMessage{
		{ChildID: req.ChildID, Role: models.RoleUser, Content: req.Message, Distress: distress, Timestamp: at},
		{ChildID: req.ChildID, Role: models.RoleModel, Content: res.Response, Timestamp: s.now().UTC()},
	}
	for _, m := range msgs {
		if err := s.st.SaveMessage(ctx, m); err != nil {
			slog.Error("Server.recordTurn: failed to save message", "error", err, "child_id", req.ChildID, "role", m.Role, "turn_id", res.TurnID)
		}
	}
}

// awardBadges returns the badges earned by this turn. It never returns nil so
// the JSON field is always an array.
func (s *Server) awardBadges(ctx context.Context, req models.ChatRequest) []models.Badge {
	earned := []models.Badge{}
	count, err := s.st.CountUserMessages(ctx, req.ChildID)
	if err != nil {
		slog.Error("Server.awardBadges: failed to count messages", "error", err, "child_id", req.ChildID)
		return earned
	}
	owned, err := s.st.ListBadges(ctx, req.ChildID)
	if err != nil {
		slog.Error("Server.awardBadges: failed to list badges", "error", err, "child_id", req.ChildID)
		return earned
	}
	have := make(map[string]bool, len(owned))
	for _, b := range owned {
		have[b.ID] = true
	}
	for _, b := range badges.Award(req.Message, count, have) {
		b.EarnedAt = s.now().UTC()
		if err := s.st.AwardBadge(ctx, req.ChildID, b); err != nil {
			slog.Error("Server.awardBadges: failed to award badge", "error", err, "child_id", req.ChildID, "badge", b.ID)
			continue
		}
		slog.Info("Server.awardBadges: badge earned", "child_id", req.ChildID, "badge", b.ID)
		earned = append(earned, b)
	}
	return earned
}

// messagesHandler returns the child's conversation in chronological order.
func (s *Server) messagesHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	childID, err := childIDParam(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	msgs, err := s.st.RecentMessages(r.Context(), childID, 0)
	if err != nil {
		slog.Error("Server.messagesHandler: failed to load messages", "error", err, "child_id", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load messages"))
		return
	}
	if msgs == nil {
		msgs = []models.StoredMessage{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(msgs))
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getProfile(w, r)
	case http.MethodPost:
		s.saveProfile(w, r)
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("Method not allowed"))
	}
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	childID, err := childIDParam(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	profile, err := s.st.GetChildProfile(r.Context(), childID)
	if errors.Is(err, models.ErrProfileNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
		return
	}
	if err != nil {
		slog.Error("Server.getProfile: failed to load profile", "error", err, "child_id", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load child profile"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(profile))
}

// saveProfile creates a profile when child_id is omitted and replaces the
// editable fields of an existing one otherwise. Progress is preserved.
func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.saveProfile: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(notify.LooksLikeE164); err != nil {
		slog.Warn("Server.saveProfile: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	ctx := r.Context()

	profile := &models.ChildProfile{}
	status := http.StatusCreated
	if req.ChildID > 0 {
		existing, err := s.st.GetChildProfile(ctx, req.ChildID)
		if errors.Is(err, models.ErrProfileNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
			return
		}
		if err != nil {
			slog.Error("Server.saveProfile: failed to load profile", "error", err, "child_id", req.ChildID)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load child profile"))
			return
		}
		profile = existing
		status = http.StatusOK
	}

	profile.ChildName = strings.TrimSpace(req.ChildName)
	profile.ChildAge = req.ChildAge
	profile.ParentContact = strings.TrimSpace(req.ParentContact)
	profile.CharacterName = strings.TrimSpace(req.CharacterName)
	profile.CharacterType = strings.TrimSpace(req.CharacterType)
	profile.Color = strings.TrimSpace(req.Color)
	profile.ApplyDefaults()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = s.now().UTC()
	}

	if err := s.st.SaveChildProfile(ctx, profile); err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
			return
		}
		slog.Error("Server.saveProfile: failed to save profile", "error", err, "child_id", profile.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save child profile"))
		return
	}
	slog.Info("Server.saveProfile: profile saved", "child_id", profile.ID,
		"parent_contact", notify.MaskContact(profile.ParentContact))
	writeJSONResponse(w, status, models.SuccessWithMessage("Profile saved", profile))
}

func (s *Server) badgesHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	childID, err := childIDParam(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	list, err := s.st.ListBadges(r.Context(), childID)
	if err != nil {
		slog.Error("Server.badgesHandler: failed to list badges", "error", err, "child_id", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load badges"))
		return
	}
	if list == nil {
		list = []models.Badge{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(list))
}

// alertsHandler lists parent alerts, newest first. Reviewed alerts are hidden
// unless include_reviewed=true.
func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	childID, err := childIDParam(r)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	includeReviewed := false
	if raw := r.URL.Query().Get("include_reviewed"); raw != "" {
		includeReviewed, err = strconv.ParseBool(raw)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("include_reviewed must be a boolean"))
			return
		}
	}
	alerts, err := s.st.ListParentAlerts(r.Context(), childID, includeReviewed)
	if err != nil {
		slog.Error("Server.alertsHandler: failed to list alerts", "error", err, "child_id", childID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load parent alerts"))
		return
	}
	if alerts == nil {
		alerts = []models.ParentAlert{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(alerts))
}

func (s *Server) reviewAlertHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req models.AlertReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ID <= 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("id is required"))
		return
	}
	err := s.st.MarkParentAlertReviewed(r.Context(), req.ID)
	if errors.Is(err, models.ErrAlertNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error(err.Error()))
		return
	}
	if err != nil {
		slog.Error("Server.reviewAlertHandler: failed to mark alert reviewed", "error", err, "alert_id", req.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to update parent alert"))
		return
	}
	slog.Info("Server.reviewAlertHandler: alert reviewed", "alert_id", req.ID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Alert marked as reviewed", nil))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	}

	// A cheap read confirms the store is reachable
	if _, err := s.st.CountUserMessages(ctx, 0); err != nil {
		slog.Warn("Health check: store unavailable", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to reach store"
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}
