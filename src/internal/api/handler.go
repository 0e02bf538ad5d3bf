package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/team-pulse/availability-service/src/internal/api/apiErrors"
	"github.com/team-pulse/availability-service/src/internal/auth"
	"github.com/team-pulse/availability-service/src/internal/model"
	"github.com/team-pulse/availability-service/src/internal/service"
)

type Handler struct {
	svc *service.Service
	log *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, log: logger}
}

func RegisterRoutes(r *chi.Mux, h *Handler, tokens *auth.Tokens) {
	manager := RequireRole(tokens, auth.RoleManager)
	member := RequireRole(tokens, auth.RoleMember)

	r.With(manager).Post("/team/add", withTimeout(h.createTeam))
	r.Get("/team/get", withTimeout(h.getTeam))
	r.Get("/team/list", withTimeout(h.listTeams))
	r.With(manager).Post("/members/setInactive", withTimeout(h.setMemberInactive))

	r.With(member).Post("/schedule/update", withTimeout(h.updateSchedule))
	r.Get("/schedule/get", withTimeout(h.getSchedule))

	r.Get("/sprint/current", withTimeout(h.currentSprint))
	r.Get("/sprint/history", withTimeout(h.sprintHistory))
	r.With(manager).Post("/sprint/create", withTimeout(h.createSprint))
	r.With(manager).Post("/sprint/updateDates", withTimeout(h.updateSprintDates))

	r.Get("/analytics/team", withTimeout(h.teamAnalytics))
	r.Get("/analytics/sprint", withTimeout(h.sprintAnalytics))
	r.Get("/analytics/company", withTimeout(h.companyAnalytics))
	r.Get("/alerts", withTimeout(h.alerts))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
}

func withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

func (h *Handler) createTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamName          string `json:"team_name"`
		Description       string `json:"description"`
		Color             string `json:"color"`
		SprintLengthWeeks int    `json:"sprint_length_weeks"`
		SprintStartRef    string `json:"sprint_start_ref"`
		Members           []struct {
			MemberName string `json:"member_name"`
			LocalName  string `json:"local_name"`
			Role       string `json:"role"`
			IsManager  bool   `json:"is_manager"`
			IsCritical bool   `json:"is_critical"`
		} `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "invalid body")
		return
	}

	t := model.Team{
		TeamName:          req.TeamName,
		Description:       req.Description,
		Color:             req.Color,
		SprintLengthWeeks: req.SprintLengthWeeks,
	}
	if req.SprintStartRef != "" {
		ref, err := parseDate(req.SprintStartRef)
		if err != nil {
			writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "sprint_start_ref must be YYYY-MM-DD")
			return
		}
		t.SprintStartRef = ref
	}
	for _, m := range req.Members {
		t.Members = append(t.Members, model.TeamMember{
			MemberName: m.MemberName,
			LocalName:  m.LocalName,
			Role:       m.Role,
			IsManager:  m.IsManager,
			IsCritical: m.IsCritical,
		})
	}

	team, err := h.svc.CreateTeam(r.Context(), t)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"team": team})
}

func (h *Handler) getTeam(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "team_id required")
		return
	}
	team, err := h.svc.GetTeam(r.Context(), teamID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (h *Handler) listTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.svc.ListTeams(r.Context())
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (h *Handler) setMemberInactive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID      string  `json:"member_id"`
		InactiveSince *string `json:"inactive_since"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MemberID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "member_id required")
		return
	}

	var since *time.Time
	if req.InactiveSince != nil && *req.InactiveSince != "" {
		d, err := parseDate(*req.InactiveSince)
		if err != nil {
			writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "inactive_since must be YYYY-MM-DD")
			return
		}
		since = &d
	}

	member, err := h.svc.SetMemberInactive(r.Context(), req.MemberID, since)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member": member})
}

func (h *Handler) updateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string   `json:"member_id"`
		Date     string   `json:"date"`
		Value    string   `json:"value"`
		Hours    *float64 `json:"hours"`
		Reason   string   `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MemberID == "" || req.Date == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "member_id and date required")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "date must be YYYY-MM-DD")
		return
	}

	entry, err := h.svc.UpsertScheduleEntry(r.Context(), model.ScheduleEntry{
		MemberID: req.MemberID,
		Date:     date,
		Value:    model.DayValue(req.Value),
		Hours:    req.Hours,
		Reason:   req.Reason,
	})
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	memberID := q.Get("member_id")
	if memberID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "member_id required")
		return
	}
	from, err := parseDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "from must be YYYY-MM-DD")
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "to must be YYYY-MM-DD")
		return
	}

	entries, err := h.svc.GetMemberEntries(r.Context(), memberID, from, to)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member_id": memberID, "entries": entries})
}

func (h *Handler) currentSprint(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "team_id required")
		return
	}
	sprint, err := h.svc.GetCurrentSprint(r.Context(), teamID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sprint": sprint})
}

func (h *Handler) sprintHistory(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "team_id required")
		return
	}
	sprints, err := h.svc.ListSprints(r.Context(), teamID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"team_id": teamID, "sprints": sprints})
}

func (h *Handler) createSprint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID      string `json:"team_id"`
		StartDate   string `json:"start_date"`
		LengthWeeks int    `json:"length_weeks"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamID == "" || req.StartDate == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "team_id and start_date required")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "start_date must be YYYY-MM-DD")
		return
	}

	sprint, err := h.svc.ConfigureSprints(r.Context(), req.TeamID, start, req.LengthWeeks)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sprint": sprint})
}

func (h *Handler) updateSprintDates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamID    string `json:"team_id"`
		StartDate string `json:"start_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TeamID == "" || req.StartDate == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "team_id and start_date required")
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "start_date must be YYYY-MM-DD")
		return
	}

	sprint, err := h.svc.UpdateSprintDates(r.Context(), req.TeamID, start)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sprint": sprint})
}

func (h *Handler) teamAnalytics(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "team_id required")
		return
	}
	report, err := h.svc.GetTeamReport(r.Context(), teamID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) sprintAnalytics(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("team_id")
	if teamID == "" {
		writeError(w, http.StatusBadRequest, apiErrors.ValidationFailed, "team_id required")
		return
	}
	report, err := h.svc.GetSprintReport(r.Context(), teamID)
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) companyAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.GetCompanyReport(r.Context())
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.svc.GetAlerts(r.Context(), r.URL.Query().Get("team_id"))
	if err != nil {
		handleSvcError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, errCode apiErrors.ErrorCode, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": errCode, "message": message},
	})
}

func handleSvcError(w http.ResponseWriter, err error) {
	var e apiErrors.APIError
	switch {
	case errors.As(err, &e):
		switch e.Code {
		case apiErrors.TeamExists:
			writeError(w, http.StatusConflict, e.Code, e.Message)
		case apiErrors.NotFound:
			writeError(w, http.StatusNotFound, e.Code, e.Message)
		case apiErrors.ValidationFailed:
			writeError(w, http.StatusBadRequest, e.Code, e.Message)
		case apiErrors.Unauthorized:
			writeError(w, http.StatusUnauthorized, e.Code, e.Message)
		case apiErrors.Forbidden:
			writeError(w, http.StatusForbidden, e.Code, e.Message)
		default:
			writeError(w, http.StatusInternalServerError, apiErrors.InternalError, e.Message)
		}
	default:
		writeError(w, http.StatusInternalServerError, apiErrors.InternalError, err.Error())
	}
}
