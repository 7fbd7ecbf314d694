// Package api exposes the HTTP handlers for the daytrack service.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/daytrack/internal/analytics"
	"example.com/daytrack/internal/auth"
	"example.com/daytrack/internal/dates"
	"example.com/daytrack/internal/domain"
	"example.com/daytrack/internal/observability"
)

// Handler coordinates HTTP requests with the aggregation core and the
// analytics aggregator.
type Handler struct {
	service   *domain.Service
	analytics *analytics.Aggregator
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, aggregator *analytics.Aggregator) *Handler {
	return &Handler{service: service, analytics: aggregator}
}

// RegisterRoutes wires endpoints to the mux. mutationGuard, when non-nil,
// wraps the activity mutation routes (the strict rate-limit bucket).
func (h *Handler) RegisterRoutes(mux *http.ServeMux, mutationGuard func(http.Handler) http.Handler) {
	guard := mutationGuard
	if guard == nil {
		guard = func(next http.Handler) http.Handler { return next }
	}

	mux.Handle("/api/activities", guard(http.HandlerFunc(h.activities)))
	mux.Handle("/api/activities/", guard(http.HandlerFunc(h.activityByID)))
	mux.HandleFunc("/api/days/", h.dayByDate)
	mux.HandleFunc("/api/analytics/", h.analyticsByDate)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createActivity(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/activities/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing activity id")
		return
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateActivity(w, r, id)
	case http.MethodDelete:
		h.deleteActivity(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	date, err := dates.Parse(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	result, err := h.service.AddActivity(r.Context(), claims.UserID, date, domain.AddActivityInput{
		Title:           req.Title,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, MutationResponse{
		Success:          true,
		Activity:         toActivityView(result.Activity),
		TotalMinutes:     result.TotalMinutes,
		RemainingMinutes: result.RemainingMinutes,
	})
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var req UpdateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	result, err := h.service.UpdateActivity(r.Context(), claims.UserID, id, domain.ActivityPatch{
		Title:           req.Title,
		Category:        req.Category,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MutationResponse{
		Success:          true,
		Activity:         toActivityView(result.Activity),
		TotalMinutes:     result.TotalMinutes,
		RemainingMinutes: result.RemainingMinutes,
	})
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	result, err := h.service.DeleteActivity(r.Context(), claims.UserID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{
		Success:          true,
		Message:          "activity deleted",
		TotalMinutes:     result.TotalMinutes,
		RemainingMinutes: result.RemainingMinutes,
	})
}

func (h *Handler) dayByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	date, err := dates.Parse(strings.TrimPrefix(r.URL.Path, "/api/days/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	data, err := h.service.GetDayData(r.Context(), claims.UserID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	views := make([]ActivityView, 0, len(data.Activities))
	for i := range data.Activities {
		views = append(views, toActivityView(&data.Activities[i]))
	}

	writeJSON(w, http.StatusOK, DayResponse{
		Success:          true,
		Date:             date.String(),
		Activities:       views,
		TotalMinutes:     data.TotalMinutes,
		RemainingMinutes: data.RemainingMinutes,
	})
}

func (h *Handler) analyticsByDate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
		return
	}

	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	date, err := dates.Parse(strings.TrimPrefix(r.URL.Path, "/api/analytics/"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	report, err := h.analytics.GetDailyAnalytics(r.Context(), claims.UserID, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyticsResponse{Success: true, Report: report})
}

// CreateActivityRequest is the payload for POST /api/activities.
type CreateActivityRequest struct {
	Date            string `json:"date"`
	Title           string `json:"title"`
	Category        string `json:"category"`
	DurationMinutes int    `json:"duration_minutes"`
}

// UpdateActivityRequest is the payload for PUT /api/activities/{id}. Absent
// fields keep their stored value.
type UpdateActivityRequest struct {
	Title           *string `json:"title"`
	Category        *string `json:"category"`
	DurationMinutes *int    `json:"duration_minutes"`
}

// ActivityView exposes an activity over the wire.
type ActivityView struct {
	ID              string    `json:"id"`
	DayID           string    `json:"day_id"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	DurationMinutes int       `json:"duration_minutes"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// MutationResponse reports the affected activity plus the day totals.
type MutationResponse struct {
	Success          bool         `json:"success"`
	Activity         ActivityView `json:"activity"`
	TotalMinutes     int          `json:"totalMinutes"`
	RemainingMinutes int          `json:"remainingMinutes"`
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	TotalMinutes     int    `json:"totalMinutes"`
	RemainingMinutes int    `json:"remainingMinutes"`
}

// DayResponse packages a day's activities and totals.
type DayResponse struct {
	Success          bool           `json:"success"`
	Date             string         `json:"date"`
	Activities       []ActivityView `json:"activities"`
	TotalMinutes     int            `json:"totalMinutes"`
	RemainingMinutes int            `json:"remainingMinutes"`
}

// AnalyticsResponse wraps the analytics report in the success envelope.
type AnalyticsResponse struct {
	Success bool `json:"success"`
	*analytics.Report
}

func toActivityView(activity *domain.Activity) ActivityView {
	return ActivityView{
		ID:              activity.ID,
		DayID:           activity.DayID,
		Title:           activity.Title,
		Category:        activity.Category,
		DurationMinutes: activity.DurationMinutes,
		CreatedAt:       activity.CreatedAt,
		UpdatedAt:       activity.UpdatedAt,
	}
}

// writeServiceError maps domain failures onto status codes without leaking
// raw store errors.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrDailyCapExceeded):
		observability.RecordCapacityRejection()
		writeError(w, http.StatusBadRequest, domain.ErrDailyCapExceeded.Error())
	case errors.Is(err, domain.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, domain.ErrActivityNotFound.Error())
	default:
		log.Printf("api: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
