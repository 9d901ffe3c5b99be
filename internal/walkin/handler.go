package walkin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pangkas-pos/pangkas/internal/platform/httpx"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// Handler wires HTTP endpoints for the walk-in queue.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a walk-in handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers walk-in queue routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Register)
	r.Get("/", h.List)
	r.Get("/active", h.Active)
	r.Get("/stats/today", h.TodayStats)
	r.Get("/{id}", h.Show)
	r.Post("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/call", h.Call)
}

type listResponse struct {
	Data       []Entry           `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

// Register handles POST /walkin.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.logError(r, "register queue entry", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

// UpdateStatus handles POST /walkin/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	entry, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logError(r, "update queue status", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// Call handles POST /walkin/{id}/call.
func (h *Handler) Call(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Call(r.Context(), id)
	if err != nil {
		h.logError(r, "call queue entry", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// Show handles GET /walkin/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logError(r, "get queue entry", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

// List handles GET /walkin. Without a date filter it shows today's entries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logError(r, "list queue", err)
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       entries,
		Pagination: shared.NewPagination(req.Page, req.PerPage, total),
	})
}

// Active handles GET /walkin/active.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Active(r.Context())
	if err != nil {
		h.logError(r, "active queue", err)
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

// TodayStats handles GET /walkin/stats/today.
func (h *Handler) TodayStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.TodayStats(r.Context())
	if err != nil {
		h.logError(r, "queue stats", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) logError(r *http.Request, op string, err error) {
	if h.logger == nil {
		return
	}
	h.logger.Error(op,
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func parseListRequest(r *http.Request) (ListRequest, error) {
	q := r.URL.Query()
	var req ListRequest

	if v := q.Get("status"); v != "" {
		status := Status(v)
		if !status.Valid() {
			return req, errors.New("invalid status")
		}
		req.Status = &status
	}
	if v := q.Get("barber_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, errors.New("invalid barber_id")
		}
		req.BarberID = &id
	}

	date := q.Get("date")
	if date == "" {
		date = "today"
	}
	var day time.Time
	if date == "today" {
		now := time.Now()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	} else {
		parsed, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return req, errors.New("invalid date, expected YYYY-MM-DD")
		}
		day = parsed
	}
	end := day.Add(24*time.Hour - time.Nanosecond)
	req.DateFrom, req.DateTo = &day, &end

	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return req, errors.New("invalid page")
		}
		req.Page = page
	}
	if v := q.Get("per_page"); v != "" {
		perPage, err := strconv.Atoi(v)
		if err != nil || perPage < 1 || perPage > 100 {
			return req, errors.New("invalid per_page")
		}
		req.PerPage = perPage
	}
	return req, nil
}
