package payroll

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pangkas-pos/pangkas/internal/observability"
	"github.com/pangkas-pos/pangkas/internal/platform/httpx"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// Handler wires HTTP endpoints for payroll.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler constructs a payroll handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/generate", h.Generate)
	r.Get("/", h.List)
	r.Get("/stats", h.Statistics)
	r.Get("/years", h.AvailableYears)
	r.Get("/{id}", h.Show)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/approve", h.Approve)
	r.Post("/{id}/pay", h.MarkPaid)
	r.Delete("/{id}", h.Delete)
}

type listResponse struct {
	Data       []Slip            `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

type duplicateResponse struct {
	Message string `json:"message"`
	Slip    *Slip  `json:"slip"`
}

// Generate handles POST /payroll/generate. A period that already has a slip
// answers 422 carrying the existing slip, matching what payroll operators
// expect to see.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	slip, err := h.service.Generate(r.Context(), req)
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			if existing, findErr := h.service.FindByPeriod(r.Context(), req.BarberID, req.Year, req.Month); findErr == nil {
				httpx.JSON(w, http.StatusUnprocessableEntity, duplicateResponse{
					Message: "slip for this period already exists",
					Slip:    existing,
				})
				return
			}
		}
		h.logError(r, "generate slip", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PayrollTransition("generate")
	httpx.JSON(w, http.StatusCreated, slip)
}

// Update handles PUT /payroll/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid slip id")
		return
	}
	var req UpdateSlipRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	slip, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logError(r, "update slip", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PayrollTransition("update")
	httpx.JSON(w, http.StatusOK, slip)
}

// Approve handles POST /payroll/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid slip id")
		return
	}
	slip, err := h.service.Approve(r.Context(), id)
	if err != nil {
		h.logError(r, "approve slip", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PayrollTransition("approve")
	httpx.JSON(w, http.StatusOK, slip)
}

// MarkPaid handles POST /payroll/{id}/pay.
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid slip id")
		return
	}
	var req MarkPaidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	slip, err := h.service.MarkPaid(r.Context(), id, req.PaidBy)
	if err != nil {
		h.logError(r, "pay slip", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PayrollTransition("pay")
	httpx.JSON(w, http.StatusOK, slip)
}

// Delete handles DELETE /payroll/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid slip id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logError(r, "delete slip", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.PayrollTransition("delete")
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "slip deleted"})
}

// Show handles GET /payroll/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid slip id")
		return
	}
	slip, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logError(r, "get slip", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, slip)
}

// List handles GET /payroll with barber/year/month/status filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	slips, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logError(r, "list slips", err)
		httpx.RespondError(w, err)
		return
	}
	if slips == nil {
		slips = []Slip{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       slips,
		Pagination: shared.NewPagination(req.Page, req.PerPage, total),
	})
}

// Statistics handles GET /payroll/stats.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var barberID *int64
	if v := q.Get("barber_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid barber_id")
			return
		}
		barberID = &id
	}
	year := 0
	if v := q.Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid year")
			return
		}
		year = y
	}

	stats, err := h.service.Statistics(r.Context(), barberID, year)
	if err != nil {
		h.logError(r, "payroll stats", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// AvailableYears handles GET /payroll/years.
func (h *Handler) AvailableYears(w http.ResponseWriter, r *http.Request) {
	years, err := h.service.AvailableYears(r.Context())
	if err != nil {
		h.logError(r, "payroll years", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, years)
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

func parseListRequest(r *http.Request) (ListSlipsRequest, error) {
	q := r.URL.Query()
	var req ListSlipsRequest

	if v := q.Get("barber_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, errors.New("invalid barber_id")
		}
		req.BarberID = &id
	}
	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return req, errors.New("invalid year")
		}
		req.Year = &year
	}
	if v := q.Get("month"); v != "" {
		month, err := strconv.Atoi(v)
		if err != nil || month < 1 || month > 12 {
			return req, errors.New("invalid month")
		}
		req.Month = &month
	}
	if v := q.Get("status"); v != "" {
		status := SlipStatus(v)
		if !status.Valid() {
			return req, errors.New("invalid status")
		}
		req.Status = &status
	}
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
