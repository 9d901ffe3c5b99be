package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pangkas-pos/pangkas/internal/observability"
	"github.com/pangkas-pos/pangkas/internal/platform/httpx"
	"github.com/pangkas-pos/pangkas/internal/shared"
)

// Handler wires HTTP endpoints for the sales ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler constructs a sales handler.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		metrics:  metrics,
	}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
	r.Get("/invoice/{number}", h.ShowByInvoice)
	r.Get("/stats/today", h.TodayStats)
	r.Post("/{id}/cancel", h.Cancel)
}

type listResponse struct {
	Data       []Transaction     `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

// Create handles POST /sales.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.metrics.SaleRecorded("rejected")
		h.logError(r, "create sale", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.SaleRecorded("created")
	httpx.JSON(w, http.StatusCreated, created)
}

// Cancel handles POST /sales/{id}/cancel. Cancelling a non-completed
// transaction is a conflict with its current state, not an unprocessable
// payload, so ErrState maps to 409 here.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	cancelled, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrState) {
			httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
			return
		}
		h.logError(r, "cancel sale", err)
		httpx.RespondError(w, err)
		return
	}
	h.metrics.SaleRecorded("cancelled")
	httpx.JSON(w, http.StatusOK, cancelled)
}

// Show handles GET /sales/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logError(r, "get sale", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// ShowByInvoice handles GET /sales/invoice/{number}.
func (h *Handler) ShowByInvoice(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	t, err := h.service.GetByInvoice(r.Context(), number)
	if err != nil {
		h.logError(r, "get invoice", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

// List handles GET /sales with status/date/barber filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	transactions, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logError(r, "list sales", err)
		httpx.RespondError(w, err)
		return
	}
	if transactions == nil {
		transactions = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Data:       transactions,
		Pagination: shared.NewPagination(req.Page, req.PerPage, total),
	})
}

// TodayStats handles GET /sales/stats/today.
func (h *Handler) TodayStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.TodayStats(r.Context())
	if err != nil {
		h.logError(r, "today stats", err)
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

func parseListRequest(r *http.Request) (ListTransactionsRequest, error) {
	q := r.URL.Query()
	var req ListTransactionsRequest

	if v := q.Get("status"); v != "" {
		status := TransactionStatus(v)
		req.Status = &status
	}
	if v := q.Get("barber_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, errors.New("invalid barber_id")
		}
		req.BarberID = &id
	}
	if v := q.Get("date"); v != "" {
		var day time.Time
		if v == "today" {
			now := time.Now()
			day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		} else {
			parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
			if err != nil {
				return req, errors.New("invalid date, expected YYYY-MM-DD")
			}
			day = parsed
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		req.DateFrom, req.DateTo = &day, &end
	}
	if v := q.Get("start_date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return req, errors.New("invalid start_date, expected YYYY-MM-DD")
		}
		req.DateFrom = &parsed
	}
	if v := q.Get("end_date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return req, errors.New("invalid end_date, expected YYYY-MM-DD")
		}
		end := parsed.Add(24*time.Hour - time.Nanosecond)
		req.DateTo = &end
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
