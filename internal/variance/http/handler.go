package variancehttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helix-dx/helix-erp/internal/platform/httpx"
	"github.com/helix-dx/helix-erp/internal/variance"
)

// Handler wires the reconciliation-report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *variance.Service
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *variance.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/branches/{branchID}/variance", h.summary)
}

// summary serves the MTD, YTD, or custom-range reconciliation summary.
// Identical in-flight requests are coalesced so a dashboard refresh storm
// hits the store at most once per key.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	branchID, err := strconv.ParseInt(chi.URLParam(r, "branchID"), 10, 64)
	if err != nil || branchID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid branch", "branch id must be a positive integer")
		return
	}

	window := r.URL.Query().Get("window")
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")

	var key string
	var load func(ctx context.Context) (interface{}, error)
	switch {
	case window == "mtd" || (window == "" && from == "" && to == ""):
		key = fmt.Sprintf("mtd:%d", branchID)
		load = func(ctx context.Context) (interface{}, error) {
			return h.service.MonthToDate(ctx, branchID)
		}
	case window == "ytd":
		key = fmt.Sprintf("ytd:%d", branchID)
		load = func(ctx context.Context) (interface{}, error) {
			return h.service.YearToDate(ctx, branchID)
		}
	case window == "" && from != "" && to != "":
		fromDate, err := time.Parse("2006-01-02", from)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid period", "from must be YYYY-MM-DD")
			return
		}
		toDate, err := time.Parse("2006-01-02", to)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid period", "to must be YYYY-MM-DD")
			return
		}
		key = fmt.Sprintf("custom:%d:%s:%s", branchID, from, to)
		load = func(ctx context.Context) (interface{}, error) {
			return h.service.Summary(ctx, variance.PeriodInput{BranchID: branchID, From: fromDate, To: toDate})
		}
	default:
		httpx.Problem(w, http.StatusBadRequest, "Invalid window", "use window=mtd|ytd or from/to bounds")
		return
	}

	result, err, _ := singleflightSummary(r.Context(), key, load)
	if err != nil {
		if errors.Is(err, variance.ErrValidation) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid period", err.Error())
			return
		}
		h.logger.Error("variance summary", slog.Int64("branch_id", branchID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Report failed", "could not compute variance summary")
		return
	}
	summary, ok := result.(variance.Summary)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Report failed", "could not compute variance summary")
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
