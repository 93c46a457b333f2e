package deposits

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helix-dx/helix-erp/internal/platform/httpx"
	"github.com/helix-dx/helix-erp/internal/shared"
)

// Handler wires HTTP endpoints for deposits and the undeposited window.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers deposit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/branches/{branchID}/undeposited", h.undepositedWindow)
	r.Get("/deposits", h.listDeposits)
	r.Get("/deposits/{id}", h.getDeposit)
	r.Post("/deposits", h.createDeposit)
	r.Patch("/deposits/{id}/status", h.setStatus)
}

type createDepositRequest struct {
	BankAccountID      int64  `json:"bankAccountId" validate:"required,gt=0"`
	DepositAmountCents int64  `json:"depositAmountCents" validate:"required,gt=0"`
	DepositDate        string `json:"depositDate" validate:"required,datetime=2006-01-02"`
	SourceType         string `json:"sourceType" validate:"required,oneof=DAILY_CASH CUMULATIVE_CASH INVOICE_PAYMENTS OTHER"`
	Notes              string `json:"notes" validate:"max=2000"`
}

type depositStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING VERIFIED FLAGGED"`
	Notes  string `json:"notes" validate:"max=2000"`
}

type depositResponse struct {
	ID                    int64          `json:"id"`
	BranchID              int64          `json:"branchId"`
	BankAccountID         int64          `json:"bankAccountId"`
	DepositAmountCents    int64          `json:"depositAmountCents"`
	DepositDate           string         `json:"depositDate"`
	SourceType            SourceType     `json:"sourceType"`
	LinkedCashAmountCents int64          `json:"linkedCashAmountCents"`
	VarianceCents         int64          `json:"varianceCents"`
	Classification        Classification `json:"classification"`
	Status                Status         `json:"status"`
	Notes                 string         `json:"notes,omitempty"`
}

func toResponse(dep BankDeposit) depositResponse {
	return depositResponse{
		ID:                    dep.ID,
		BranchID:              dep.BranchID,
		BankAccountID:         dep.BankAccountID,
		DepositAmountCents:    dep.DepositAmountCents,
		DepositDate:           dep.DepositDate.Format("2006-01-02"),
		SourceType:            dep.SourceType,
		LinkedCashAmountCents: dep.LinkedCashAmountCents,
		VarianceCents:         dep.VarianceCents,
		Classification:        dep.Classification(),
		Status:                dep.Status,
		Notes:                 dep.Notes,
	}
}

func (h *Handler) undepositedWindow(w http.ResponseWriter, r *http.Request) {
	branchID, err := strconv.ParseInt(chi.URLParam(r, "branchID"), 10, 64)
	if err != nil || branchID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid branch id")
		return
	}
	window, err := h.service.UndepositedWindow(r.Context(), branchID, true)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, window)
}

func (h *Handler) createDeposit(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var req createDepositRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	depositDate, err := time.Parse("2006-01-02", req.DepositDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid deposit date")
		return
	}
	dep, err := h.service.Link(r.Context(), LinkInput{
		BranchID:           ident.BranchID,
		BankAccountID:      req.BankAccountID,
		DepositAmountCents: req.DepositAmountCents,
		DepositDate:        depositDate,
		SourceType:         SourceType(req.SourceType),
		Notes:              req.Notes,
		ActorID:            ident.UserID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(dep))
}

func (h *Handler) getDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid deposit id")
		return
	}
	dep, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(dep))
}

func (h *Handler) listDeposits(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.List(r.Context(), branchID, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := make([]depositResponse, 0, len(list))
	for _, dep := range list {
		resp = append(resp, toResponse(dep))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"deposits": resp})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid deposit id")
		return
	}
	var req depositStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dep, err := h.service.SetStatus(r.Context(), id, Status(req.Status), req.Notes, ident.UserID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": dep.Status})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("deposits handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
