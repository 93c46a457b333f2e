package ledger

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

// Handler wires HTTP endpoints for cash transaction intake.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions", h.createTransaction)
	r.Patch("/transactions/{id}/verification", h.setVerification)
}

type createTransactionRequest struct {
	BusinessDate  string `json:"businessDate" validate:"required,datetime=2006-01-02"`
	AmountCents   int64  `json:"amountCents" validate:"required,gt=0"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=CASH POS TRANSFER"`
	Reference     string `json:"reference" validate:"max=200"`
}

type verificationRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING VERIFIED FLAGGED"`
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var req createTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	businessDate, err := time.Parse("2006-01-02", req.BusinessDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid business date")
		return
	}
	tx, err := h.service.Record(r.Context(), RecordInput{
		BranchID:      ident.BranchID,
		BusinessDate:  businessDate,
		AmountCents:   req.AmountCents,
		PaymentMethod: PaymentMethod(req.PaymentMethod),
		Reference:     req.Reference,
		ActorID:       ident.UserID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":                 tx.ID,
		"businessDate":       tx.BusinessDate.Format("2006-01-02"),
		"amountCents":        tx.AmountCents,
		"verificationStatus": tx.VerificationStatus,
	})
}

func (h *Handler) setVerification(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transaction id")
		return
	}
	var req verificationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetVerification(r.Context(), id, VerificationStatus(req.Status), ident.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": req.Status})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidRange):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrDuplicateReference):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("ledger handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
