package approval

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helix-dx/helix-erp/internal/observability"
	"github.com/helix-dx/helix-erp/internal/platform/httpx"
	"github.com/helix-dx/helix-erp/internal/policy"
	"github.com/helix-dx/helix-erp/internal/shared"
)

// Handler wires HTTP endpoints for approval records.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	metrics   *observability.Metrics
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		metrics:   metrics,
	}
}

// MountRoutes registers approval routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/records", h.listRecords)
	r.Get("/records/{id}", h.getRecord)
	r.Post("/records", h.createRecord)
	r.Post("/records/{id}/approve", h.approveRecord)
	r.Post("/records/{id}/reject", h.rejectRecord)
	r.Patch("/records/{id}", h.editRecord)
}

type createRecordRequest struct {
	Kind        string           `json:"kind" validate:"required,oneof=PURCHASE_ORDER DAILY_SUMMARY"`
	AmountCents int64            `json:"amountCents" validate:"required,gt=0"`
	Breakdown   map[string]int64 `json:"breakdown"`
	Description string           `json:"description" validate:"max=2000"`
}

type decisionRequest struct {
	Comments string `json:"comments" validate:"max=2000"`
	Reason   string `json:"reason" validate:"max=2000"`
}

type editRecordRequest struct {
	AmountCents int64            `json:"amountCents" validate:"required,gt=0"`
	Breakdown   map[string]int64 `json:"breakdown"`
	Description string           `json:"description" validate:"max=2000"`
}

type recordResponse struct {
	ID               int64            `json:"id"`
	Kind             RecordKind       `json:"kind"`
	BranchID         int64            `json:"branchId"`
	AmountCents      int64            `json:"amountCents"`
	Breakdown        map[string]int64 `json:"breakdown,omitempty"`
	Description      string           `json:"description,omitempty"`
	Status           RecordStatus     `json:"status"`
	RequiredLevel    int              `json:"requiredApprovalLevel"`
	RequiredTitle    string           `json:"requiredApprovalTitle"`
	SubmittedBy      int64            `json:"submittedBy"`
	SubmittedAt      time.Time        `json:"submittedAt"`
	DecidedBy        *int64           `json:"decidedBy,omitempty"`
	DecidedAt        *time.Time       `json:"decidedAt,omitempty"`
	DecisionComments string           `json:"decisionComments,omitempty"`
	IsLocked         bool             `json:"isLocked"`
}

func toResponse(rec Record) recordResponse {
	return recordResponse{
		ID:               rec.ID,
		Kind:             rec.Kind,
		BranchID:         rec.BranchID,
		AmountCents:      rec.AmountCents,
		Breakdown:        rec.Breakdown,
		Description:      rec.Description,
		Status:           rec.Status,
		RequiredLevel:    int(rec.RequiredLevel),
		RequiredTitle:    rec.RequiredLevel.Title(),
		SubmittedBy:      rec.SubmittedBy,
		SubmittedAt:      rec.SubmittedAt,
		DecidedBy:        rec.DecidedBy,
		DecidedAt:        rec.DecidedAt,
		DecisionComments: rec.DecisionComments,
		IsLocked:         rec.IsLocked,
	}
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var req createRecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Submit(r.Context(), SubmitInput{
		Kind:        RecordKind(req.Kind),
		BranchID:    ident.BranchID,
		TenantID:    ident.TenantID,
		AmountCents: req.AmountCents,
		Breakdown:   req.Breakdown,
		Description: req.Description,
		ActorID:     ident.UserID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(rec))
}

func (h *Handler) approveRecord(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid record id")
		return
	}
	// Comments are optional; an empty body is fine.
	var req decisionRequest
	_ = httpx.DecodeJSON(r, &req)
	rec, err := h.service.Approve(r.Context(), id, ident.UserID, policy.Level(ident.ApprovalLevel), req.Comments)
	if err != nil {
		h.countFailedDecision(err)
		h.respondError(w, err)
		return
	}
	h.metrics.CountDecision("approved")
	httpx.JSON(w, http.StatusOK, map[string]any{"status": rec.Status, "isLocked": rec.IsLocked})
}

func (h *Handler) rejectRecord(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid record id")
		return
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	rec, err := h.service.Reject(r.Context(), id, ident.UserID, req.Reason)
	if err != nil {
		h.countFailedDecision(err)
		h.respondError(w, err)
		return
	}
	h.metrics.CountDecision("rejected")
	httpx.JSON(w, http.StatusOK, map[string]any{"status": rec.Status, "isLocked": rec.IsLocked})
}

func (h *Handler) editRecord(w http.ResponseWriter, r *http.Request) {
	ident := shared.IdentityFromContext(r.Context())
	if ident == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid record id")
		return
	}
	var req editRecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Edit(r.Context(), id, EditInput{
		AmountCents: req.AmountCents,
		Breakdown:   req.Breakdown,
		Description: req.Description,
		ActorID:     ident.UserID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(rec))
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid record id")
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	history, err := h.service.History(r.Context(), id)
	if err != nil {
		h.logger.Warn("load approval history", slog.Int64("record_id", id), slog.Any("error", err))
	}
	resp := struct {
		recordResponse
		History []historyEntry `json:"history,omitempty"`
	}{recordResponse: toResponse(rec)}
	for _, entry := range history {
		resp.History = append(resp.History, historyEntry{
			Action:  string(entry.Action),
			ActorID: entry.ActorID,
			Note:    entry.Note,
			At:      entry.At,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

type historyEntry struct {
	Action  string    `json:"action"`
	ActorID int64     `json:"actorId"`
	Note    string    `json:"note,omitempty"`
	At      time.Time `json:"at"`
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request) {
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	filter := ListFilter{
		BranchID: branchID,
		Status:   RecordStatus(r.URL.Query().Get("status")),
		Kind:     RecordKind(r.URL.Query().Get("kind")),
	}
	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toResponse(rec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"records": resp})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInsufficientAuthority):
		httpx.Problem(w, http.StatusForbidden, "Insufficient Authority", err.Error())
	case errors.Is(err, ErrAlreadyDecided):
		httpx.Problem(w, http.StatusConflict, "Already Decided", err.Error())
	case errors.Is(err, ErrRecordLocked):
		httpx.Problem(w, http.StatusConflict, "Record Locked", err.Error())
	case errors.Is(err, ErrRecordTerminal):
		httpx.Problem(w, http.StatusConflict, "Record Terminal", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	default:
		h.logger.Error("approval handler", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) countFailedDecision(err error) {
	switch {
	case errors.Is(err, ErrInsufficientAuthority):
		h.metrics.CountDecision("denied")
	case errors.Is(err, ErrAlreadyDecided):
		h.metrics.CountDecision("conflict")
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
