package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/helix-dx/helix-erp/internal/approval"
	audithttp "github.com/helix-dx/helix-erp/internal/audit/http"
	"github.com/helix-dx/helix-erp/internal/deposits"
	"github.com/helix-dx/helix-erp/internal/ledger"
	"github.com/helix-dx/helix-erp/internal/observability"
	variancehttp "github.com/helix-dx/helix-erp/internal/variance/http"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	ApprovalHandler *approval.Handler
	LedgerHandler   *ledger.Handler
	DepositHandler  *deposits.Handler
	VarianceHandler *variancehttp.Handler
	AuditHandler    *audithttp.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Helix defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/finance", func(r chi.Router) {
		if params.ApprovalHandler != nil {
			params.ApprovalHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.DepositHandler != nil {
			params.DepositHandler.MountRoutes(r)
		}
		if params.VarianceHandler != nil {
			params.VarianceHandler.MountRoutes(r)
		}
		if params.AuditHandler != nil {
			params.AuditHandler.MountRoutes(r)
		}
	})

	return r
}
