package shared

import (
	"context"
	"net/http"
	"strconv"
)

// Identity carries the caller attributes resolved by the upstream auth gateway.
// This service never authenticates; it trusts the forwarded headers.
type Identity struct {
	UserID        int64
	TenantID      int64
	BranchID      int64
	ApprovalLevel int
}

// Header names populated by the gateway.
const (
	HeaderUserID        = "X-User-ID"
	HeaderTenantID      = "X-Tenant-ID"
	HeaderBranchID      = "X-Branch-ID"
	HeaderApprovalLevel = "X-Approval-Level"
)

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// IdentityFromRequest parses gateway headers into an Identity.
// Returns nil when no user header is present.
func IdentityFromRequest(r *http.Request) *Identity {
	userID, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
	if err != nil || userID == 0 {
		return nil
	}
	tenantID, _ := strconv.ParseInt(r.Header.Get(HeaderTenantID), 10, 64)
	branchID, _ := strconv.ParseInt(r.Header.Get(HeaderBranchID), 10, 64)
	level, _ := strconv.Atoi(r.Header.Get(HeaderApprovalLevel))
	return &Identity{UserID: userID, TenantID: tenantID, BranchID: branchID, ApprovalLevel: level}
}
