package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/creditmesh/chitengine/internal/domain"
)

// AdminService defines the methods the admin handler requires from the
// service layer.
type AdminService interface {
	GrantRole(ctx context.Context, caller, account domain.Account, role domain.Role) error
	RevokeRole(ctx context.Context, caller, account domain.Account, role domain.Role) error
	SetAllowedProtocol(ctx context.Context, caller, protocol domain.Account, allowed bool) error
}

// AdminHandler serves role-management and protocol-allowlist endpoints.
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler with the given service and logger.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger,
	}
}

type roleRequest struct {
	Account string `json:"account"`
	Role    string `json:"role"`
}

func (h *AdminHandler) parseRole(w http.ResponseWriter, r *http.Request) (domain.Account, domain.Account, domain.Role, bool) {
	from, ok := caller(w, r)
	if !ok {
		return domain.Account{}, domain.Account{}, "", false
	}
	var req roleRequest
	if !decodeBody(w, r, &req) {
		return domain.Account{}, domain.Account{}, "", false
	}
	account, ok := parseAccountField(w, "account", req.Account)
	if !ok {
		return domain.Account{}, domain.Account{}, "", false
	}
	role := domain.Role(req.Role)
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid role")
		return domain.Account{}, domain.Account{}, "", false
	}
	return from, account, role, true
}

// GrantRole grants a role to an account.
// POST /api/admin/roles/grant
func (h *AdminHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	from, account, role, ok := h.parseRole(w, r)
	if !ok {
		return
	}
	if err := h.admin.GrantRole(r.Context(), from, account, role); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

// RevokeRole removes a role from an account.
// POST /api/admin/roles/revoke
func (h *AdminHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	from, account, role, ok := h.parseRole(w, r)
	if !ok {
		return
	}
	if err := h.admin.RevokeRole(r.Context(), from, account, role); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type protocolRequest struct {
	Protocol string `json:"protocol"`
	Allowed  bool   `json:"allowed"`
}

// SetProtocol toggles a protocol address on the integration allowlist.
// PUT /api/admin/protocols
func (h *AdminHandler) SetProtocol(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req protocolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	protocol, ok := parseAccountField(w, "protocol", req.Protocol)
	if !ok {
		return
	}

	if err := h.admin.SetAllowedProtocol(r.Context(), from, protocol, req.Allowed); err != nil {
		writeEngineError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
