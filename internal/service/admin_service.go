package service

import (
	"context"
	"log/slog"

	"github.com/creditmesh/chitengine/internal/domain"
)

// AdminService handles role administration and the protocol allowlist.
type AdminService struct {
	core   *Core
	logger *slog.Logger
}

// NewAdminService creates an AdminService over the shared core.
func NewAdminService(core *Core, logger *slog.Logger) *AdminService {
	return &AdminService{
		core:   core,
		logger: logger.With(slog.String("component", "admin_service")),
	}
}

// GrantRole grants role to account. Admin capability required.
func (s *AdminService) GrantRole(ctx context.Context, caller, account domain.Account, role domain.Role) error {
	err := s.core.apply(ctx, nil, func(domain.Timestamp) error {
		return s.core.engine.Gate().GrantRole(caller, account, role)
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "role granted",
		slog.String("account", account.Hex()),
		slog.String("role", string(role)),
	)
	return nil
}

// RevokeRole revokes role from account. Admin capability required.
func (s *AdminService) RevokeRole(ctx context.Context, caller, account domain.Account, role domain.Role) error {
	return s.core.apply(ctx, nil, func(domain.Timestamp) error {
		return s.core.engine.Gate().RevokeRole(caller, account, role)
	})
}

// SetAllowedProtocol toggles a protocol allowlist entry. Admin
// capability required.
func (s *AdminService) SetAllowedProtocol(ctx context.Context, caller, protocol domain.Account, allowed bool) error {
	return s.core.apply(ctx, nil, func(domain.Timestamp) error {
		return s.core.engine.Gate().SetAllowedProtocol(caller, protocol, allowed)
	})
}
