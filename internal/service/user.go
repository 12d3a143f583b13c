package service

import (
	"context"
	"log/slog"

	"github.com/tickerdeck/tickerdeck/internal/domain"
)

// UserService provisions user rows from identity-provider webhooks.
// Provisioning is optional: the subscription service lazily creates rows
// on first request, so a missed webhook costs nothing.
type UserService struct {
	store  domain.UserStore
	logger *slog.Logger
}

var _ domain.UserProvisioner = (*UserService)(nil)

func NewUserService(store domain.UserStore, logger *slog.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

func (s *UserService) Provision(ctx context.Context, id, email, firstName, lastName string) (*domain.User, error) {
	if id == "" {
		return nil, domain.Errorf(domain.EINVALID, "", "user id is required")
	}

	user, err := s.store.Ensure(ctx, id, email, firstName, lastName)
	if err != nil {
		return nil, domain.WrapOp(err, "UserService.Provision")
	}

	s.logger.Info("user provisioned", "user_id", id)
	return user, nil
}
