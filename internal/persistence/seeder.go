package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

var defaultCategories = []string{
	"Billing",
	"Technical Support",
	"Account",
	"Feedback",
}

// Seed bootstraps the super-admin user and default categories. Idempotent:
// existing rows are left alone.
func Seed(ctx context.Context, cfg config.Config, users repository.UserRepository, categories repository.CategoryRepository, logger *zap.Logger) error {
	if !cfg.Seed.Enabled {
		return nil
	}

	if err := seedAdmin(ctx, cfg, users, logger); err != nil {
		return err
	}
	return seedCategories(ctx, categories, logger)
}

func seedAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, logger *zap.Logger) error {
	_, err := users.GetByEmail(ctx, cfg.Seed.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.Seed.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	first, last := splitName(cfg.Seed.AdminName)
	admin := &domain.User{
		FirstName:    first,
		LastName:     last,
		Email:        cfg.Seed.AdminEmail,
		PasswordHash: hash,
		Role:         domain.RoleSuperAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Info("seeded super-admin user", zap.String("email", admin.Email))
	return nil
}

func seedCategories(ctx context.Context, categories repository.CategoryRepository, logger *zap.Logger) error {
	for _, name := range defaultCategories {
		exists, err := categories.ExistsByName(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := categories.Create(ctx, &domain.TicketCategory{Name: name}); err != nil {
			return err
		}
		logger.Info("seeded ticket category", zap.String("name", name))
	}
	return nil
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "Admin", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
