package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Gradiiai/gradii-sub007/config"
	"github.com/Gradiiai/gradii-sub007/internal/domain"
	"github.com/Gradiiai/gradii-sub007/internal/repository/postgres"
	"github.com/Gradiiai/gradii-sub007/pkg/auth"
	"github.com/Gradiiai/gradii-sub007/pkg/logger"
)

func superAdminCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "superadmin",
		Short: "Manages platform super admins",
	}
	cmd.AddCommand(superAdminCreateCommand(cfg))
	return cmd
}

func superAdminCreateCommand(cfg *config.Config) *cobra.Command {
	var (
		email    string
		name     string
		password string
		withTOTP bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Creates a super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || name == "" {
				return errors.New("--email and --name are required")
			}

			generated := password == ""
			if generated {
				var err error
				if password, err = auth.RandomPassword(20); err != nil {
					return fmt.Errorf("could not generate password: %w", err)
				}
			}
			if len(password) < 12 {
				return errors.New("super admin passwords must be at least 12 characters")
			}

			pool, closePool := getPostgres(ctx, cfg)
			defer closePool()
			users := postgres.NewUserRepository(pool)

			if _, err := users.GetByEmail(ctx, email); err == nil {
				return fmt.Errorf("a user with email %s already exists", email)
			} else if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("could not look up user: %w", err)
			}

			hash, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost).Hash(password)
			if err != nil {
				return fmt.Errorf("could not hash password: %w", err)
			}

			now := time.Now().UTC()
			user := &domain.User{
				ID:           uuid.New(),
				Email:        email,
				Name:         name,
				Role:         domain.RoleSuperAdmin,
				PasswordHash: hash,
				CreatedAt:    now,
				UpdatedAt:    now,
			}

			var provisioningURL string
			if withTOTP {
				secret, url, err := auth.NewTOTP(cfg.Auth.TOTPIssuer).Generate(email)
				if err != nil {
					return fmt.Errorf("could not generate TOTP secret: %w", err)
				}
				user.TOTPSecret = secret
				user.TOTPEnabled = true
				provisioningURL = url
			}

			if err := users.Create(ctx, user); err != nil {
				return fmt.Errorf("could not create super admin: %w", err)
			}
			logger.Info(ctx, "super admin created", zap.Stringer("user_id", user.ID), zap.Bool("totp", withTOTP))

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Super admin %s created (id %s)\n", email, user.ID)
			if generated {
				fmt.Fprintf(out, "Password: %s\n", password)
			}
			if provisioningURL != "" {
				fmt.Fprintf(out, "TOTP provisioning URL: %s\n", provisioningURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (generated when empty)")
	cmd.Flags().BoolVar(&withTOTP, "totp", true, "Require a TOTP code at login")

	return cmd
}
