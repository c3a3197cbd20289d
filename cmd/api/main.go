package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/medstaff-api/internal/config"
	"github.com/jwalitptl/medstaff-api/internal/email"
	"github.com/jwalitptl/medstaff-api/internal/repository"
	"github.com/jwalitptl/medstaff-api/internal/repository/postgres"
	authService "github.com/jwalitptl/medstaff-api/internal/service/auth"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	"github.com/jwalitptl/medstaff-api/pkg/logger"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
	"github.com/jwalitptl/medstaff-api/pkg/security"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "medstaff-api",
		Short:        "Medstaff admin panel API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return cfg, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := postgres.NewDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			status, err := postgres.MigrateUp(db)
			if err != nil {
				return err
			}
			if status.Changed {
				fmt.Printf("Migrated to version %d.\n", status.Version)
			} else {
				fmt.Printf("Schema is up to date at version %d.\n", status.Version)
			}
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := postgres.NewDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			status, err := postgres.MigrationVersion(db)
			if err != nil {
				return err
			}
			fmt.Printf("%-10s %s\n", "VERSION", "DIRTY")
			fmt.Printf("%-10d %t\n", status.Version, status.Dirty)
			return nil
		},
	})

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an administrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("email")
			name, _ := cmd.Flags().GetString("name")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")
			if addr == "" || name == "" || password == "" {
				return fmt.Errorf("--email, --name and --password are required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := postgres.NewDB(ctx, cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			svc, err := newAuthService(cfg, postgres.NewAdminRepository(db, nil),
				postgres.NewClinicRepository(db, nil, postgres.Options{}), metrics.NewNop())
			if err != nil {
				return err
			}
			admin, err := svc.CreateAdmin(ctx, addr, name, password, role)
			if err != nil {
				return err
			}
			fmt.Printf("Created admin %d (%s, role %s).\n", admin.ID, admin.Email, admin.Role)
			return nil
		},
	}
	createCmd.Flags().String("email", "", "Admin e-mail (login)")
	createCmd.Flags().String("name", "", "Full name")
	createCmd.Flags().String("password", "", "Initial password")
	createCmd.Flags().String("role", "admin", "Staff role recorded on the account")

	cmd.AddCommand(createCmd)
	return cmd
}

func newHasher(cfg *config.Config) security.PasswordHasher {
	cost := cfg.Security.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return security.NewBcryptHasher(cost)
}

func newAuthService(cfg *config.Config, admins repository.AdminRepository, clinics repository.ClinicRepository, m *metrics.Metrics) (*authService.Service, error) {
	tokens, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init token service: %w", err)
	}
	return authService.NewService(admins, clinics, newHasher(cfg), tokens, email.NewService(cfg.SMTP, m), m,
		authService.Config{AdminTTL: cfg.JWT.AdminTTL, ClinicTTL: cfg.JWT.ClinicTTL}), nil
}
