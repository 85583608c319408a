package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ira/internal/config"
	"ira/internal/db"
	"ira/internal/logging"
)

func newMigrateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, flags, func(cfg config.Config) error {
					conn, err := db.Open(cmd.Context(), cfg.DBDSN)
					if err != nil {
						return err
					}
					defer conn.Close()
					if err := db.RunMigrations(cmd.Context(), conn); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print migration status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd, flags, func(cfg config.Config) error {
					conn, err := db.Open(cmd.Context(), cfg.DBDSN)
					if err != nil {
						return err
					}
					defer conn.Close()
					return db.MigrationStatus(cmd.Context(), conn)
				})
			},
		},
	)
	return cmd
}

func newSeedCmd(flags *globalFlags) *cobra.Command {
	var usersPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users from a YAML file, skipping existing emails",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, flags, func(cfg config.Config) error {
				path := usersPath
				if path == "" {
					path = cfg.UsersPath
				}
				if path == "" {
					return errors.New("no users file: pass --users or set users_path")
				}
				logger := logging.New(cfg.LogLevel, cfg.LogFormat)
				be, err := openBackend(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer be.close()
				n, err := newAuthService(cfg, be.users).SeedFromFile(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d user(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&usersPath, "users", "", "users YAML file (default: users_path from config)")
	return cmd
}

// withDB loads config and insists on postgres storage.
func withDB(cmd *cobra.Command, flags *globalFlags, fn func(config.Config) error) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if cfg.Storage != config.StoragePostgres {
		return fmt.Errorf("%s requires postgres storage, got %q", cmd.CommandPath(), cfg.Storage)
	}
	return fn(cfg)
}
