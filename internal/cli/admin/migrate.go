package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/supporthub/internal/config"
	"github.com/cloo-solutions/supporthub/internal/database"
)

// MigrateCmd returns the migrate command group.
func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.PersistentFlags().String("dir", "", "Migrations directory (overrides SUPPORTHUB_MIGRATIONS_DIR)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, dir, err := migrationConfig(cmd)
			if err != nil {
				return err
			}
			st, err := database.MigrateUp(cfg.DatabaseURL, dir)
			if err != nil {
				return err
			}
			printStatus(cmd, st)
			return nil
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			cfg, dir, err := migrationConfig(cmd)
			if err != nil {
				return err
			}
			st, err := database.MigrateDown(cfg.DatabaseURL, dir, steps)
			if err != nil {
				return err
			}
			printStatus(cmd, st)
			return nil
		},
	}
	down.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

func migrationConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	dir := cfg.MigrationsDir
	if flagDir, _ := cmd.Flags().GetString("dir"); flagDir != "" {
		dir = flagDir
	}
	return cfg, dir, nil
}

func printStatus(cmd *cobra.Command, st *database.MigrationStatus) {
	if !st.Applied {
		fmt.Fprintf(cmd.OutOrStdout(), "No change, schema at version %d\n", st.Version)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema now at version %d\n", st.Version)
}
