package db

import (
	"github.com/chainapsis/oko-sub000/internal/config"
	"github.com/chainapsis/oko-sub000/internal/persistence"
	"github.com/rs/zerolog/log"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

func newMigrate() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Applies all pending database migrations",
		Run: func(_ *cobra.Command, _ []string) {
			applied, err := applyMigrations(dir)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to apply migrations")
			}
			log.Info().Int("applied", applied).Msg("Migrations applied")
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "migrations", "Directory containing migration files")

	return cmd
}

func applyMigrations(dir string) (int, error) {
	cfg := config.DefaultServiceConfigFromEnv()

	db, err := persistence.NewDB(cfg.Database)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	source := migrate.FileMigrationSource{Dir: dir}
	return migrate.Exec(db, "postgres", source, migrate.Up)
}
