package commands

import (
	"context"
	"database/sql"
	"strings"

	"auscultify/internal/database"
	contextutils "auscultify/internal/utils"

	"github.com/spf13/cobra"
)

// tables reported by `adm db stats`, parents first
var statsTables = []string{
	"CriterioAlgoritmo",
	"Usuarios",
	"Categorias",
	"Preguntas",
	"Usuarios_has_Preguntas",
	"Usuarios_Seguidores",
}

// DatabaseCommands returns the database management commands
func DatabaseCommands(env *Env) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands.

Available commands:
  stats    - Row counts per table
  migrate  - Apply pending schema migrations
  reset    - Drop every table and recreate the schema`,
	}

	dbCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show row counts per table",
		Args:  cobra.NoArgs,
		RunE:  runStats(env),
	})
	dbCmd.AddCommand(&cobra.Command{
		Use:         "migrate",
		Short:       "Apply pending schema migrations",
		Long:        `Apply the migrations embedded in the binary and print the resulting schema version.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{AnnotationNoDatabase: "true"},
		RunE:        runMigrate(env),
	})

	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every table and recreate the schema",
		Long: `Roll back every migration and apply them again. All users, questions, answer history
and follow edges are deleted; audio files on disk are left alone.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{AnnotationNoDatabase: "true"},
		RunE:        runReset(env, &yes),
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	dbCmd.AddCommand(resetCmd)

	return dbCmd
}

func runStats(env *Env) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		db := env.Container.GetDatabase()

		env.printf("%s\n\n", databaseInfo(ctx, db))
		for _, table := range statsTables {
			var n int64
			// table names come from the fixed list above
			if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
				return database.ClassifyError(err, "failed to count "+table)
			}
			env.printf("%-24s %d\n", table, n)
		}
		return nil
	}
}

func runMigrate(env *Env) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dsn := env.Config.Database.DSN()
		manager := database.NewManager(env.Logger)

		if err := manager.RunMigrations(ctx, dsn); err != nil {
			return contextutils.WrapError(err, "failed to run migrations")
		}
		version, dirty, err := manager.MigrationVersion(dsn)
		if err != nil {
			return contextutils.WrapError(err, "failed to read schema version")
		}
		env.printf("Schema at version %d (dirty=%t) on %s\n", version, dirty, contextutils.MaskDatabaseURL(dsn))
		return nil
	}
}

func runReset(env *Env, yes *bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		dsn := env.Config.Database.DSN()

		if !*yes {
			env.printf("This permanently deletes all data in %s\n", contextutils.MaskDatabaseURL(dsn))
			answer, err := env.ReadLine("Type 'yes' to continue: ")
			if err != nil {
				return contextutils.WrapError(err, "failed to read confirmation")
			}
			if strings.ToLower(strings.TrimSpace(answer)) != "yes" {
				env.printf("Reset cancelled\n")
				return nil
			}
		}

		if err := database.NewManager(env.Logger).ResetSchema(ctx, dsn); err != nil {
			return contextutils.WrapError(err, "failed to reset database")
		}
		env.printf("Database reset; run `adm manifest rebuild` to clear the manifests\n")
		return nil
	}
}

// databaseInfo describes the connection for the stats header
func databaseInfo(ctx context.Context, db *sql.DB) string {
	if db == nil {
		return "Not connected"
	}

	var name sql.NullString
	if err := db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&name); err != nil || !name.Valid {
		return "Connected (unknown database)"
	}
	return "Connected to " + name.String
}
