package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/ledgerdesk/backend/internal/infrastructure/config"
	"github.com/ledgerdesk/backend/internal/infrastructure/logger"
	"github.com/ledgerdesk/backend/internal/infrastructure/migration"
	"github.com/ledgerdesk/backend/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Apply and author Postgres schema migrations",
		Long: `migrate applies the schema embedded in the binary to the Postgres database
configured through config.toml or LEDGER_DATABASE_* variables.

Use --path to work on a migrations directory instead, for example when
authoring a new migration.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("path", "", "Migrations directory (default: embedded schema)")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		migratorCmd("up", "Apply all pending migrations", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Up() }),
		migratorCmd("down", "Roll back every migration", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		migratorCmd("step N", "Apply N migrations, or roll back with a negative N", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		migratorCmd("force VERSION", "Record VERSION as applied without running it", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		newVersionCmd(),
		newCreateCmd(),
		newListCmd(),
	)
	return root
}

func cliLogger(cmd *cobra.Command) (*zap.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
}

func source(cmd *cobra.Command) fs.FS {
	if dir, _ := cmd.Flags().GetString("path"); dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

// migratorCmd builds a command that needs a live Postgres connection
func migratorCmd(use, short string, args cobra.PositionalArgs, run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migration.Migrator) error { return run(m, args) })
		},
	}
}

func withMigrator(cmd *cobra.Command, fn func(*migration.Migrator) error) error {
	log, err := cliLogger(cmd)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return fmt.Errorf("database.driver is %q: versioned migrations only apply to postgres", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(cmd.Context()); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.NewFromFS(db, source(cmd), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m *migration.Migrator) error {
				st, err := m.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case !st.Applied:
					fmt.Fprintln(out, "no migrations applied")
				case st.Dirty:
					fmt.Fprintf(out, "%d (dirty: fix the schema, then run force %d)\n", st.Version, st.Version)
				default:
					fmt.Fprintln(out, st.Version)
				}
				return nil
			})
		},
	}
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create NAME",
		Short:   "Write an empty up/down migration pair",
		Example: `  migrate --path migrations create add_credit_notes -d "Credit notes against invoices"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("path")
			if dir == "" {
				dir = "migrations"
			}
			description, _ := cmd.Flags().GetString("description")

			mf, err := migration.CreateMigration(dir, args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mf.UpPath)
			fmt.Fprintln(cmd.OutOrStdout(), mf.DownPath)
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "Description written into the file header")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := migration.ListMigrations(source(cmd))
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
