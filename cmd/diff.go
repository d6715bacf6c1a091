package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgguard/database"
	"github.com/ridoystarlord/pgguard/diff"
	"github.com/ridoystarlord/pgguard/generator"
	"github.com/ridoystarlord/pgguard/introspect"
)

var errDrift = errors.New("declared tables differ from the database")

func newDiffCmd(a *app) *cobra.Command {
	var (
		timeout time.Duration
		showSQL bool
	)

	cmd := &cobra.Command{
		Use:   "diff [paths...]",
		Short: "Compare declared tables with a live database",
		Long: `Compare the declared tables with the tables of a live PostgreSQL database.

Reports declared tables and columns that do not exist, columns that exist but
are not declared, and type or nullability mismatches. Tables that only exist
in the database are ignored.

The connection string is read from --database-url, PGGUARD_DATABASE_URL,
DATABASE_URL (also from .env) or database_url in pgguard.yaml.

Examples:
  pgguard diff                                  # Use DATABASE_URL
  pgguard diff --db-schema app ./store          # Compare with schema "app"
  pgguard diff --database-url postgres://localhost/app --timeout 5s
  pgguard diff --sql                            # Also suggest SQL to fix the drift
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.scanPaths(args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			live, err := introspect.TablesIn(ctx, pool, a.cfg.DBSchema)
			if err != nil {
				return fmt.Errorf("failed to introspect database: %w", err)
			}
			a.logger.Debug("introspected database", "schema", a.cfg.DBSchema, "tables", len(live))

			drifts := diff.Compare(s.Result.TableSchemas, live)
			if len(drifts) == 0 {
				printSuccess(cmd.OutOrStdout(), "No differences found between declared tables and database")
				return nil
			}

			showDrifts(cmd.OutOrStdout(), drifts)

			if showSQL {
				stmts, err := generator.GenerateSQL(drifts, s.Result.TableSchemas)
				if err != nil {
					return fmt.Errorf("failed to generate SQL: %w", err)
				}
				showSQLStatements(cmd.OutOrStdout(), stmts)
			}
			return errDrift
		},
	}

	cmd.Flags().String("database-url", "", "PostgreSQL connection string")
	cmd.Flags().String("db-schema", "", "database schema to compare with (default: public)")
	cmd.Flags().BoolVar(&showSQL, "sql", false, "Suggest SQL statements that fix the drift")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 10*time.Second, "Timeout for connecting and introspecting")
	return cmd
}

// showDrifts prints the drifts grouped by table, in the order Compare found them
func showDrifts(w io.Writer, drifts []diff.Drift) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Fprintf(w, "🌳 Schema drift (%s)\n", count(len(drifts), "difference", "differences"))

	current := ""
	for _, d := range drifts {
		if d.TableName != current {
			current = d.TableName
			fmt.Fprintf(w, "\n📋 %s\n", current)
		}

		switch d.Kind {
		case diff.MissingTable:
			red.Fprintf(w, "  ❌ missing table (declared at %s)\n", d.Location)
		case diff.MissingColumn:
			red.Fprintf(w, "  ❌ missing column %s\n", d.ColumnName)
		case diff.ExtraColumn:
			green.Fprintf(w, "  ➕ undeclared column %s\n", d.ColumnName)
		case diff.TypeMismatch, diff.NullabilityMismatch:
			yellow.Fprintf(w, "  ⚡ %s: declared %s, database %s\n", d.ColumnName, d.Declared, d.Live)
		}
	}
}

func showSQLStatements(w io.Writer, stmts []string) {
	if len(stmts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n📝 Suggested SQL:\n")
	for _, stmt := range stmts {
		fmt.Fprintln(w, stmt)
	}
}
