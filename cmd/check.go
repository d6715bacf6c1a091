package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgguard/validator"
)

// errCheckFailed is returned after the problems have been printed
var errCheckFailed = errors.New("check found errors")

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Check embedded queries against the declared tables",
		Long: `Check every embedded SQL statement against the declared table schemas.

This command reports:
- Statements PostgreSQL cannot parse
- Queries on tables that are not declared
- Columns that do not exist in the tables a query uses
- Ambiguous unqualified columns
- INSERT statements that leave out required columns
- Invalid or duplicate table declarations

Examples:
  pgguard check                    # Check the configured paths
  pgguard check ./internal/store   # Check one package
  pgguard check --format json      # Output results as JSON
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.scanPaths(args)
			if err != nil {
				return err
			}

			result := validator.NewQueryValidator(s.Result.TableSchemas).Validate(s.Result.Queries)
			a.logger.Debug("validated queries",
				"queries", len(s.Result.Queries),
				"tables", len(s.Result.TableSchemas),
				"errors", len(result.Errors))

			switch a.cfg.Format {
			case "json":
				err = outputJSON(cmd.OutOrStdout(), result)
			case "text":
				err = outputText(cmd.OutOrStdout(), result)
			default:
				return fmt.Errorf("unknown output format %q (text, json)", a.cfg.Format)
			}
			if err != nil {
				return err
			}

			if !result.Valid {
				return errCheckFailed
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "", "Output format (text, json)")
	return cmd
}

func outputJSON(w io.Writer, result *validator.ValidationResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(w io.Writer, result *validator.ValidationResult) error {
	if result.Valid {
		color.New(color.FgGreen).Fprintln(w, "✅ All queries match the declared tables!")
	} else {
		color.New(color.FgRed).Fprintln(w, "❌ Query check failed!")
	}

	printSection(w, "🔴 Errors", result.Errors)
	printSection(w, "🟡 Warnings", result.Warnings)
	printSection(w, "🔵 Info", result.Info)

	fmt.Fprintf(w, "\n📊 Summary:\n")
	fmt.Fprintf(w, "  • Errors: %d\n", len(result.Errors))
	fmt.Fprintf(w, "  • Warnings: %d\n", len(result.Warnings))
	fmt.Fprintf(w, "  • Info: %d\n", len(result.Info))

	if !result.Valid {
		fmt.Fprintf(w, "\n💡 Fix the errors above or update the table declarations.\n")
	}
	return nil
}

func printSection(w io.Writer, title string, entries []validator.ValidationError) {
	if len(entries) == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s (%d):\n", title, len(entries))
	for i, e := range entries {
		fmt.Fprintf(w, "  %d. ", i+1)
		if e.Location != "" {
			fmt.Fprintf(w, "%s ", e.Location)
		}
		if e.Table != "" {
			fmt.Fprintf(w, "[%s]", e.Table)
		}
		if e.Column != "" {
			fmt.Fprintf(w, ".%s", e.Column)
		}
		fmt.Fprintf(w, ": %s\n", e.Message)
	}
}
