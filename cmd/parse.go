package cmd

import (
	"github.com/spf13/cobra"
)

func newParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [paths...]",
		Short: "Extract tables and queries and trace what was found",
		Long: `Parse Go and YAML files and report how many tables and queries were found.

Use the trace channels to see the details:
  pgguard:file      start and end of every file
  pgguard:table     declared tables and their column types
  pgguard:query     embedded queries and the columns they use
  pgguard:subquery  nested SELECTs

Examples:
  pgguard parse                                # Parse the configured paths
  DEBUG=pgguard:* pgguard parse ./store         # Trace everything
  pgguard parse --debug 'pgguard:*,-pgguard:query' models.go
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.scanPaths(args)
			if err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Parsed %s: %s, %s",
				count(len(s.Files), "file", "files"),
				count(len(s.Result.TableSchemas), "table", "tables"),
				count(len(s.Result.Queries), "query", "queries"))
			return nil
		},
	}
}
