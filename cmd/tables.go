package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgguard/parser"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables [paths...]",
		Short: "List declared tables and their columns",
		Long: `List every table declared by tagged Go structs or YAML schema files.

Examples:
  pgguard tables                 # Tables in the configured paths
  pgguard tables models.go       # Tables declared in one file
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.scanPaths(args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(s.Result.TableSchemas) == 0 {
				fmt.Fprintln(out, "No tables declared.")
				return nil
			}

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Table", "Column", "Type", "Declared At"})
			table.SetBorder(false)
			table.SetColumnSeparator(" ")
			table.SetAutoWrapText(false)

			for _, t := range s.Result.TableSchemas {
				for i, name := range t.ColumnNames {
					tableName, location := "", ""
					if i == 0 {
						tableName, location = t.TableName, t.Location.String()
					}
					table.Append([]string{tableName, name, parser.FormatColumnType(t.ColumnDescriptors[name]), location})
				}
			}
			table.Render()
			return nil
		},
	}
}
