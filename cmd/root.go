package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgguard/config"
	"github.com/ridoystarlord/pgguard/trace"
)

// app carries what PersistentPreRunE resolved to the subcommands
type app struct {
	cfgFile string
	envFile string

	cfg    *config.Config
	logger *slog.Logger
	tracer *trace.Tracer
}

// NewRootCmd creates the pgguard command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pgguard",
		Short: "Check SQL embedded in Go code against declared PostgreSQL tables",
		Long: `pgguard finds SQL statements embedded in Go source files and checks the
tables and columns they use against table declarations. Tables are declared
with tagged Go structs or YAML schema files, and can be compared with a live
database.

Trace output is enabled per channel with DEBUG style filters:

  DEBUG=pgguard:* pgguard parse ./internal/store
  pgguard parse --debug pgguard:table,pgguard:query .

Examples:

  pgguard check ./...
  pgguard tables models.go schema.yaml
  pgguard diff --database-url postgres://localhost/app
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: ./pgguard.yaml)")
	flags.StringVar(&a.envFile, "env-file", config.DefaultEnvFile, "dotenv file merged into the environment")
	flags.String("debug", "", "trace channels to enable, e.g. pgguard:* (overrides PGGUARD_DEBUG and DEBUG)")
	flags.String("tag", "", "struct tag holding column declarations")
	flags.StringSlice("query-methods", nil, "method names whose first string argument is SQL")
	flags.Bool("include-tests", false, "also scan _test.go files")
	flags.BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(newParseCmd(a))
	rootCmd.AddCommand(newCheckCmd(a))
	rootCmd.AddCommand(newTablesCmd(a))
	rootCmd.AddCommand(newDiffCmd(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{
		File:    a.cfgFile,
		EnvFile: a.envFile,
		Flags:   cmd.Flags(),
	})
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	a.tracer = trace.New(cmd.ErrOrStderr(), cfg.Trace())

	if cfg.File != "" {
		a.logger.Debug("using config file", "path", cfg.File)
	}
	a.logger.Debug("trace channels", "enabled", cfg.Trace().EnabledChannels())
	return nil
}

// Execute runs the CLI
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		printFailure(os.Stderr, err)
		return err
	}
	return nil
}

func printFailure(w io.Writer, err error) {
	color.New(color.FgRed).Fprintln(w, "❌", err)
}

func printSuccess(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, "✅ "+format+"\n", args...)
}

// count formats n with the singular or plural noun
func count(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
