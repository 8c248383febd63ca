// Package cli implements the fireant command line: dataset inspection, SQL
// preview, fetches, choices and token issuing against a local catalog.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fireant/internal/app"
	"fireant/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == outputJSON {
			_ = printJSON(stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintf(stderr, "Error: %v\n", err) //nolint:errcheck
		}
		return 1
	}
	return 0
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	datasets string
	driver   string
	dsn      string
	seed     string
	output   string
	envFile  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "fireant",
		Short:         "Analytical query planner",
		Long:          "Plan and run analytical queries against datasets declared in a YAML catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(g.output); err != nil {
				return err
			}
			return g.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.datasets, "datasets", "", "Dataset catalog file (env FIREANT_DATASETS)")
	flags.StringVar(&g.driver, "driver", "", "Database driver: duckdb or sqlite3 (env FIREANT_DRIVER)")
	flags.StringVar(&g.dsn, "dsn", "", "Database DSN (env FIREANT_DSN)")
	flags.StringVar(&g.seed, "seed", "", "SQL script run before querying (env FIREANT_SEED)")
	flags.StringVarP(&g.output, "output", "o", outputAuto, "Output format (auto, table, json)")
	flags.StringVar(&g.envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")

	rootCmd.AddCommand(newDatasetsCmd(g))
	rootCmd.AddCommand(newFieldsCmd(g))
	rootCmd.AddCommand(newSQLCmd(g))
	rootCmd.AddCommand(newFetchCmd(g))
	rootCmd.AddCommand(newChoicesCmd(g))
	rootCmd.AddCommand(newLatestCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newTokenCmd(g))
	rootCmd.AddCommand(newVersionCmd(g))
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// resolve loads configuration with precedence flag > env > .env > default.
func (g *globals) resolve(cmd *cobra.Command) error {
	if g.envFile != "" {
		if err := config.LoadDotEnv(g.envFile); err != nil {
			return fmt.Errorf("load %s: %w", g.envFile, err)
		}
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("datasets") {
		cfg.DatasetsFile = g.datasets
	}
	if flags.Changed("driver") {
		cfg.Driver = strings.ToLower(g.driver)
	}
	if flags.Changed("dsn") {
		cfg.DSN = g.dsn
	}
	if flags.Changed("seed") {
		cfg.SeedFile = g.seed
	}
	g.cfg = cfg
	return nil
}

// open wires the application for one command. Warnings and startup logs go
// to stderr at the configured level.
func (g *globals) open(cmd *cobra.Command) (*app.App, error) {
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: g.cfg.SlogLevel()}))
	for _, w := range g.cfg.Warnings {
		logger.Debug("config warning", "warning", w)
	}
	return app.New(cmd.Context(), app.Deps{Cfg: g.cfg, Logger: logger})
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion scripts",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s", args[0])
			}
		},
	}
}
