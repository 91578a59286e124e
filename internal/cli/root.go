// Package cli provides the askdata command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/spektr-org/askdata/config"
	"github.com/spektr-org/askdata/internal/logging"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// appKey is used to store the loaded app in the command context.
type appKey struct{}

// app is what every command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func()
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "askdata",
		Short: "askdata - ask questions about two tabular datasets",
		Long: `askdata turns a natural-language question into a short script, runs it
against two datasets and has a language model explain the filtered result.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch cmd.Name() {
			case "help", "completion", "__complete", "version":
				return nil
			}

			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, closeLog, err := logging.Setup(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if cfg.File != "" {
				logger.Debug("using config file", "path", cfg.File)
			}

			a := &app{cfg: cfg, logger: logger, closeLog: closeLog}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
				a.closeLog()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./askdata.yaml)")
	pf.String("data-a", "", "Path to dataset A (CSV or SQLite)")
	pf.String("table-a", "", "Table to read from dataset A when it is a SQLite file")
	pf.String("data-b", "", "Path to dataset B (CSV or SQLite)")
	pf.String("table-b", "", "Table to read from dataset B when it is a SQLite file")
	pf.String("join-key", "", "Column shared by both datasets")
	pf.Bool("schema-prompts", false, "Send profiled column details to the model")
	pf.Bool("refine-schema", false, "Have the model describe columns before sending schema prompts")
	pf.String("provider", "", "LLM provider (openai|gemini)")
	pf.String("model", "", "LLM model name")
	pf.String("base-url", "", "OpenAI-compatible endpoint")
	pf.String("mode", "", "Executor mode (script|plan)")
	pf.Duration("exec-timeout", 0, "Execution timeout for generated code")
	pf.Uint64("max-steps", 0, "Step budget for generated scripts")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.String("log-format", "", "Log format (text|json)")
	pf.String("seq-url", "", "Seq server URL for log shipping")

	_ = rootCmd.RegisterFlagCompletionFunc("provider", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"openai", "gemini"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"script", "plan"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newAskCommand())
	rootCmd.AddCommand(newExecCommand())
	rootCmd.AddCommand(newInspectCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// getApp retrieves the app stored by the root command.
func getApp(ctx context.Context) (*app, error) {
	if a, ok := ctx.Value(appKey{}).(*app); ok {
		return a, nil
	}
	return nil, fmt.Errorf("configuration not loaded")
}
