package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spektr-org/askdata/engine"
)

func newExecCommand() *cobra.Command {
	var (
		output  string
		maxRows int
	)

	cmd := &cobra.Command{
		Use:   "exec <file>",
		Short: "Run a script or plan against the datasets",
		Long: `Execute a Starlark script (or a JSON plan with --mode plan) exactly as a
generated one would run, without calling a language model. The file must
bind filtered_data.

Example:
  askdata exec older.star`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q (want text or json)", output)
			}

			code, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			data, err := a.loadDatasets(cmd.Context())
			if err != nil {
				return err
			}
			exec, err := a.newExecutor()
			if err != nil {
				return err
			}

			result, err := exec.Execute(cmd.Context(), string(code), data.A, data.B)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(engine.BuildTable(result, engine.OutputBinding, 0))
			}
			renderTable(w, engine.BuildTable(result, engine.OutputBinding, maxRows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVar(&maxRows, "max-rows", 50, "Rows to print (0 prints all)")

	return cmd
}
