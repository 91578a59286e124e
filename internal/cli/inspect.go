package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/schema"
)

func newInspectCommand() *cobra.Command {
	var (
		output string
		refine bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Profile both datasets",
		Long: `Show every column's kind, role, null and distinct counts, range and sample
values, as the model sees them with --schema-prompts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q (want text or json)", output)
			}

			data, err := a.loadDatasets(cmd.Context())
			if err != nil {
				return err
			}
			var provider llm.Provider
			if refine {
				if err := a.cfg.RequireLLM(); err != nil {
					return err
				}
				provider, err = newProvider(cmd.Context(), a.cfg.LLM)
				if err != nil {
					return fmt.Errorf("failed to create llm provider: %w", err)
				}
				if c, ok := provider.(io.Closer); ok {
					defer func() { _ = c.Close() }()
				}
			}
			pa, pb := a.profiles(cmd.Context(), provider, data)
			profiles := []schema.Config{pa, pb}

			w := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(profiles)
			}
			sources := []string{a.cfg.Datasets.A.String(), a.cfg.Datasets.B.String()}
			for i, p := range profiles {
				if i > 0 {
					_, _ = fmt.Fprintln(w)
				}
				renderProfile(w, p, sources[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVar(&refine, "refine", false, "Ask the model to describe each column")

	return cmd
}
