package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spektr-org/askdata/engine"
)

// askOutput is the JSON shape of `ask -o json`.
type askOutput struct {
	ID             string            `json:"id"`
	Query          string            `json:"query"`
	Code           string            `json:"code"`
	Result         *engine.TableData `json:"result"`
	Interpretation string            `json:"interpretation"`
	ElapsedMS      int64             `json:"elapsedMs"`
}

func newAskCommand() *cobra.Command {
	var (
		showCode bool
		output   string
		maxRows  int
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question about the datasets",
		Long: `Generate code for the question, run it against both datasets and print
the filtered table and the model's interpretation.

Example:
  askdata ask "Which smokers walk fewer than 5000 steps a day?" --show-code`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			if output != "text" && output != "json" {
				return fmt.Errorf("unknown output format %q (want text or json)", output)
			}
			query := strings.Join(args, " ")

			data, err := a.loadDatasets(cmd.Context())
			if err != nil {
				return err
			}
			p, release, err := a.newPipeline(cmd.Context(), data)
			if err != nil {
				return err
			}
			defer release()

			ans, err := p.Run(cmd.Context(), query)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(askOutput{
					ID:             ans.ID.String(),
					Query:          ans.Query,
					Code:           ans.Code,
					Result:         engine.BuildTable(ans.Result, engine.OutputBinding, 0),
					Interpretation: ans.Interpretation,
					ElapsedMS:      ans.Elapsed.Milliseconds(),
				})
			}

			if showCode {
				_, _ = fmt.Fprintf(w, "%s\n\n", ans.Code)
			}
			renderTable(w, engine.BuildTable(ans.Result, engine.OutputBinding, maxRows))
			_, _ = fmt.Fprintf(w, "\n%s\n", ans.Interpretation)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showCode, "show-code", false, "Print the generated code")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVar(&maxRows, "max-rows", 50, "Rows to print (0 prints all)")

	return cmd
}
