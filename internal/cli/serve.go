package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/spektr-org/askdata/server"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API and the index page",
		Long: `Load both datasets and serve GET / and POST /query until interrupted.

Example:
  askdata serve --addr :8000 --data-a data/cleaned_patients.csv --data-b data/cleaned_activity.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := getApp(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			data, err := a.loadDatasets(ctx)
			if err != nil {
				return err
			}
			p, release, err := a.newPipeline(ctx, data)
			if err != nil {
				return err
			}
			defer release()

			srv, err := server.New(server.Config{
				Pipeline:     p,
				Addr:         a.cfg.Server.Addr,
				IndexFile:    a.cfg.Server.IndexFile,
				QueryTimeout: a.cfg.Server.QueryTimeout,
				Logger:       a.logger,
			})
			if err != nil {
				return err
			}
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default :8000)")
	cmd.Flags().String("index-file", "", "HTML page served at / (default web/index.html)")
	cmd.Flags().Duration("query-timeout", 0, "Upper bound for one POST /query")

	return cmd
}
