package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/mindmap/pkg/config"
	"github.com/matzehuels/mindmap/pkg/observability/metrics"
	"github.com/matzehuels/mindmap/pkg/server"
	"github.com/matzehuels/mindmap/pkg/session"
)

type serveFlags struct {
	addr    string
	origins []string
	watch   bool
	metrics bool
	noCache bool
}

// serveCommand creates "serve", which edits a map over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var f serveFlags
	cmd := &cobra.Command{
		Use:   "serve [file]",
		Short: "Serve a mind map over an HTTP API",
		Long: `Serve a mind map over an HTTP API with a websocket change feed.

Edits made through the API change the server's copy; POST /api/v1/save
writes it back to the file. With --watch the file is reloaded when another
program changes it, unless there are unsaved edits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config()
			if !cmd.Flags().Changed("addr") {
				f.addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("allow-origin") {
				f.origins = cfg.Server.AllowedOrigins
			}
			return c.runServe(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (default from config, "+config.DefaultAddr+")")
	cmd.Flags().StringSliceVar(&f.origins, "allow-origin", nil, "CORS origins allowed to call the API")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "reload the file when it changes on disk")
	cmd.Flags().BoolVar(&f.metrics, "metrics", false, "serve Prometheus metrics at /metrics")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the export cache")
	return cmd
}

func (c *CLI) runServe(ctx context.Context, path string, f serveFlags) error {
	logger := loggerFromContext(ctx)
	sess, err := c.openSession(ctx, path)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithAllowedOrigins(f.origins...),
	}
	if f.metrics {
		collector := metrics.New()
		collector.Install()
		opts = append(opts, server.WithMetrics(collector.Handler()))
	}
	srv := server.New(sess, runner, opts...)

	g, ctx := errgroup.WithContext(ctx)
	if f.watch {
		w, err := session.NewWatcher(sess, 0)
		if err != nil {
			return err
		}
		g.Go(func() error {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error { return srv.Run(ctx, f.addr) })

	printInfo("Serving %s on http://%s", path, f.addr)
	err = g.Wait()
	if sess.Dirty() {
		printWarning("%s has unsaved edits", path)
	}
	return err
}
