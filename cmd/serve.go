package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"reqtx/internal/bootstrap"
	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
	"reqtx/internal/transport/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the numbers HTTP API",
	RunE: withApp(func(cmd *cobra.Command, _ []string, app *bootstrap.App) error {
		ctx := cmd.Context()

		autoMigrate, _ := cmd.Flags().GetBool("auto-migrate")
		if autoMigrate {
			if err := app.InitSchema(ctx); err != nil {
				return errs.Wrap(err, "initialize schema")
			}
		} else if err := app.CheckSchema(ctx); err != nil {
			return errs.Wrap(err, "check schema")
		}

		opts := httpapi.Options{Numbers: app.Numbers, Middleware: app.Backend.Middleware}
		if app.Config.Metrics.Enabled {
			opts.Registry = app.Registry
		}
		handler := httpapi.NewRouter(opts)
		if app.Config.Tracing.Enabled {
			handler = otelhttp.NewHandler(handler, "reqtx.http")
		}

		srv := &http.Server{
			Addr:              app.Config.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}
		return serve(ctx, srv, app.Config.HTTP.ShutdownTimeout)
	}),
}

func serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info(ctx, "http server listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(err, "listen and serve")
	case <-ctx.Done():
	}

	logging.Info(ctx, "shutting down http server", slog.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(err, "shutdown http server")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("auto-migrate", false, "Run schema migration before serving")
}
