package bootstrap

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/fx"

	"reqtx/internal/bootstrap/config"
	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
	"reqtx/internal/infrastructure/metrics"
	"reqtx/internal/txscope"
	"reqtx/internal/usecase/numbers"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideRegistry),
	fx.Provide(provideRecorder),
	fx.Provide(provideBackend),
	fx.Provide(numbers.NewService),
	fx.Provide(provideApp),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func provideRecorder(cfg config.Config, reg *prometheus.Registry) (txscope.Recorder, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	rec, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, errs.Wrap(err, "create transaction metrics")
	}
	return rec, nil
}

// LayerOptions translates the tx config section into txscope options.
func LayerOptions(ctx context.Context, cfg config.TxConfig) ([]txscope.Option, error) {
	policy, err := txscope.StatusRange(cfg.CommitMinStatus, cfg.CommitMaxStatus)
	if err != nil {
		return nil, errs.Wrap(err, "build commit policy")
	}
	mode, err := txscope.ParseStreamErrorMode(cfg.StreamErrorMode)
	if err != nil {
		return nil, errs.Wrap(err, "parse stream error mode")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))
	logging.Info(
		logCtx,
		"request transaction layer configured",
		slog.Int("commit_min_status", cfg.CommitMinStatus),
		slog.Int("commit_max_status", cfg.CommitMaxStatus),
		slog.Int("max_buffer_bytes", cfg.MaxBufferBytes),
		slog.Duration("finalize_timeout", cfg.FinalizeTimeout),
		slog.String("stream_error_mode", mode.String()),
	)

	return []txscope.Option{
		txscope.WithPolicy(policy),
		txscope.WithMaxBuffer(cfg.MaxBufferBytes),
		txscope.WithFinalizeTimeout(cfg.FinalizeTimeout),
		txscope.WithStreamErrorMode(mode),
		txscope.WithErrorHandler(finalizeErrorHandler),
	}, nil
}

// finalizeErrorHandler hides driver details from clients. The layer has
// already logged the full error chain.
func finalizeErrorHandler(w http.ResponseWriter, _ *http.Request, _ error) {
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type appParams struct {
	fx.In

	Config   config.Config
	Backend  *Backend
	Numbers  *numbers.Service
	Registry *prometheus.Registry
}

func provideApp(p appParams) *App {
	return &App{
		Config:   p.Config,
		Backend:  p.Backend,
		Numbers:  p.Numbers,
		Registry: p.Registry,
	}
}
