package bootstrap

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/fx"

	"reqtx/internal/bootstrap/config"
	"reqtx/internal/txscope"
	"reqtx/internal/usecase/numbers"
)

func startApp(t *testing.T, driver string) *App {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("REQTX_DATABASE_DRIVER", driver)
	t.Setenv("REQTX_DATABASE_DSN", filepath.Join(t.TempDir(), "bootstrap.sqlite"))

	var app *App
	fxApp := fx.New(
		Module,
		fx.NopLogger,
		fx.Provide(func() context.Context { return context.Background() }),
		fx.Provide(
			fx.Annotate(
				func() string { return "" },
				fx.ResultTags(`name:"configFile"`),
			),
		),
		fx.Populate(&app),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fxApp.Start(ctx); err != nil {
		t.Fatalf("fx start: %v", err)
	}
	t.Cleanup(func() {
		_ = fxApp.Stop(context.Background())
	})
	return app
}

func TestModuleWiresNumbersService(t *testing.T) {
	for _, driver := range []string{"sqlite", "sqlite-stdlib"} {
		t.Run(driver, func(t *testing.T) {
			app := startApp(t, driver)
			ctx := context.Background()

			if app.Backend == nil || app.Backend.Driver != driver || app.Registry == nil {
				t.Fatalf("app backend = %+v", app.Backend)
			}
			if err := app.CheckSchema(ctx); err == nil {
				t.Fatalf("CheckSchema() expected error before init-db")
			}
			if err := app.InitSchema(ctx); err != nil {
				t.Fatalf("InitSchema() error = %v", err)
			}
			if err := app.InitSchema(ctx); err != nil {
				t.Fatalf("second InitSchema() error = %v", err)
			}
			if err := app.CheckSchema(ctx); err != nil {
				t.Fatalf("CheckSchema() error = %v", err)
			}

			v := int64(9)
			if _, err := app.Numbers.Generate(ctx, numbers.GenerateInput{Value: &v}); err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			count, err := app.Numbers.Count(ctx)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if count != 1 {
				t.Fatalf("Count() = %d, want 1", count)
			}
		})
	}
}

func TestBackendRunAppliesPolicy(t *testing.T) {
	app := startApp(t, "sqlite-stdlib")
	ctx := context.Background()
	if err := app.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}

	for _, status := range []int{http.StatusCreated, http.StatusTeapot} {
		if _, err := app.Backend.Run(ctx, func(ctx context.Context) (*txscope.Response, error) {
			v := int64(status)
			if _, err := app.Numbers.GenerateCommitted(ctx, numbers.GenerateInput{Value: &v}); err != nil {
				return nil, err
			}
			return &txscope.Response{Status: status}, nil
		}); err != nil {
			t.Fatalf("Run(%d) error = %v", status, err)
		}
	}
	if _, err := app.Backend.Run(ctx, func(ctx context.Context) (*txscope.Response, error) {
		v := int64(7)
		if _, err := app.Numbers.Generate(ctx, numbers.GenerateInput{Value: &v}); err != nil {
			return nil, err
		}
		return &txscope.Response{Status: http.StatusConflict}, nil
	}); err != nil {
		t.Fatalf("Run(409) error = %v", err)
	}

	count, err := app.Numbers.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want the two early commits only", count)
	}
}

func TestLayerOptionsRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := LayerOptions(ctx, config.TxConfig{CommitMinStatus: 500, CommitMaxStatus: 200, StreamErrorMode: "log"}); err == nil {
		t.Fatalf("LayerOptions() expected error for inverted range")
	}
	if _, err := LayerOptions(ctx, config.TxConfig{CommitMinStatus: 200, CommitMaxStatus: 299, StreamErrorMode: "retry"}); err == nil {
		t.Fatalf("LayerOptions() expected error for unknown mode")
	}
	opts, err := LayerOptions(ctx, config.TxConfig{CommitMinStatus: 200, CommitMaxStatus: 399, StreamErrorMode: "abort"})
	if err != nil || len(opts) == 0 {
		t.Fatalf("LayerOptions() = %d options, %v", len(opts), err)
	}
}
