package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/marksix/internal/handler"
	"github.com/mmeshcher/marksix/internal/scheduler"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand создаёт команду запуска API чтения.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	cfg := opts.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the CSV archive as JSON",
		Long: `Serve the archive at /api/marksix. With --auto-update the archive is
updated right away and then every --interval-hours.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "listen host")
	cmd.Flags().IntVarP(&cfg.Port, "port", "p", cfg.Port, "listen port")
	cmd.Flags().BoolVar(&cfg.AutoUpdate, "auto-update", cfg.AutoUpdate, "update the archive periodically")
	cmd.Flags().IntVar(&cfg.IntervalHours, "interval-hours", cfg.IntervalHours, "hours between automatic updates")

	return cmd
}

// serveApp объединяет компоненты команды serve: API чтения и задачу автообновления.
type serveApp struct {
	router  http.Handler
	updater *scheduler.Task
	cleanup func()
}

func newServeApp(ctx context.Context, opts *RootOptions) (*serveApp, error) {
	cfg := opts.Config
	logger := opts.Logger

	svc, cleanup, err := newService(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &serveApp{
		router:  handler.NewHandler(svc, logger.Named("http")).SetupRouter(),
		cleanup: cleanup,
	}
	if cfg.AutoUpdate {
		app.updater = scheduler.New("auto-update", cfg.Interval(), svc.IncrementalUpdate, logger.Named("scheduler"))
	}

	return app, nil
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg := opts.Config
	logger := opts.Logger

	app, err := newServeApp(ctx, opts)
	if err != nil {
		return err
	}
	defer app.cleanup()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	// Автообновление: ошибки итераций журналируются внутри задачи
	if app.updater != nil {
		g.Go(func() error {
			app.updater.Start(ctx)
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting marksix server",
			zap.String("addr", cfg.Addr()),
			zap.String("url", fmt.Sprintf("http://%s%s", cfg.Addr(), handler.DrawsPath)),
			zap.String("csv", cfg.Output),
			zap.Bool("autoUpdate", cfg.AutoUpdate),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
