package cli

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/marksix/internal/config"
	"github.com/mmeshcher/marksix/internal/hkjc"
	"github.com/mmeshcher/marksix/internal/repository"
	"github.com/mmeshcher/marksix/internal/service"
)

const mirrorOpenTimeout = 10 * time.Second

// newService собирает сервис синхронизации из конфигурации.
// Возвращаемая функция закрывает открытые ресурсы.
func newService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.Service, func(), error) {
	client := hkjc.NewClient(cfg.APIURL,
		hkjc.WithTimeout(cfg.Timeout),
		hkjc.WithRetries(cfg.Retries),
		hkjc.WithLogger(logger.Named("hkjc")),
	)
	store := repository.NewCSVStore(cfg.Output)

	opts := []service.Option{service.WithLogger(logger.Named("sync"))}
	cleanup := func() {}

	if cfg.DatabaseURI != "" {
		openCtx, cancel := context.WithTimeout(ctx, mirrorOpenTimeout)
		mirror, err := repository.OpenPostgresMirror(openCtx, cfg.DatabaseURI)
		cancel()
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres mirror: %w", err)
		}
		opts = append(opts, service.WithMirror(mirror))
		cleanup = func() {
			_ = mirror.Close()
		}
	}

	return service.NewService(client, store, opts...), cleanup, nil
}
