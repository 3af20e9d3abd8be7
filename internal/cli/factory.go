package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/drip"
	"github.com/aretw0/drip/internal/config"
	"github.com/aretw0/drip/pkg/adapters/file"
	loamadapter "github.com/aretw0/drip/pkg/adapters/loam"
	"github.com/aretw0/drip/pkg/adapters/kv"
	"github.com/aretw0/drip/pkg/adapters/memory"
	"github.com/aretw0/drip/pkg/adapters/payment"
	redisadapter "github.com/aretw0/drip/pkg/adapters/redis"
	"github.com/aretw0/drip/pkg/adapters/sqlite"
	"github.com/aretw0/drip/pkg/persistence/middleware"
	"github.com/aretw0/drip/pkg/ports"
	"github.com/aretw0/drip/pkg/script"
	backend "github.com/redis/go-redis/v9"
)

// Resources are the backends a command opened. Close releases them.
type Resources struct {
	Store  ports.Store
	Locker ports.DistributedLocker
	closer []io.Closer
}

// Close releases every opened backend.
func (r *Resources) Close() error {
	var errs []error
	for _, c := range r.closer {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// OpenStore builds the configured persistence backend, wrapped in the
// masking and encryption middleware when configured.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Resources, error) {
	mws, err := storeMiddleware(cfg.Store)
	if err != nil {
		return nil, err
	}

	res := &Resources{}
	var b kv.Backend

	switch cfg.Store.Backend {
	case config.BackendMemory:
		b = memory.NewBackend()
	case config.BackendFile:
		b = file.NewBackend(cfg.Store.Path)
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		b = db
		res.closer = append(res.closer, db)
	case config.BackendRedis:
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		b = redisadapter.NewBackendFromClient(client, redisadapter.WithPrefix(cfg.Store.Prefix))
		if cfg.Redis.Lock {
			res.Locker = redisadapter.NewLocker(client, cfg.Store.Prefix+"lock:")
		}
		res.closer = append(res.closer, client)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	res.Store = kv.New(middleware.Chain(b, mws...), kv.WithLogger(logger))
	return res, nil
}

// storeMiddleware masks before it encrypts.
func storeMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(cfg.MaskPatterns) > 0 {
		mw, err := middleware.NewPIIMiddleware(cfg.MaskPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}

	active, fallback, err := cfg.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallback})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// LoadScript loads the configured script. A directory is read as a loam
// repository of markdown steps, a file as a YAML or JSON document, and an
// empty path yields the built-in script.
func LoadScript(ctx context.Context, path string) (*script.Script, error) {
	if path == "" {
		return script.Default(), nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	if !info.IsDir() {
		return script.LoadFile(path)
	}

	loader, err := loamadapter.Open(path)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}

// NewSession assembles a drip.Session from configuration. Extra options are
// applied last.
func NewSession(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...drip.Option) (*drip.Session, *Resources, error) {
	s, err := LoadScript(ctx, cfg.Script.Path)
	if err != nil {
		return nil, nil, err
	}
	res, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []drip.Option{
		drip.WithScript(s),
		drip.WithStore(res.Store),
		drip.WithLogger(logger),
		drip.WithTimeScale(cfg.Timing.Scale),
		drip.WithMaxInputSize(cfg.Input.MaxSize),
	}
	if res.Locker != nil {
		opts = append(opts, drip.WithLocker(res.Locker))
	}
	if cfg.Payments.Enabled {
		opts = append(opts, drip.WithPayments(payment.New(cfg.Payments.BaseURL, cfg.Payments.Token, payment.WithLogger(logger))))
	}
	opts = append(opts, extra...)

	sess, err := drip.New(opts...)
	if err != nil {
		_ = res.Close()
		return nil, nil, err
	}
	return sess, res, nil
}
