package config

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/lessonweave/pkg/adapters/file"
	"github.com/aretw0/lessonweave/pkg/adapters/memory"
	"github.com/aretw0/lessonweave/pkg/adapters/redis"
	"github.com/aretw0/lessonweave/pkg/adapters/sqlite"
	"github.com/aretw0/lessonweave/pkg/persistence/middleware"
	"github.com/aretw0/lessonweave/pkg/ports"
)

// Backend is an opened progress store, its optional distributed locker and a
// function releasing both.
type Backend struct {
	Store  ports.ProgressStore
	Locker ports.DistributedLocker
	Close  func() error
}

// OpenBackend opens the store selected by c.Store, wrapped with redaction and
// encryption when configured.
func (c Config) OpenBackend(ctx context.Context) (*Backend, error) {
	mws, err := c.Middlewares()
	if err != nil {
		return nil, err
	}
	b, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	b.Store = middleware.Chain(b.Store, mws...)
	return b, nil
}

// Middlewares builds the store middlewares, redaction first.
func (c Config) Middlewares() ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(c.RedactKeys) > 0 {
		mw, err := middleware.NewRedactMiddleware(c.RedactKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if c.EncryptionKey == "" {
		if len(c.EncryptionFallbackKeys) > 0 {
			return nil, errors.New("fallback encryption keys need LESSONWEAVE_ENCRYPTION_KEY")
		}
		return mws, nil
	}
	active, err := decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, err
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range c.EncryptionFallbackKeys {
		fallback, err := decodeKey(k)
		if err != nil {
			return nil, err
		}
		enc.FallbackKeys = append(enc.FallbackKeys, fallback)
	}
	mw, err := middleware.NewEncryptionMiddleware(enc)
	if err != nil {
		return nil, err
	}
	return append(mws, mw), nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	return key, nil
}

func (c Config) openStore(ctx context.Context) (*Backend, error) {
	noop := func() error { return nil }

	switch c.Store {
	case StoreMemory:
		return &Backend{Store: memory.NewStore(), Close: noop}, nil

	case StoreFile:
		return &Backend{Store: file.New(c.StoreDir), Close: noop}, nil

	case StoreRedis:
		var opts []redis.Option
		if c.RedisTTL > 0 {
			opts = append(opts, redis.WithTTL(c.RedisTTL))
		}
		store := redis.New(c.RedisAddr, c.RedisPassword, c.RedisDB, opts...)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect redis %s: %w", c.RedisAddr, err)
		}
		return &Backend{
			Store:  store,
			Locker: redis.NewLocker(store.Client(), "lessonweave:"),
			Close:  store.Close,
		}, nil

	case StoreSQLite:
		if c.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.SQLitePath), 0755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		store, err := sqlite.Open(c.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: store, Close: store.Close}, nil

	default:
		return nil, c.Validate()
	}
}
