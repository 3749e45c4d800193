package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"quizblitz/internal/api"
	"quizblitz/internal/config"
	"quizblitz/internal/identity"
	"quizblitz/internal/infra/file"
	"quizblitz/internal/infra/memory"
	redisstore "quizblitz/internal/infra/redis"
	"quizblitz/internal/realtime"
	"quizblitz/internal/session"
)

const defaultAPITimeout = 10 * time.Second

// loadConfig reads the config file and applies the command line overrides.
func (f *globalFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if f.apiURL != "" {
		cfg.API.URL = f.apiURL
	}
	if f.socketURL != "" {
		cfg.Socket.URL = f.socketURL
	}
	if f.profile != "" {
		cfg.Identity.Profile = f.profile
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Log.Level, err)
	}
	zcfg := zap.NewProductionConfig()
	if cfg.Log.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	// Interactive commands own stdout.
	zcfg.OutputPaths = []string{"stderr"}
	return zcfg.Build()
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// identityRepository picks where the client id lives. The returned function
// releases whatever the repository holds open.
func identityRepository(cfg config.Config) (identity.Repository, func(), error) {
	noop := func() {}
	switch cfg.Identity.Backend {
	case "file":
		path := cfg.Identity.Path
		if path == "" {
			p, err := file.DefaultPath()
			if err != nil {
				return nil, noop, fmt.Errorf("identity path: %w", err)
			}
			path = p
		}
		return file.NewIdentityStore(path, cfg.Identity.Profile), noop, nil
	case "redis":
		if cfg.Redis.Addr == "" {
			return nil, noop, fmt.Errorf("identity backend redis needs redis.addr")
		}
		client := newRedisClient(cfg)
		return redisstore.NewIdentityStore(client, cfg.Identity.Profile), func() { _ = client.Close() }, nil
	case "memory":
		return memory.NewIdentityStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown identity backend %q", cfg.Identity.Backend)
	}
}

// clientEnv is everything an interactive command needs to talk to a backend.
type clientEnv struct {
	cfg     config.Config
	log     *zap.Logger
	store   *session.Store
	channel *realtime.Client
	release func()
}

func (f *globalFlags) openClient(ctx context.Context) (*clientEnv, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	ids, releaseIDs, err := identityRepository(cfg)
	if err != nil {
		return nil, err
	}

	rest := api.New(cfg.API.URL,
		api.WithHTTPClient(&http.Client{Timeout: config.Duration(cfg.API.Timeout, defaultAPITimeout)}),
		api.WithLogger(log.Named("api")),
	)
	channel := realtime.New(cfg.Socket.URL, realtime.WithLogger(log.Named("realtime")))

	store, err := session.New(ctx, rest, channel, ids, session.WithLogger(log.Named("session")))
	if err != nil {
		releaseIDs()
		_ = channel.Close()
		return nil, err
	}
	log.Debug("client ready",
		zap.String("api", cfg.API.URL),
		zap.String("socket", cfg.Socket.URL),
		zap.String("profile", cfg.Identity.Profile),
	)

	return &clientEnv{
		cfg:     cfg,
		log:     log,
		store:   store,
		channel: channel,
		release: releaseIDs,
	}, nil
}

// Close tears the environment down in reverse order of construction.
func (e *clientEnv) Close() {
	e.store.Close()
	_ = e.channel.Close()
	e.release()
	_ = e.log.Sync()
}
