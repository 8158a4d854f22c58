package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/config"
	"github.com/Pairs34/CerrahPasaRandevu/internal/credentials"
	"github.com/Pairs34/CerrahPasaRandevu/internal/crypto"
	"github.com/Pairs34/CerrahPasaRandevu/internal/db"
	"github.com/Pairs34/CerrahPasaRandevu/internal/isuzem"
	"github.com/Pairs34/CerrahPasaRandevu/internal/logger"
	"github.com/Pairs34/CerrahPasaRandevu/internal/migrate"
	"github.com/Pairs34/CerrahPasaRandevu/internal/notify"
	"github.com/Pairs34/CerrahPasaRandevu/internal/observability/metrics"
	"github.com/Pairs34/CerrahPasaRandevu/internal/poller"
)

// app holds what every command builds from the environment.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	creds   *credentials.Accessor
	closers []func()
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	store, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	a.creds = credentials.NewAccessor(store, log)
	return a, nil
}

func (a *app) openStore(ctx context.Context) (credentials.Store, error) {
	switch a.cfg.CredentialsStore {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     a.cfg.RedisAddr,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return credentials.NewRedisStore(rdb), nil

	case config.StorePostgres:
		d, err := db.Open(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, d.Close)
		if err := d.Ping(ctx); err != nil {
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if err := migrate.Up(ctx, d); err != nil {
			return nil, err
		}
		aead, err := crypto.New(a.cfg.CredEncKey)
		if err != nil {
			return nil, err
		}
		return credentials.NewPostgresStore(d, aead), nil

	default:
		return credentials.NewFileStore(a.cfg.CredentialsFile), nil
	}
}

func (a *app) client() *isuzem.Client {
	return isuzem.New(isuzem.Config{
		BaseURL:        a.cfg.BaseURL,
		FoundationCode: a.cfg.FoundationCode,
		LocationID:     a.cfg.LocationID,
		Timeout:        a.cfg.HTTPTimeout,
	}, a.log)
}

func (a *app) poller(reg prometheus.Registerer, hooks poller.Hooks) *poller.Poller {
	c := a.client()
	return poller.New(poller.Deps{
		Credentials: a.creds,
		Fetcher:     c,
		Reserver:    c,
		Hooks:       hooks,
		Logger:      a.log,
		Metrics:     metrics.NewPollerMetrics(reg),
	}, poller.Config{
		Interval:    a.cfg.PollInterval,
		SkipOverlap: a.cfg.SkipOverlap,
	})
}

func (a *app) notifier() *notify.Dispatcher {
	ns := []notify.Notifier{notify.NewLogNotifier(a.log)}
	if c := notify.NewLINEClient(a.cfg.LineChannelToken, a.cfg.LineUserID, &http.Client{Timeout: a.cfg.HTTPTimeout}); c != nil {
		ns = append(ns, c)
	}
	if s := notify.NewSendGridNotifier(notify.SendGridConfig{
		APIKey:    a.cfg.SendGridAPIKey,
		FromEmail: a.cfg.NotifyEmailFrom,
		To:        a.cfg.NotifyEmailTo,
	}); s != nil {
		ns = append(ns, s)
	}
	return notify.NewDispatcher(a.log, ns...)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}
