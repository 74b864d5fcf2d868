// Package app wires configuration into the services shared by the API server
// and the command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/admission"
	"github.com/hackgods/clinical-encounters/internal/appointment"
	"github.com/hackgods/clinical-encounters/internal/clinical"
	"github.com/hackgods/clinical-encounters/internal/config"
	"github.com/hackgods/clinical-encounters/internal/db"
	"github.com/hackgods/clinical-encounters/internal/directory"
	"github.com/hackgods/clinical-encounters/internal/email"
	"github.com/hackgods/clinical-encounters/internal/media"
	"github.com/hackgods/clinical-encounters/internal/memstore"
	"github.com/hackgods/clinical-encounters/internal/notification"
	redisclient "github.com/hackgods/clinical-encounters/internal/redis"
)

type App struct {
	Config config.Config
	Log    zerolog.Logger

	// Pool and Redis are nil when the matching backend is not configured.
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Directory     directory.Repository
	AdmissionRepo admission.Repository
	Appointments  *appointment.Service
	Sweeper       *appointment.Sweeper
	Admissions    *admission.Service
	Clinical      *clinical.Service
	Notifications *notification.Service

	closers []func() error
}

type repositories struct {
	tx            db.TxRunner
	appointments  appointment.Repository
	admissions    admission.Repository
	clinical      clinical.Repository
	notifications notification.Repository
	directory     directory.Repository
	emailLogs     email.LogStore
}

// New connects the configured backends and builds every service.
func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	repos, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	cached, err := directory.NewCachedRepository(repos.directory, cfg.DirectoryCacheSize)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("directory cache: %w", err)
	}
	a.Directory = cached
	a.AdmissionRepo = repos.admissions

	relay, err := a.emailRelay()
	if err != nil {
		a.Close()
		return nil, err
	}
	mailer := email.NewMailer(email.NewLoggedRelay(relay, repos.emailLogs, log), cfg.AppURL)

	locker, err := a.sweepLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Notifications = notification.NewService(repos.notifications, log)
	a.Appointments = appointment.NewService(repos.appointments, cached, a.Notifications, a.mediaProvider(), mailer, repos.tx, log)
	a.Sweeper = appointment.NewSweeper(a.Appointments, repos.appointments, locker, appointment.SweepConfig{
		PatientMissedAfter: cfg.PatientMissedAfter,
		DoctorMissedAfter:  cfg.DoctorMissedAfter,
	}, log)
	a.Admissions = admission.NewService(repos.admissions, repos.clinical, cached, a.Notifications, mailer, repos.tx, log)
	a.Clinical = clinical.NewService(repos.clinical, a.Admissions, repos.tx, log)

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repositories, error) {
	if a.Config.StoreDriver == config.DriverMemory {
		a.Log.Warn().Msg("using the in-memory store, data is lost on exit")
		store := memstore.New()
		return repositories{
			tx:            store,
			appointments:  store.Appointments(),
			admissions:    store.Admissions(),
			clinical:      store.Clinical(),
			notifications: store.Notifications(),
			directory:     store.Directory(),
			emailLogs:     store.EmailLogs(),
		}, nil
	}

	pgCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := db.ConnectPostgres(pgCtx, a.Config.PostgresDSN, db.PoolConfig{
		MaxConns: a.Config.DBMaxConns,
		MinConns: a.Config.DBMinConns,
	})
	if err != nil {
		return repositories{}, fmt.Errorf("postgres connection: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	a.Log.Info().Msg("connected to Postgres")

	return repositories{
		tx:            db.NewTxManager(pool),
		appointments:  appointment.NewPgRepository(pool),
		admissions:    admission.NewPgRepository(pool),
		clinical:      clinical.NewPgRepository(pool),
		notifications: notification.NewPgRepository(pool),
		directory:     directory.NewPgRepository(pool),
		emailLogs:     email.NewPgLogStore(pool),
	}, nil
}

func (a *App) emailRelay() (email.Relay, error) {
	cfg := a.Config
	switch cfg.EmailTransport {
	case config.EmailTransportSMTP:
		return email.NewSMTPRelay(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.SMTPFrom,
		}), nil
	case config.EmailTransportAMQP:
		relay, err := email.NewAMQPRelay(cfg.AMQPURL, cfg.AMQPEmailQueue)
		if err != nil {
			return nil, fmt.Errorf("amqp email relay: %w", err)
		}
		a.closers = append(a.closers, relay.Close)
		return relay, nil
	default:
		return email.NewLogRelay(a.Log), nil
	}
}

func (a *App) mediaProvider() media.Provider {
	if a.Config.MediaProvider == config.MediaStream {
		return media.NewStreamClient(media.StreamConfig{
			APIKey:    a.Config.StreamAPIKey,
			APISecret: a.Config.StreamAPISecret,
			BaseURL:   a.Config.StreamBaseURL,
		}, &http.Client{Timeout: 10 * time.Second})
	}
	return media.NewStatic(a.Config.AuthSigningKey)
}

// sweepLocker guards sweep runs across processes when Redis is configured
// and inside this process otherwise.
func (a *App) sweepLocker(ctx context.Context) (redisclient.Locker, error) {
	if a.Config.RedisAddr == "" {
		return redisclient.NewLocalLocker(), nil
	}
	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     a.Config.RedisAddr,
		Username: a.Config.RedisUsername,
		Password: a.Config.RedisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("redis connection: %w", err)
	}
	a.Redis = rdb
	a.closers = append(a.closers, rdb.Close)
	a.Log.Info().Msg("connected to Redis")
	return redisclient.NewRedisLocker(rdb, a.Config.LockTTL), nil
}

// Close releases the backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
