// Package app builds the service graph shared by the server and the CLI.
// Postgres-backed stores are used when a database URL is configured,
// otherwise everything runs in process memory.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"qualify/internal/assessment"
	assessmentstore "qualify/internal/assessment/store"
	"qualify/internal/certificate"
	certificatestore "qualify/internal/certificate/store"
	"qualify/internal/governance"
	governancestore "qualify/internal/governance/store"
	"qualify/internal/jwttoken"
	"qualify/internal/matrix"
	"qualify/internal/notification"
	"qualify/internal/platform/config"
	"qualify/internal/platform/metrics"
	"qualify/internal/platform/postgres"
	platformredis "qualify/internal/platform/redis"
	"qualify/internal/ratelimit"
	ratelimitstore "qualify/internal/ratelimit/store"
	"qualify/internal/records"
	recordstore "qualify/internal/records/store"
	"qualify/internal/retraining"
	"qualify/internal/scheduler"
	schedulerstore "qualify/internal/scheduler/store"
	"qualify/internal/signature"
	signaturestore "qualify/internal/signature/store"
	"qualify/internal/training"
	trainingstore "qualify/internal/training/store"
	"qualify/internal/users"
	userstore "qualify/internal/users/store"
	"qualify/pkg/platform/audit"
	auditmemory "qualify/pkg/platform/audit/store/memory"
	auditpostgres "qualify/pkg/platform/audit/store/postgres"
	"qualify/pkg/platform/clock"
)

// App holds the wired services and the infrastructure they run on.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	DB       *sql.DB
	Redis    *platformredis.Client

	AuditStore audit.Store
	// Outbox is set only on Postgres, where audit rows are mirrored to the
	// outbox table for the Kafka relay.
	Outbox *auditpostgres.Store
	Trail  *audit.Trail

	Tokens      *jwttoken.Service
	Users       *users.Service
	Trainings   *training.Service
	Assessments *assessment.Service
	Signatures  *signature.Gate
	Governance  *governance.Service
	Records     *records.Service
	Retraining  *retraining.Trigger
	Matrix      *matrix.Service
	Notices     *notification.Dispatcher
	Runner      *scheduler.Runner
	Limiter     *ratelimit.Limiter
}

// Build connects to the configured backends and wires every service.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Registry: metrics.NewRegistry()}

	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		if cfg.Database.MigrateOnStart {
			if err := postgres.Migrate(db); err != nil {
				_ = a.Close()
				return nil, err
			}
		}
	}
	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Redis = rdb

	if err := a.wire(); err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "services wired",
		"postgres", a.DB != nil,
		"redis", a.Redis != nil,
	)
	return a, nil
}

func (a *App) wire() error {
	cfg := a.Config
	reg := a.Registry
	logger := a.Logger

	s := a.stores()
	a.AuditStore = s.audit
	a.Trail = audit.NewTrail(s.audit,
		audit.WithLogger(logger),
		audit.WithMetrics(audit.NewMetrics(reg)),
		audit.WithBufferCapacity(cfg.Audit.BufferCapacity),
		audit.WithRetryInterval(cfg.Audit.RetryInterval),
	)

	a.Tokens = jwttoken.NewService(cfg.Auth.SigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)

	var err error
	if a.Users, err = users.New(s.users, users.WithLogger(logger)); err != nil {
		return fmt.Errorf("users: %w", err)
	}
	if a.Trainings, err = training.New(s.trainings, training.WithLogger(logger)); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if a.Assessments, err = assessment.New(s.assessments, s.attempts,
		assessment.WithLogger(logger),
		assessment.WithAuditor(a.Trail),
	); err != nil {
		return fmt.Errorf("assessment: %w", err)
	}
	certs, err := certificate.New(s.certificates,
		certificate.LinkRenderer{BaseURL: cfg.Certificate.BaseURL},
		certificate.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("certificate: %w", err)
	}

	if a.Signatures, err = signature.NewGate(
		signature.NewPasswordVerifier(a.Users),
		s.signatures,
		s.lockouts,
		a.Trail,
		signature.WithLogger(logger),
		signature.WithMetrics(signature.NewMetrics(reg)),
		signature.WithPolicy(signature.Policy{
			MaxFailures: cfg.Signature.MaxFailures,
			Window:      cfg.Signature.Window,
			Lockout:     cfg.Signature.Lockout,
		}),
	); err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	if a.Governance, err = governance.New(s.governance, a.Signatures, a.Trail, governance.WithLogger(logger)); err != nil {
		return fmt.Errorf("governance: %w", err)
	}

	a.Notices = notification.NewDispatcher(notification.NewLogNotifier(logger),
		notification.WithLogger(logger),
		notification.WithMetrics(notification.NewMetrics(reg)),
	)

	if a.Records, err = records.New(s.records, s.tx, a.Assessments, certs, a.Trainings, a.Trail,
		records.WithLogger(logger),
		records.WithMetrics(records.NewMetrics(reg)),
		records.WithDirectory(a.Users),
		records.WithPolicy(a.Governance),
		records.WithNotifier(a.Notices),
	); err != nil {
		return fmt.Errorf("records: %w", err)
	}

	if a.Retraining, err = retraining.New(a.Trainings, a.Records, retraining.WithLogger(logger)); err != nil {
		return fmt.Errorf("retraining: %w", err)
	}
	a.Trainings.AddRevisionListener(a.Retraining)

	if a.Matrix, err = matrix.New(a.Users, a.Trainings, a.Records, a.Trail, matrix.WithLogger(logger)); err != nil {
		return fmt.Errorf("matrix: %w", err)
	}

	sweeps, err := scheduler.NewSweeps(a.Records.Sweeper(), s.markers, a.Notices,
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(scheduler.NewMetrics(reg)),
	)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	schedule := scheduler.Schedule{LockTTL: cfg.Scheduler.LockTTL}
	if cfg.Scheduler.Enabled {
		schedule.Overdue = cfg.Scheduler.OverdueSpec
		schedule.Expiry = cfg.Scheduler.ExpirySpec
		schedule.Reminders = cfg.Scheduler.ReminderSpec
	}
	if a.Runner, err = scheduler.NewRunner(sweeps, s.lock, schedule); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}

	if a.Limiter, err = ratelimit.New(s.windows,
		ratelimit.WithLogger(logger),
		ratelimit.WithMetrics(ratelimit.NewMetrics(reg)),
	); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}
	return nil
}

type backends struct {
	audit        audit.Store
	users        users.Store
	trainings    training.Store
	assessments  assessment.Store
	attempts     assessment.AttemptStore
	certificates certificate.Store
	signatures   signature.Store
	lockouts     signature.LockoutStore
	governance   governance.Store
	records      records.Store
	tx           records.Tx
	markers      scheduler.Markers
	lock         scheduler.Lock
	windows      ratelimit.Store
}

func (a *App) stores() backends {
	var b backends
	if a.DB != nil {
		a.Outbox = auditpostgres.New(a.DB)
		b.audit = a.Outbox
		b.users = userstore.NewPostgres(a.DB)
		b.trainings = trainingstore.NewPostgres(a.DB)
		assessments := assessmentstore.NewPostgres(a.DB)
		b.assessments, b.attempts = assessments, assessments
		b.certificates = certificatestore.NewPostgres(a.DB)
		b.signatures = signaturestore.NewPostgres(a.DB)
		b.lockouts = signaturestore.NewPostgresLockouts(a.DB)
		b.governance = governancestore.NewPostgres(a.DB)
		b.records = recordstore.NewPostgres(a.DB)
		b.tx = recordstore.NewPostgresTx(a.DB)
		b.markers = schedulerstore.NewPostgresMarkers(a.DB)
	} else {
		b.audit = auditmemory.NewInMemoryStore()
		b.users = userstore.NewInMemoryStore()
		b.trainings = trainingstore.NewInMemoryStore()
		assessments := assessmentstore.NewInMemoryStore()
		b.assessments, b.attempts = assessments, assessments
		b.certificates = certificatestore.NewInMemoryStore()
		b.signatures = signaturestore.NewInMemoryStore()
		b.lockouts = signaturestore.NewInMemoryLockouts()
		b.governance = governancestore.NewInMemoryStore()
		b.records = recordstore.NewInMemoryStore()
		b.tx = records.NewShardedTx()
		b.markers = schedulerstore.NewInMemoryMarkers()
	}

	// Redis takes over the cross-instance state when present.
	if a.Redis != nil {
		b.lockouts = signaturestore.NewRedisLockouts(a.Redis.Client)
		b.markers = schedulerstore.NewRedisMarkers(a.Redis.Client)
		b.lock = schedulerstore.NewRedisLock(a.Redis.Client)
		b.windows = ratelimitstore.NewRedisWindows(a.Redis.Client)
	} else {
		b.lock = schedulerstore.NewInMemoryLock(clock.System{})
		b.windows = ratelimitstore.NewInMemoryWindows(clock.System{})
	}
	return b
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
