package otp

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/otpgate/internal/otp/inbound"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/db"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/dispatch"
	"github.com/shandysiswandi/otpgate/internal/otp/outbound/memory"
	"github.com/shandysiswandi/otpgate/internal/otp/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	otpgen "github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/ratelimit"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

var ErrDBConnRequired = errors.New("otp: postgres store requires a database connection")

type Dependency struct {
	// DBConn may be nil when the memory store driver is selected.
	DBConn      *pgxpool.Pool
	Goroutine   *goroutine.Manager         `validate:"required"`
	Router      *router.Router             `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Messaging   messaging.Publisher        `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UID         uid.NumberID               `validate:"required"`
	HMAC        hash.Hash                  `validate:"required"`
	Clock       clock.Clocker              `validate:"required"`
	Generator   otpgen.Generator           `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
	Ticketer    jwt.Ticketer               `validate:"required"`
	// Limiter is optional; without it the per-client limits are off.
	Limiter ratelimit.Limiter
}

func New(ctx context.Context, dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	gateway, err := dispatch.New(dep.Config.GetString("modules.otp.dispatch.driver"), dep.Messaging, dep.Instrument, dispatch.RetryConfig{
		Attempts: uint64(dep.Config.GetInt64("modules.otp.dispatch.retry.attempts")),
		Base:     dep.Config.GetSecond("modules.otp.dispatch.retry.base_seconds"),
		Cap:      dep.Config.GetSecond("modules.otp.dispatch.retry.cap_seconds"),
	})
	if err != nil {
		return err
	}

	ucDep := usecase.Dependency{
		Dispatcher:  gateway,
		Idempotency: dep.Idempotency,
		Validator:   dep.Validator,
		Config:      dep.Config,
		HMAC:        dep.HMAC,
		UID:         dep.UID,
		Generator:   dep.Generator,
		Clock:       dep.Clock,
		Ticketer:    dep.Ticketer,
		Instrument:  dep.Instrument,
	}

	switch driver := dep.Config.GetString("modules.otp.store.driver"); driver {
	case "", StoreDriverPostgres:
		if dep.DBConn == nil {
			return ErrDBConnRequired
		}
		if dep.Config.GetBool("database.auto_migrate") {
			if err := db.Migrate(ctx, dep.DBConn); err != nil {
				return fmt.Errorf("otp: migrate: %w", err)
			}
		}
		dbOTP := db.NewDB(dep.DBConn, dep.Instrument)
		ucDep.RepoStore = dbOTP
		ucDep.RepoRegistry = dbOTP
	case StoreDriverMemory:
		ucDep.RepoStore = memory.NewStore()
		ucDep.RepoRegistry = memory.NewRegistry()
	default:
		return fmt.Errorf("otp: unknown store driver %q", driver)
	}

	uc := usecase.New(ucDep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Limiter, dep.Config)
	inbound.RegisterPruneJob(ctx, dep.Goroutine, uc)

	return nil
}
