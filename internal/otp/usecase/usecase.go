package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/otp/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/idempotency"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTTL           = 10 * time.Minute
	defaultMaxAttempts   = 3
	defaultPruneInterval = 5 * time.Minute
	defaultRetention     = 24 * time.Hour
)

// DispatchRequest asks the gateway to deliver a freshly issued code.
type DispatchRequest struct {
	RecordID    int64
	Destination entity.Destination
	Code        string
	ExpiresAt   time.Time
	Purpose     string
}

type dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) error
}

type repoStore interface {
	FindLive(ctx context.Context, dest entity.Destination, now time.Time) (*entity.Record, error)
	Create(ctx context.Context, rec entity.Record) error
	Delete(ctx context.Context, id int64) error
	Verify(ctx context.Context, dest entity.Destination, codeHash string, now time.Time) (*entity.VerifyResult, error)
	Redeem(ctx context.Context, id int64, dest entity.Destination) (*entity.Record, error)
	PruneExpired(ctx context.Context, before time.Time) (int64, error)
}

type repoRegistry interface {
	IsRegistered(ctx context.Context, dest entity.Destination) (bool, error)
}

type Usecase struct {
	repoStore    repoStore
	repoRegistry repoRegistry
	dispatcher   dispatcher
	idemp        idempotency.Idempotency
	validator    validator.Validator
	cfg          config.Config
	hmac         hash.Hash
	uid          uid.NumberID
	generator    otp.Generator
	clock        clock.Clocker
	ticketer     jwt.Ticketer
	ins          instrument.Instrumentation
	metrics      *metrics
}

type Dependency struct {
	RepoStore    repoStore
	RepoRegistry repoRegistry
	Dispatcher   dispatcher
	Idempotency  idempotency.Idempotency
	Validator    validator.Validator
	Config       config.Config
	HMAC         hash.Hash
	UID          uid.NumberID
	Generator    otp.Generator
	Clock        clock.Clocker
	Ticketer     jwt.Ticketer
	Instrument   instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoStore:    dep.RepoStore,
		repoRegistry: dep.RepoRegistry,
		dispatcher:   dep.Dispatcher,
		idemp:        dep.Idempotency,
		validator:    dep.Validator,
		cfg:          dep.Config,
		hmac:         dep.HMAC,
		uid:          dep.UID,
		generator:    dep.Generator,
		clock:        dep.Clock,
		ticketer:     dep.Ticketer,
		ins:          dep.Instrument,
		metrics:      newMetrics(dep.Instrument.Meter("otp.usecase")),
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otp.usecase").Start(ctx, name)
}

func (s *Usecase) ttl() time.Duration {
	if ttl := s.cfg.GetMinute("modules.otp.ttl_minutes"); ttl > 0 {
		return ttl
	}
	return defaultTTL
}

func (s *Usecase) maxAttempts() int {
	if n := s.cfg.GetInt("modules.otp.max_attempts"); n > 0 {
		return n
	}
	return defaultMaxAttempts
}

func (s *Usecase) channelDisabled(ch entity.Channel) bool {
	return lo.ContainsBy(s.cfg.GetArray("modules.otp.channels.disabled"), func(c string) bool {
		return strings.EqualFold(strings.TrimSpace(c), ch.String())
	})
}
