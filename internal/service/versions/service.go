package versions

import (
	"time"

	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Service maintains the slowly changing customer and project tables.
type Service struct {
	db        *sqlx.DB
	customers repository.CustomersRepository
	projects  repository.ProjectsRepository
	entries   repository.LedgerRepository
	log       *zap.Logger

	now func() time.Time
	loc *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func New(
	db *sqlx.DB,
	customers repository.CustomersRepository,
	projects repository.ProjectsRepository,
	entries repository.LedgerRepository,
	log *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		db:        db,
		customers: customers,
		projects:  projects,
		entries:   entries,
		log:       log.With(zap.String("service", "versions")),
		now:       time.Now,
		loc:       time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
