package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"github.com/jmehdipour/worktimer/internal/util"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const DefaultTopic = "ledger.timer"

// Service owns the timer state machine and every write to time entries.
type Service struct {
	db        *sqlx.DB
	customers repository.CustomersRepository
	projects  repository.ProjectsRepository
	entries   repository.LedgerRepository
	bonus     repository.BonusRepository
	outbox    repository.OutboxRepository
	log       *zap.Logger

	now   func() time.Time
	loc   *time.Location
	topic string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used to derive an entry's calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func WithTopic(topic string) Option {
	return func(s *Service) { s.topic = topic }
}

func New(
	db *sqlx.DB,
	customers repository.CustomersRepository,
	projects repository.ProjectsRepository,
	entries repository.LedgerRepository,
	bonus repository.BonusRepository,
	outbox repository.OutboxRepository,
	log *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		db:        db,
		customers: customers,
		projects:  projects,
		entries:   entries,
		bonus:     bonus,
		outbox:    outbox,
		log:       log.With(zap.String("service", "ledger")),
		now:       time.Now,
		loc:       time.Local,
		topic:     DefaultTopic,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) dayOf(t time.Time) model.Date {
	return model.DateOf(t.In(s.loc))
}

// publish stores a ledger event in the outbox inside the caller's transaction.
func (s *Service) publish(ctx context.Context, tx *sqlx.Tx, typ model.LedgerEventType, e model.TimeEntry, at time.Time) error {
	ev := model.LedgerEvent{
		ID:           util.NewAt(at),
		Type:         typ,
		EntryID:      e.ID,
		CustomerID:   e.CustomerID,
		CustomerName: e.CustomerName,
		ProjectID:    e.ProjectID,
		ProjectName:  e.ProjectName,
		ExternalRef:  e.ExternalRef,
		Comment:      e.Comment,
		ElapsedHours: e.ElapsedHours,
		OccurredAt:   at.UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}
	if err := s.outbox.Insert(ctx, tx, "time_entry", strconv.FormatInt(e.ID, 10), s.topic, payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
