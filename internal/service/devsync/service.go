package devsync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmehdipour/worktimer/internal/devops"
	"github.com/jmehdipour/worktimer/internal/metrics"
	"github.com/jmehdipour/worktimer/internal/model"
	"github.com/jmehdipour/worktimer/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

func (m Mode) Valid() bool { return m == ModeFull || m == ModeIncremental }

type Result struct {
	Customer string `json:"customer"`
	Mode     Mode   `json:"mode"`
	Items    int    `json:"items"`
}

// CycleReport summarizes one pass over all current customers.
type CycleReport struct {
	Mode    Mode              `json:"mode"`
	Synced  []Result          `json:"synced"`
	Skipped []string          `json:"skipped"`
	Failed  map[string]string `json:"failed"`
}

// Service mirrors remote work items per customer.
type Service struct {
	customers   repository.CustomersRepository
	items       repository.WorkItemsRepository
	connector   devops.Connector
	status      StatusStore
	log         *zap.Logger
	now         func() time.Time
	concurrency int
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConcurrency bounds how many customers a cycle syncs at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func New(
	customers repository.CustomersRepository,
	items repository.WorkItemsRepository,
	connector devops.Connector,
	status StatusStore,
	log *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		customers:   customers,
		items:       items,
		connector:   connector,
		status:      status,
		log:         log.With(zap.String("service", "devsync")),
		now:         time.Now,
		concurrency: 4,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// connect opens a session for the current version of customer.
func (s *Service) connect(ctx context.Context, customer string) (devops.Conn, error) {
	c, err := s.customers.GetCurrent(ctx, nil, customer)
	if err != nil {
		return nil, err
	}
	if !c.HasCredentials() {
		return nil, model.NewValidationError("credentials", fmt.Sprintf("customer %q has no organization or token", customer))
	}
	return s.connector.Connect(ctx, devops.Credentials{OrgRef: *c.OrgRef, Token: *c.Token})
}

// FullSync replaces the customer's mirror with everything the remote holds.
func (s *Service) FullSync(ctx context.Context, customer string) (Result, error) {
	conn, err := s.connect(ctx, customer)
	if err != nil {
		return Result{}, fmt.Errorf("full sync %q: %w", customer, err)
	}

	items, err := conn.QueryItems(ctx, conn.Project(), devops.ItemQuery{Types: model.SyncedTypes})
	if err != nil {
		return Result{}, fmt.Errorf("full sync %q: %w", customer, err)
	}
	stamp(items, customer)

	if err := s.items.Replace(ctx, customer, items, s.now()); err != nil {
		return Result{}, fmt.Errorf("full sync %q: %w", customer, err)
	}

	metrics.SyncItems.WithLabelValues(string(ModeFull)).Add(float64(len(items)))
	return Result{Customer: customer, Mode: ModeFull, Items: len(items)}, nil
}

// IncrementalSync appends items above the local watermark. An empty mirror
// fetches everything.
func (s *Service) IncrementalSync(ctx context.Context, customer string) (Result, error) {
	conn, err := s.connect(ctx, customer)
	if err != nil {
		return Result{}, fmt.Errorf("incremental sync %q: %w", customer, err)
	}

	q := devops.ItemQuery{Types: model.SyncedTypes}
	wm, ok, err := s.items.Watermark(ctx, customer)
	if err != nil {
		return Result{}, fmt.Errorf("incremental sync %q: %w", customer, err)
	}
	if ok {
		q.MinID = &wm
	}

	items, err := conn.QueryItems(ctx, conn.Project(), q)
	if err != nil {
		return Result{}, fmt.Errorf("incremental sync %q: %w", customer, err)
	}
	stamp(items, customer)

	n, err := s.items.Append(ctx, items, s.now())
	if err != nil {
		return Result{}, fmt.Errorf("incremental sync %q: %w", customer, err)
	}

	metrics.SyncItems.WithLabelValues(string(ModeIncremental)).Add(float64(n))
	return Result{Customer: customer, Mode: ModeIncremental, Items: n}, nil
}

func stamp(items []model.WorkItem, customer string) {
	for i := range items {
		items[i].CustomerName = customer
	}
}

// Sync runs one mode for one customer and records the outcome.
func (s *Service) Sync(ctx context.Context, customer string, mode Mode) (Result, error) {
	var (
		res Result
		err error
	)
	switch mode {
	case ModeFull:
		res, err = s.FullSync(ctx, customer)
	case ModeIncremental:
		res, err = s.IncrementalSync(ctx, customer)
	default:
		return Result{}, model.NewValidationError("mode", "must be full or incremental")
	}

	st := Status{Customer: customer, Mode: mode, Items: res.Items, At: s.now().UTC()}
	if err != nil {
		st.Stale = true
		st.Reason = err.Error()
	}
	if perr := s.status.Put(ctx, st); perr != nil {
		s.log.Warn("sync status not stored", zap.String("customer", customer), zap.Error(perr))
	}
	return res, err
}

// RunCycle syncs every current customer with credentials. A failing customer
// is logged and marked stale; the others still run.
func (s *Service) RunCycle(ctx context.Context, mode Mode) (CycleReport, error) {
	if !mode.Valid() {
		return CycleReport{}, model.NewValidationError("mode", "must be full or incremental")
	}
	start := time.Now()
	defer func() {
		metrics.SyncDuration.WithLabelValues(string(mode)).Observe(time.Since(start).Seconds())
	}()

	customers, err := s.customers.ListCurrent(ctx, nil)
	if err != nil {
		return CycleReport{}, fmt.Errorf("sync cycle: %w", err)
	}

	report := CycleReport{Mode: mode, Failed: map[string]string{}}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, c := range customers {
		if !c.HasCredentials() {
			report.Skipped = append(report.Skipped, c.Name)
			metrics.SyncCustomers.WithLabelValues(string(mode), "skipped").Inc()
			continue
		}

		name := c.Name
		g.Go(func() error {
			res, err := s.syncOne(ctx, name, mode)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[name] = err.Error()
				metrics.SyncCustomers.WithLabelValues(string(mode), "failed").Inc()
				s.log.Error("customer sync failed", zap.String("customer", name), zap.String("mode", string(mode)), zap.Error(err))
				return nil
			}
			report.Synced = append(report.Synced, res)
			metrics.SyncCustomers.WithLabelValues(string(mode), "ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("sync cycle finished",
		zap.String("mode", string(mode)),
		zap.Int("synced", len(report.Synced)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("failed", len(report.Failed)),
	)
	return report, ctx.Err()
}

// syncOne runs Sync on a cycle worker goroutine. A panic there would take
// the process down, so it is turned into an error and the customer is marked
// stale.
func (s *Service) syncOne(ctx context.Context, customer string, mode Mode) (res Result, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = fmt.Errorf("sync %s panicked: %v", customer, r)
		s.log.Error("customer sync panicked",
			zap.String("customer", customer),
			zap.String("mode", string(mode)),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
		st := Status{Customer: customer, Mode: mode, Stale: true, Reason: err.Error(), At: s.now().UTC()}
		if perr := s.status.Put(ctx, st); perr != nil {
			s.log.Warn("sync status not stored", zap.String("customer", customer), zap.Error(perr))
		}
	}()
	return s.Sync(ctx, customer, mode)
}

// WorkItems returns the customer's mirror with parents resolved.
func (s *Service) WorkItems(ctx context.Context, customer string, types []model.WorkItemType, search string) ([]model.WorkItemView, error) {
	return s.items.List(ctx, repository.WorkItemFilter{Customer: customer, Types: types, Search: search})
}

func (s *Service) Statuses(ctx context.Context) ([]Status, error) {
	return s.status.All(ctx)
}

// PostComment adds text to a work item's discussion. Line breaks become
// <br> since the tracker renders comments as HTML.
func (s *Service) PostComment(ctx context.Context, customer string, id int64, text string) error {
	conn, err := s.connect(ctx, customer)
	if err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	return conn.AddComment(ctx, conn.Project(), id, strings.ReplaceAll(text, "\n", "<br>"))
}

func (s *Service) CreateItem(ctx context.Context, customer string, typ model.WorkItemType, fields devops.Fields, opts devops.CreateOptions) (int64, error) {
	conn, err := s.connect(ctx, customer)
	if err != nil {
		return 0, fmt.Errorf("create work item: %w", err)
	}
	return conn.CreateItem(ctx, conn.Project(), typ, fields, opts)
}

func (s *Service) UpdateItem(ctx context.Context, customer string, id int64, fields devops.Fields) error {
	conn, err := s.connect(ctx, customer)
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	return conn.UpdateItem(ctx, conn.Project(), id, fields)
}
