package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/metrics"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/queue"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/store"
)

// Lifecycle event types published after a mutation commits.
const (
	EventUserCreated       = "user.created"
	EventUserDeleted       = "user.deleted"
	EventUserRestored      = "user.restored"
	EventUserPurged        = "user.purged"
	EventAttendanceMarked  = "attendance.marked"
	EventAttendanceDeleted = "attendance.deleted"
	EventTodoCreated       = "todo.created"
	EventTodoUpdated       = "todo.updated"
	EventTodoDeleted       = "todo.deleted"
)

// Publisher receives lifecycle events. queue.Queue satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	// BackfillStart and BackfillEnd bound the attendance history generated
	// for new staff accounts, both inclusive.
	BackfillStart time.Time
	BackfillEnd   time.Time
	Status        StatusFunc

	// ProtectAdminUsers refuses to delete any admin account.
	ProtectAdminUsers bool
	// ProtectLastAdmin refuses to delete the only remaining admin.
	ProtectLastAdmin bool

	Now     func() time.Time
	Events  Publisher
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Service owns the user lifecycle: creation with backfill, soft delete,
// undo and purge, plus attendance and todo mutations. Every mutation runs
// inside one store.Atomic unit.
type Service struct {
	store store.Store
	opts  Options
	log   *slog.Logger
}

// NewService creates a service backed by st.
func NewService(st store.Store, opts Options) *Service {
	if opts.BackfillStart.IsZero() {
		opts.BackfillStart = DefaultBackfillStart
	}
	if opts.BackfillEnd.IsZero() {
		opts.BackfillEnd = DefaultBackfillEnd
	}
	if opts.Status == nil {
		opts.Status = RandomStatus(DefaultPresentRate)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Events == nil {
		opts.Events = queue.Discard{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: st, opts: opts, log: log.With("component", "attendance")}
}

// Store returns the backing store.
func (s *Service) Store() store.Store { return s.store }

// now is truncated to milliseconds, the coarsest precision any backend
// keeps, so archived timestamps round-trip unchanged.
func (s *Service) now() time.Time {
	return s.opts.Now().UTC().Truncate(time.Millisecond)
}

// publish emits an event after a committed mutation. Delivery failures are
// logged and never fail the operation.
func (s *Service) publish(ctx context.Context, typ string, body any) {
	msg, err := queue.NewMessage(typ, body)
	if err == nil {
		err = s.opts.Events.Publish(ctx, msg)
	}
	if err != nil {
		s.log.WarnContext(ctx, "publish event failed", "type", typ, "err", err)
	}
}

func (s *Service) observe(op string, err error) {
	s.opts.Metrics.ObserveOp(op, err)
	if err != nil {
		s.log.Debug("operation failed", "op", op, "err", err)
	}
}

func highest[T any](recs []T, key func(T) int) int {
	top := 0
	for _, r := range recs {
		if k := key(r); k > top {
			top = k
		}
	}
	return top
}
