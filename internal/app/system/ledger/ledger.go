// internal/app/system/ledger/ledger.go
//
// Package ledger keeps the signups collection and each opportunity's
// signup_count in step. A signup is (check, insert record, increment
// counter) run as one unit of work; a cancel is (delete record, decrement
// counter). When the deployment supports transactions the unit is atomic;
// otherwise the steps run in order and a failure between them can leave the
// counter off by one until corrected by hand.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/store/signups"
	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

// Records is the signup record store.
type Records interface {
	Exists(ctx context.Context, userID, opportunityID string) (bool, error)
	Insert(ctx context.Context, userID, opportunityID string, at time.Time) (models.Signup, error)
	Delete(ctx context.Context, userID, opportunityID string) (int64, error)
	OpportunityIDsForUser(ctx context.Context, userID string) ([]string, error)
}

// Counter adjusts an opportunity's denormalized signup_count.
type Counter interface {
	IncrementSignups(ctx context.Context, opportunityID string, delta int64) error
}

// Transactor runs fn as one unit of work. txn.Runner is the production one.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Recorder receives one count per operation outcome.
type Recorder interface {
	LedgerOp(op, result string)
}

const (
	opSignUp = "signup"
	opCancel = "cancel"
)

type Ledger struct {
	records Records
	counter Counter
	tx      Transactor
	metrics Recorder
	log     *zap.Logger
	now     func() time.Time
}

// New builds a Ledger. metrics may be nil.
func New(records Records, counter Counter, tx Transactor, metrics Recorder, logger *zap.Logger) *Ledger {
	return &Ledger{
		records: records,
		counter: counter,
		tx:      tx,
		metrics: metrics,
		log:     logger,
		now:     time.Now,
	}
}

// Refresh returns the ids of every opportunity userID has joined.
func (l *Ledger) Refresh(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}
	ids, err := l.records.OpportunityIDsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Store("list signups", err)
	}
	return ids, nil
}

// SignUp joins userID to opportunityID and returns the refreshed joined set.
//
// An existing signup yields ErrAlreadySignedUp with the counter untouched;
// the joined set is still refreshed so a stale view catches up. If the write
// succeeded but the refresh failed, joined is nil and err is nil.
func (l *Ledger) SignUp(ctx context.Context, userID, opportunityID string) (joined []string, err error) {
	defer func() { l.count(opSignUp, err) }()

	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}

	inserted := false
	err = l.tx.Do(ctx, func(ctx context.Context) error {
		inserted = false
		exists, err := l.records.Exists(ctx, userID, opportunityID)
		if err != nil {
			return apperr.Store("check signup", err)
		}
		if exists {
			return apperr.ErrAlreadySignedUp
		}

		if _, err := l.records.Insert(ctx, userID, opportunityID, l.now()); err != nil {
			if errors.Is(err, signups.ErrDuplicate) {
				return apperr.ErrAlreadySignedUp
			}
			return apperr.Store("insert signup", err)
		}
		inserted = true

		if err := l.counter.IncrementSignups(ctx, opportunityID, 1); err != nil {
			return apperr.Store("increment signup_count", err)
		}
		return nil
	})

	switch {
	case errors.Is(err, apperr.ErrAlreadySignedUp):
		joined, _ = l.Refresh(ctx, userID)
		return joined, err
	case err != nil:
		if inserted && !l.atomic() {
			l.log.Error("signup recorded but counter not incremented",
				zap.String("user_id", userID),
				zap.String("opportunity_id", opportunityID),
				zap.Error(err))
		}
		return nil, err
	}

	return l.refreshAfterWrite(ctx, userID, opSignUp), nil
}

// CancelSignUp removes userID from opportunityID and returns the refreshed
// joined set. The counter is decremented even when no record existed; that
// case is logged.
func (l *Ledger) CancelSignUp(ctx context.Context, userID, opportunityID string) (joined []string, err error) {
	defer func() { l.count(opCancel, err) }()

	if userID == "" {
		return nil, apperr.ErrNotAuthenticated
	}

	var deleted int64
	err = l.tx.Do(ctx, func(ctx context.Context) error {
		n, err := l.records.Delete(ctx, userID, opportunityID)
		if err != nil {
			return apperr.Store("delete signup", err)
		}
		deleted = n

		if err := l.counter.IncrementSignups(ctx, opportunityID, -1); err != nil {
			return apperr.Store("decrement signup_count", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if deleted == 0 {
		l.log.Warn("cancel without a signup record; counter decremented anyway",
			zap.String("user_id", userID),
			zap.String("opportunity_id", opportunityID))
	}
	return l.refreshAfterWrite(ctx, userID, opCancel), nil
}

func (l *Ledger) refreshAfterWrite(ctx context.Context, userID, op string) []string {
	joined, err := l.Refresh(ctx, userID)
	if err != nil {
		l.log.Warn("refresh after "+op+" failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return joined
}

// atomic reports whether the transactor rolls back partial work.
func (l *Ledger) atomic() bool {
	if s, ok := l.tx.(interface{ Sequential() bool }); ok {
		return !s.Sequential()
	}
	return false
}

func (l *Ledger) count(op string, err error) {
	if l.metrics != nil {
		l.metrics.LedgerOp(op, apperr.Kind(err))
	}
}
