// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes meaning "this deployment cannot run transactions".
//   - 20:  IllegalOperation (standalone mongod)
//   - 51:  legacy IllegalOperation
//   - 263: OperationNotSupportedInTransaction
var unsupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err means multi-document transactions are
// unavailable on the connected deployment.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return unsupportedCodes[ce.Code]
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "transaction") &&
		(strings.Contains(msg, "replica set") ||
			strings.Contains(msg, "session") ||
			strings.Contains(msg, "illegal operation")) {
		return true
	}
	return strings.Contains(msg, "session") && strings.Contains(msg, "not supported")
}

// Runner executes a unit of work inside a Mongo transaction when the
// deployment supports one, and sequentially otherwise.
//
// Once a transaction attempt reports IsNotSupported the runner stays in
// sequential mode for the life of the process.
type Runner struct {
	client     *mongo.Client
	log        *zap.Logger
	sequential atomic.Bool
}

// New returns a Runner. A nil client gives a runner that is always sequential.
func New(client *mongo.Client, logger *zap.Logger) *Runner {
	r := &Runner{client: client, log: logger}
	if client == nil {
		r.sequential.Store(true)
	}
	return r
}

// Sequential reports whether the runner has given up on transactions.
func (r *Runner) Sequential() bool {
	return r.sequential.Load()
}

// Do runs fn. Inside a transaction fn receives the session context, so every
// store call made with it joins the transaction.
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.sequential.Load() {
		return fn(ctx)
	}

	sess, err := r.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			r.fallback(err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		r.fallback(err)
		return fn(ctx)
	}
	return err
}

func (r *Runner) fallback(cause error) {
	if r.sequential.CompareAndSwap(false, true) && r.log != nil {
		r.log.Warn("mongo transactions unavailable; using sequential writes",
			zap.Error(cause))
	}
}
