// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/volunteerhub/internal/app/store/audit"
	"github.com/dalemusser/volunteerhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Destinations for one category.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"
	ModeLog = "log"
	ModeOff = "off"
)

// Config chooses destinations per category.
type Config struct {
	Auth   string
	Ledger string
}

// Eventer is the persistence side of the logger.
type Eventer interface {
	Log(ctx context.Context, e audit.Event) error
}

// Logger records audit events to the audit store and to zap.
// A nil *Logger drops everything, so handlers never need a nil check.
type Logger struct {
	store  Eventer
	zapLog *zap.Logger
	config Config
}

func New(store Eventer, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) mode(category string) string {
	switch category {
	case audit.CategoryAuth:
		return orAll(l.config.Auth)
	case audit.CategoryLedger, audit.CategoryListing:
		return orAll(l.config.Ledger)
	}
	return ModeAll
}

func orAll(m string) string {
	if m == "" {
		return ModeAll
	}
	return m
}

// Log records e according to its category's mode.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}
	mode := l.mode(e.Category)
	if mode == ModeOff {
		return
	}
	if mode == ModeAll || mode == ModeLog {
		l.logToZap(e)
	}
	if (mode == ModeAll || mode == ModeDB) && l.store != nil {
		if err := l.store.Log(ctx, e); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", e.EventType))
		}
	}
}

func (l *Logger) logToZap(e audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
	}
	if e.AccountID != "" {
		fields = append(fields, zap.String("account_id", e.AccountID))
	}
	if e.IP != "" {
		fields = append(fields, zap.String("ip", e.IP))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func requestEvent(r *http.Request, category, eventType, accountID string, success bool) audit.Event {
	return audit.Event{
		Category:  category,
		EventType: eventType,
		AccountID: accountID,
		IP:        ratelimit.ClientIP(r),
		UserAgent: r.UserAgent(),
		Success:   success,
	}
}

// --- auth ---

func (l *Logger) Registered(ctx context.Context, r *http.Request, accountID string) {
	l.Log(ctx, requestEvent(r, audit.CategoryAuth, audit.EventRegistered, accountID, true))
}

// SignInSuccess logs a sign-in; method is "password" or "google".
func (l *Logger) SignInSuccess(ctx context.Context, r *http.Request, accountID, method string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignInSuccess, accountID, true)
	e.Details = map[string]string{"method": method}
	l.Log(ctx, e)
}

func (l *Logger) SignInFailed(ctx context.Context, r *http.Request, email, reason string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignInFailed, "", false)
	e.FailureReason = reason
	e.Details = map[string]string{"attempted_email": email}
	l.Log(ctx, e)
}

func (l *Logger) SignInRateLimited(ctx context.Context, r *http.Request, email string) {
	e := requestEvent(r, audit.CategoryAuth, audit.EventSignInRateLimit, "", false)
	e.FailureReason = "rate limited"
	e.Details = map[string]string{"attempted_email": email}
	l.Log(ctx, e)
}

func (l *Logger) SignOut(ctx context.Context, r *http.Request, accountID string) {
	l.Log(ctx, requestEvent(r, audit.CategoryAuth, audit.EventSignOut, accountID, true))
}

func (l *Logger) ProfileCompleted(ctx context.Context, r *http.Request, accountID string) {
	l.Log(ctx, requestEvent(r, audit.CategoryAuth, audit.EventProfileCompleted, accountID, true))
}

// --- ledger ---

func (l *Logger) SignupCreated(ctx context.Context, r *http.Request, accountID, opportunityID string) {
	e := requestEvent(r, audit.CategoryLedger, audit.EventSignupCreated, accountID, true)
	e.Details = map[string]string{"opportunity_id": opportunityID}
	l.Log(ctx, e)
}

func (l *Logger) SignupCanceled(ctx context.Context, r *http.Request, accountID, opportunityID string) {
	e := requestEvent(r, audit.CategoryLedger, audit.EventSignupCanceled, accountID, true)
	e.Details = map[string]string{"opportunity_id": opportunityID}
	l.Log(ctx, e)
}

func (l *Logger) OpportunityPublished(ctx context.Context, r *http.Request, accountID, opportunityID string) {
	e := requestEvent(r, audit.CategoryListing, audit.EventOpportunityPublished, accountID, true)
	e.Details = map[string]string{"opportunity_id": opportunityID}
	l.Log(ctx, e)
}
