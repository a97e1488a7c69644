package sessionctx

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/auth"
	"github.com/dalemusser/volunteerhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

// Accounts creates and authenticates email + password accounts.
type Accounts interface {
	Create(ctx context.Context, email, password string) (models.Account, error)
	Authenticate(ctx context.Context, email, password string) (models.Account, error)
}

// Profiles reads and writes user profiles.
type Profiles interface {
	Get(ctx context.Context, accountID string) (*models.UserProfile, error)
	CreateIfAbsent(ctx context.Context, p models.UserProfile) (bool, error)
}

// Refresher recomputes the joined set for an account.
type Refresher interface {
	Refresh(ctx context.Context, userID string) ([]string, error)
}

// Password bounds, matching the account store.
const (
	minPasswordLen = 6
	maxPasswordLen = 72
)

type Controller struct {
	accounts Accounts
	profiles Profiles
	ledger   Refresher
	log      *zap.Logger
	now      func() time.Time
}

func NewController(accounts Accounts, profiles Profiles, ledger Refresher, logger *zap.Logger) *Controller {
	return &Controller{
		accounts: accounts,
		profiles: profiles,
		ledger:   ledger,
		log:      logger,
		now:      time.Now,
	}
}

// OnSessionChange resolves a session notification into a context. An empty
// accountID means no session. A missing profile or a failed ledger refresh
// still yields an authenticated context.
func (c *Controller) OnSessionChange(ctx context.Context, accountID, email string) *Context {
	sc := New()
	if accountID == "" {
		sc.Teardown()
		return sc
	}
	sc.begin(accountID, email)

	p, err := c.profiles.Get(ctx, accountID)
	if err != nil {
		c.log.Warn("profile lookup failed; continuing without profile",
			zap.String("account_id", accountID), zap.Error(err))
		p = nil
	}

	joined, err := c.ledger.Refresh(ctx, accountID)
	if err != nil {
		c.log.Warn("ledger refresh failed",
			zap.String("account_id", accountID), zap.Error(err))
		joined = nil
	}

	sc.finish(p, joined)
	return sc
}

// ProfileInput is the profile half of a registration form.
type ProfileInput struct {
	FirstName   string
	LastName    string
	DateOfBirth string
	Experience  string
	Skills      []string
}

// Registration is a sign-up form.
type Registration struct {
	Email    string
	Password string
	ProfileInput
}

func (c *Controller) buildProfile(accountID, email string, in ProfileInput) (models.UserProfile, error) {
	first := htmlsanitize.PlainText(normalize.Name(in.FirstName))
	if first == "" {
		return models.UserProfile{}, apperr.Invalid("first_name", "First name is required.")
	}
	last := htmlsanitize.PlainText(normalize.Name(in.LastName))
	if last == "" {
		return models.UserProfile{}, apperr.Invalid("last_name", "Last name is required.")
	}
	dob, ok := inputval.ParseBirthDate(in.DateOfBirth, c.now())
	if !ok {
		return models.UserProfile{}, apperr.Invalid("date_of_birth", "Enter a valid date of birth.")
	}
	exp, ok := models.ParseExperience(in.Experience)
	if !ok {
		return models.UserProfile{}, apperr.Invalid("experience", "Select an experience level.")
	}
	skills, unknown := models.NormalizeSkills(in.Skills)
	if len(unknown) > 0 {
		return models.UserProfile{}, apperr.Invalid("skills", "Unknown skill: "+unknown[0]+".")
	}
	if len(skills) == 0 {
		return models.UserProfile{}, apperr.Invalid("skills", "Select at least one skill.")
	}

	return models.UserProfile{
		ID:          accountID,
		Email:       email,
		FirstName:   first,
		LastName:    last,
		DateOfBirth: dob.Format(inputval.DateLayout),
		Experience:  exp,
		Skills:      skills,
		CreatedAt:   c.now().UTC(),
	}, nil
}

// SignUp validates the whole form, creates the account and writes its
// profile. A failed profile write is logged and the account is kept; the
// returned context then has no profile.
func (c *Controller) SignUp(ctx context.Context, reg Registration) (*Context, error) {
	email := normalize.Email(reg.Email)
	if !inputval.IsValidEmail(email) {
		return nil, apperr.ErrInvalidEmail
	}
	if len(reg.Password) < minPasswordLen || len(reg.Password) > maxPasswordLen {
		return nil, apperr.ErrWeakCredential
	}
	// Profile fields are checked before the account exists.
	if _, err := c.buildProfile("", email, reg.ProfileInput); err != nil {
		return nil, err
	}

	acct, err := c.accounts.Create(ctx, email, reg.Password)
	if err != nil {
		return nil, err
	}

	p, _ := c.buildProfile(acct.ID, acct.Email, reg.ProfileInput)
	if _, err := c.profiles.CreateIfAbsent(ctx, p); err != nil {
		c.log.Error("account created but profile write failed",
			zap.String("account_id", acct.ID), zap.Error(err))
	}

	return c.OnSessionChange(ctx, acct.ID, acct.Email), nil
}

// SignIn authenticates and resolves the new session.
func (c *Controller) SignIn(ctx context.Context, email, password string) (*Context, error) {
	acct, err := c.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.OnSessionChange(ctx, acct.ID, acct.Email), nil
}

// SignOut clears everything derived from the account.
func (c *Controller) SignOut(sc *Context) {
	if sc != nil {
		sc.Teardown()
	}
}

// CompleteProfile writes a profile for an authenticated account that has
// none. An existing profile is never overwritten; sc is updated with
// whatever profile is stored afterwards.
func (c *Controller) CompleteProfile(ctx context.Context, sc *Context, in ProfileInput) error {
	if sc == nil || !sc.Authenticated() {
		return apperr.ErrNotAuthenticated
	}
	p, err := c.buildProfile(sc.AccountID(), sc.Email(), in)
	if err != nil {
		return err
	}
	created, err := c.profiles.CreateIfAbsent(ctx, p)
	if err != nil {
		return apperr.Store("write profile", err)
	}
	if created {
		sc.setProfile(&p)
		return nil
	}

	stored, err := c.profiles.Get(ctx, sc.AccountID())
	if err != nil {
		return apperr.Store("reload profile", err)
	}
	sc.setProfile(stored)
	return nil
}

// Middleware resolves the signed-in user (set by SessionManager.LoadSessionUser) into a
// session context for every request.
func (c *Controller) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := auth.CurrentUser(r)
		if !ok {
			next.ServeHTTP(w, WithContext(r, c.OnSessionChange(r.Context(), "", "")))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
		sc := c.OnSessionChange(ctx, u.ID, u.Email)
		cancel()
		next.ServeHTTP(w, WithContext(r, sc))
	})
}
