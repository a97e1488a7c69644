// internal/app/system/publication/publication.go
package publication

import (
	"context"
	"strings"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

// Form is a submitted posting, as typed.
type Form struct {
	Title       string
	CompanyName string
	Skills      []string
	Experience  string
	Description string
}

// Validate cleans f and returns the opportunity it describes, or the first
// field that is missing or invalid.
func (f Form) Validate() (models.Opportunity, error) {
	title := htmlsanitize.PlainText(normalize.Name(f.Title))
	if title == "" {
		return models.Opportunity{}, apperr.Invalid("title", "Title is required.")
	}
	company := htmlsanitize.PlainText(normalize.Name(f.CompanyName))
	if company == "" {
		return models.Opportunity{}, apperr.Invalid("company_name", "Company name is required.")
	}

	skills, unknown := models.NormalizeSkills(f.Skills)
	if len(unknown) > 0 {
		return models.Opportunity{}, apperr.Invalid("skills_required", "Unknown skill: "+strings.Join(unknown, ", ")+".")
	}
	if len(skills) == 0 {
		return models.Opportunity{}, apperr.Invalid("skills_required", "Select at least one required skill.")
	}

	exp, ok := models.ParseExperience(f.Experience)
	if !ok {
		return models.Opportunity{}, apperr.Invalid("experience_required", "Select an experience level.")
	}

	desc := htmlsanitize.PlainText(normalize.Text(f.Description))
	if desc == "" {
		return models.Opportunity{}, apperr.Invalid("description", "Description is required.")
	}

	return models.Opportunity{
		Title:              title,
		CompanyName:        company,
		SkillsRequired:     skills,
		ExperienceRequired: exp,
		Description:        desc,
	}, nil
}

// Creator persists a new opportunity; the store assigns the id and zeroes
// the signup count.
type Creator interface {
	Create(ctx context.Context, o models.Opportunity) (models.Opportunity, error)
}

// Recorder counts publication outcomes.
type Recorder interface {
	Published(result string)
}

type Service struct {
	store   Creator
	metrics Recorder
	log     *zap.Logger
}

func NewService(store Creator, metrics Recorder, logger *zap.Logger) *Service {
	return &Service{store: store, metrics: metrics, log: logger}
}

// Publish validates f and stores a new opportunity. Every valid submission
// creates a new document; there is no duplicate detection.
func (s *Service) Publish(ctx context.Context, f Form) (opp models.Opportunity, err error) {
	defer func() {
		if s.metrics != nil {
			s.metrics.Published(apperr.Kind(err))
		}
	}()

	o, err := f.Validate()
	if err != nil {
		return models.Opportunity{}, err
	}
	o.SignupCount = 0

	created, err := s.store.Create(ctx, o)
	if err != nil {
		s.log.Error("publish opportunity failed", zap.String("title", o.Title), zap.Error(err))
		return models.Opportunity{}, apperr.Store("insert opportunity", err)
	}
	s.log.Info("opportunity published",
		zap.String("opportunity_id", created.ID),
		zap.String("title", created.Title))
	return created, nil
}
