package publication

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.uber.org/zap"
)

type memCreator struct {
	created []models.Opportunity
	err     error
}

func (m *memCreator) Create(_ context.Context, o models.Opportunity) (models.Opportunity, error) {
	if m.err != nil {
		return models.Opportunity{}, m.err
	}
	o.ID = "new-id"
	m.created = append(m.created, o)
	return o, nil
}

type results map[string]int

func (r results) Published(result string) { r[result]++ }

func validForm() Form {
	return Form{
		Title:       "Reading buddies",
		CompanyName: "City Library",
		Skills:      []string{"Tutoring", "Teaching"},
		Experience:  "medium",
		Description: "Read with kids on Saturdays.",
	}
}

func TestPublish_StoresZeroCount(t *testing.T) {
	store := &memCreator{}
	rec := results{}
	s := NewService(store, rec, zap.NewNop())

	opp, err := s.Publish(context.Background(), validForm())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if opp.ID != "new-id" {
		t.Errorf("ID = %q", opp.ID)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d, want 1", len(store.created))
	}
	got := store.created[0]
	if got.SignupCount != 0 {
		t.Errorf("SignupCount = %d, want 0", got.SignupCount)
	}
	if !reflect.DeepEqual(got.SkillsRequired, []string{"Tutoring", "Teaching"}) {
		t.Errorf("SkillsRequired = %v", got.SkillsRequired)
	}
	if got.ExperienceRequired != models.ExperienceMedium {
		t.Errorf("ExperienceRequired = %q", got.ExperienceRequired)
	}
	if rec["ok"] != 1 {
		t.Errorf("metrics = %v", rec)
	}
}

func TestPublish_NoDuplicateDetection(t *testing.T) {
	store := &memCreator{}
	s := NewService(store, nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := s.Publish(context.Background(), validForm()); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}
	if len(store.created) != 2 {
		t.Errorf("created %d, want 2", len(store.created))
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Form)
		field string
	}{
		{"no title", func(f *Form) { f.Title = "  " }, "title"},
		{"no company", func(f *Form) { f.CompanyName = "" }, "company_name"},
		{"no skills", func(f *Form) { f.Skills = nil }, "skills_required"},
		{"blank skills", func(f *Form) { f.Skills = []string{"", " "} }, "skills_required"},
		{"unknown skill", func(f *Form) { f.Skills = []string{"Juggling"} }, "skills_required"},
		{"bad experience", func(f *Form) { f.Experience = "expert" }, "experience_required"},
		{"markup only description", func(f *Form) { f.Description = "<script>x</script>" }, "description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.edit(&f)
			_, err := f.Validate()
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestValidate_Cleans(t *testing.T) {
	f := validForm()
	f.Skills = []string{"tutoring", "Tutoring", "TEACHING"}
	f.Description = "<b>Read</b> with kids."
	f.Title = "  Reading   buddies "

	o, err := f.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !reflect.DeepEqual(o.SkillsRequired, []string{"Tutoring", "Teaching"}) {
		t.Errorf("skills = %v", o.SkillsRequired)
	}
	if o.Description != "Read with kids." {
		t.Errorf("description = %q", o.Description)
	}
	if o.Title != "Reading buddies" {
		t.Errorf("title = %q", o.Title)
	}
}

func TestPublish_StoreError(t *testing.T) {
	rec := results{}
	s := NewService(&memCreator{err: errors.New("down")}, rec, zap.NewNop())

	_, err := s.Publish(context.Background(), validForm())
	if !apperr.IsStore(err) {
		t.Fatalf("Publish = %v, want StoreError", err)
	}
	if rec["store"] != 1 {
		t.Errorf("metrics = %v", rec)
	}
}
