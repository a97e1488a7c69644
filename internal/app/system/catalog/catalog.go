// internal/app/system/catalog/catalog.go
package catalog

import (
	"context"
	"time"

	"github.com/dalemusser/volunteerhub/internal/app/system/apperr"
	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Source lists raw opportunity documents in store order.
type Source interface {
	ListRaw(ctx context.Context) ([]bson.M, error)
}

// Catalog loads opportunities and drops the malformed ones.
type Catalog struct {
	src Source
	log *zap.Logger
}

func New(src Source, logger *zap.Logger) *Catalog {
	return &Catalog{src: src, log: logger}
}

// Load fetches every opportunity and keeps the well-formed ones, preserving
// store order. It does not cache.
func (c *Catalog) Load(ctx context.Context) ([]models.Opportunity, error) {
	docs, err := c.src.ListRaw(ctx)
	if err != nil {
		return nil, apperr.Store("list opportunities", err)
	}
	opps := Filter(docs)
	if dropped := len(docs) - len(opps); dropped > 0 {
		c.log.Debug("catalog dropped malformed opportunities", zap.Int("count", dropped))
	}
	return opps, nil
}

// Filter decodes docs, skipping any that lack a title, company name,
// required skills, required experience or description. A present but
// blank value is not lacking.
func Filter(docs []bson.M) []models.Opportunity {
	out := make([]models.Opportunity, 0, len(docs))
	for _, d := range docs {
		if o, ok := decode(d); ok {
			out = append(out, o)
		}
	}
	return out
}

// Joined resolves ids against opps in opps order. Ids not in the catalog
// are skipped.
func Joined(opps []models.Opportunity, ids []string) []models.Opportunity {
	if len(ids) == 0 {
		return nil
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Opportunity
	for _, o := range opps {
		if want[o.ID] {
			out = append(out, o)
		}
	}
	return out
}

func decode(d bson.M) (models.Opportunity, bool) {
	id, ok := idString(d["_id"])
	if !ok {
		return models.Opportunity{}, false
	}
	title, ok1 := nonEmpty(d["title"])
	company, ok2 := nonEmpty(d["company_name"])
	exp, ok3 := nonEmpty(d["experience_required"])
	desc, ok4 := nonEmpty(d["description"])
	skills, ok5 := stringList(d["skills_required"])
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return models.Opportunity{}, false
	}

	o := models.Opportunity{
		ID:                 id,
		Title:              title,
		CompanyName:        company,
		SkillsRequired:     skills,
		ExperienceRequired: models.Experience(exp),
		Description:        desc,
		SignupCount:        number(d["signup_count"]),
	}
	if dt, ok := d["created_at"].(primitive.DateTime); ok {
		o.CreatedAt = dt.Time().UTC()
	} else if t, ok := d["created_at"].(time.Time); ok {
		o.CreatedAt = t.UTC()
	}
	return o, true
}

func idString(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case primitive.ObjectID:
		return id.Hex(), !id.IsZero()
	}
	return "", false
}

// nonEmpty treats only a missing, non-string or "" value as absent.
// Whitespace-only text is kept as stored.
func nonEmpty(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func stringList(v interface{}) ([]string, bool) {
	var items []interface{}
	switch a := v.(type) {
	case primitive.A:
		items = a
	case []interface{}:
		items = a
	case []string:
		return a, true
	default:
		return nil, false
	}
	// A present array counts even when empty.
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// number reads any BSON numeric type; anything else counts as zero.
func number(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case primitive.Decimal128:
		if bi, exp, err := n.BigInt(); err == nil && exp == 0 && bi.IsInt64() {
			return bi.Int64()
		}
	}
	return 0
}
