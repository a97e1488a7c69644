// internal/domain/models/skills.go
package models

import "strings"

// AvailableSkills is the fixed vocabulary offered by the registration and
// publication forms.
var AvailableSkills = []string{
	"Tutoring",
	"Catering",
	"Teaching",
	"Mentoring",
	"Event Planning",
	"Fundraising",
	"Public Speaking",
	"Graphic Design",
	"Social Media Management",
	"First Aid",
	"Translation",
	"Gardening",
	"Construction",
	"Childcare",
	"Elderly Care",
}

var skillIndex = func() map[string]string {
	m := make(map[string]string, len(AvailableSkills))
	for _, s := range AvailableSkills {
		m[strings.ToLower(s)] = s
	}
	return m
}()

// CanonicalSkill maps a submitted value to its spelling in AvailableSkills.
func CanonicalSkill(s string) (string, bool) {
	c, ok := skillIndex[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// NormalizeSkills canonicalizes and de-duplicates skills, keeping first-seen
// order. Blank entries are dropped. The second return value lists entries
// that are not in AvailableSkills.
func NormalizeSkills(in []string) (skills, unknown []string) {
	seen := make(map[string]bool, len(in))
	for _, raw := range in {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		c, ok := CanonicalSkill(raw)
		if !ok {
			unknown = append(unknown, strings.TrimSpace(raw))
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		skills = append(skills, c)
	}
	return skills, unknown
}
