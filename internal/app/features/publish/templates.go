// internal/app/features/publish/templates.go
package publish

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "publish",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
