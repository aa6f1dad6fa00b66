package api

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"time"

	"github.com/Kerhoff/rollcall/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcMap = template.FuncMap{
	"day": func(t time.Time) string {
		return t.Format("2006-01-02 (Mon)")
	},
	"statuses": func() []models.ResponseStatus {
		return []models.ResponseStatus{models.ResponseYes, models.ResponseMaybe, models.ResponseNo}
	},
}

// loadTemplates parses every page together with the shared layout, keyed by
// file name
func loadTemplates() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		tmpl, err := template.New(base).Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", base, err)
		}
		pages[base] = tmpl
	}
	return pages, nil
}
