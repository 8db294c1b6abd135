package status

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/bissquit/status-monitor/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

const timeLayout = "Jan 02, 15:04 UTC"

// Renderer renders the HTML status pages from embedded templates.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer creates a renderer and parses all page templates.
func NewRenderer() (*Renderer, error) {
	funcMap := template.FuncMap{
		"fmtTime":     formatTime,
		"statusLabel": statusLabel,
		"title":       titleCase,
		"latency":     formatLatency,
	}

	r := &Renderer{templates: make(map[string]*template.Template)}

	for _, name := range []string{"index", "errors"} {
		filename := fmt.Sprintf("templates/%s.html.tmpl", name)

		content, err := templatesFS.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", filename, err)
		}

		tmpl, err := template.New(name).Funcs(funcMap).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}

		r.templates[name] = tmpl
	}

	return r, nil
}

// Render executes the named page template with data.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func formatTime(value any) string {
	switch t := value.(type) {
	case time.Time:
		if t.IsZero() {
			return "–"
		}
		return t.UTC().Format(timeLayout)
	case *time.Time:
		if t == nil || t.IsZero() {
			return "–"
		}
		return t.UTC().Format(timeLayout)
	default:
		return "–"
	}
}

func statusLabel(s domain.Severity) string {
	return s.Label()
}

func titleCase(s string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.ReplaceAll(s, "_", " "))
}

func formatLatency(ms *int64) string {
	if ms == nil {
		return "no response"
	}
	return fmt.Sprintf("%dms", *ms)
}
