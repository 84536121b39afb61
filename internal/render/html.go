package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Fragment names that can be rendered on their own
const (
	FragmentComparison = "comparison"
	FragmentTable      = "table"
	FragmentRanking    = "ranking"
	FragmentValue      = "value"
	FragmentDataTable  = "datatable"
	FragmentPicker     = "picker"
	FragmentQuickView  = "quickview"
	FragmentSettings   = "settings"
	FragmentPrompt     = "prompt"
)

var fragments = map[string]bool{
	FragmentComparison: true,
	FragmentTable:      true,
	FragmentRanking:    true,
	FragmentValue:      true,
	FragmentDataTable:  true,
	FragmentPicker:     true,
	FragmentQuickView:  true,
	FragmentSettings:   true,
	FragmentPrompt:     true,
}

// Renderer turns pages into HTML
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}
	tmpl, err := template.New("compare").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page writes the full HTML document
func (r *Renderer) Page(w io.Writer, p Page) error {
	return r.execute(w, "page", p)
}

// Fragment writes one named section of the page
func (r *Renderer) Fragment(w io.Writer, name string, p Page) error {
	if !fragments[name] {
		return fmt.Errorf("unknown fragment %q", name)
	}
	return r.execute(w, name, p)
}

// Fragments renders every fragment, keyed by name. Live clients swap
// these into place.
func (r *Renderer) Fragments(p Page) (map[string]string, error) {
	out := make(map[string]string, len(fragments))
	for name := range fragments {
		var buf bytes.Buffer
		if err := r.execute(&buf, name, p); err != nil {
			return nil, err
		}
		out[name] = buf.String()
	}
	return out, nil
}

// ErrorPage is the static view shown when the catalog could not be loaded
type ErrorPage struct {
	Lang    string
	Title   string
	Message string
}

// Error writes the static error document
func (r *Renderer) Error(w io.Writer, e ErrorPage) error {
	return r.execute(w, "error", e)
}

// execute renders into a buffer first so a template failure never leaves a
// half-written response
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}
