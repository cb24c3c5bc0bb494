package view

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// URLResolver maps an action name and its route parameters to a URL.
type URLResolver interface {
	URL(action string, params ...string) (string, error)
}

// Renderer executes the embedded templates. It is safe for concurrent use
// once constructed.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the templates with action URLs resolved by urls.
func NewRenderer(urls URLResolver) (*Renderer, error) {
	if urls == nil {
		return nil, errors.New("view: url resolver is required")
	}
	funcs := template.FuncMap{
		"action": func(name string, params ...any) (string, error) {
			args := make([]string, 0, len(params))
			for _, p := range params {
				args = append(args, fmt.Sprint(p))
			}
			return urls.URL(name, args...)
		},
		"inc": func(i int) int { return i + 1 },
	}
	tmpl, err := template.New("storefront").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page renders the full document.
func (r *Renderer) Page(p Page) templ.Component {
	return r.component("page", p)
}

// Fragments renders the out-of-band update set for htmx requests.
func (r *Renderer) Fragments(f Fragments) templ.Component {
	return r.component("fragments", f)
}

func (r *Renderer) component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return r.tmpl.ExecuteTemplate(w, name, data)
	})
}
