package catalog

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	markdown  = goldmark.New()
	sanitizer = bluemonday.UGCPolicy()
)

// DescriptionHTML renders the Markdown description as sanitised HTML.
// Falls back to the escaped source when Markdown conversion fails.
func (p Product) DescriptionHTML() template.HTML {
	if p.Description == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(p.Description), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(p.Description))
	}
	return template.HTML(sanitizer.SanitizeBytes(buf.Bytes()))
}
