// Package view adapts html/template to echo's Renderer contract. The
// core hands it plain data and does not know the output format.
package view

import (
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"

	"booklog/web"
)

// Renderer renders embedded page templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses all embedded templates.
func NewRenderer() (*Renderer, error) {
	t, err := template.ParseFS(web.TemplatesFS(), "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.templates.ExecuteTemplate(w, name, data)
}
