// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/ku-polls/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"ago":   func(t time.Time) string { return humanize.Time(t) },
	"comma": func(n int) string { return humanize.Comma(int64(n)) },
}

// Pages holds one parsed template set per page, each layered on base.html
type Pages struct {
	sets map[string]*template.Template
}

// LoadPages parses the embedded templates
func LoadPages() (*Pages, error) {
	names := []string{"index", "detail", "results", "login"}
	p := &Pages{sets: make(map[string]*template.Template, len(names))}

	for _, name := range names {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.sets[name] = t
	}
	return p, nil
}

// MustLoadPages is LoadPages for wiring code where the embedded templates
// are known to parse
func MustLoadPages() *Pages {
	p, err := LoadPages()
	if err != nil {
		panic(err)
	}
	return p
}

// pageData is what every page template sees
type pageData struct {
	User    *models.User
	Flashes []string
}

// render buffers the page so a template error still yields a clean 500
func (p *Pages) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := p.sets[name]
	if !ok {
		slog.Error("unknown template", "template", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("failed to write page", "template", name, "error", err)
	}
}
