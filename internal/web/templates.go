package web

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// renderTemplate executes tmpl into a buffer first so a failing template
// yields a clean 500 instead of a half-written page.
func (s *Server) renderTemplate(w http.ResponseWriter, tmpl string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, tmpl+".html", data); err != nil {
		slog.Error("Failed to execute template", "template", tmpl, "error", err)
		http.Error(w, "Template execution failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("Failed to write response", "template", tmpl, "error", err)
	}
}
