package web

import (
	"embed"
	"net/http"
)

//go:embed templates/*.html
var templates embed.FS

func serveTemplate(w http.ResponseWriter, name string) {
	data, err := templates.ReadFile("templates/" + name)
	if err != nil {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

// IndexHandler serves the request form. It talks to /api/v1 only.
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	serveTemplate(w, "index.html")
}

func RunDetailHandler(w http.ResponseWriter, r *http.Request) {
	serveTemplate(w, "run.html")
}
