package main

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

type page struct {
	Path  string
	File  string
	Title string
}

var sitePages = []page{
	{Path: "/", File: "index.html", Title: "URL Scanner"},
	{Path: "/how-it-works", File: "how-it-works.html", Title: "How It Works"},
	{Path: "/expander", File: "expander.html", Title: "Link Expander"},
	{Path: "/history", File: "history.html", Title: "Scan History"},
	{Path: "/report", File: "report.html", Title: "Report a Wrong Verdict"},
}

type pageData struct {
	Title   string
	Path    string
	Version string
	Pages   []page
}

// loadPages parses every page together with the shared layout.
func loadPages() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(sitePages))
	for _, p := range sitePages {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+p.File)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p.File, err)
		}
		out[p.Path] = t
	}
	return out, nil
}

func pageHandler(p page, t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "GET required", http.StatusMethodNotAllowed)
			return
		}
		// "/" is registered as a catch-all pattern.
		if r.URL.Path != p.Path {
			http.NotFound(w, r)
			return
		}

		var buf bytes.Buffer
		data := pageData{Title: p.Title, Path: p.Path, Version: EngineVersion, Pages: sitePages}
		if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
			log.Printf("[SafeLink] Failed to render %s: %v", p.File, err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(buf.Bytes())
	}
}
