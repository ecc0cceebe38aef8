// Package web embeds the built frontend (dist/) and provides an HTTP handler
// that serves it as a single-page application (SPA).
//
// index.html may reference the placeholder %BASE_PATH%, replaced at serve
// time so the same build works under any mount point.
package web

import (
	"bytes"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

const basePathPlaceholder = "%BASE_PATH%"

// SPAHandler returns an http.Handler that serves the embedded frontend
// mounted at basePath. It serves static files from dist/, and falls back to
// index.html for any path that doesn't match a file (SPA client-side
// routing). Requests are expected with basePath already stripped.
func SPAHandler(basePath string) http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	index, err := fs.ReadFile(subFS, "index.html")
	if err != nil {
		panic("web: missing index.html: " + err.Error())
	}
	base := strings.TrimRight(basePath, "/") + "/"
	index = bytes.ReplaceAll(index, []byte(basePathPlaceholder), []byte(base))

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path != "" && path != "index.html" {
			if f, err := subFS.Open(path); err == nil {
				if closeErr := f.Close(); closeErr != nil {
					slog.Debug("web: failed to close embedded file", "path", path, "error", closeErr)
				}
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		// Root, index.html or an unknown path: serve the rendered index.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(index)
	})
}
