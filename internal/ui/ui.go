package ui

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed web
var embedded embed.FS

const indexFile = "index.html"

// Handler returns an http.Handler for the UI assets.
//
// When dir names an existing directory its files are served, otherwise the
// embedded page is used.
func Handler(dir string) http.Handler {
	return handlerFS(assets(dir))
}

// assets picks the asset filesystem for dir.
func assets(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	sub, err := fs.Sub(embedded, "web")
	if err != nil {
		// The embed directive guarantees the directory.
		panic("ui: embedded assets missing: " + err.Error())
	}
	return sub
}

func handlerFS(fsys fs.FS) http.Handler {
	fileServer := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// index.html and unhashed bundles change between deployments.
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			fileServer.ServeHTTP(w, r)
			return
		}

		if _, err := fs.Stat(fsys, name); errors.Is(err, fs.ErrNotExist) && path.Ext(name) == "" {
			// Client-side route.
			http.ServeFileFS(w, r, fsys, indexFile)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
