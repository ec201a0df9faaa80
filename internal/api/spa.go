package api

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// newStaticHandler serves a built frontend from dir. Unknown paths without a
// file extension are client-side routes and get index.html; unknown assets
// and anything under /api/ get 404.
func newStaticHandler(dir string) http.Handler {
	root := os.DirFS(dir)
	files := http.FileServerFS(root)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "."
		}
		if name == "." {
			files.ServeHTTP(w, r)
			return
		}
		if info, err := fs.Stat(root, name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if path.Ext(name) != "" {
			http.NotFound(w, r)
			return
		}
		http.ServeFileFS(w, r, root, "index.html")
	})
}
