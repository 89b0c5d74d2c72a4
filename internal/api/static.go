package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const indexPage = "index.html"

// RegisterStatic serves the front-end from dir under /static and redirects
// the site root to its index page.
func RegisterStatic(r chi.Router, dir string) {
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/static/"+indexPage, http.StatusTemporaryRedirect)
	})
	r.Handle("/static/*", http.StripPrefix("/static", indexAware(http.FileServer(http.Dir(dir)))))
}

// indexAware serves explicit index.html requests in place. http.FileServer
// would otherwise answer them with a redirect to the directory.
func indexAware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/"+indexPage) {
			r2 := r.Clone(r.Context())
			r2.URL.Path = strings.TrimSuffix(r.URL.Path, indexPage)
			r2.URL.RawPath = ""
			next.ServeHTTP(w, r2)
			return
		}
		next.ServeHTTP(w, r)
	})
}
