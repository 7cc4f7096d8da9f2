package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type handlerFunc func(w http.ResponseWriter, r *http.Request) *Response

func (f handlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if resp := f(w, r); resp != nil {
		resp.write(w, r)
	}
}

// Handler returns the user routes, to be mounted at /users.
func Handler(h *Handle) http.Handler {
	r := chi.NewRouter()

	r.Method(http.MethodPost, "/", handlerFunc(h.PostUsers))
	r.Method(http.MethodGet, "/hello", handlerFunc(h.GetHello))
	r.Method(http.MethodGet, "/{id}", handlerFunc(func(w http.ResponseWriter, r *http.Request) *Response {
		return h.GetUser(w, r, chi.URLParam(r, "id"))
	}))

	return r
}
