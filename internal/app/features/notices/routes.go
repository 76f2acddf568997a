// internal/app/features/notices/routes.go
package notices

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /notices.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}
