// internal/app/features/feeds/routes.go
package feeds

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /feeds.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{feed}", h.List)
	r.Post("/{feed}", h.Create)
	r.Post("/{feed}/refresh", h.Refresh)
	r.Delete("/{feed}/{role}/{recordID}/{itemID}", h.Remove)
	return r
}
